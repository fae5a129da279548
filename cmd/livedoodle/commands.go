/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"

	"livedoodle/internal/backend"
	"livedoodle/internal/bench"
	"livedoodle/internal/config"
	"livedoodle/internal/storage"
)

func benchCommand() cli.Command {
	d := bench.Defaults()
	return cli.Command{
		Name:  "bench",
		Usage: "Time drawing, image and frame-counter operations",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "width", Value: d.Width, Usage: "Canvas width"},
			cli.IntFlag{Name: "height", Value: d.Height, Usage: "Canvas height"},
			cli.IntFlag{Name: "shapes", Value: d.Shapes, Usage: "Lines, circles and rectangles per case"},
			cli.IntFlag{Name: "images", Value: d.Images, Usage: "Clones and blends per case"},
			cli.IntFlag{Name: "fps-updates", Value: d.FPSUpdates, Usage: "FPS counter updates"},
		},
		Action: func(c *cli.Context) error {
			cfg := bench.Config{
				Width:      c.Int("width"),
				Height:     c.Int("height"),
				Shapes:     c.Int("shapes"),
				Images:     c.Int("images"),
				FPSUpdates: c.Int("fps-updates"),
				Seed:       1,
			}
			return bench.Report(c.App.Writer, cfg, bench.Run(cfg))
		},
	}
}

func galleryCommand() cli.Command {
	return cli.Command{
		Name:  "gallery",
		Usage: "List saved doodles",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum entries (0 = all)"},
			cli.BoolFlag{Name: "remote", Usage: "List from the Postgres mirror instead of the local index"},
			cli.Int64Flag{Name: "delete", Usage: "Remove the entry with this id from the local index"},
		},
		Action: func(c *cli.Context) error {
			cfg, sec, err := loadConfig(c)
			if err != nil {
				return err
			}
			ctx := context.Background()
			if c.Bool("remote") {
				if cfg.Gallery.PGDSN == "" {
					return fmt.Errorf("gallery: no pg_dsn configured")
				}
				m, err := backend.Open(ctx, cfg.Gallery.PGDSN, sec.PGPassword)
				if err != nil {
					return err
				}
				defer m.Close()
				ds, err := m.Recent(ctx, c.Int("limit"))
				if err != nil {
					return err
				}
				return printDrawings(c.App.Writer, ds)
			}

			p := cfg.Gallery.Path
			if p == "" {
				p = storage.IndexPath(cfg.Export.Dir)
			}
			g, err := storage.Open(p)
			if err != nil {
				return err
			}
			defer g.Close()
			if c.IsSet("delete") {
				id := c.Int64("delete")
				if err := g.Delete(ctx, id); err != nil {
					return err
				}
				_, err := fmt.Fprintf(c.App.Writer, "Removed drawing %d from the index\n", id)
				return err
			}
			ds, err := g.List(ctx, c.Int("limit"))
			if err != nil {
				return err
			}
			return printDrawings(c.App.Writer, ds)
		},
	}
}

func printDrawings(w io.Writer, ds []storage.Drawing) error {
	if len(ds) == 0 {
		_, err := fmt.Fprintln(w, "No drawings saved yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSAVED\tSIZE\tPAINTED\tFORMATS\tNAME")
	for _, d := range ds {
		fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%d\t%s\t%s\n",
			d.ID, d.At.Local().Format("2006-01-02 15:04:05"), d.Width, d.Height, d.Painted,
			strings.Join(d.Formats, ","), d.Name())
	}
	return tw.Flush()
}

func configCommand() cli.Command {
	return cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "write", Usage: "Write the effective configuration to the config path"},
		},
		Action: func(c *cli.Context) error {
			cfg, sec, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Bool("write") {
				path := c.GlobalString("config")
				if path == "" {
					if path, err = config.ConfigPath(); err != nil {
						return err
					}
				}
				if err := config.Save(path, cfg, sec); err != nil {
					return err
				}
				_, err := fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
				return err
			}
			return printConfig(c.App.Writer, cfg)
		},
	}
}

func printConfig(w io.Writer, cfg config.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	var lines []string
	for _, k := range config.OverrideKeys() {
		if env, ok := config.EnvOverrideFor(k); ok {
			lines = append(lines, fmt.Sprintf("# %s <- %s", k, env))
		}
	}
	if len(lines) == 0 {
		return nil
	}
	_, err = fmt.Fprintf(w, "# environment overrides:\n%s\n", strings.Join(lines, "\n"))
	return err
}
