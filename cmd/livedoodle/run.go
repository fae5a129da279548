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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"livedoodle/internal/app"
	"livedoodle/internal/config"
	applog "livedoodle/internal/log"
	"livedoodle/internal/script"
	"livedoodle/internal/telemetry"
)

func runCommand() cli.Command {
	return cli.Command{
		Name:  "run",
		Usage: "Start a drawing session",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "source", Usage: "Frame source: pattern, images or camera"},
			cli.StringFlag{Name: "device", Usage: "Camera device, e.g. /dev/video0"},
			cli.StringFlag{Name: "dir", Usage: "Image directory for the images source"},
			cli.BoolFlag{Name: "loop", Usage: "Loop the image directory"},
			cli.StringFlag{Name: "display", Usage: "Display backend: terminal, headless, sdl2 or fyne"},
			cli.StringFlag{Name: "keymap", Usage: "Key layout: default (tools 1-8) or basic (r g b y p colors)"},
			cli.StringFlag{Name: "tool", Usage: "Tool active at start, e.g. brush, line or spray"},
			cli.IntFlag{Name: "frames", Usage: "Stop a headless run after N frames (0 = until the script ends)"},
			cli.Uint64Flag{Name: "seed", Usage: "Seed for the spray tool (0 = clock)"},
			cli.StringFlag{Name: "out", Usage: "Directory for saved drawings"},
			cli.StringFlag{Name: "script", Usage: "Input script replayed by the headless display"},
			cli.IntFlag{Name: "snapshot-every", Usage: "Write every Nth headless frame as PNG (0 = disabled)"},
			cli.StringFlag{Name: "snapshot-dir", Usage: "Directory for headless snapshots"},
			cli.BoolFlag{Name: "stats", Usage: "Show the FPS, frame time and memory overlay"},
			cli.StringFlag{Name: "font", Usage: "TrueType font for the overlay"},
		},
		Action: runSession,
	}
}

// applyRunFlags layers explicitly set flags over the loaded config.
func applyRunFlags(c *cli.Context, cfg *config.AppConfig) {
	if c.IsSet("source") {
		cfg.Camera.Source = c.String("source")
	}
	if c.IsSet("device") {
		cfg.Camera.Device = c.String("device")
	}
	if c.IsSet("dir") {
		cfg.Camera.ImageDir = c.String("dir")
		if !c.IsSet("source") {
			cfg.Camera.Source = "images"
		}
	}
	if c.IsSet("loop") {
		cfg.Camera.Loop = c.Bool("loop")
	}
	if c.IsSet("display") {
		cfg.Display.Backend = c.String("display")
	}
	if c.IsSet("seed") {
		cfg.Canvas.Seed = c.Uint64("seed")
	}
	if c.IsSet("out") {
		cfg.Export.Dir = c.String("out")
	}
	if c.IsSet("stats") {
		cfg.Display.ShowStats = c.Bool("stats")
	}
	if c.IsSet("keymap") {
		cfg.Display.Keymap = strings.ToLower(c.String("keymap"))
	}
	if c.IsSet("tool") {
		cfg.Canvas.Tool = strings.ToLower(c.String("tool"))
	}
}

func loadScript(path string) (script.Script, error) {
	if path == "" {
		return script.Script{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return script.Script{}, fmt.Errorf("read script: %w", err)
	}
	s, perrs := script.Parse(string(data))
	if len(perrs) > 0 {
		errs := make([]error, len(perrs))
		for i, e := range perrs {
			errs[i] = e
		}
		return script.Script{}, fmt.Errorf("parse script %s: %w", path, errors.Join(errs...))
	}
	return s, nil
}

func loadConfig(c *cli.Context) (config.AppConfig, config.Secrets, error) {
	cfg, sec, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return cfg, sec, err
	}
	initLogging(cfg, false)
	return cfg, sec, nil
}

// initLogging applies the logging section. The terminal display draws on the
// same tty as stderr, so during a session on it records go to a file only.
func initLogging(cfg config.AppConfig, session bool) {
	opts := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	}
	if session && ownsTerminal(cfg.Display.Backend) {
		opts.Console = io.Discard
		if opts.File == "" {
			opts.File = filepath.Join(os.TempDir(), "livedoodle.log")
		}
	}
	applog.Init(opts)
}

func ownsTerminal(backend string) bool {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "terminal", "tty":
		return true
	}
	return false
}

func runSession(c *cli.Context) error {
	cfg, sec, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyRunFlags(c, &cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}
	initLogging(cfg, true)
	sc, err := loadScript(c.String("script"))
	if err != nil {
		return err
	}
	l := applog.WithOperation(applog.WithComponent("cli"), "run")

	env := telemetry.FromEnv()
	tel := telemetry.NewDefault(telemetry.Config{
		OptIn:     cfg.General.TelemetryOptIn,
		EventsURL: cfg.General.TelemetryURL,
		CrashURL:  env.CrashURL,
		Token:     sec.TelemetryToken,
		Timeout:   env.Timeout,
	})
	defer func() {
		fctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tel.Flush(fctx)
		tel.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	autosaver.OutDir = cfg.Export.Dir
	r, cleanup, err := app.Build(ctx, cfg, sec, app.BuildOptions{
		Script:        sc,
		MaxFrames:     c.Int("frames"),
		SnapshotEvery: c.Int("snapshot-every"),
		SnapshotDir:   c.String("snapshot-dir"),
		FontPath:      c.String("font"),
		Telemetry:     tel,
		OnLayer:       autosaver.Set,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	l.Info("starting session", slog.String("source", cfg.Camera.Source), slog.String("display", cfg.Display.Backend))
	if err := r.Run(ctx); err != nil {
		return err
	}
	l.Info("session finished", slog.Int64("frames", r.Frames()))
	return nil
}
