/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"log/slog"
	"os"
	"runtime"

	"github.com/urfave/cli"

	"livedoodle/internal/crash"
	applog "livedoodle/internal/log"
	"livedoodle/internal/version"
)

// autosaver holds the live layer once a session starts so a panic can still
// save the drawing.
var autosaver = crash.NewLayerAutosaver("")

func init() {
	// SDL and the desktop UI must own the main thread.
	runtime.LockOSThread()
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "livedoodle"
	app.Usage = "draw on a live camera feed"
	app.Description = "Layered doodling over camera, image or test-pattern frames."
	app.Version = version.String()
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Path to the YAML config (default: per-user config path)",
		},
	}
	app.Commands = []cli.Command{
		runCommand(),
		benchCommand(),
		galleryCommand(),
		configCommand(),
		{
			Name:  "version",
			Usage: "Print version information",
			Action: func(c *cli.Context) error {
				_, err := c.App.Writer.Write([]byte(version.String() + "\n"))
				return err
			},
		},
	}
	return app
}

func main() {
	applog.Init(applog.FromEnv())
	defer crash.Recover(autosaver)

	if err := newApp().Run(os.Args); err != nil {
		applog.WithComponent("cli").Error("command failed", slog.Any("err", err))
		os.Exit(1)
	}
}
