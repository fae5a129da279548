/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"livedoodle/internal/backend"
	"livedoodle/internal/canvas"
	"livedoodle/internal/compose"
	"livedoodle/internal/config"
	"livedoodle/internal/display"
	"livedoodle/internal/display/headless"
	"livedoodle/internal/display/sdl2"
	"livedoodle/internal/display/terminal"
	"livedoodle/internal/engine"
	"livedoodle/internal/export"
	"livedoodle/internal/input"
	applog "livedoodle/internal/log"
	"livedoodle/internal/script"
	"livedoodle/internal/source"
	"livedoodle/internal/storage"
	"livedoodle/internal/timing"
	"livedoodle/internal/ui"
)

// SaveReporter is told about every completed save.
type SaveReporter interface {
	DrawingSaved(formats []string)
}

// SessionReporter combines the telemetry hooks the app uses.
type SessionReporter interface {
	Telemetry
	SaveReporter
}

// BuildOptions carries command-line settings that are not part of the
// persisted configuration.
type BuildOptions struct {
	Script        script.Script
	MaxFrames     int
	SnapshotEvery int
	SnapshotDir   string
	// FontPath selects a TrueType font for the overlay; empty uses the
	// built-in bitmap face.
	FontPath  string
	Telemetry SessionReporter
	// OnLayer receives the annotation layer, e.g. for crash autosave.
	OnLayer func(*canvas.Layer)
}

// Build assembles a Runner from the configuration. The returned cleanup
// closes the gallery and the mirror; call it after Run returns.
func Build(ctx context.Context, cfg config.AppConfig, sec config.Secrets, opts BuildOptions) (*Runner, func(), error) {
	lg := applog.WithOperation(applog.WithComponent("app"), "build")
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				lg.Warn("cleanup failed", slog.Any("err", err))
			}
		}
	}

	saver := &export.Saver{Options: export.Options{
		Preset:      export.PresetName(cfg.Export.Preset),
		Formats:     cfg.Export.Formats,
		OutDir:      cfg.Export.Dir,
		JPEGQuality: cfg.Export.JPEGQuality,
	}}
	if cfg.Gallery.Enabled {
		p := cfg.Gallery.Path
		if p == "" {
			p = storage.IndexPath(cfg.Export.Dir)
		}
		g, err := storage.Open(p)
		if err != nil {
			// the gallery is optional; saving still works without it
			lg.Warn("gallery unavailable", slog.String("path", p), slog.Any("err", err))
		} else {
			closers = append(closers, g.Close)
			saver.After = append(saver.After, g.Record)
		}
	}
	if cfg.Gallery.PGDSN != "" {
		m, err := backend.Open(ctx, cfg.Gallery.PGDSN, sec.PGPassword)
		if err != nil {
			lg.Warn("postgres mirror unavailable", slog.Any("err", err))
		} else {
			closers = append(closers, m.Close)
			saver.After = append(saver.After, m.Record)
		}
	}
	if opts.Telemetry != nil {
		rep := opts.Telemetry
		saver.After = append(saver.After, func(_ context.Context, s export.Saved) error {
			rep.DrawingSaved(formatsOf(s.Paths))
			return nil
		})
	}

	km, err := input.KeymapByName(cfg.Display.Keymap)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	tool, err := toolNamed(cfg.Canvas.Tool)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	src, err := source.Open(source.Config{
		Kind:   cfg.Camera.Source,
		Device: cfg.Camera.Device,
		Dir:    cfg.Camera.ImageDir,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    cfg.Camera.FPS,
		Loop:   cfg.Camera.Loop,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("open source: %w", err)
	}

	disp, err := OpenDisplay(cfg.Display.Backend, headless.Options{
		MaxFrames:     opts.MaxFrames,
		Script:        opts.Script,
		SnapshotEvery: opts.SnapshotEvery,
		SnapshotDir:   opts.SnapshotDir,
	})
	if err != nil {
		_ = src.Close()
		cleanup()
		return nil, nil, err
	}

	fonts := compose.BasicFonts()
	if opts.FontPath != "" {
		if f, ferr := compose.LoadFonts(opts.FontPath, 13); ferr != nil {
			lg.Warn("font not loaded, using built-in face", slog.String("path", opts.FontPath), slog.Any("err", ferr))
		} else {
			fonts = f
		}
	}

	eo := engine.Options{
		Tool:            tool,
		HistoryCapacity: cfg.Canvas.HistoryCap,
		BrushSize:       cfg.Canvas.BrushSize,
		HideHelp:        !cfg.Display.ShowHelp,
		HidePalette:     !cfg.Display.ShowPalette,
		Saver:           saver,
		Logger:          applog.WithComponent("engine"),
	}
	if cfg.Canvas.Seed != 0 {
		eo.Rand = rand.New(rand.NewPCG(cfg.Canvas.Seed, cfg.Canvas.Seed))
	}

	rc := Config{
		Engine: eo,
		Display: display.Config{
			Title: cfg.Display.Title,
			Scale: cfg.Display.Scale,
		},
		Keymap:      km,
		PollWait:    time.Duration(cfg.Display.PollMs) * time.Millisecond,
		ShowStats:   cfg.Display.ShowStats,
		Fonts:       fonts,
		SourceName:  cfg.Camera.Source,
		DisplayName: cfg.Display.Backend,
	}
	ropts := []Option{WithLimiter(limiterFor(cfg))}
	if opts.Telemetry != nil {
		ropts = append(ropts, WithTelemetry(opts.Telemetry))
	}
	if opts.OnLayer != nil {
		ropts = append(ropts, OnLayer(opts.OnLayer))
	}
	lg.Info("session configured",
		slog.String("source", cfg.Camera.Source),
		slog.String("display", cfg.Display.Backend),
		slog.Int("hooks", len(saver.After)))
	return New(rc, src, disp, ropts...), cleanup, nil
}

// limiterFor paces synthetic sources at the configured rate. A camera sets
// its own pace, and so does a headless run, which goes as fast as it can.
func limiterFor(cfg config.AppConfig) timing.Limiter {
	if strings.EqualFold(cfg.Display.Backend, "headless") {
		return timing.NewNoOp()
	}
	switch strings.ToLower(cfg.Camera.Source) {
	case "camera", "gst":
		return timing.NewNoOp()
	}
	return timing.New(cfg.Camera.FPS)
}

// ErrUnknownTool is returned for an unrecognized canvas.tool name.
var ErrUnknownTool = errors.New("unknown tool")

// toolNamed resolves the starting tool; an empty name selects the brush.
func toolNamed(name string) (engine.Tool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return engine.Brush, nil
	}
	t, ok := engine.ParseTool(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t, nil
}

// ErrUnknownDisplay is returned for an unrecognized backend name.
var ErrUnknownDisplay = errors.New("unknown display backend")

// OpenDisplay returns the display backend called name. Only the headless
// backend uses hopts.
func OpenDisplay(name string, hopts headless.Options) (display.Display, error) {
	switch strings.ToLower(name) {
	case "headless":
		return headless.New(hopts), nil
	case "", "terminal", "tty":
		return terminal.New(nil), nil
	case "sdl2", "sdl":
		return sdl2.New(), nil
	case "fyne", "gui":
		return ui.New(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDisplay, name)
}

func formatsOf(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, export.FormatFromPath(p))
	}
	return out
}
