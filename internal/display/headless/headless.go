/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package headless is a display that renders nowhere. It replays a scripted
// input sequence, writes periodic PNG snapshots and requests termination
// after a fixed number of frames.
package headless

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"livedoodle/internal/display"
	"livedoodle/internal/export"
	"livedoodle/internal/input"
	applog "livedoodle/internal/log"
	"livedoodle/internal/script"
)

// Options configures a headless run.
type Options struct {
	// MaxFrames stops the run after that many presented frames. Zero runs
	// until the script is exhausted, or forever without a script.
	MaxFrames int
	Script    script.Script
	// SnapshotEvery writes every Nth frame to SnapshotDir; zero disables.
	SnapshotEvery int
	SnapshotDir   string
}

// Display implements display.Display.
type Display struct {
	opts   Options
	frames int
	step   int
	idle   int
	last   *image.RGBA
	saved  []string
	closed bool
	log    *slog.Logger
}

var _ display.Display = (*Display)(nil)

func New(opts Options) *Display {
	return &Display{opts: opts, log: applog.WithComponent("display.headless")}
}

func (d *Display) Init(cfg display.Config) error {
	if d.opts.SnapshotEvery > 0 {
		if d.opts.SnapshotDir == "" {
			d.opts.SnapshotDir = "snapshots"
		}
		if err := os.MkdirAll(d.opts.SnapshotDir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	d.log.Info("running headless",
		slog.Int("frames", d.opts.MaxFrames),
		slog.Int("script_steps", len(d.opts.Script.Steps)),
		slog.Int("snapshot_interval", d.opts.SnapshotEvery),
		slog.String("snapshot_dir", d.opts.SnapshotDir),
		slog.Int("width", cfg.Width), slog.Int("height", cfg.Height))
	return nil
}

// Present counts the frame, keeps a copy and writes a snapshot when due.
func (d *Display) Present(frame *image.RGBA) error {
	if d.closed {
		return display.ErrClosed
	}
	d.frames++
	if d.last == nil || d.last.Rect != frame.Rect {
		d.last = image.NewRGBA(frame.Rect)
	}
	copy(d.last.Pix, frame.Pix)

	if d.opts.SnapshotEvery > 0 && d.frames%d.opts.SnapshotEvery == 0 {
		if err := d.snapshot(); err != nil {
			return err
		}
	}
	if d.frames%100 == 0 {
		d.log.Debug("frame progress", slog.Int("completed", d.frames), slog.Int("total", d.opts.MaxFrames))
	}
	return nil
}

func (d *Display) snapshot() error {
	p := filepath.Join(d.opts.SnapshotDir, fmt.Sprintf("frame_%06d.png", d.frames))
	if err := export.WritePNG(p, d.last); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	d.saved = append(d.saved, p)
	return nil
}

// Poll returns the next scripted event, at most one per frame, and a
// Terminate command once the run is complete. It never blocks.
func (d *Display) Poll(_ context.Context, _ time.Duration) (input.Event, bool) {
	if d.opts.MaxFrames > 0 && d.frames >= d.opts.MaxFrames {
		return input.Do(input.Terminate, 0), true
	}
	if d.idle > 0 {
		d.idle--
		return input.Event{}, false
	}
	steps := d.opts.Script.Steps
	if d.step < len(steps) {
		st := steps[d.step]
		d.step++
		if st.Wait > 0 {
			d.idle = st.Wait - 1
			return input.Event{}, false
		}
		return st.Event, true
	}
	if d.opts.MaxFrames <= 0 && len(steps) > 0 {
		return input.Do(input.Terminate, 0), true
	}
	return input.Event{}, false
}

func (d *Display) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.opts.SnapshotEvery > 0 && d.last != nil && d.frames%d.opts.SnapshotEvery != 0 {
		if err := d.snapshot(); err != nil {
			return err
		}
	}
	d.log.Info("headless run completed", slog.Int("frames", d.frames), slog.Int("snapshots", len(d.saved)))
	return nil
}

// Frames reports how many frames were presented.
func (d *Display) Frames() int { return d.frames }

// Last returns a copy of the most recently presented frame, or nil.
func (d *Display) Last() *image.RGBA { return d.last }

// Snapshots lists the snapshot files written so far.
func (d *Display) Snapshots() []string { return d.saved }
