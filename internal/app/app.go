/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package app runs the drawing loop: acquire a frame, update the counters,
// composite, present, then poll and dispatch one input event.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"livedoodle/internal/canvas"
	"livedoodle/internal/compose"
	"livedoodle/internal/display"
	"livedoodle/internal/engine"
	"livedoodle/internal/input"
	applog "livedoodle/internal/log"
	"livedoodle/internal/perf"
	"livedoodle/internal/source"
	"livedoodle/internal/timing"
)

// memEvery is how many ticks pass between memory samples.
const memEvery = 30

// Telemetry receives session events. *telemetry.Client implements it.
type Telemetry interface {
	SessionStart(source, display string, width, height int)
	SessionEnd(d time.Duration, frames int64)
}

// Config holds everything the loop needs besides its collaborators.
type Config struct {
	Engine  engine.Options
	Display display.Config
	Keymap  input.Keymap
	// PollWait bounds the wait for an input event each tick.
	PollWait  time.Duration
	ShowStats bool
	Fonts     compose.Fonts
	// SourceName and DisplayName label telemetry events.
	SourceName  string
	DisplayName string
}

// Runner owns the engine and drives one session.
type Runner struct {
	cfg      Config
	src      source.Source
	disp     display.Display
	lim      timing.Limiter
	tel      Telemetry
	onLayer  func(*canvas.Layer)
	renderer *compose.Renderer
	fps      *perf.FPSCounter

	eng    *engine.Engine
	first  *image.RGBA
	size   image.Rectangle
	frames int64
	mem    float64
	log    *slog.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLimiter paces the loop. Without it the source sets the pace.
func WithLimiter(l timing.Limiter) Option { return func(r *Runner) { r.lim = l } }

// WithTelemetry reports session start and end.
func WithTelemetry(t Telemetry) Option { return func(r *Runner) { r.tel = t } }

// OnLayer is called once the annotation layer exists, e.g. to register it
// for crash autosave.
func OnLayer(fn func(*canvas.Layer)) Option { return func(r *Runner) { r.onLayer = fn } }

func New(cfg Config, src source.Source, disp display.Display, opts ...Option) *Runner {
	if cfg.Keymap == nil {
		cfg.Keymap = input.DefaultKeymap()
	}
	if cfg.Display.Title == "" {
		cfg.Display.Title = "Live Doodle"
	}
	r := &Runner{
		cfg:      cfg,
		src:      src,
		disp:     disp,
		lim:      timing.NewNoOp(),
		renderer: compose.NewRenderer(cfg.Fonts),
		fps:      perf.NewFPSCounter(perf.DefaultWindow),
		log:      applog.WithComponent("app"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Engine returns the engine, or nil before the first frame.
func (r *Runner) Engine() *engine.Engine { return r.eng }

// Frames returns the number of presented frames.
func (r *Runner) Frames() int64 { return r.frames }

// FPS exposes the frame counter.
func (r *Runner) FPS() *perf.FPSCounter { return r.fps }

// Run waits for the first frame, sizes the engine and display from it and
// loops until Terminate, a closed display, ctx cancellation or a source
// failure. The source and display are closed on return.
func (r *Runner) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := r.src.Close(); cerr != nil {
			r.log.Warn("close source", slog.Any("err", cerr))
		}
	}()
	if err := r.start(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := r.disp.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close display: %w", cerr)
		}
	}()

	began := time.Now()
	if r.tel != nil {
		r.tel.SessionStart(r.cfg.SourceName, r.cfg.DisplayName, r.size.Dx(), r.size.Dy())
	}
	defer func() {
		if r.tel != nil {
			r.tel.SessionEnd(time.Since(began), r.frames)
		}
		r.log.Info("session ended", slog.Int64("frames", r.frames), slog.Duration("elapsed", time.Since(began)))
	}()

	if mt, ok := r.disp.(display.MainThreader); ok {
		return mt.RunMain(func() error { return r.loop(ctx) })
	}
	return r.loop(ctx)
}

// start acquires the first frame, then creates the engine and opens the
// display at the frame's size.
func (r *Runner) start(ctx context.Context) error {
	f, err := source.Validate(r.src.Next(ctx))
	if err != nil {
		return fmt.Errorf("acquire first frame: %w", err)
	}
	r.first = f
	r.size = f.Bounds()
	w, h := r.size.Dx(), r.size.Dy()
	r.eng = engine.New(w, h, r.cfg.Engine)
	if r.onLayer != nil {
		r.onLayer(r.eng.Layer())
	}
	dc := r.cfg.Display
	dc.Width, dc.Height = w, h
	if err := r.disp.Init(dc); err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	r.log.Info("session started", slog.Int("width", w), slog.Int("height", h))
	return nil
}

func (r *Runner) loop(ctx context.Context) error {
	r.lim.Reset()
	for {
		done, err := r.Tick(ctx)
		if err != nil || done {
			return err
		}
		r.lim.WaitForNextFrame()
	}
}

// Tick runs one iteration. It reports done when the session should end
// without error.
func (r *Runner) Tick(ctx context.Context) (done bool, err error) {
	if ctx.Err() != nil {
		return true, nil
	}
	frame := r.first
	r.first = nil
	if frame == nil {
		frame, err = source.Validate(r.src.Next(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, fmt.Errorf("acquire frame: %w", err)
		}
		if frame.Bounds().Size() != r.size.Size() {
			return true, fmt.Errorf("acquire frame: size changed from %v to %v", r.size.Size(), frame.Bounds().Size())
		}
	}

	r.fps.Update()
	out := r.renderer.Render(frame, r.eng.Layer(), compose.StateOf(r.eng), r.stats())
	if err := r.disp.Present(out); err != nil {
		if errors.Is(err, display.ErrClosed) {
			return true, nil
		}
		return true, fmt.Errorf("present: %w", err)
	}
	r.eng.Dirty().Clear()
	r.frames++

	if ev, ok := r.disp.Poll(ctx, r.cfg.PollWait); ok {
		ev = r.cfg.Keymap.Resolve(ev)
		fctx := applog.WithFrame(ctx, r.frames)
		if herr := r.eng.Handle(fctx, ev); herr != nil {
			// a failed save must not end the session
			r.log.ErrorContext(fctx, "command failed", slog.String("event", ev.String()), slog.Any("err", herr))
		}
	}
	return r.eng.Terminated(), nil
}

func (r *Runner) stats() *compose.Stats {
	if !r.cfg.ShowStats {
		return nil
	}
	if r.frames%memEvery == 0 {
		r.mem = perf.MemoryMB()
	}
	return &compose.Stats{FPS: r.fps.FPS(), FrameMs: r.fps.AvgFrameTime(), MemMB: r.mem}
}
