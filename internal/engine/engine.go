/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package engine owns the drawing state: the annotation layer, the shape
// preview layer, the undo history and the active tool. It turns pointer
// events and commands into layer mutations. An Engine is owned by a single
// goroutine.
package engine

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"math/rand/v2"
	"time"

	"livedoodle/internal/canvas"
	applog "livedoodle/internal/log"
	"livedoodle/internal/perf"
	"livedoodle/internal/undo"
)

// ErrNoSaver is returned by Save when no Saver was configured.
var ErrNoSaver = errors.New("engine: no saver configured")

// Saver persists the annotation layer and returns the written paths.
type Saver interface {
	Save(ctx context.Context, l *canvas.Layer) ([]string, error)
}

// PointerState tracks the current drag.
type PointerState struct {
	Dragging bool
	Start    image.Point
	Last     image.Point
}

// Options configures a new Engine. Zero values select the defaults.
type Options struct {
	// Tool is active at start; the zero value is Brush.
	Tool            Tool
	HistoryCapacity int
	BrushSize       int
	Color           canvas.RGB
	Palette         []Swatch
	// Rand drives the spray tool. When nil the engine seeds one from the clock.
	Rand        *rand.Rand
	HideHelp    bool
	HidePalette bool
	Saver       Saver
	Logger      *slog.Logger
}

// Engine is the drawing context.
type Engine struct {
	layer   *canvas.Layer
	preview *canvas.Layer
	hist    *undo.Manager

	cfg   ToolConfig
	ptr   PointerState
	hooks toolHooks // captured on pointer down
	// snapped is set once the current drag has recorded its undo step.
	snapped    bool
	shapeDirty image.Rectangle

	rng     *rand.Rand
	palette []Swatch
	dirty   perf.DirtyTracker

	showHelp    bool
	showPalette bool
	terminated  bool

	saver Saver
	log   *slog.Logger
}

// New creates an engine with zero-filled w×h layers.
func New(w, h int, opts Options) *Engine {
	if opts.BrushSize == 0 {
		opts.BrushSize = DefaultBrushSize
	}
	if len(opts.Palette) == 0 {
		opts.Palette = DefaultPalette
	}
	if opts.Color.IsZero() {
		opts.Color = opts.Palette[0].Color
	}
	if opts.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("engine")
	}
	return &Engine{
		layer:       canvas.NewLayer(w, h),
		preview:     canvas.NewLayer(w, h),
		hist:        undo.NewManager(undo.Config{Capacity: opts.HistoryCapacity}),
		cfg:         ToolConfig{Tool: startTool(opts.Tool), Color: opts.Color, BrushSize: clampBrush(opts.BrushSize)},
		rng:         opts.Rand,
		palette:     opts.Palette,
		showHelp:    !opts.HideHelp,
		showPalette: !opts.HidePalette,
		saver:       opts.Saver,
		log:         opts.Logger,
	}
}

func startTool(t Tool) Tool {
	if !t.Valid() {
		return Brush
	}
	return t
}

// Layer returns the live annotation layer.
func (e *Engine) Layer() *canvas.Layer { return e.layer }

// Preview returns the shape preview layer.
func (e *Engine) Preview() *canvas.Layer { return e.preview }

func (e *Engine) History() *undo.Manager { return e.hist }

func (e *Engine) Config() ToolConfig { return e.cfg }

func (e *Engine) Pointer() PointerState { return e.ptr }

func (e *Engine) Palette() []Swatch { return e.palette }

func (e *Engine) ShowHelp() bool { return e.showHelp }

func (e *Engine) ShowPalette() bool { return e.showPalette }

func (e *Engine) Terminated() bool { return e.terminated }

// Dirty exposes the region changed since the last Clear.
func (e *Engine) Dirty() *perf.DirtyTracker { return &e.dirty }

// Size returns the layer dimensions.
func (e *Engine) Size() (int, int) { return e.layer.W, e.layer.H }

// BeginPreview captures the annotation layer as the base for a shape drag.
func (e *Engine) BeginPreview() {
	e.preview.CopyFrom(e.layer)
	e.shapeDirty = image.Rectangle{}
}

// RestorePreview resets the annotation layer to the captured base, dropping
// the shape drawn by the previous move.
func (e *Engine) RestorePreview() {
	e.layer.CopyFrom(e.preview)
	e.markDirty(e.shapeDirty)
}

func (e *Engine) markDirty(r image.Rectangle) { e.dirty.MarkDirty(r) }

func (e *Engine) markAllDirty() { e.dirty.MarkDirty(e.layer.Bounds()) }

// snapshot records the live layer as an undo step.
func (e *Engine) snapshot() {
	e.hist.Snapshot(e.layer)
	e.snapped = true
}

func (e *Engine) snapshotOnce() {
	if !e.snapped {
		e.snapshot()
	}
}
