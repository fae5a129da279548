/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"image"
	"log/slog"
	"math"

	"livedoodle/internal/canvas"
)

// toolHooks is the per-tool behavior. A nil hook does nothing.
type toolHooks struct {
	down func(e *Engine, p image.Point)
	move func(e *Engine, p image.Point)
	up   func(e *Engine, p image.Point)
	// abort undoes the drag's uncommitted effect when a command ends it early.
	abort func(e *Engine)
}

var toolTable = [toolCount]toolHooks{
	Brush:     {down: strokeDown, move: strokeMove(false)},
	Eraser:    {down: strokeDown, move: strokeMove(true)},
	Line:      shapeHooks(drawLine),
	Rectangle: shapeHooks(drawRect),
	Circle:    shapeHooks(drawCircle),
	Ellipse:   shapeHooks(drawEllipse),
	Spray:     {down: sprayAt, move: sprayAt},
	Fill:      {down: fillDown},
}

// PointerDown starts a drag, unless it lands on the visible palette.
func (e *Engine) PointerDown(x, y int) {
	if e.showPalette {
		if idx, ok := PaletteHit(x, y, len(e.palette)); ok {
			e.SelectColor(idx)
			return
		}
	}
	p := image.Pt(x, y)
	e.ptr = PointerState{Dragging: true, Start: p, Last: p}
	e.hooks = toolTable[e.cfg.Tool]
	e.snapped = false
	if e.hooks.down != nil {
		e.hooks.down(e, p)
	}
}

// PointerMove extends the current drag. It is ignored when not dragging.
func (e *Engine) PointerMove(x, y int) {
	if !e.ptr.Dragging {
		return
	}
	p := image.Pt(x, y)
	if e.hooks.move != nil {
		e.hooks.move(e, p)
	}
	e.ptr.Last = p
}

// PointerUp ends the current drag.
func (e *Engine) PointerUp(x, y int) {
	if !e.ptr.Dragging {
		return
	}
	if e.hooks.up != nil {
		e.hooks.up(e, image.Pt(x, y))
	}
	e.ptr = PointerState{}
	e.hooks = toolHooks{}
}

// endDrag stops an active drag without committing it. Later moves and the
// release are ignored, so nothing is drawn past a history change.
func (e *Engine) endDrag() {
	if !e.ptr.Dragging {
		return
	}
	if e.hooks.abort != nil {
		e.hooks.abort(e)
	}
	e.ptr = PointerState{}
	e.hooks = toolHooks{}
	e.snapped = false
	e.log.Debug("drag interrupted")
}

// Scroll grows the brush for dir > 0 and shrinks it for dir < 0.
func (e *Engine) Scroll(dir int) {
	switch {
	case dir > 0:
		e.SetBrushSize(e.cfg.BrushSize + 1)
	case dir < 0:
		e.SetBrushSize(e.cfg.BrushSize - 1)
	}
}

func strokeDown(e *Engine, _ image.Point) { e.snapshot() }

func strokeMove(erase bool) func(*Engine, image.Point) {
	return func(e *Engine, p image.Point) {
		c, w := e.cfg.Color, e.cfg.BrushSize
		if erase {
			c, w = canvas.Background, 2*w
		}
		last := e.ptr.Last
		e.markDirty(e.layer.Line(last.X, last.Y, p.X, p.Y, c, w))
	}
}

// sprayAt records the drag's undo step on the first in-canvas event, so a
// drag that starts outside the canvas still undoes as one step.
func sprayAt(e *Engine, p image.Point) {
	if !e.layer.In(p.X, p.Y) {
		return
	}
	e.snapshotOnce()
	e.markDirty(e.layer.Spray(e.rng, p.X, p.Y, 2*e.cfg.BrushSize, e.cfg.Color))
}

func fillDown(e *Engine, p image.Point) {
	if !e.layer.In(p.X, p.Y) {
		return
	}
	e.snapshot()
	r, _ := e.layer.FloodFill(p.X, p.Y, e.cfg.Color, FillTolerance)
	e.markDirty(r)
	e.log.Debug("fill applied", slog.Int("x", p.X), slog.Int("y", p.Y))
}

type shapeFunc func(l *canvas.Layer, a, b image.Point, c canvas.RGB, size int) image.Rectangle

// shapeHooks previews the shape on every move and commits the pre-drag layer
// as one undo step on release.
func shapeHooks(draw shapeFunc) toolHooks {
	return toolHooks{
		down: func(e *Engine, _ image.Point) { e.BeginPreview() },
		move: func(e *Engine, p image.Point) {
			e.RestorePreview()
			e.shapeDirty = draw(e.layer, e.ptr.Start, p, e.cfg.Color, e.cfg.BrushSize)
			e.markDirty(e.shapeDirty)
		},
		up:    func(e *Engine, _ image.Point) { e.hist.Snapshot(e.preview) },
		abort: func(e *Engine) { e.RestorePreview() },
	}
}

func drawLine(l *canvas.Layer, a, b image.Point, c canvas.RGB, size int) image.Rectangle {
	return l.Line(a.X, a.Y, b.X, b.Y, c, size)
}

func drawRect(l *canvas.Layer, a, b image.Point, c canvas.RGB, size int) image.Rectangle {
	return l.Rect(a.X, a.Y, b.X, b.Y, c, size)
}

func drawCircle(l *canvas.Layer, a, b image.Point, c canvas.RGB, size int) image.Rectangle {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	r := int(math.Sqrt(dx*dx + dy*dy))
	return l.Circle(a.X, a.Y, r, c, size)
}

func drawEllipse(l *canvas.Layer, a, b image.Point, c canvas.RGB, size int) image.Rectangle {
	w, h := absInt(b.X-a.X), absInt(b.Y-a.Y)
	cx, cy := (a.X+b.X)/2, (a.Y+b.Y)/2
	return l.Ellipse(cx, cy, w/2, h/2, c, size)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
