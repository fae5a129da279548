/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"livedoodle/internal/input"
)

// Handle applies one pointer or command event. Unresolved Key events are
// ignored; resolve them through an input.Keymap first. Only SaveDrawing can
// fail.
func (e *Engine) Handle(ctx context.Context, ev input.Event) error {
	switch ev.Kind {
	case input.Down:
		e.PointerDown(ev.X, ev.Y)
	case input.Move:
		e.PointerMove(ev.X, ev.Y)
	case input.Up:
		e.PointerUp(ev.X, ev.Y)
	case input.Scroll:
		e.Scroll(ev.Delta)
	case input.Cmd:
		return e.apply(ctx, ev.Command, ev.Arg)
	}
	return nil
}

func (e *Engine) apply(ctx context.Context, c input.Command, arg int) error {
	switch c {
	case input.SelectTool:
		e.SelectTool(arg)
	case input.SelectColor:
		e.SelectColor(arg)
	case input.ClearCanvas:
		e.Clear()
	case input.Undo:
		e.Undo()
	case input.Redo:
		e.Redo()
	case input.SaveDrawing:
		_, err := e.Save(ctx)
		return err
	case input.ToggleHelp:
		e.ToggleHelp()
	case input.TogglePalette:
		e.TogglePalette()
	case input.Terminate:
		e.Terminate()
	}
	return nil
}

// SelectTool activates the tool with the given 1-based index. Out of range
// indices are ignored.
func (e *Engine) SelectTool(n int) bool {
	t, ok := ToolFromIndex(n)
	if !ok {
		return false
	}
	e.SetTool(t)
	return true
}

// SetTool activates t. A drag in progress keeps the tool it started with.
func (e *Engine) SetTool(t Tool) {
	if !t.Valid() {
		return
	}
	e.cfg.Tool = t
	e.log.Info("tool selected", slog.String("tool", t.String()))
}

// SelectColor picks a palette swatch. Out of range indices are ignored.
func (e *Engine) SelectColor(idx int) bool {
	if idx < 0 || idx >= len(e.palette) {
		return false
	}
	e.cfg.Color = e.palette[idx].Color
	e.log.Info("color changed", slog.String("color", e.palette[idx].Name))
	return true
}

// SetBrushSize sets the brush size, clamped to [MinBrushSize, MaxBrushSize].
func (e *Engine) SetBrushSize(n int) {
	n = clampBrush(n)
	if n == e.cfg.BrushSize {
		return
	}
	e.cfg.BrushSize = n
	e.log.Debug("brush size", slog.Int("size", n))
}

// Clear records an undo step and zeroes the annotation layer. A drag in
// progress ends first; an unfinished shape is dropped.
func (e *Engine) Clear() {
	e.endDrag()
	e.hist.Snapshot(e.layer)
	e.layer.Clear()
	e.markAllDirty()
	e.log.Info("drawing cleared")
}

// Undo restores the previous snapshot. It reports false when there is
// nothing to undo. A drag in progress ends first.
func (e *Engine) Undo() bool {
	e.endDrag()
	if !e.hist.Undo(e.layer) {
		e.log.Info("nothing to undo")
		return false
	}
	e.markAllDirty()
	e.log.Info("undo performed")
	return true
}

// Redo re-applies the most recently undone change. A drag in progress ends
// first.
func (e *Engine) Redo() bool {
	e.endDrag()
	if !e.hist.Redo(e.layer) {
		e.log.Info("nothing to redo")
		return false
	}
	e.markAllDirty()
	e.log.Info("redo performed")
	return true
}

// Save hands the annotation layer to the configured Saver. It does not
// change engine state.
func (e *Engine) Save(ctx context.Context) ([]string, error) {
	if e.saver == nil {
		return nil, ErrNoSaver
	}
	paths, err := e.saver.Save(ctx, e.layer)
	if err != nil {
		e.log.ErrorContext(ctx, "save failed", slog.Any("err", err))
		return nil, fmt.Errorf("save drawing: %w", err)
	}
	e.log.InfoContext(ctx, "drawing saved", slog.Any("paths", paths))
	return paths, nil
}

func (e *Engine) ToggleHelp() {
	e.showHelp = !e.showHelp
	e.log.Info("help toggled", slog.Bool("visible", e.showHelp))
}

func (e *Engine) TogglePalette() {
	e.showPalette = !e.showPalette
	e.log.Info("palette toggled", slog.Bool("visible", e.showPalette))
}

// Terminate marks the engine finished; the loop exits after the current tick.
func (e *Engine) Terminate() {
	if !e.terminated {
		e.log.Info("exiting")
	}
	e.terminated = true
}
