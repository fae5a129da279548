/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"livedoodle/internal/canvas"
	"livedoodle/internal/engine"
)

// Overlay colors.
var (
	white  = color.RGBA{255, 255, 255, 255}
	cyan   = color.RGBA{0, 255, 255, 255}
	yellow = color.RGBA{255, 255, 0, 255}
	green  = color.RGBA{0, 255, 0, 255}
	shade  = color.NRGBA{0, 0, 0, 180}
)

// HelpPanel is the help overlay's outer rectangle.
var HelpPanel = image.Rect(10, 70, 351, 381)

// Stats is the diagnostics text shown by the stats overlay.
type Stats struct {
	FPS     float64
	FrameMs float64
	MemMB   float64
}

// State is what the overlays need from the engine.
type State struct {
	Palette     []engine.Swatch
	Color       canvas.RGB
	Tool        engine.Tool
	BrushSize   int
	ShowPalette bool
	ShowHelp    bool
}

// StateOf reads the overlay state from e.
func StateOf(e *engine.Engine) State {
	cfg := e.Config()
	return State{
		Palette:     e.Palette(),
		Color:       cfg.Color,
		Tool:        cfg.Tool,
		BrushSize:   cfg.BrushSize,
		ShowPalette: e.ShowPalette(),
		ShowHelp:    e.ShowHelp(),
	}
}

// Renderer composites frames into a reused output buffer. It is not safe for
// concurrent use.
type Renderer struct {
	fonts Fonts
	out   *image.RGBA
}

func NewRenderer(f Fonts) *Renderer {
	if f.Body == nil || f.Title == nil {
		f = BasicFonts()
	}
	return &Renderer{fonts: f}
}

// Render blends frame and layer and draws the overlays. The returned image
// is owned by the renderer and is overwritten by the next call. A nil stats
// hides the stats overlay.
func (r *Renderer) Render(frame *image.RGBA, layer *canvas.Layer, st State, stats *Stats) *image.RGBA {
	if r.out == nil || r.out.Rect != frame.Rect {
		r.out = image.NewRGBA(frame.Rect)
	}
	Blend(r.out, frame, layer)
	if st.ShowPalette {
		DrawPalette(r.out, st.Palette, st.Color)
	}
	if st.ShowHelp {
		r.DrawHelp(r.out, st.Tool, st.BrushSize)
	}
	if stats != nil {
		r.DrawStats(r.out, *stats)
	}
	return r.out
}

// SwatchRect returns the filled area of swatch i.
func SwatchRect(i int) image.Rectangle {
	x := engine.PaletteX + i*engine.PaletteCell
	return image.Rect(x, engine.PaletteY, x+engine.PaletteSwatch, engine.PaletteY+engine.PaletteCell)
}

// DrawPalette draws the swatch strip, framing the swatch matching selected.
func DrawPalette(dst draw.Image, palette []engine.Swatch, selected canvas.RGB) {
	for i, sw := range palette {
		r := SwatchRect(i)
		fillRect(dst, r, sw.Color.RGBA())
		strokeRect(dst, r, 2, white)
		if sw.Color == selected {
			strokeRect(dst, image.Rect(r.Min.X-2, r.Min.Y-2, r.Max.X+3, r.Max.Y+3), 3, cyan)
		}
	}
}

var helpLines = []struct {
	text   string
	header bool
}{
	{"DRAWING:", true},
	{"  Left Click & Drag: Draw", false},
	{"  Scroll Wheel: Brush Size", false},
	{"  Click Palette: Change Color", false},
	{"TOOLS: (1-8 keys)", true},
	{"  1: Brush  2: Eraser  3: Line", false},
	{"  4: Rectangle  5: Circle", false},
	{"  6: Ellipse  7: Spray  8: Fill", false},
	{"ACTIONS:", true},
	{"  C: Clear Canvas", false},
	{"  Z: Undo  X: Redo", false},
	{"  S: Save Drawing", false},
	{"  P: Toggle Palette", false},
	{"  H: Toggle Help", false},
	{"  ESC: Exit", false},
}

// DrawHelp draws the controls panel with the active tool and brush size in
// its footer.
func (r *Renderer) DrawHelp(dst draw.Image, tool engine.Tool, size int) {
	p := HelpPanel
	draw.Draw(dst, p, image.NewUniform(shade), image.Point{}, draw.Over)
	strokeRect(dst, p, 2, white)

	x, y := p.Min.X+10, p.Min.Y+20
	DrawText(dst, r.fonts.Title, x, y, "ADVANCED CONTROLS:", white)
	y += 15
	DrawText(dst, r.fonts.Body, x, y, "===================", white)
	for _, l := range helpLines {
		if l.header {
			y += 20
			DrawText(dst, r.fonts.Body, x, y, l.text, yellow)
			continue
		}
		y += 15
		DrawText(dst, r.fonts.Body, x, y, l.text, white)
	}
	footer := fmt.Sprintf("Tool: %s | Size: %dpx", tool, size)
	DrawText(dst, r.fonts.Body, x, p.Max.Y-11, footer, green)
}

// DrawStats draws the FPS, frame time and memory lines.
func (r *Renderer) DrawStats(dst draw.Image, s Stats) {
	DrawText(dst, r.fonts.Body, 10, 30, fmt.Sprintf("FPS: %.1f", s.FPS), green)
	DrawText(dst, r.fonts.Body, 10, 60, fmt.Sprintf("Frame: %.2f ms", s.FrameMs), green)
	DrawText(dst, r.fonts.Body, 10, 90, fmt.Sprintf("Mem: %.1f MB", s.MemMB), green)
}

func fillRect(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// strokeRect draws a border of thickness t inside r.
func strokeRect(dst draw.Image, r image.Rectangle, t int, c color.Color) {
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), c)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), c)
}
