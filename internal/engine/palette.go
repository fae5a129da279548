/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import "livedoodle/internal/canvas"

// Swatch is a named palette color.
type Swatch struct {
	Name  string
	Color canvas.RGB
}

// DefaultPalette is the on-screen color palette, left to right.
var DefaultPalette = []Swatch{
	{"Red", canvas.RGB{R: 255}},
	{"Green", canvas.RGB{G: 255}},
	{"Blue", canvas.RGB{B: 255}},
	{"Yellow", canvas.RGB{R: 255, G: 255}},
	{"Magenta", canvas.RGB{R: 255, B: 255}},
	{"Cyan", canvas.RGB{G: 255, B: 255}},
	{"White", canvas.RGB{R: 255, G: 255, B: 255}},
	{"Gray", canvas.RGB{R: 128, G: 128, B: 128}},
	{"Orange", canvas.RGB{R: 255, G: 128}},
	{"Pink", canvas.RGB{R: 255, G: 192, B: 203}},
}

// Palette strip geometry, shared by hit testing and the overlay.
const (
	PaletteX      = 10
	PaletteY      = 10
	PaletteCell   = 40
	PaletteSwatch = 35
	PaletteHitMax = 60
)

// PaletteHit maps a pointer position to a swatch index for a strip of n
// swatches. The strip edges are exclusive.
func PaletteHit(x, y, n int) (int, bool) {
	if y >= PaletteHitMax || x <= PaletteX || x >= PaletteX+PaletteCell*n {
		return 0, false
	}
	idx := (x - PaletteX) / PaletteCell
	if idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}
