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
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Fonts holds the faces used by the overlays.
type Fonts struct {
	Title font.Face
	Body  font.Face
}

// BasicFonts uses the fixed 7x13 bitmap face for everything.
func BasicFonts() Fonts { return Fonts{Title: basicfont.Face7x13, Body: basicfont.Face7x13} }

// LoadFonts parses the TTF at path, or the bundled Go Mono when path is
// empty, at the given body size in points. Title text is set two points
// larger.
func LoadFonts(path string, sizePt float64) (Fonts, error) {
	data := gomono.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Fonts{}, fmt.Errorf("read font %s: %w", path, err)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return Fonts{}, fmt.Errorf("parse font: %w", err)
	}
	if sizePt <= 0 {
		sizePt = 11
	}
	body, err := opentype.NewFace(f, &opentype.FaceOptions{Size: sizePt, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return Fonts{}, fmt.Errorf("font face: %w", err)
	}
	title, err := opentype.NewFace(f, &opentype.FaceOptions{Size: sizePt + 2, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return Fonts{}, fmt.Errorf("font face: %w", err)
	}
	return Fonts{Title: title, Body: body}, nil
}

// DrawText draws s with its baseline starting at (x, y) and returns the
// advance in pixels.
func DrawText(dst draw.Image, face font.Face, x, y int, s string, c color.Color) int {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face, Dot: fixed.P(x, y)}
	start := d.Dot.X
	d.DrawString(s)
	return (d.Dot.X - start).Round()
}

// MeasureText returns the advance of s in pixels.
func MeasureText(face font.Face, s string) int {
	return font.MeasureString(face, s).Round()
}
