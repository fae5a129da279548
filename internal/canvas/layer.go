/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas holds the raster buffers the doodle engine draws into and the
// raster primitives used by the drawing tools.
//
// A Layer is a packed 3-channel 8-bit raster. The zero value of a pixel means
// "nothing drawn", which is what lets the compositor add the layer onto a
// camera frame without an alpha channel.
package canvas

import (
	"bytes"
	"image"
	"image/color"
)

// RGB is a 3-channel 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Background is the transparent/erase color of an annotation layer.
var Background = RGB{}

// RGBA converts c to an opaque color.RGBA.
func (c RGB) RGBA() color.RGBA { return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff} }

// IsZero reports whether c is the background color.
func (c RGB) IsZero() bool { return c == Background }

// Layer is a fixed-size RGB raster, row-major, 3 bytes per pixel.
type Layer struct {
	W, H int
	Pix  []uint8

	// scratch rasterization state reused across strokes
	sc *scratch
}

// NewLayer allocates a zero-filled layer.
func NewLayer(w, h int) *Layer {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Layer{W: w, H: h, Pix: make([]uint8, w*h*3)}
}

// Stride is the number of bytes per row.
func (l *Layer) Stride() int { return l.W * 3 }

// Empty reports whether the layer has no pixels.
func (l *Layer) Empty() bool { return l == nil || l.W == 0 || l.H == 0 }

// In reports whether (x,y) lies inside the layer.
func (l *Layer) In(x, y int) bool { return x >= 0 && y >= 0 && x < l.W && y < l.H }

func (l *Layer) offset(x, y int) int { return y*l.W*3 + x*3 }

// RGBAt returns the pixel at (x,y); out-of-range reads return Background.
func (l *Layer) RGBAt(x, y int) RGB {
	if !l.In(x, y) {
		return Background
	}
	i := l.offset(x, y)
	return RGB{R: l.Pix[i], G: l.Pix[i+1], B: l.Pix[i+2]}
}

// SetRGB writes a pixel; out-of-range writes are dropped.
func (l *Layer) SetRGB(x, y int, c RGB) {
	if !l.In(x, y) {
		return
	}
	i := l.offset(x, y)
	l.Pix[i], l.Pix[i+1], l.Pix[i+2] = c.R, c.G, c.B
}

// ColorModel implements image.Image.
func (l *Layer) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (l *Layer) Bounds() image.Rectangle { return image.Rect(0, 0, l.W, l.H) }

// At implements image.Image.
func (l *Layer) At(x, y int) color.Color { return l.RGBAt(x, y).RGBA() }

// Set implements draw.Image. Alpha is ignored.
func (l *Layer) Set(x, y int, c color.Color) {
	r, g, b, _ := c.RGBA()
	l.SetRGB(x, y, RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)})
}

// Clone returns a deep copy.
func (l *Layer) Clone() *Layer {
	out := &Layer{W: l.W, H: l.H, Pix: make([]uint8, len(l.Pix))}
	copy(out.Pix, l.Pix)
	return out
}

// CopyFrom overwrites l with the content of src. Sizes must match; a
// mismatched source reallocates l to src's dimensions.
func (l *Layer) CopyFrom(src *Layer) {
	if l.W != src.W || l.H != src.H || len(l.Pix) != len(src.Pix) {
		l.W, l.H = src.W, src.H
		l.Pix = make([]uint8, len(src.Pix))
	}
	copy(l.Pix, src.Pix)
}

// Clear zeroes every pixel.
func (l *Layer) Clear() { clear(l.Pix) }

// Equal reports whether both layers have identical size and content.
func (l *Layer) Equal(o *Layer) bool {
	if l == nil || o == nil {
		return l == o
	}
	return l.W == o.W && l.H == o.H && bytes.Equal(l.Pix, o.Pix)
}

// CountNonZero returns the number of drawn pixels.
func (l *Layer) CountNonZero() int {
	n := 0
	for i := 0; i+2 < len(l.Pix); i += 3 {
		if l.Pix[i]|l.Pix[i+1]|l.Pix[i+2] != 0 {
			n++
		}
	}
	return n
}

// ToRGBA converts the layer to an opaque *image.RGBA, e.g. for encoding.
func (l *Layer) ToRGBA() *image.RGBA {
	img := image.NewRGBA(l.Bounds())
	for y := 0; y < l.H; y++ {
		src := l.Pix[y*l.W*3 : (y+1)*l.W*3]
		dst := img.Pix[y*img.Stride : y*img.Stride+l.W*4]
		for x := 0; x < l.W; x++ {
			dst[x*4+0] = src[x*3+0]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return img
}

// FromImage builds a layer from any image, dropping alpha.
func FromImage(img image.Image) *Layer {
	b := img.Bounds()
	l := NewLayer(b.Dx(), b.Dy())
	for y := 0; y < l.H; y++ {
		for x := 0; x < l.W; x++ {
			l.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return l
}
