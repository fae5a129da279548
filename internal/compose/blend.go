/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compose builds the displayed frame: the camera frame plus the
// annotation layer, with the palette, help and stats overlays on top.
// Overlays are drawn on the composite only.
package compose

import (
	"image"

	"livedoodle/internal/canvas"
)

// Blend writes the channel-wise saturating sum of frame and layer into dst.
// dst and frame must have the same bounds. Pixels outside the layer are
// copied from frame unchanged.
func Blend(dst, frame *image.RGBA, layer *canvas.Layer) {
	b := frame.Bounds()
	if dst != frame {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			si := frame.PixOffset(b.Min.X, y)
			di := dst.PixOffset(b.Min.X, y)
			copy(dst.Pix[di:di+b.Dx()*4], frame.Pix[si:si+b.Dx()*4])
		}
	}
	if layer.Empty() {
		return
	}
	// layer pixel (0,0) sits on the frame's origin
	w, h := min(b.Dx(), layer.W), min(b.Dy(), layer.H)
	for y := 0; y < h; y++ {
		di := dst.PixOffset(b.Min.X, b.Min.Y+y)
		li := y * layer.Stride()
		row := dst.Pix[di : di+w*4]
		src := layer.Pix[li : li+w*3]
		for x := 0; x < w; x++ {
			d, s := row[x*4:x*4+4], src[x*3:x*3+3]
			d[0] = addSat(d[0], s[0])
			d[1] = addSat(d[1], s[1])
			d[2] = addSat(d[2], s[2])
			d[3] = 0xff
		}
	}
}

// Composite returns a new image holding Blend(frame, layer).
func Composite(frame *image.RGBA, layer *canvas.Layer) *image.RGBA {
	dst := image.NewRGBA(frame.Bounds())
	Blend(dst, frame, layer)
	return dst
}

func addSat(a, b uint8) uint8 {
	s := uint16(a) + uint16(b)
	if s > 0xff {
		return 0xff
	}
	return uint8(s)
}
