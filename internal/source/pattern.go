/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package source

import (
	"context"
	"image"
)

// Pattern is a synthetic source: a slowly scrolling color gradient with a
// grid, useful where no camera is attached.
type Pattern struct {
	w, h  int
	frame int
	buf   *image.RGBA
}

func NewPattern(w, h int) *Pattern {
	return &Pattern{w: w, h: h, buf: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Next renders the next frame into a reused buffer. The returned image is
// valid until the following call.
func (p *Pattern) Next(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shift := p.frame * 2
	for y := 0; y < p.h; y++ {
		row := p.buf.Pix[y*p.buf.Stride : y*p.buf.Stride+p.w*4]
		for x := 0; x < p.w; x++ {
			px := row[x*4 : x*4+4]
			if (x+shift)%64 == 0 || y%64 == 0 {
				px[0], px[1], px[2] = 90, 90, 90
			} else {
				px[0] = uint8((x + shift) * 96 / max(p.w, 1))
				px[1] = uint8(y * 96 / max(p.h, 1))
				px[2] = 48
			}
			px[3] = 0xff
		}
	}
	p.frame++
	return p.buf, nil
}

// Frames reports how many frames were produced.
func (p *Pattern) Frames() int { return p.frame }

func (p *Pattern) Close() error { return nil }
