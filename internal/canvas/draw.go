/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"image"
	"math"

	"golang.org/x/image/vector"
)

// Anti-aliased primitives. Shapes are built as closed polygons in pixel-center
// space (pixel (x,y) is centered at x+0.5, y+0.5), rasterized to a coverage
// mask with golang.org/x/image/vector and blended into the layer.
//
// Every primitive returns the rectangle it touched, clipped to the layer, so
// callers can feed a dirty-region tracker.

type pt struct{ x, y float64 }

type scratch struct {
	z   *vector.Rasterizer
	buf []uint8
}

func (l *Layer) scratchFor(w, h int) (*vector.Rasterizer, *image.Alpha) {
	if l.sc == nil {
		l.sc = &scratch{z: vector.NewRasterizer(w, h)}
	} else {
		l.sc.z.Reset(w, h)
	}
	n := w * h
	if cap(l.sc.buf) < n {
		l.sc.buf = make([]uint8, n)
	}
	buf := l.sc.buf[:n]
	clear(buf)
	return l.sc.z, &image.Alpha{Pix: buf, Stride: w, Rect: image.Rect(0, 0, w, h)}
}

// fillContours rasterizes the closed contours (non-zero, opposite windings cut
// holes) and blends c into the layer by coverage.
func (l *Layer) fillContours(contours [][]pt, c RGB) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, ct := range contours {
		for _, p := range ct {
			minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
			minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
		}
	}
	if math.IsInf(minX, 1) {
		return image.Rectangle{}
	}
	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1)
	clip := r.Intersect(l.Bounds())
	if clip.Empty() {
		return image.Rectangle{}
	}
	z, mask := l.scratchFor(r.Dx(), r.Dy())
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for _, ct := range contours {
		if len(ct) < 3 {
			continue
		}
		z.MoveTo(float32(ct[0].x-ox), float32(ct[0].y-oy))
		for _, p := range ct[1:] {
			z.LineTo(float32(p.x-ox), float32(p.y-oy))
		}
		z.ClosePath()
	}
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	tx0, ty0, tx1, ty1 := clip.Max.X, clip.Max.Y, clip.Min.X, clip.Min.Y
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		row := mask.Pix[(y-r.Min.Y)*mask.Stride:]
		for x := clip.Min.X; x < clip.Max.X; x++ {
			a := row[x-r.Min.X]
			if a == 0 {
				continue
			}
			i := l.offset(x, y)
			if a == 0xff {
				l.Pix[i], l.Pix[i+1], l.Pix[i+2] = c.R, c.G, c.B
			} else {
				l.Pix[i] = blend(l.Pix[i], c.R, a)
				l.Pix[i+1] = blend(l.Pix[i+1], c.G, a)
				l.Pix[i+2] = blend(l.Pix[i+2], c.B, a)
			}
			tx0, tx1 = min(tx0, x), max(tx1, x+1)
			ty0, ty1 = min(ty0, y), max(ty1, y+1)
		}
	}
	if tx1 <= tx0 || ty1 <= ty0 {
		return image.Rectangle{}
	}
	return image.Rect(tx0, ty0, tx1, ty1)
}

func blend(dst, src, a uint8) uint8 {
	return uint8((int(dst)*(255-int(a)) + int(src)*int(a) + 127) / 255)
}

func halfWidth(width int) float64 {
	if width < 1 {
		width = 1
	}
	return float64(width) / 2
}

func arcSegments(radius float64) int {
	n := int(math.Ceil(2 * math.Pi * radius / 3))
	if n < 16 {
		n = 16
	}
	if n > 1024 {
		n = 1024
	}
	return n
}

// ellipseContour approximates an axis-aligned ellipse. Clockwise in screen
// space unless reverse is set.
func ellipseContour(cx, cy, ax, ay float64, reverse bool) []pt {
	n := arcSegments(math.Max(ax, ay))
	out := make([]pt, n)
	for i := 0; i < n; i++ {
		t := 2 * math.Pi * float64(i) / float64(n)
		if reverse {
			t = -t
		}
		out[i] = pt{cx + ax*math.Cos(t), cy + ay*math.Sin(t)}
	}
	return out
}

func rectContour(x0, y0, x1, y1 float64, reverse bool) []pt {
	if reverse {
		return []pt{{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}}
	}
	return []pt{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

// capsuleContour is a segment with round caps of radius hw.
func capsuleContour(x0, y0, x1, y1, hw float64) []pt {
	dx, dy := x1-x0, y1-y0
	if dx == 0 && dy == 0 {
		return ellipseContour(x0, y0, hw, hw, false)
	}
	theta := math.Atan2(dy, dx)
	n := arcSegments(hw) / 2
	if n < 8 {
		n = 8
	}
	out := make([]pt, 0, 2*(n+1))
	for i := 0; i <= n; i++ {
		a := theta - math.Pi/2 + math.Pi*float64(i)/float64(n)
		out = append(out, pt{x1 + hw*math.Cos(a), y1 + hw*math.Sin(a)})
	}
	for i := 0; i <= n; i++ {
		a := theta + math.Pi/2 + math.Pi*float64(i)/float64(n)
		out = append(out, pt{x0 + hw*math.Cos(a), y0 + hw*math.Sin(a)})
	}
	return out
}

// Line draws an anti-aliased segment of the given width with round caps.
func (l *Layer) Line(x0, y0, x1, y1 int, c RGB, width int) image.Rectangle {
	hw := halfWidth(width)
	return l.fillContours([][]pt{capsuleContour(float64(x0)+0.5, float64(y0)+0.5, float64(x1)+0.5, float64(y1)+0.5, hw)}, c)
}

// Rect draws the outline of the rectangle spanned by two corners.
func (l *Layer) Rect(x0, y0, x1, y1 int, c RGB, thickness int) image.Rectangle {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	hw := halfWidth(thickness)
	fx0, fy0 := float64(x0)+0.5, float64(y0)+0.5
	fx1, fy1 := float64(x1)+0.5, float64(y1)+0.5
	contours := [][]pt{rectContour(fx0-hw, fy0-hw, fx1+hw, fy1+hw, false)}
	if fx1-fx0 > 2*hw && fy1-fy0 > 2*hw {
		contours = append(contours, rectContour(fx0+hw, fy0+hw, fx1-hw, fy1-hw, true))
	}
	return l.fillContours(contours, c)
}

// Circle draws a circle outline of radius r.
func (l *Layer) Circle(cx, cy, r int, c RGB, thickness int) image.Rectangle {
	return l.Ellipse(cx, cy, r, r, c, thickness)
}

// Ellipse draws an axis-aligned ellipse outline with half-axes ax, ay.
func (l *Layer) Ellipse(cx, cy, ax, ay int, c RGB, thickness int) image.Rectangle {
	if ax < 0 {
		ax = -ax
	}
	if ay < 0 {
		ay = -ay
	}
	hw := halfWidth(thickness)
	fcx, fcy := float64(cx)+0.5, float64(cy)+0.5
	fax, fay := float64(ax), float64(ay)
	contours := [][]pt{ellipseContour(fcx, fcy, fax+hw, fay+hw, false)}
	if fax-hw > 0 && fay-hw > 0 {
		contours = append(contours, ellipseContour(fcx, fcy, fax-hw, fay-hw, true))
	}
	return l.fillContours(contours, c)
}

// FillDot paints every pixel within Euclidean distance r of (cx,cy). Not
// anti-aliased; out-of-range pixels are skipped.
func (l *Layer) FillDot(cx, cy, r int, c RGB) image.Rectangle {
	if r < 0 {
		r = 0
	}
	touched := image.Rectangle{}
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			x, y := cx+dx, cy+dy
			if !l.In(x, y) {
				continue
			}
			l.SetRGB(x, y, c)
			touched = touched.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return touched
}

// FloodFill replaces the 4-connected region around (x,y) whose pixels are
// within tol per channel of the seed pixel's original color. Candidates are
// always compared against the seed, never against already filled neighbours.
// It reports false when the seed is outside the layer.
func (l *Layer) FloodFill(x, y int, c RGB, tol uint8) (image.Rectangle, bool) {
	if !l.In(x, y) {
		return image.Rectangle{}, false
	}
	seed := l.RGBAt(x, y)
	match := func(p RGB) bool {
		return within(p.R, seed.R, tol) && within(p.G, seed.G, tol) && within(p.B, seed.B, tol)
	}
	visited := make([]bool, l.W*l.H)
	stack := []int{y*l.W + x}
	visited[y*l.W+x] = true
	minX, minY, maxX, maxY := x, y, x, y
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		px, py := idx%l.W, idx/l.W
		l.SetRGB(px, py, c)
		minX, maxX = min(minX, px), max(maxX, px)
		minY, maxY = min(minY, py), max(maxY, py)
		for _, n := range [4][2]int{{px - 1, py}, {px + 1, py}, {px, py - 1}, {px, py + 1}} {
			nx, ny := n[0], n[1]
			if !l.In(nx, ny) {
				continue
			}
			ni := ny*l.W + nx
			if visited[ni] || !match(l.RGBAt(nx, ny)) {
				continue
			}
			visited[ni] = true
			stack = append(stack, ni)
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

func within(v, ref, tol uint8) bool {
	d := int(v) - int(ref)
	if d < 0 {
		d = -d
	}
	return d <= int(tol)
}
