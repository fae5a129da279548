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
	"math/rand/v2"
)

// Scatter samples 2*r spray particles around (cx,cy). Each axis offset is a
// uniform integer d in [-10,10] scaled by r/10 (integer arithmetic), so the
// burst never reaches further than r. Particles outside bounds are dropped;
// every returned point satisfies p.In(bounds).
//
// Exactly 4*r values are drawn from rng regardless of how many particles are
// kept, which keeps seeded runs reproducible near the edges.
func Scatter(rng *rand.Rand, cx, cy, r int, bounds image.Rectangle) []image.Point {
	if r <= 0 {
		return nil
	}
	n := 2 * r
	out := make([]image.Point, 0, n)
	for i := 0; i < n; i++ {
		dx := (rng.IntN(21) - 10) * r / 10
		dy := (rng.IntN(21) - 10) * r / 10
		p := image.Pt(cx+dx, cy+dy)
		if p.In(bounds) {
			out = append(out, p)
		}
	}
	return out
}

// Spray paints one scatter burst as radius-1 dots and returns the touched area.
func (l *Layer) Spray(rng *rand.Rand, cx, cy, r int, c RGB) image.Rectangle {
	touched := image.Rectangle{}
	for _, p := range Scatter(rng, cx, cy, r, l.Bounds()) {
		touched = touched.Union(l.FillDot(p.X, p.Y, 1, c))
	}
	return touched
}
