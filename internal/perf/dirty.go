/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package perf

import "image"

// DirtyTracker accumulates the bounding union of rectangles marked since the
// last Clear. It is advisory; nothing gates rendering on it.
type DirtyTracker struct {
	r     image.Rectangle
	dirty bool
}

// MarkDirty grows the region to include r. The first mark after a Clear
// adopts r as is, even when it is empty; later empty marks change nothing.
func (d *DirtyTracker) MarkDirty(r image.Rectangle) {
	if !d.dirty {
		d.r, d.dirty = r, true
		return
	}
	d.r = d.r.Union(r)
}

// IsDirty reports whether anything was marked since the last Clear.
func (d *DirtyTracker) IsDirty() bool { return d.dirty }

// Region returns the accumulated rectangle; the zero rectangle when clean.
func (d *DirtyTracker) Region() image.Rectangle {
	if !d.dirty {
		return image.Rectangle{}
	}
	return d.r
}

// Clear resets to the clean state.
func (d *DirtyTracker) Clear() { d.r, d.dirty = image.Rectangle{}, false }
