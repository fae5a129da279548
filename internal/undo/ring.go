/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import "livedoodle/internal/canvas"

// ring is a fixed-capacity deque: push-back, pop-back and evict-front are O(1).
type ring struct {
	buf  []*canvas.Layer
	head int // index of the oldest entry
	n    int
}

func newRing(capacity int) *ring { return &ring{buf: make([]*canvas.Layer, capacity)} }

func (r *ring) len() int { return r.n }

// pushBack appends l, evicting the oldest entry when full. It reports whether
// an eviction happened.
func (r *ring) pushBack(l *canvas.Layer) bool {
	c := len(r.buf)
	if r.n == c {
		r.buf[r.head] = l
		r.head = (r.head + 1) % c
		return true
	}
	r.buf[(r.head+r.n)%c] = l
	r.n++
	return false
}

func (r *ring) popBack() (*canvas.Layer, bool) {
	if r.n == 0 {
		return nil, false
	}
	i := (r.head + r.n - 1) % len(r.buf)
	l := r.buf[i]
	r.buf[i] = nil
	r.n--
	return l, true
}

// front returns the oldest entry.
func (r *ring) front() (*canvas.Layer, bool) {
	if r.n == 0 {
		return nil, false
	}
	return r.buf[r.head], true
}

func (r *ring) clear() {
	for i := range r.buf {
		r.buf[i] = nil
	}
	r.head, r.n = 0, 0
}

// each visits entries oldest first.
func (r *ring) each(fn func(*canvas.Layer)) {
	for i := 0; i < r.n; i++ {
		fn(r.buf[(r.head+i)%len(r.buf)])
	}
}
