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

import (
	"testing"

	"livedoodle/internal/canvas"
)

func TestRingWrapsAndEvictsFront(t *testing.T) {
	r := newRing(3)
	ls := make([]*canvas.Layer, 5)
	for i := range ls {
		ls[i] = canvas.NewLayer(1, 1)
		mark(ls[i], uint8(i))
		evicted := r.pushBack(ls[i])
		if evicted != (i >= 3) {
			t.Fatalf("push %d: evicted=%v", i, evicted)
		}
	}
	if r.len() != 3 {
		t.Fatalf("len = %d", r.len())
	}
	if f, _ := r.front(); value(f) != 2 {
		t.Fatalf("front = %d, want 2", value(f))
	}
	var order []uint8
	r.each(func(l *canvas.Layer) { order = append(order, value(l)) })
	if len(order) != 3 || order[0] != 2 || order[2] != 4 {
		t.Fatalf("unexpected order %v", order)
	}
	for want := 4; want >= 2; want-- {
		l, ok := r.popBack()
		if !ok || value(l) != uint8(want) {
			t.Fatalf("pop: ok=%v value=%d want %d", ok, value(l), want)
		}
	}
	if _, ok := r.popBack(); ok {
		t.Fatalf("pop on empty ring succeeded")
	}
}
