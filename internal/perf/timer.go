/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package perf provides lightweight frame instrumentation: a reusable timer,
// a sliding-window FPS counter, a resident memory sampler and a dirty-region
// accumulator. Nothing here allocates per frame.
package perf

import "time"

// Timer measures elapsed wall time in milliseconds.
type Timer struct {
	now   func() time.Time
	start time.Time
}

// NewTimer returns a timer using the system monotonic clock.
func NewTimer() *Timer { return &Timer{now: time.Now} }

// Start resets the reference point.
func (t *Timer) Start() { t.start = t.clock()() }

// Stop returns milliseconds elapsed since the last Start. Never negative.
func (t *Timer) Stop() float64 {
	d := t.clock()().Sub(t.start)
	if d < 0 {
		return 0
	}
	return float64(d.Microseconds()) / 1000.0
}

func (t *Timer) clock() func() time.Time {
	if t.now == nil {
		return time.Now
	}
	return t.now
}

// Measure runs fn and returns its duration in milliseconds.
func Measure(fn func()) float64 {
	t := NewTimer()
	t.Start()
	fn()
	return t.Stop()
}
