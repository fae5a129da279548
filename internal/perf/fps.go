/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package perf

import "time"

// DefaultWindow is the number of frame intervals averaged by an FPSCounter.
const DefaultWindow = 30

// FPSCounter averages the last N inter-frame intervals.
type FPSCounter struct {
	now       func() time.Time
	window    int
	intervals []float64
	last      time.Time
	hasLast   bool
	fps       float64
	avgMs     float64
}

// NewFPSCounter creates a counter with the given window; window <= 0 selects DefaultWindow.
func NewFPSCounter(window int) *FPSCounter { return NewFPSCounterWithClock(window, time.Now) }

// NewFPSCounterWithClock is NewFPSCounter with an injectable clock.
func NewFPSCounterWithClock(window int, now func() time.Time) *FPSCounter {
	if window <= 0 {
		window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &FPSCounter{now: now, window: window, intervals: make([]float64, 0, window)}
}

// Update records one frame. The first call only establishes the reference.
func (c *FPSCounter) Update() {
	t := c.now()
	if !c.hasLast {
		c.last, c.hasLast = t, true
		return
	}
	ms := float64(t.Sub(c.last).Microseconds()) / 1000.0
	c.last = t
	if ms < 0 {
		ms = 0
	}
	if len(c.intervals) == c.window {
		copy(c.intervals, c.intervals[1:])
		c.intervals = c.intervals[:c.window-1]
	}
	c.intervals = append(c.intervals, ms)

	sum := 0.0
	for _, v := range c.intervals {
		sum += v
	}
	c.avgMs = sum / float64(len(c.intervals))
	if c.avgMs > 0 {
		c.fps = 1000.0 / c.avgMs
	} else {
		c.fps = 0
	}
}

// FPS returns the last computed average frame rate.
func (c *FPSCounter) FPS() float64 { return c.fps }

// AvgFrameTime returns the mean interval of the window in milliseconds.
func (c *FPSCounter) AvgFrameTime() float64 { return c.avgMs }

// Samples returns the number of intervals currently in the window.
func (c *FPSCounter) Samples() int { return len(c.intervals) }

// Window returns the configured window size.
func (c *FPSCounter) Window() int { return c.window }

// Reset forgets all samples and the reference time.
func (c *FPSCounter) Reset() {
	c.intervals = c.intervals[:0]
	c.hasLast = false
	c.fps, c.avgMs = 0, 0
}
