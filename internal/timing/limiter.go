/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package timing paces the main loop for sources that do not block on their
// own, such as the synthetic pattern.
package timing

import "time"

// Limiter controls the frame rate of the main loop.
type Limiter interface {
	// WaitForNextFrame blocks until the next frame is due. It returns at once
	// when the loop is behind schedule.
	WaitForNextFrame()

	// Reset restarts the schedule, e.g. after a pause.
	Reset()
}

// New returns a limiter for fps frames per second, or a no-op limiter when
// fps is not positive.
func New(fps int) Limiter {
	if fps <= 0 {
		return NewNoOp()
	}
	return NewAdaptive(FrameDuration(fps))
}

// FrameDuration returns the period of one frame at fps.
func FrameDuration(fps int) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Second / time.Duration(fps)
}

// NewNoOp returns a limiter that never waits.
func NewNoOp() Limiter { return noOp{} }

type noOp struct{}

func (noOp) WaitForNextFrame() {}
func (noOp) Reset()            {}

// Ticker paces frames with a time.Ticker.
type Ticker struct {
	period time.Duration
	ticker *time.Ticker
}

func NewTicker(period time.Duration) *Ticker {
	return &Ticker{period: period, ticker: time.NewTicker(period)}
}

func (t *Ticker) WaitForNextFrame() { <-t.ticker.C }

func (t *Ticker) Reset() { t.ticker.Reset(t.period) }

func (t *Ticker) Stop() { t.ticker.Stop() }

// Adaptive sleeps until each frame's deadline and drops the backlog when the
// loop falls more than a frame behind.
type Adaptive struct {
	period time.Duration
	next   time.Time
	now    func() time.Time
	sleep  func(time.Duration)
}

func NewAdaptive(period time.Duration) *Adaptive {
	return newAdaptive(period, time.Now, time.Sleep)
}

func newAdaptive(period time.Duration, now func() time.Time, sleep func(time.Duration)) *Adaptive {
	return &Adaptive{period: period, next: now(), now: now, sleep: sleep}
}

func (a *Adaptive) WaitForNextFrame() {
	now := a.now()
	if wait := a.next.Sub(now); wait > 0 {
		a.sleep(wait)
	} else if -wait > a.period {
		a.next = now
	}
	a.next = a.next.Add(a.period)
}

func (a *Adaptive) Reset() { a.next = a.now() }
