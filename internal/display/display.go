/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package display defines the output and input boundary of the main loop.
// Adapters present composited frames and deliver pointer, key and command
// events, one per Poll.
package display

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"time"

	"livedoodle/internal/input"
)

// ErrClosed is returned by Present after the display was closed, for example
// when the user closed the window.
var ErrClosed = errors.New("display: closed")

// Config is passed to Init.
type Config struct {
	Title  string
	Width  int
	Height int
	// Scale multiplies the window size for windowed adapters.
	Scale int
}

// Display is implemented by every adapter.
type Display interface {
	// Init opens the output for frames of Width×Height.
	Init(cfg Config) error
	// Present shows a composited frame. The image may be reused by the caller
	// after Present returns.
	Present(frame *image.RGBA) error
	// Poll returns the next pending event, waiting at most wait. It reports
	// false when no event arrived.
	Poll(ctx context.Context, wait time.Duration) (input.Event, bool)
	Close() error
}

// MainThreader is implemented by adapters whose toolkit must own the main
// goroutine. RunMain runs loop on another goroutine, blocks in the toolkit's
// event loop and returns loop's error once both have finished.
type MainThreader interface {
	RunMain(loop func() error) error
}

// Queue hands events from adapter goroutines to the loop goroutine.
type Queue struct {
	ch      chan input.Event
	dropped atomic.Int64
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{ch: make(chan input.Event, size)}
}

// Push enqueues ev without blocking. When the queue is full a move is
// discarded; any other event evicts the oldest queued event instead, so
// toolkit goroutines never wait on the loop.
func (q *Queue) Push(ev input.Event) {
	select {
	case q.ch <- ev:
		return
	default:
	}
	if ev.Kind == input.Move {
		q.dropped.Add(1)
		return
	}
	select {
	case <-q.ch:
		q.dropped.Add(1)
	default:
	}
	select {
	case q.ch <- ev:
	default:
		// another producer refilled the slot
		q.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Poll waits up to wait for an event.
func (q *Queue) Poll(ctx context.Context, wait time.Duration) (input.Event, bool) {
	select {
	case ev := <-q.ch:
		return ev, true
	default:
	}
	if wait <= 0 {
		return input.Event{}, false
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case ev := <-q.ch:
		return ev, true
	case <-t.C:
	case <-ctx.Done():
	}
	return input.Event{}, false
}
