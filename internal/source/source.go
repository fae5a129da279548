/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package source delivers camera frames. Every Source returns frames as
// *image.RGBA; a nil or zero-sized frame ends the session.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrEmptyFrame reports that the source produced no frame.
var ErrEmptyFrame = errors.New("source: failed to capture frame")

// Default capture resolution.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Source produces frames for the main loop. Next blocks until a frame is
// available or ctx is done.
type Source interface {
	Next(ctx context.Context) (*image.RGBA, error)
	Close() error
}

// Config selects and configures a source.
type Config struct {
	// Kind is one of "pattern", "images" or "camera".
	Kind   string
	Device string
	Dir    string
	Width  int
	Height int
	FPS    int
	Loop   bool
}

func (c Config) size() (int, int) {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// Open creates the source named by cfg.Kind.
func Open(cfg Config) (Source, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "pattern":
		w, h := cfg.size()
		return NewPattern(w, h), nil
	case "images", "dir":
		d, err := OpenImageDir(cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "camera", "gst":
		return OpenCamera(cfg)
	}
	return nil, fmt.Errorf("source: unknown kind %q", cfg.Kind)
}

// Validate wraps ErrEmptyFrame when f carries no pixels.
func Validate(f *image.RGBA, err error) (*image.RGBA, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyFrame, err)
	}
	if f == nil || f.Rect.Empty() {
		return nil, ErrEmptyFrame
	}
	return f, nil
}
