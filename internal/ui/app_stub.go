//go:build !fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"image"
	"time"

	"livedoodle/internal/display"
	"livedoodle/internal/input"
)

// ErrUnavailable is returned by Init in non-fyne builds, so CI remains headless.
var ErrUnavailable = errors.New("UI not built in this binary. Rebuild with: go build -tags fyne ./cmd/livedoodle")

// Display is a stub for builds without fyne.
type Display struct{}

func New() *Display { return &Display{} }

func (d *Display) Init(display.Config) error { return ErrUnavailable }

func (d *Display) Present(*image.RGBA) error { return ErrUnavailable }

func (d *Display) Poll(context.Context, time.Duration) (input.Event, bool) {
	return input.Event{}, false
}

func (d *Display) Close() error { return nil }
