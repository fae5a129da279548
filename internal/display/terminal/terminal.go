/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package terminal renders frames into a terminal with tcell, two pixels per
// cell using the upper half block, and turns mouse and key input into events.
package terminal

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"livedoodle/internal/display"
	"livedoodle/internal/input"
	applog "livedoodle/internal/log"
)

const halfBlock = '▀'

// Display implements display.Display on a tcell screen.
type Display struct {
	screen tcell.Screen
	cfg    display.Config
	queue  *display.Queue
	once   sync.Once
	closed bool
	log    *slog.Logger

	// touched only by the event goroutine
	buttonDown bool
}

var _ display.Display = (*Display)(nil)

// New returns a terminal display. A nil screen selects the real terminal;
// tests pass a tcell simulation screen.
func New(screen tcell.Screen) *Display {
	return &Display{screen: screen, queue: display.NewQueue(512), log: applog.WithComponent("display.terminal")}
}

func (d *Display) Init(cfg display.Config) error {
	d.cfg = cfg
	if d.screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		d.screen = s
	}
	if err := d.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	d.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	d.screen.EnableMouse(tcell.MouseButtonEvents | tcell.MouseDragEvents)
	d.screen.HideCursor()
	d.screen.Clear()
	go d.pump()
	d.log.Info("terminal display initialized")
	return nil
}

// pump moves tcell events onto the queue until the screen is finalized.
func (d *Display) pump() {
	for {
		ev := d.screen.PollEvent()
		if ev == nil {
			return
		}
		for _, out := range d.translate(ev) {
			d.queue.Push(out)
		}
	}
}

func (d *Display) translate(ev tcell.Event) []input.Event {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape:
			return []input.Event{input.KeyPress(input.KeyEscape)}
		case tcell.KeyCtrlC:
			return []input.Event{input.Do(input.Terminate, 0)}
		case tcell.KeyRune:
			return []input.Event{input.KeyPress(ev.Rune())}
		}
	case *tcell.EventMouse:
		x, y := d.toFrame(ev.Position())
		btn := ev.Buttons()
		var out []input.Event
		if btn&tcell.WheelUp != 0 {
			out = append(out, input.Wheel(1))
		}
		if btn&tcell.WheelDown != 0 {
			out = append(out, input.Wheel(-1))
		}
		pressed := btn&tcell.Button1 != 0
		switch {
		case pressed && !d.buttonDown:
			out = append(out, input.PointerDown(x, y))
		case pressed:
			out = append(out, input.PointerMove(x, y))
		case d.buttonDown:
			out = append(out, input.PointerUp(x, y))
		}
		d.buttonDown = pressed
		return out
	case *tcell.EventResize:
		d.screen.Sync()
	}
	return nil
}

// toFrame maps a cell position to the centre of the pixels it shows.
func (d *Display) toFrame(cx, cy int) (int, int) {
	cols, rows := d.screen.Size()
	if cols <= 0 || rows <= 0 {
		return 0, 0
	}
	x := (2*cx + 1) * d.cfg.Width / (2 * cols)
	y := (2*cy + 1) * d.cfg.Height / (2 * rows)
	return x, y
}

// Present scales frame to the terminal, sampling the nearest pixel for the
// top and bottom half of every cell.
func (d *Display) Present(frame *image.RGBA) error {
	if d.closed {
		return display.ErrClosed
	}
	cols, rows := d.screen.Size()
	b := frame.Bounds()
	if cols <= 0 || rows <= 0 || b.Empty() {
		return nil
	}
	for cy := 0; cy < rows; cy++ {
		top := b.Min.Y + (4*cy+1)*b.Dy()/(4*rows)
		bottom := b.Min.Y + (4*cy+3)*b.Dy()/(4*rows)
		for cx := 0; cx < cols; cx++ {
			x := b.Min.X + (2*cx+1)*b.Dx()/(2*cols)
			st := tcell.StyleDefault.Foreground(cellColor(frame, x, top)).Background(cellColor(frame, x, bottom))
			d.screen.SetContent(cx, cy, halfBlock, nil, st)
		}
	}
	d.screen.Show()
	return nil
}

func cellColor(f *image.RGBA, x, y int) tcell.Color {
	i := f.PixOffset(x, y)
	return tcell.NewRGBColor(int32(f.Pix[i]), int32(f.Pix[i+1]), int32(f.Pix[i+2]))
}

func (d *Display) Poll(ctx context.Context, wait time.Duration) (input.Event, bool) {
	return d.queue.Poll(ctx, wait)
}

func (d *Display) Close() error {
	d.once.Do(func() {
		d.closed = true
		if d.screen != nil {
			d.log.Info("cleaning up terminal display")
			d.screen.Fini()
		}
	})
	return nil
}
