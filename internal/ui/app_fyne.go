//go:build fyne && cgo

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
	"image"
	"log/slog"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"livedoodle/internal/display"
	"livedoodle/internal/input"
	applog "livedoodle/internal/log"
)

// DoodleCanvas shows the composited frame and turns pointer gestures into
// input events in frame coordinates.
type DoodleCanvas struct {
	widget.BaseWidget

	img    *canvas.Image
	frameW int
	frameH int
	emit   func(input.Event)

	pressed  bool
	sawMouse bool
	last     image.Point
}

var (
	_ desktop.Mouseable = (*DoodleCanvas)(nil)
	_ fyne.Draggable    = (*DoodleCanvas)(nil)
	_ fyne.Scrollable   = (*DoodleCanvas)(nil)
	_ fyne.Tappable     = (*DoodleCanvas)(nil)
)

func NewDoodleCanvas(w, h int, emit func(input.Event)) *DoodleCanvas {
	img := canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, w, h)))
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScalePixels
	dc := &DoodleCanvas{img: img, frameW: w, frameH: h, emit: emit}
	dc.ExtendBaseWidget(dc)
	return dc
}

func (d *DoodleCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(d.img)
}

func (d *DoodleCanvas) MinSize() fyne.Size {
	return fyne.NewSize(float32(d.frameW)/2, float32(d.frameH)/2)
}

// toFrame maps a widget position to frame pixels.
func (d *DoodleCanvas) toFrame(p fyne.Position) image.Point {
	sz := d.Size()
	if sz.Width <= 0 || sz.Height <= 0 {
		return image.Pt(int(p.X), int(p.Y))
	}
	return image.Pt(int(p.X*float32(d.frameW)/sz.Width), int(p.Y*float32(d.frameH)/sz.Height))
}

func (d *DoodleCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	d.sawMouse = true
	d.pressed = true
	d.last = d.toFrame(e.Position)
	d.emit(input.PointerDown(d.last.X, d.last.Y))
}

func (d *DoodleCanvas) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary || !d.pressed {
		return
	}
	d.pressed = false
	d.last = d.toFrame(e.Position)
	d.emit(input.PointerUp(d.last.X, d.last.Y))
}

func (d *DoodleCanvas) Dragged(e *fyne.DragEvent) {
	p := d.toFrame(e.Position)
	if !d.pressed {
		// touch drivers deliver drags without a mouse down
		d.pressed = true
		d.emit(input.PointerDown(p.X, p.Y))
	}
	if p != d.last {
		d.last = p
		d.emit(input.PointerMove(p.X, p.Y))
	}
}

func (d *DoodleCanvas) DragEnd() {
	if d.pressed {
		d.pressed = false
		d.emit(input.PointerUp(d.last.X, d.last.Y))
	}
}

// Tapped covers drivers without mouse events; desktop clicks arrive through
// MouseDown and MouseUp.
func (d *DoodleCanvas) Tapped(e *fyne.PointEvent) {
	if d.sawMouse {
		return
	}
	p := d.toFrame(e.Position)
	d.emit(input.PointerDown(p.X, p.Y))
	d.emit(input.PointerUp(p.X, p.Y))
}

func (d *DoodleCanvas) Scrolled(e *fyne.ScrollEvent) {
	switch {
	case e.Scrolled.DY > 0:
		d.emit(input.Wheel(1))
	case e.Scrolled.DY < 0:
		d.emit(input.Wheel(-1))
	}
}

// show replaces the displayed image. Must run on the fyne goroutine.
func (d *DoodleCanvas) show(img image.Image) {
	d.img.Image = img
	d.img.Refresh()
}

// Display is the fyne window adapter.
type Display struct {
	app    fyne.App
	win    fyne.Window
	canvas *DoodleCanvas
	queue  *display.Queue
	buf    *image.RGBA

	mu     sync.Mutex
	closed bool
	once   sync.Once
	log    *slog.Logger
}

func New() *Display {
	return &Display{queue: display.NewQueue(0), log: applog.WithComponent("ui")}
}

func (d *Display) Init(cfg display.Config) error {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	d.app = app.NewWithID("livedoodle")
	d.win = d.app.NewWindow(cfg.Title)
	d.canvas = NewDoodleCanvas(cfg.Width, cfg.Height, d.queue.Push)
	d.buf = image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	d.win.SetContent(d.canvas)
	d.win.Resize(fyne.NewSize(float32(cfg.Width*cfg.Scale), float32(cfg.Height*cfg.Scale)))
	d.win.Canvas().SetOnTypedRune(func(r rune) { d.queue.Push(input.KeyPress(r)) })
	d.win.Canvas().SetOnTypedKey(func(e *fyne.KeyEvent) {
		if e.Name == fyne.KeyEscape {
			d.queue.Push(input.KeyPress(input.KeyEscape))
		}
	})
	d.win.SetCloseIntercept(func() {
		d.queue.Push(input.Do(input.Terminate, 0))
	})
	d.log.Info("fyne display initialized", "width", cfg.Width, "height", cfg.Height)
	return nil
}

// RunMain shows the window and blocks in the fyne event loop while loop runs.
func (d *Display) RunMain(loop func() error) error {
	errc := make(chan error, 1)
	go func() {
		err := loop()
		errc <- err
		fyne.Do(d.app.Quit)
	}()
	d.win.ShowAndRun()
	return <-errc
}

func (d *Display) Present(frame *image.RGBA) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return display.ErrClosed
	}
	fyne.DoAndWait(func() {
		copy(d.buf.Pix, frame.Pix)
		d.canvas.show(d.buf)
	})
	return nil
}

func (d *Display) Poll(ctx context.Context, wait time.Duration) (input.Event, bool) {
	return d.queue.Poll(ctx, wait)
}

func (d *Display) Close() error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
	})
	return nil
}
