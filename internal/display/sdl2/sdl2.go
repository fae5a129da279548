//go:build sdl2

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package sdl2 shows frames in an SDL2 window. Building it requires the SDL2
// development libraries; default builds use a stub, see build tag sdl2.
package sdl2

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"livedoodle/internal/display"
	"livedoodle/internal/input"
	applog "livedoodle/internal/log"
)

const bytesPerPixel = 4

// Display owns the window, renderer and one streaming texture. All methods
// must be called from the goroutine that called Init, which should be locked
// to the main OS thread.
type Display struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	cfg      display.Config
	pending  []input.Event
	closed   bool
	log      *slog.Logger
}

func New() *Display { return &Display{log: applog.WithComponent("sdl2")} }

func (d *Display) Init(cfg display.Config) error {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	d.cfg = cfg
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %w", err)
	}
	window, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width*cfg.Scale), int32(cfg.Height*cfg.Scale),
		sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return fmt.Errorf("failed to create window: %w", err)
	}
	d.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	d.renderer = renderer

	// image.RGBA stores R,G,B,A bytes, which is ABGR8888 on little-endian hosts.
	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING,
		int32(cfg.Width), int32(cfg.Height))
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("failed to create texture: %w", err)
	}
	d.texture = texture
	d.log.Info("SDL2 display initialized", "width", cfg.Width, "height", cfg.Height, "scale", cfg.Scale)
	return nil
}

func (d *Display) Present(frame *image.RGBA) error {
	if d.closed {
		return display.ErrClosed
	}
	b := frame.Bounds()
	if b.Dx() != d.cfg.Width || b.Dy() != d.cfg.Height {
		return fmt.Errorf("sdl2: frame is %dx%d, window expects %dx%d", b.Dx(), b.Dy(), d.cfg.Width, d.cfg.Height)
	}
	if len(frame.Pix) == 0 {
		return nil
	}
	pitch := frame.Stride
	if pitch < d.cfg.Width*bytesPerPixel {
		pitch = d.cfg.Width * bytesPerPixel
	}
	if err := d.texture.Update(nil, unsafe.Pointer(&frame.Pix[0]), pitch); err != nil {
		return fmt.Errorf("update texture: %w", err)
	}
	_ = d.renderer.SetDrawColor(0, 0, 0, 255)
	_ = d.renderer.Clear()
	_ = d.renderer.Copy(d.texture, nil, nil)
	d.renderer.Present()
	return nil
}

// Poll drains the SDL event queue into pending and returns the oldest
// translated event.
func (d *Display) Poll(ctx context.Context, wait time.Duration) (input.Event, bool) {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		d.translate(ev)
	}
	if len(d.pending) == 0 && wait > 0 && ctx.Err() == nil {
		if ev := sdl.WaitEventTimeout(int(wait / time.Millisecond)); ev != nil {
			d.translate(ev)
		}
	}
	if len(d.pending) == 0 {
		return input.Event{}, false
	}
	ev := d.pending[0]
	d.pending = d.pending[1:]
	return ev, true
}

func (d *Display) translate(event sdl.Event) {
	s := int32(d.cfg.Scale)
	switch e := event.(type) {
	case *sdl.QuitEvent:
		d.pending = append(d.pending, input.Do(input.Terminate, 0))
	case *sdl.MouseButtonEvent:
		if e.Button != sdl.BUTTON_LEFT {
			return
		}
		x, y := int(e.X/s), int(e.Y/s)
		if e.Type == sdl.MOUSEBUTTONDOWN {
			d.pending = append(d.pending, input.PointerDown(x, y))
		} else {
			d.pending = append(d.pending, input.PointerUp(x, y))
		}
	case *sdl.MouseMotionEvent:
		if e.State&sdl.ButtonLMask() != 0 {
			d.pending = append(d.pending, input.PointerMove(int(e.X/s), int(e.Y/s)))
		}
	case *sdl.MouseWheelEvent:
		if e.Y != 0 {
			d.pending = append(d.pending, input.Wheel(int(e.Y)))
		}
	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
			return
		}
		switch sym := e.Keysym.Sym; {
		case sym == sdl.K_ESCAPE:
			d.pending = append(d.pending, input.KeyPress(input.KeyEscape))
		case sym > 0 && sym < 128:
			d.pending = append(d.pending, input.KeyPress(rune(sym)))
		}
	}
}

func (d *Display) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.log.Info("Cleaning up SDL2 display")
	if d.texture != nil {
		_ = d.texture.Destroy()
	}
	if d.renderer != nil {
		_ = d.renderer.Destroy()
	}
	if d.window != nil {
		_ = d.window.Destroy()
	}
	sdl.Quit()
	return nil
}
