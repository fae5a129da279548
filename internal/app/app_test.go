/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package app

import (
	"context"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livedoodle/internal/canvas"
	"livedoodle/internal/config"
	"livedoodle/internal/display"
	"livedoodle/internal/display/headless"
	"livedoodle/internal/engine"
	"livedoodle/internal/input"
	applog "livedoodle/internal/log"
	"livedoodle/internal/script"
	"livedoodle/internal/source"
	"livedoodle/internal/storage"
	"livedoodle/internal/timing"
)

func TestMain(m *testing.M) {
	applog.Init(applog.Options{Console: io.Discard})
	os.Exit(m.Run())
}

type fixedSource struct {
	frames []*image.RGBA
	i      int
	closed bool
}

func (s *fixedSource) Next(context.Context) (*image.RGBA, error) {
	if s.i >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.i]
	s.i++
	return f, nil
}

func (s *fixedSource) Close() error { s.closed = true; return nil }

func blank(w, h, n int) []*image.RGBA {
	out := make([]*image.RGBA, n)
	for i := range out {
		out[i] = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return out
}

// fakeDisplay replays events and fails Present after closeAfter frames.
type fakeDisplay struct {
	cfg        display.Config
	inited     bool
	closed     bool
	presented  int
	closeAfter int
	events     []input.Event
	onPoll     func()
	mainRuns   int
}

func (d *fakeDisplay) Init(cfg display.Config) error { d.cfg, d.inited = cfg, true; return nil }

func (d *fakeDisplay) Present(*image.RGBA) error {
	if d.closeAfter > 0 && d.presented >= d.closeAfter {
		return display.ErrClosed
	}
	d.presented++
	return nil
}

func (d *fakeDisplay) Poll(context.Context, time.Duration) (input.Event, bool) {
	if d.onPoll != nil {
		d.onPoll()
	}
	if len(d.events) == 0 {
		return input.Event{}, false
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev, true
}

func (d *fakeDisplay) Close() error { d.closed = true; return nil }

type mainDisplay struct{ fakeDisplay }

func (d *mainDisplay) RunMain(loop func() error) error {
	d.mainRuns++
	return loop()
}

type recordingTelemetry struct {
	started, ended bool
	w, h           int
	frames         int64
	saved          [][]string
}

func (r *recordingTelemetry) SessionStart(_, _ string, w, h int) { r.started, r.w, r.h = true, w, h }
func (r *recordingTelemetry) SessionEnd(_ time.Duration, frames int64) {
	r.ended, r.frames = true, frames
}
func (r *recordingTelemetry) DrawingSaved(formats []string) { r.saved = append(r.saved, formats) }

func parse(t *testing.T, text string) script.Script {
	t.Helper()
	s, errs := script.Parse(text)
	require.Empty(t, errs)
	return s
}

func TestScriptedSessionDrawsAndTerminates(t *testing.T) {
	sc := parse(t, "drag 20 100 150 100\nquit\n")
	d := headless.New(headless.Options{Script: sc})
	r := New(Config{Engine: engine.Options{HideHelp: true, HidePalette: true}}, source.NewPattern(200, 150), d)

	require.NoError(t, r.Run(context.Background()))
	assert.True(t, r.Engine().Terminated())
	assert.Equal(t, int64(len(sc.Steps)), r.Frames())
	assert.Equal(t, len(sc.Steps), d.Frames())

	assert.Equal(t, canvas.RGB{R: 255}, r.Engine().Layer().RGBAt(80, 100))
	last := d.Last()
	require.NotNil(t, last)
	assert.Equal(t, uint8(255), last.RGBAAt(80, 100).R, "stroke composited over the frame")
}

func TestDisplaySizedFromFirstFrame(t *testing.T) {
	src := &fixedSource{frames: blank(64, 48, 3)}
	d := &fakeDisplay{events: []input.Event{input.Do(input.Terminate, 0)}}
	r := New(Config{Display: display.Config{Scale: 2}}, src, d)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 64, d.cfg.Width)
	assert.Equal(t, 48, d.cfg.Height)
	assert.Equal(t, 2, d.cfg.Scale)
	assert.Equal(t, "Live Doodle", d.cfg.Title)
	assert.Equal(t, 64, r.Engine().Layer().W)
	assert.True(t, src.closed)
	assert.True(t, d.closed)
}

func TestFirstFrameFailureSkipsDisplay(t *testing.T) {
	src := &fixedSource{}
	d := &fakeDisplay{}
	err := New(Config{}, src, d).Run(context.Background())
	require.ErrorIs(t, err, source.ErrEmptyFrame)
	assert.False(t, d.inited)
	assert.True(t, src.closed)
}

func TestSourceExhaustedEndsWithError(t *testing.T) {
	src := &fixedSource{frames: blank(32, 24, 2)}
	d := &fakeDisplay{}
	r := New(Config{}, src, d)
	err := r.Run(context.Background())
	require.ErrorIs(t, err, source.ErrEmptyFrame)
	assert.Equal(t, int64(2), r.Frames())
	assert.True(t, d.closed)
}

func TestFrameSizeChangeFails(t *testing.T) {
	frames := blank(32, 24, 1)
	frames = append(frames, image.NewRGBA(image.Rect(0, 0, 16, 16)))
	err := New(Config{}, &fixedSource{frames: frames}, &fakeDisplay{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size changed")
}

func TestClosedDisplayEndsCleanly(t *testing.T) {
	src := &fixedSource{frames: blank(32, 24, 10)}
	d := &fakeDisplay{closeAfter: 3}
	r := New(Config{}, src, d)
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, int64(3), r.Frames())
}

func TestCancelEndsCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := &fakeDisplay{}
	polls := 0
	d.onPoll = func() {
		polls++
		if polls == 4 {
			cancel()
		}
	}
	r := New(Config{}, source.NewPattern(32, 24), d)
	require.NoError(t, r.Run(ctx))
	assert.Equal(t, int64(4), r.Frames())
}

func TestMainThreaderRunsLoop(t *testing.T) {
	d := &mainDisplay{}
	d.events = []input.Event{input.KeyPress('q')}
	r := New(Config{}, source.NewPattern(32, 24), d)
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, d.mainRuns)
	assert.True(t, r.Engine().Terminated(), "q resolves to quit through the keymap")
}

func TestTelemetrySessionEvents(t *testing.T) {
	tel := &recordingTelemetry{}
	d := &fakeDisplay{events: []input.Event{input.Wheel(1), input.Do(input.Terminate, 0)}}
	r := New(Config{}, &fixedSource{frames: blank(40, 30, 5)}, d, WithTelemetry(tel))
	require.NoError(t, r.Run(context.Background()))
	assert.True(t, tel.started)
	assert.True(t, tel.ended)
	assert.Equal(t, 40, tel.w)
	assert.Equal(t, 30, tel.h)
	assert.Equal(t, int64(2), tel.frames)
}

func TestOnLayerReceivesLiveLayer(t *testing.T) {
	var got *canvas.Layer
	d := &fakeDisplay{events: []input.Event{input.Do(input.Terminate, 0)}}
	r := New(Config{}, source.NewPattern(32, 24), d, OnLayer(func(l *canvas.Layer) { got = l }))
	require.NoError(t, r.Run(context.Background()))
	assert.Same(t, r.Engine().Layer(), got)
}

func TestStatsOverlayRuns(t *testing.T) {
	d := &fakeDisplay{events: []input.Event{input.Wheel(1), input.Wheel(1), input.Do(input.Terminate, 0)}}
	r := New(Config{ShowStats: true}, source.NewPattern(320, 240), d)
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 2, r.FPS().Samples())
}

func TestBuildSavesIntoGallery(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Camera.Source = "pattern"
	cfg.Camera.Width, cfg.Camera.Height = 160, 120
	cfg.Display.Backend = "headless"
	cfg.Export.Dir = dir
	cfg.Gallery.Enabled = true
	cfg.Canvas.Seed = 7

	tel := &recordingTelemetry{}
	r, cleanup, err := Build(context.Background(), cfg, config.Secrets{}, BuildOptions{
		Script:    parse(t, "drag 30 90 120 90\nsave\nquit\n"),
		Telemetry: tel,
	})
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))
	cleanup()

	require.Len(t, tel.saved, 1)
	assert.Equal(t, []string{"png"}, tel.saved[0])
	matches, err := filepath.Glob(filepath.Join(dir, "doodle_*.png"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	g, err := storage.Open(storage.IndexPath(dir))
	require.NoError(t, err)
	defer g.Close()
	n, err := g.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBuildAppliesKeymapAndStartTool(t *testing.T) {
	cfg := config.Defaults()
	cfg.Camera.Source = "pattern"
	cfg.Camera.Width, cfg.Camera.Height = 160, 120
	cfg.Display.Backend = "headless"
	cfg.Display.Keymap = "basic"
	cfg.Canvas.Tool = "rectangle"
	cfg.Gallery.Enabled = false
	cfg.Display.ShowPalette = false
	cfg.Export.Dir = t.TempDir()

	var layer *canvas.Layer
	r, cleanup, err := Build(context.Background(), cfg, config.Secrets{}, BuildOptions{
		Script:  parse(t, "key b\ndrag 20 20 140 100\nquit\n"),
		OnLayer: func(l *canvas.Layer) { layer = l },
	})
	require.NoError(t, err)
	defer cleanup()
	require.NoError(t, r.Run(context.Background()))

	require.NotNil(t, layer)
	blue := canvas.RGB{B: 255}
	assert.Equal(t, blue, layer.RGBAt(20, 60), "basic layout binds b to blue")
	assert.Equal(t, canvas.Background, layer.RGBAt(80, 60), "rectangle outline leaves the inside empty")
	assert.Equal(t, engine.Rectangle, r.Engine().Config().Tool)
}

func TestBuildRejectsUnknownKeymapAndTool(t *testing.T) {
	cfg := config.Defaults()
	cfg.Display.Backend = "headless"
	cfg.Gallery.Enabled = false
	cfg.Display.Keymap = "emacs"
	_, _, err := Build(context.Background(), cfg, config.Secrets{}, BuildOptions{})
	require.ErrorIs(t, err, input.ErrUnknownKeymap)

	cfg.Display.Keymap = "basic"
	cfg.Canvas.Tool = "lasso"
	_, _, err = Build(context.Background(), cfg, config.Secrets{}, BuildOptions{})
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestToolNamed(t *testing.T) {
	tl, err := toolNamed("")
	require.NoError(t, err)
	assert.Equal(t, engine.Brush, tl)
	tl, err = toolNamed(" Spray ")
	require.NoError(t, err)
	assert.Equal(t, engine.Spray, tl)
}

func TestBuildRejectsUnknownDisplay(t *testing.T) {
	cfg := config.Defaults()
	cfg.Display.Backend = "hologram"
	cfg.Gallery.Enabled = false
	_, _, err := Build(context.Background(), cfg, config.Secrets{}, BuildOptions{})
	require.ErrorIs(t, err, ErrUnknownDisplay)
}

func TestBuildRejectsMissingImageDir(t *testing.T) {
	cfg := config.Defaults()
	cfg.Camera.Source = "images"
	cfg.Camera.ImageDir = filepath.Join(t.TempDir(), "missing")
	cfg.Gallery.Enabled = false
	_, _, err := Build(context.Background(), cfg, config.Secrets{}, BuildOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open source")
}

func TestOpenDisplayNames(t *testing.T) {
	for _, name := range []string{"headless", "terminal", "", "sdl2", "fyne"} {
		d, err := OpenDisplay(name, headless.Options{})
		require.NoError(t, err, name)
		assert.NotNil(t, d, name)
	}
	_, err := OpenDisplay("x11", headless.Options{})
	assert.ErrorIs(t, err, ErrUnknownDisplay)
}

func TestLimiterFor(t *testing.T) {
	cfg := config.Defaults()
	cfg.Display.Backend = "terminal"
	cfg.Camera.Source = "pattern"
	assert.IsType(t, &timing.Adaptive{}, limiterFor(cfg))

	cfg.Camera.Source = "camera"
	assert.Equal(t, timing.NewNoOp(), limiterFor(cfg))

	cfg.Camera.Source = "pattern"
	cfg.Display.Backend = "headless"
	assert.Equal(t, timing.NewNoOp(), limiterFor(cfg))
}

func TestFormatsOf(t *testing.T) {
	assert.Equal(t, []string{"png", "pdf", "jpg"}, formatsOf([]string{"a/doodle.png", "doodle.PDF", "x.jpg"}))
	assert.Empty(t, formatsOf(nil))
}
