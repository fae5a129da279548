/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livedoodle/internal/canvas"
	"livedoodle/internal/input"
)

var red = canvas.RGB{R: 255}

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func newTestEngine(w, h int, mutate ...func(*Options)) *Engine {
	opts := Options{
		HidePalette: true,
		Rand:        rand.New(rand.NewPCG(1, 2)),
		Logger:      quietLogger(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	return New(w, h, opts)
}

func drag(e *Engine, pts ...image.Point) {
	e.PointerDown(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		e.PointerMove(p.X, p.Y)
	}
	last := pts[len(pts)-1]
	e.PointerUp(last.X, last.Y)
}

func TestDefaults(t *testing.T) {
	e := New(64, 48, Options{Logger: quietLogger()})
	cfg := e.Config()
	assert.Equal(t, Brush, cfg.Tool)
	assert.Equal(t, red, cfg.Color)
	assert.Equal(t, DefaultBrushSize, cfg.BrushSize)
	assert.True(t, e.ShowHelp())
	assert.True(t, e.ShowPalette())
	assert.False(t, e.Terminated())
	w, h := e.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
	assert.Equal(t, 0, e.Layer().CountNonZero())
	assert.Equal(t, 20, e.History().Capacity())
}

func TestRectanglePreviewDoesNotAccumulate(t *testing.T) {
	e := newTestEngine(200, 200)
	e.SetTool(Rectangle)
	drag(e, image.Pt(10, 10), image.Pt(100, 100), image.Pt(50, 50))

	want := canvas.NewLayer(200, 200)
	want.Rect(10, 10, 50, 50, red, DefaultBrushSize)
	assert.True(t, e.Layer().Equal(want), "only the final rectangle remains")
	assert.Equal(t, canvas.Background, e.Layer().RGBAt(100, 100))
	assert.Equal(t, canvas.Background, e.Layer().RGBAt(100, 50))

	require.Equal(t, 1, e.History().Stats().UndoDepth)
	require.True(t, e.Undo())
	assert.Equal(t, 0, e.Layer().CountNonZero())
}

func TestBackToBackShapesUndoSeparately(t *testing.T) {
	e := newTestEngine(200, 200)
	e.SetTool(Rectangle)
	drag(e, image.Pt(20, 20), image.Pt(60, 60))
	first := e.Layer().Clone()
	drag(e, image.Pt(100, 100), image.Pt(150, 150))
	assert.False(t, e.Layer().Equal(first))

	require.True(t, e.Undo())
	assert.True(t, e.Layer().Equal(first))
	require.True(t, e.Undo())
	assert.Equal(t, 0, e.Layer().CountNonZero())
	assert.False(t, e.Undo())
}

func TestShapeClickWithoutMovePushesSnapshot(t *testing.T) {
	e := newTestEngine(50, 50)
	e.SetTool(Ellipse)
	drag(e, image.Pt(25, 25))
	assert.Equal(t, 1, e.History().Stats().UndoDepth)
	assert.Equal(t, 0, e.Layer().CountNonZero())
}

func TestDragKeepsToolFromPointerDown(t *testing.T) {
	e := newTestEngine(120, 120)
	e.SetTool(Line)
	e.PointerDown(10, 10)
	e.SetTool(Brush)
	e.PointerMove(100, 10)
	e.PointerMove(100, 100)
	e.PointerUp(100, 100)

	want := canvas.NewLayer(120, 120)
	want.Line(10, 10, 100, 100, red, DefaultBrushSize)
	assert.True(t, e.Layer().Equal(want))
	assert.Equal(t, Brush, e.Config().Tool)
}

func TestCircleRadiusFromDrag(t *testing.T) {
	e := newTestEngine(100, 100)
	e.SetTool(Circle)
	drag(e, image.Pt(50, 50), image.Pt(53, 54))
	want := canvas.NewLayer(100, 100)
	want.Circle(50, 50, 5, red, DefaultBrushSize)
	assert.True(t, e.Layer().Equal(want))
}

func TestEllipseFromDragBox(t *testing.T) {
	e := newTestEngine(100, 100)
	e.SetTool(Ellipse)
	drag(e, image.Pt(71, 60), image.Pt(10, 20))
	want := canvas.NewLayer(100, 100)
	want.Ellipse(40, 40, 30, 20, red, DefaultBrushSize)
	assert.True(t, e.Layer().Equal(want))
}

func TestBrushStrokeUndoRedo(t *testing.T) {
	e := newTestEngine(80, 40)
	drag(e, image.Pt(20, 20), image.Pt(40, 20), image.Pt(60, 20))
	drawn := e.Layer().Clone()
	assert.Equal(t, red, drawn.RGBAt(30, 20))
	assert.Equal(t, red, drawn.RGBAt(50, 20))
	assert.Equal(t, 1, e.History().Stats().UndoDepth)

	require.True(t, e.Undo())
	assert.Equal(t, 0, e.Layer().CountNonZero())
	require.True(t, e.Redo())
	assert.True(t, e.Layer().Equal(drawn))
	assert.False(t, e.Redo())
}

func TestNewStrokeInvalidatesRedo(t *testing.T) {
	e := newTestEngine(80, 40)
	drag(e, image.Pt(10, 10), image.Pt(30, 10))
	require.True(t, e.Undo())
	require.True(t, e.History().CanRedo())
	drag(e, image.Pt(10, 30), image.Pt(30, 30))
	assert.False(t, e.History().CanRedo())
	assert.False(t, e.Redo())
}

func TestUndoMidStrokeEndsTheDrag(t *testing.T) {
	e := newTestEngine(80, 60)
	e.PointerDown(20, 20)
	e.PointerMove(30, 20)
	partial := e.Layer().Clone()

	require.True(t, e.Undo())
	assert.False(t, e.Pointer().Dragging)
	e.PointerMove(30, 40)
	e.PointerUp(30, 40)
	assert.Equal(t, 0, e.Layer().CountNonZero(), "moves after undo draw nothing")

	require.True(t, e.History().CanRedo())
	require.True(t, e.Redo())
	assert.True(t, e.Layer().Equal(partial))
}

func TestRedoMidSprayEndsTheDrag(t *testing.T) {
	e := newTestEngine(80, 60)
	drag(e, image.Pt(10, 10), image.Pt(50, 10))
	require.True(t, e.Undo())

	e.SetTool(Spray)
	e.PointerDown(40, 40)
	require.False(t, e.History().CanRedo(), "spray invalidates redo")
	assert.False(t, e.Redo())
	before := e.Layer().Clone()
	e.Undo()
	e.PointerMove(45, 45)
	assert.True(t, e.Layer().Equal(canvas.NewLayer(80, 60)))
	assert.False(t, e.Layer().Equal(before))

	require.True(t, e.Redo())
	assert.True(t, e.Layer().Equal(before))
	e.PointerMove(20, 20)
	assert.True(t, e.Layer().Equal(before), "redo ended the spray drag")
}

func TestClearMidShapeDropsPreview(t *testing.T) {
	e := newTestEngine(200, 200)
	e.SetTool(Rectangle)
	drag(e, image.Pt(20, 20), image.Pt(60, 60))
	first := e.Layer().Clone()

	e.PointerDown(100, 100)
	e.PointerMove(150, 150)
	e.Clear()
	assert.Equal(t, 0, e.Layer().CountNonZero())
	e.PointerMove(170, 170)
	e.PointerUp(170, 170)
	assert.Equal(t, 0, e.Layer().CountNonZero(), "a later move must not restore the pre-clear layer")
	assert.Equal(t, 2, e.History().Stats().UndoDepth)

	require.True(t, e.Undo())
	assert.True(t, e.Layer().Equal(first), "the unfinished rectangle is not part of history")
}

func TestUndoMidShapeIsNotReverted(t *testing.T) {
	e := newTestEngine(200, 200)
	e.SetTool(Line)
	drag(e, image.Pt(10, 10), image.Pt(90, 10))
	first := e.Layer().Clone()

	e.PointerDown(10, 50)
	e.PointerMove(90, 50)
	require.True(t, e.Undo())
	e.PointerMove(90, 90)
	e.PointerUp(90, 90)
	assert.Equal(t, 0, e.Layer().CountNonZero())

	require.True(t, e.Redo())
	assert.True(t, e.Layer().Equal(first))
}

func TestEraserUsesDoubleWidthBackground(t *testing.T) {
	e := newTestEngine(60, 40)
	drag(e, image.Pt(5, 20), image.Pt(55, 20))
	e.SetTool(Eraser)
	drag(e, image.Pt(30, 0), image.Pt(30, 39))
	assert.Equal(t, canvas.Background, e.Layer().RGBAt(30, 20))
	assert.Equal(t, canvas.Background, e.Layer().RGBAt(32, 20), "2x brush width reaches two pixels out")
	assert.Equal(t, red, e.Layer().RGBAt(15, 20))
	assert.Equal(t, 2, e.History().Stats().UndoDepth)
}

func TestFillInsideAndOutside(t *testing.T) {
	e := newTestEngine(30, 20)
	e.SetTool(Fill)
	drag(e, image.Pt(30, 5))
	assert.False(t, e.History().CanUndo(), "out-of-canvas fill takes no snapshot")
	assert.Equal(t, 0, e.Layer().CountNonZero())

	drag(e, image.Pt(3, 3), image.Pt(10, 10))
	assert.Equal(t, 30*20, e.Layer().CountNonZero())
	assert.Equal(t, 1, e.History().Stats().UndoDepth)
}

func TestSprayOutsideTakesNoSnapshot(t *testing.T) {
	e := newTestEngine(100, 100)
	e.SetTool(Spray)
	e.PointerDown(-5, -5)
	assert.False(t, e.History().CanUndo())
	assert.Equal(t, 0, e.Layer().CountNonZero())

	e.PointerMove(50, 50)
	e.PointerMove(60, 60)
	e.PointerUp(60, 60)
	assert.Equal(t, 1, e.History().Stats().UndoDepth, "the drag undoes as one step")
	assert.Greater(t, e.Layer().CountNonZero(), 0)

	require.True(t, e.Undo())
	assert.Equal(t, 0, e.Layer().CountNonZero())
}

func TestSeededSprayIsReproducible(t *testing.T) {
	run := func() *canvas.Layer {
		e := newTestEngine(120, 90, func(o *Options) { o.Rand = rand.New(rand.NewPCG(7, 7)) })
		e.SetTool(Spray)
		drag(e, image.Pt(40, 40), image.Pt(50, 45), image.Pt(60, 50))
		return e.Layer()
	}
	a, b := run(), run()
	assert.Greater(t, a.CountNonZero(), 0)
	assert.True(t, a.Equal(b))
}

func TestPaletteClickTakesPriority(t *testing.T) {
	e := newTestEngine(640, 480, func(o *Options) { o.HidePalette = false })
	e.SetTool(Fill)
	e.PointerDown(55, 30)
	e.PointerUp(55, 30)
	assert.Equal(t, DefaultPalette[1].Color, e.Config().Color)
	assert.False(t, e.Pointer().Dragging)
	assert.False(t, e.History().CanUndo())
	assert.Equal(t, 0, e.Layer().CountNonZero())

	e.TogglePalette()
	e.PointerDown(55, 30)
	e.PointerUp(55, 30)
	assert.True(t, e.History().CanUndo(), "hidden palette lets the click through")
	assert.Equal(t, DefaultPalette[1].Color, e.Layer().RGBAt(0, 0))
}

func TestPaletteHitEdges(t *testing.T) {
	n := len(DefaultPalette)
	cases := []struct {
		x, y int
		idx  int
		ok   bool
	}{
		{10, 30, 0, false},
		{11, 30, 0, true},
		{49, 59, 0, true},
		{50, 0, 1, true},
		{409, 30, 9, true},
		{410, 30, 0, false},
		{100, 60, 0, false},
	}
	for _, c := range cases {
		idx, ok := PaletteHit(c.x, c.y, n)
		assert.Equal(t, c.ok, ok, "(%d,%d)", c.x, c.y)
		if c.ok {
			assert.Equal(t, c.idx, idx, "(%d,%d)", c.x, c.y)
		}
	}
}

func TestScrollClampsBrushSize(t *testing.T) {
	e := newTestEngine(10, 10)
	for i := 0; i < 30; i++ {
		e.Scroll(1)
	}
	assert.Equal(t, MaxBrushSize, e.Config().BrushSize)
	for i := 0; i < 30; i++ {
		e.Scroll(-1)
	}
	assert.Equal(t, MinBrushSize, e.Config().BrushSize)
	e.Scroll(0)
	assert.Equal(t, MinBrushSize, e.Config().BrushSize)
}

func TestClearTakesSnapshot(t *testing.T) {
	e := newTestEngine(40, 40)
	drag(e, image.Pt(5, 5), image.Pt(30, 30))
	drawn := e.Layer().Clone()
	e.Clear()
	assert.Equal(t, 0, e.Layer().CountNonZero())
	require.True(t, e.Undo())
	assert.True(t, e.Layer().Equal(drawn))
}

func TestSelectColorAndToolBounds(t *testing.T) {
	e := newTestEngine(10, 10)
	assert.False(t, e.SelectColor(-1))
	assert.False(t, e.SelectColor(len(DefaultPalette)))
	assert.Equal(t, red, e.Config().Color)
	assert.True(t, e.SelectColor(9))
	assert.Equal(t, canvas.RGB{R: 255, G: 192, B: 203}, e.Config().Color)

	assert.False(t, e.SelectTool(0))
	assert.False(t, e.SelectTool(9))
	assert.True(t, e.SelectTool(7))
	assert.Equal(t, Spray, e.Config().Tool)
}

type recordingSaver struct {
	got *canvas.Layer
	err error
}

func (s *recordingSaver) Save(_ context.Context, l *canvas.Layer) ([]string, error) {
	s.got = l.Clone()
	if s.err != nil {
		return nil, s.err
	}
	return []string{"doodle.png"}, nil
}

func TestSaveLeavesStateUnchanged(t *testing.T) {
	rs := &recordingSaver{}
	e := newTestEngine(40, 40, func(o *Options) { o.Saver = rs })
	drag(e, image.Pt(5, 5), image.Pt(30, 30))
	before := e.Layer().Clone()
	depth := e.History().Stats().UndoDepth

	paths, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"doodle.png"}, paths)
	assert.True(t, rs.got.Equal(before))
	assert.True(t, e.Layer().Equal(before))
	assert.Equal(t, depth, e.History().Stats().UndoDepth)

	boom := errors.New("disk full")
	rs.err = boom
	_, err = e.Save(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = newTestEngine(4, 4).Save(context.Background())
	assert.ErrorIs(t, err, ErrNoSaver)
}

func TestHandleRoutesEvents(t *testing.T) {
	e := newTestEngine(100, 100)
	ctx := context.Background()
	events := []input.Event{
		input.Do(input.SelectTool, 8),
		input.PointerDown(50, 50),
		input.PointerUp(50, 50),
		input.Wheel(1),
		input.Do(input.ToggleHelp, 0),
		input.KeyPress('z'),
	}
	for _, ev := range events {
		require.NoError(t, e.Handle(ctx, ev))
	}
	assert.Equal(t, Fill, e.Config().Tool)
	assert.Equal(t, 100*100, e.Layer().CountNonZero())
	assert.Equal(t, DefaultBrushSize+1, e.Config().BrushSize)
	assert.False(t, e.ShowHelp())

	require.NoError(t, e.Handle(ctx, input.Do(input.Undo, 0)))
	assert.Equal(t, 0, e.Layer().CountNonZero())
	require.NoError(t, e.Handle(ctx, input.Do(input.Terminate, 0)))
	assert.True(t, e.Terminated())
	assert.ErrorIs(t, e.Handle(ctx, input.Do(input.SaveDrawing, 0)), ErrNoSaver)
}

func TestDirtyRegionTracksStroke(t *testing.T) {
	e := newTestEngine(100, 100)
	assert.False(t, e.Dirty().IsDirty())
	drag(e, image.Pt(10, 10), image.Pt(40, 10))
	require.True(t, e.Dirty().IsDirty())
	r := e.Dirty().Region()
	assert.True(t, image.Pt(25, 10).In(r))
	assert.False(t, image.Pt(80, 80).In(r))
	e.Dirty().Clear()
	e.Undo()
	assert.Equal(t, e.Layer().Bounds(), e.Dirty().Region())
}

func TestToolNames(t *testing.T) {
	assert.Equal(t, "Rectangle", Rectangle.String())
	assert.Equal(t, "Tool(42)", Tool(42).String())
	tl, ok := ParseTool("spray")
	assert.True(t, ok)
	assert.Equal(t, Spray, tl)
	assert.True(t, Circle.IsShape())
	assert.False(t, Fill.IsShape())
}

func TestStartToolOption(t *testing.T) {
	e := newTestEngine(10, 10, func(o *Options) { o.Tool = Spray })
	assert.Equal(t, Spray, e.Config().Tool)
	e = newTestEngine(10, 10, func(o *Options) { o.Tool = Tool(99) })
	assert.Equal(t, Brush, e.Config().Tool)
}
