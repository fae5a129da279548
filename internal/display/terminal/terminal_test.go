/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package terminal

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livedoodle/internal/display"
	"livedoodle/internal/input"
)

func newSim(t *testing.T) (*Display, tcell.SimulationScreen) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	d := New(sim)
	require.NoError(t, d.Init(display.Config{Width: 80, Height: 48}))
	sim.SetSize(40, 12)
	t.Cleanup(func() { _ = d.Close() })
	return d, sim
}

func poll(t *testing.T, d *Display) input.Event {
	t.Helper()
	ev, ok := d.Poll(context.Background(), time.Second)
	require.True(t, ok, "expected an event")
	return ev
}

// pollKind skips events such as resizes that produce nothing of interest.
func pollKind(t *testing.T, d *Display, k input.Kind) input.Event {
	t.Helper()
	for i := 0; i < 10; i++ {
		if ev := poll(t, d); ev.Kind == k {
			return ev
		}
	}
	t.Fatalf("no %s event", k)
	return input.Event{}
}

func TestPresentPaintsHalfBlocks(t *testing.T) {
	d, sim := newSim(t)
	f := image.NewRGBA(image.Rect(0, 0, 80, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 80; x++ {
			f.SetRGBA(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	// bottom half of the first cell row
	f.SetRGBA(1, 3, color.RGBA{0, 0, 255, 255})
	require.NoError(t, d.Present(f))

	cells, w, h := sim.GetContents()
	require.Equal(t, 40, w)
	require.Equal(t, 12, h)
	c := cells[0]
	assert.Equal(t, []rune{halfBlock}, c.Runes)
	fg, bg, _ := c.Style.Decompose()
	r, g, b := fg.RGB()
	assert.Equal(t, [3]int32{255, 0, 0}, [3]int32{r, g, b})
	r, g, b = bg.RGB()
	assert.Equal(t, [3]int32{0, 0, 255}, [3]int32{r, g, b})
}

func TestMouseDragBecomesPointerEvents(t *testing.T) {
	d, sim := newSim(t)
	sim.InjectMouse(10, 5, tcell.Button1, tcell.ModNone)
	sim.InjectMouse(12, 5, tcell.Button1, tcell.ModNone)
	sim.InjectMouse(12, 5, tcell.ButtonNone, tcell.ModNone)

	assert.Equal(t, input.PointerDown(21, 22), pollKind(t, d, input.Down))
	assert.Equal(t, input.PointerMove(25, 22), poll(t, d))
	assert.Equal(t, input.PointerUp(25, 22), poll(t, d))
}

func TestWheelAndKeys(t *testing.T) {
	d, sim := newSim(t)
	sim.InjectMouse(0, 0, tcell.WheelUp, tcell.ModNone)
	sim.InjectKey(tcell.KeyRune, 'z', tcell.ModNone)
	sim.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	assert.Equal(t, input.Wheel(1), pollKind(t, d, input.Scroll))
	assert.Equal(t, input.KeyPress('z'), poll(t, d))
	assert.Equal(t, input.KeyPress(input.KeyEscape), poll(t, d))
}

func TestCloseRejectsPresent(t *testing.T) {
	d, _ := newSim(t)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Present(image.NewRGBA(image.Rect(0, 0, 2, 2))), display.ErrClosed)
}
