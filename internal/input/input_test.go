/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeymapResolvesCommands(t *testing.T) {
	km := DefaultKeymap()
	cases := map[rune]Event{
		'1':       Do(SelectTool, 1),
		'8':       Do(SelectTool, 8),
		'c':       Do(ClearCanvas, 0),
		'C':       Do(ClearCanvas, 0),
		'z':       Do(Undo, 0),
		'X':       Do(Redo, 0),
		's':       Do(SaveDrawing, 0),
		'h':       Do(ToggleHelp, 0),
		'p':       Do(TogglePalette, 0),
		KeyEscape: Do(Terminate, 0),
	}
	for r, want := range cases {
		assert.Equal(t, want, km.Resolve(KeyPress(r)), "key %q", r)
	}
	assert.Equal(t, Event{}, km.Resolve(KeyPress('9')))
	assert.Equal(t, Event{}, km.Resolve(KeyPress('r')))
}

func TestBasicKeymapPicksColors(t *testing.T) {
	km := BasicKeymap()
	for i, r := range "rgbyp" {
		assert.Equal(t, Do(SelectColor, i), km.Resolve(KeyPress(r)))
	}
	assert.Equal(t, Do(SelectColor, 4), km.Resolve(KeyPress('P')))
	assert.Equal(t, Do(ToggleHelp, 0), km.Resolve(KeyPress('h')))
	assert.Equal(t, Do(Terminate, 0), km.Resolve(KeyPress(KeyEscape)))
	assert.Equal(t, Event{}, km.Resolve(KeyPress('1')))
	assert.Equal(t, Event{}, km.Resolve(KeyPress('m')))
}

func TestKeymapByName(t *testing.T) {
	km, err := KeymapByName("")
	require.NoError(t, err)
	assert.Equal(t, DefaultKeymap(), km)
	km, err = KeymapByName(" Basic ")
	require.NoError(t, err)
	assert.Equal(t, BasicKeymap(), km)
	_, err = KeymapByName("vim")
	assert.ErrorIs(t, err, ErrUnknownKeymap)
}

func TestResolvePassesPointerEventsThrough(t *testing.T) {
	km := DefaultKeymap()
	ev := PointerMove(3, 4)
	assert.Equal(t, ev, km.Resolve(ev))
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "down 1 2", PointerDown(1, 2).String())
	assert.Equal(t, "scroll -1", Wheel(-1).String())
	assert.Equal(t, "cmd select_tool 3", Do(SelectTool, 3).String())
	assert.Equal(t, "none", Event{}.String())
	assert.Equal(t, "Command(99)", Command(99).String())
}
