/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package input

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnknownKeymap is returned by KeymapByName for an unrecognized layout.
var ErrUnknownKeymap = errors.New("unknown keymap")

// Binding is the command a key resolves to.
type Binding struct {
	Command Command
	Arg     int
}

// Keymap binds key runes to commands. Letter keys match either case.
type Keymap map[rune]Binding

// DefaultKeymap is the multi-tool key layout: 1-8 select tools, c clears,
// z/x undo and redo, s saves, h and p toggle the overlays, ESC quits.
func DefaultKeymap() Keymap {
	km := Keymap{
		'c':       {Command: ClearCanvas},
		'z':       {Command: Undo},
		'x':       {Command: Redo},
		's':       {Command: SaveDrawing},
		'h':       {Command: ToggleHelp},
		'p':       {Command: TogglePalette},
		KeyEscape: {Command: Terminate},
	}
	for i := 1; i <= 8; i++ {
		km[rune('0'+i)] = Binding{Command: SelectTool, Arg: i}
	}
	return km
}

// BasicKeymap is the single-tool layout: r g b y p pick red, green, blue,
// yellow and purple (the first five palette swatches), c clears, h toggles
// help and ESC quits.
func BasicKeymap() Keymap {
	km := Keymap{
		'c':       {Command: ClearCanvas},
		'h':       {Command: ToggleHelp},
		KeyEscape: {Command: Terminate},
	}
	for i, r := range "rgbyp" {
		km[r] = Binding{Command: SelectColor, Arg: i}
	}
	return km
}

// KeymapByName returns the layout called name: "default" (or empty) for the
// multi-tool keys, "basic" for the single-tool keys.
func KeymapByName(name string) (Keymap, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return DefaultKeymap(), nil
	case "basic":
		return BasicKeymap(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKeymap, name)
}

// Lookup returns the binding for r.
func (km Keymap) Lookup(r rune) (Binding, bool) {
	b, ok := km[unicode.ToLower(r)]
	return b, ok
}

// Resolve turns a Key event into a Cmd event. Unbound keys resolve to a None
// event; other kinds pass through unchanged.
func (km Keymap) Resolve(ev Event) Event {
	if ev.Kind != Key {
		return ev
	}
	b, ok := km.Lookup(ev.Rune)
	if !ok {
		return Event{}
	}
	return Do(b.Command, b.Arg)
}
