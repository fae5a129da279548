/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package input defines the pointer and command events delivered by display
// adapters, and the key bindings that turn key presses into commands.
package input

import "fmt"

// Kind classifies an Event.
type Kind int

const (
	None Kind = iota
	Down
	Move
	Up
	Scroll
	// Key carries an unresolved key press in Rune.
	Key
	// Cmd carries a resolved command in Command and Arg.
	Cmd
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	case Scroll:
		return "scroll"
	case Key:
		return "key"
	case Cmd:
		return "cmd"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Command is an action from the command feed.
type Command int

const (
	NoCommand Command = iota
	SelectTool
	ClearCanvas
	Undo
	Redo
	SaveDrawing
	ToggleHelp
	TogglePalette
	SelectColor
	Terminate
)

var commandNames = map[Command]string{
	NoCommand:     "none",
	SelectTool:    "select_tool",
	ClearCanvas:   "clear",
	Undo:          "undo",
	Redo:          "redo",
	SaveDrawing:   "save",
	ToggleHelp:    "toggle_help",
	TogglePalette: "toggle_palette",
	SelectColor:   "select_color",
	Terminate:     "terminate",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// KeyEscape is the rune adapters report for the escape key.
const KeyEscape rune = 27

// Event is one pointer, key or command event.
type Event struct {
	Kind Kind
	X, Y int
	// Delta is the wheel direction for Scroll: positive grows the brush.
	Delta   int
	Rune    rune
	Command Command
	// Arg is the 1-based tool index for SelectTool and the palette index for
	// SelectColor.
	Arg int
}

func PointerDown(x, y int) Event { return Event{Kind: Down, X: x, Y: y} }

func PointerMove(x, y int) Event { return Event{Kind: Move, X: x, Y: y} }

func PointerUp(x, y int) Event { return Event{Kind: Up, X: x, Y: y} }

func Wheel(delta int) Event { return Event{Kind: Scroll, Delta: delta} }

func KeyPress(r rune) Event { return Event{Kind: Key, Rune: r} }

// Do builds a resolved command event.
func Do(c Command, arg int) Event { return Event{Kind: Cmd, Command: c, Arg: arg} }

func (e Event) String() string {
	switch e.Kind {
	case Down, Move, Up:
		return fmt.Sprintf("%s %d %d", e.Kind, e.X, e.Y)
	case Scroll:
		return fmt.Sprintf("scroll %d", e.Delta)
	case Key:
		return fmt.Sprintf("key %q", e.Rune)
	case Cmd:
		return fmt.Sprintf("cmd %s %d", e.Command, e.Arg)
	}
	return e.Kind.String()
}
