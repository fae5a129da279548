/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script parses input playback scripts used to drive headless runs.
package script

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"livedoodle/internal/input"
)

// Parse parses a playback script. Supported syntax, one command per line:
//   - down X Y, move X Y, up X Y: pointer events
//   - drag X0 Y0 X1 Y1 [N]: down, N interpolated moves (default 8), up
//   - scroll D: wheel, positive grows the brush
//   - key C: a key press; C is a single character or "esc"
//   - tool N, color N, clear, undo, redo, save, help, palette, quit: commands
//   - wait N: idle for N frames
//
// Lines starting with "#" or ";" are comments. Blank lines are skipped.
func Parse(text string) (Script, []Error) {
	var s Script
	var errs []Error

	rePoint := regexp.MustCompile(`^(?i)(down|move|up)\s+(-?\d+)\s+(-?\d+)$`)
	reDrag := regexp.MustCompile(`^(?i)drag\s+(-?\d+)\s+(-?\d+)\s+(-?\d+)\s+(-?\d+)(?:\s+(\d+))?$`)
	reArg := regexp.MustCompile(`^(?i)(scroll|tool|color|wait)\s+(-?\d+)$`)
	reKey := regexp.MustCompile(`^(?i)key\s+(\S+)$`)

	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	add := func(ev input.Event) { s.Steps = append(s.Steps, Step{Event: ev, LineNo: lineNo}) }
	fail := func(col int, format string, a ...any) {
		errs = append(errs, Error{Line: lineNo, Column: col, Message: fmt.Sprintf(format, a...)})
	}

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		trim := strings.TrimSpace(raw)
		if trim == "" || strings.HasPrefix(trim, "#") || strings.HasPrefix(trim, ";") {
			continue
		}
		col := strings.Index(raw, trim) + 1

		if m := rePoint.FindStringSubmatch(trim); m != nil {
			x, y := atoi(m[2]), atoi(m[3])
			switch strings.ToLower(m[1]) {
			case "down":
				add(input.PointerDown(x, y))
			case "move":
				add(input.PointerMove(x, y))
			default:
				add(input.PointerUp(x, y))
			}
			continue
		}
		if m := reDrag.FindStringSubmatch(trim); m != nil {
			x0, y0, x1, y1 := atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4])
			n := 8
			if m[5] != "" {
				n = atoi(m[5])
			}
			if n < 1 {
				fail(col, "drag needs at least one step")
				continue
			}
			add(input.PointerDown(x0, y0))
			for i := 1; i <= n; i++ {
				add(input.PointerMove(x0+(x1-x0)*i/n, y0+(y1-y0)*i/n))
			}
			add(input.PointerUp(x1, y1))
			continue
		}
		if m := reArg.FindStringSubmatch(trim); m != nil {
			v := atoi(m[2])
			switch strings.ToLower(m[1]) {
			case "scroll":
				add(input.Wheel(v))
			case "tool":
				if v < 1 || v > 8 {
					fail(col, "tool index %d out of range 1-8", v)
					continue
				}
				add(input.Do(input.SelectTool, v))
			case "color":
				add(input.Do(input.SelectColor, v))
			case "wait":
				if v < 1 {
					fail(col, "wait needs a positive frame count")
					continue
				}
				s.Steps = append(s.Steps, Step{Wait: v, LineNo: lineNo})
			}
			continue
		}
		if m := reKey.FindStringSubmatch(trim); m != nil {
			k := m[1]
			switch {
			case strings.EqualFold(k, "esc"):
				add(input.KeyPress(input.KeyEscape))
			case utf8.RuneCountInString(k) == 1:
				r, _ := utf8.DecodeRuneInString(k)
				add(input.KeyPress(r))
			default:
				fail(col+4, "key expects a single character or esc, got %q", k)
			}
			continue
		}
		if c, ok := plainCommands[strings.ToLower(trim)]; ok {
			add(input.Do(c, 0))
			continue
		}
		fail(col, "unknown command %q", strings.Fields(trim)[0])
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
	}
	return s, errs
}

var plainCommands = map[string]input.Command{
	"clear":   input.ClearCanvas,
	"undo":    input.Undo,
	"redo":    input.Redo,
	"save":    input.SaveDrawing,
	"help":    input.ToggleHelp,
	"palette": input.TogglePalette,
	"quit":    input.Terminate,
}

// atoi is only called on regexp-validated digits.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
