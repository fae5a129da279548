/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"

	"livedoodle/internal/input"
)

// Script is a parsed input playback script.
type Script struct {
	Steps []Step
}

// Step is one scripted event. A Step with Wait > 0 carries no event and idles
// for that many frames.
type Step struct {
	Event  input.Event
	Wait   int
	LineNo int // 1-based line number in the source
}

// Error represents a parse error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message) }

// Events returns the script's events in order, dropping waits.
func (s Script) Events() []input.Event {
	out := make([]input.Event, 0, len(s.Steps))
	for _, st := range s.Steps {
		if st.Wait == 0 {
			out = append(out, st.Event)
		}
	}
	return out
}
