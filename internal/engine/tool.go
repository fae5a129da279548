/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"fmt"
	"strings"

	"livedoodle/internal/canvas"
)

// Tool selects how pointer events mutate the annotation layer.
type Tool int

const (
	Brush Tool = iota
	Eraser
	Line
	Rectangle
	Circle
	Ellipse
	Spray
	Fill

	toolCount
)

var toolNames = [toolCount]string{"Brush", "Eraser", "Line", "Rectangle", "Circle", "Ellipse", "Spray", "Fill"}

func (t Tool) String() string {
	if t < 0 || t >= toolCount {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return toolNames[t]
}

// Valid reports whether t names a known tool.
func (t Tool) Valid() bool { return t >= 0 && t < toolCount }

// IsShape reports whether t draws through the preview layer.
func (t Tool) IsShape() bool { return t >= Line && t <= Ellipse }

// ToolFromIndex maps the 1-based key index used by the command feed.
func ToolFromIndex(n int) (Tool, bool) {
	t := Tool(n - 1)
	return t, t.Valid()
}

// ParseTool accepts a tool name, case-insensitively.
func ParseTool(s string) (Tool, bool) {
	for i, n := range toolNames {
		if strings.EqualFold(n, s) {
			return Tool(i), true
		}
	}
	return 0, false
}

// Brush size limits.
const (
	MinBrushSize     = 1
	MaxBrushSize     = 20
	DefaultBrushSize = 3
)

// FillTolerance is the per-channel fixed-range tolerance of the fill tool.
const FillTolerance = 10

// ToolConfig is the active drawing configuration.
type ToolConfig struct {
	Tool      Tool
	Color     canvas.RGB
	BrushSize int
}

func clampBrush(n int) int {
	if n < MinBrushSize {
		return MinBrushSize
	}
	if n > MaxBrushSize {
		return MaxBrushSize
	}
	return n
}
