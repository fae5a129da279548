/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps bounded undo/redo history of annotation layer snapshots.
package undo

import (
	"livedoodle/internal/canvas"
)

// DefaultCapacity is the number of undo steps kept when Config.Capacity is unset.
const DefaultCapacity = 20

// Config controls the depth cap.
type Config struct {
	// Capacity bounds the undo stack; the oldest entry is evicted on overflow.
	Capacity int
}

// Stats is a diagnostics view of the manager.
type Stats struct {
	UndoDepth int
	RedoDepth int
	Evicted   int
	Bytes     int
}

// Manager provides undo/redo over full layer snapshots. Snapshots are deep
// copies, so later mutation of the live layer never alters recorded history.
// It is owned by a single goroutine and does no locking.
type Manager struct {
	cfg     Config
	undo    *ring
	redo    *ring
	evicted int
}

func NewManager(cfg Config) *Manager {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &Manager{cfg: cfg, undo: newRing(cfg.Capacity), redo: newRing(cfg.Capacity)}
}

// Capacity returns the configured depth cap.
func (m *Manager) Capacity() int { return m.cfg.Capacity }

// Snapshot records a copy of cur. Any new change invalidates redo.
func (m *Manager) Snapshot(cur *canvas.Layer) {
	if m.undo.pushBack(cur.Clone()) {
		m.evicted++
	}
	m.redo.clear()
}

// Undo restores the most recent snapshot into cur and moves the replaced
// content onto the redo stack. It reports false, leaving cur untouched, when
// there is nothing to undo.
func (m *Manager) Undo(cur *canvas.Layer) bool {
	s, ok := m.undo.popBack()
	if !ok {
		return false
	}
	m.redo.pushBack(swapInto(cur, s))
	return true
}

// Redo is the inverse of Undo. It reports false when there is nothing to redo.
func (m *Manager) Redo(cur *canvas.Layer) bool {
	s, ok := m.redo.popBack()
	if !ok {
		return false
	}
	if m.undo.pushBack(swapInto(cur, s)) {
		m.evicted++
	}
	return true
}

// CanUndo reports whether Undo would change state.
func (m *Manager) CanUndo() bool { return m.undo.len() > 0 }

// CanRedo reports whether Redo would change state.
func (m *Manager) CanRedo() bool { return m.redo.len() > 0 }

// oldest returns the oldest retained undo snapshot, or nil when empty.
func (m *Manager) oldest() *canvas.Layer {
	l, _ := m.undo.front()
	return l
}

// Reset drops all history.
func (m *Manager) Reset() {
	m.undo.clear()
	m.redo.clear()
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() Stats {
	bytes := 0
	m.undo.each(func(l *canvas.Layer) { bytes += len(l.Pix) })
	m.redo.each(func(l *canvas.Layer) { bytes += len(l.Pix) })
	return Stats{UndoDepth: m.undo.len(), RedoDepth: m.redo.len(), Evicted: m.evicted, Bytes: bytes}
}

// swapInto makes cur hold snap's pixels and returns a layer holding cur's
// previous pixels. Same-sized layers swap buffers without copying.
func swapInto(cur, snap *canvas.Layer) *canvas.Layer {
	if cur.W == snap.W && cur.H == snap.H && len(cur.Pix) == len(snap.Pix) {
		cur.Pix, snap.Pix = snap.Pix, cur.Pix
		return snap
	}
	prev := cur.Clone()
	cur.CopyFrom(snap)
	return prev
}
