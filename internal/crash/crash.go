/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the drawing loop into a report file and a
// best-effort autosave of the annotation layer.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"livedoodle/internal/canvas"
	"livedoodle/internal/export"
	applog "livedoodle/internal/log"
	"livedoodle/internal/telemetry"
	"livedoodle/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Autosaver persists whatever the user would lose. Dir is where the crash
// report goes; empty means the temp dir.
type Autosaver interface {
	Dir() string
	Autosave() (string, error)
}

// LayerAutosaver writes the current annotation layer as a PNG. The loop
// installs the layer with Set once the engine exists.
type LayerAutosaver struct {
	OutDir string
	Now    func() time.Time

	mu    sync.Mutex
	layer *canvas.Layer
}

func NewLayerAutosaver(dir string) *LayerAutosaver { return &LayerAutosaver{OutDir: dir} }

// Set installs the layer to save on a crash.
func (a *LayerAutosaver) Set(l *canvas.Layer) {
	a.mu.Lock()
	a.layer = l
	a.mu.Unlock()
}

func (a *LayerAutosaver) Dir() string { return a.OutDir }

func (a *LayerAutosaver) Autosave() (string, error) {
	a.mu.Lock()
	l := a.layer
	a.mu.Unlock()
	if l == nil {
		return "", fmt.Errorf("no drawing to autosave")
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	dir := a.OutDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "autosave-"+now().Format("20060102-150405")+".png")
	if err := export.WritePNG(path, l.ToRGBA()); err != nil {
		return "", err
	}
	return path, nil
}

// Recover captures a panic, logs an error with stacktrace,
// writes an error report file, and attempts a crash-safe autosave
// of the drawing (if an Autosaver is provided).
//
// Usage: defer crash.Recover(saver)
func Recover(as Autosaver) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		dir := ""
		if as != nil {
			dir = as.Dir()
		}
		reportPath, _ := writeReport(dir, r, stack)
		if as != nil {
			if path, err := as.Autosave(); err != nil {
				l.Error("autosave failed", slog.Any("err", err))
			} else {
				l.Info("autosave written", slog.String("path", path))
				_, _ = fmt.Fprintf(os.Stderr, "Your drawing was saved to: %s\n", path)
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(2)
	}
}

func writeReport(dir string, panicVal any, stack []byte) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	_ = os.MkdirAll(dir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Live Doodle Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "Session: %s\n", applog.Session())
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	// optionally upload anonymized crash report (opt-in via env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
