/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log configures the process-wide slog logger. Records go to a
// console handler (human-readable or JSON) and optionally to a rotating JSON
// file. Every record carries the app name, version and a per-process session
// id; records logged with a frame context also carry the frame number.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lj "gopkg.in/natefinch/lumberjack.v2"

	"livedoodle/internal/version"
)

// Options controls logger initialization. FromEnv reads them from
// DOODLE_LOG_LEVEL (debug|info|warn|error), DOODLE_LOG_FORMAT (console|json),
// DOODLE_LOG_FILE and DOODLE_LOG_SOURCE.
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string // rotated JSON log file; empty disables
	// Console receives console output; nil means stderr. io.Discard turns the
	// console off, e.g. while the terminal display owns the screen.
	Console io.Writer
}

var (
	mu      sync.RWMutex
	current *slog.Logger

	session = uuid.NewString()
)

// Session returns the id attached to every record of this process. Telemetry
// events, gallery entries and crash reports carry the same id.
func Session() string { return session }

// L returns the application logger, initializing it from the environment on
// first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init replaces the application logger and slog's default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var hs []slog.Handler
	if console != io.Discard {
		if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
			hs = append(hs, slog.NewJSONHandler(console, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
		} else {
			hs = append(hs, &consoleHandler{level: lvl, source: opts.AddSource, w: console, mu: &sync.Mutex{}})
		}
	}
	if f := strings.TrimSpace(opts.File); f != "" {
		w := &lj.Logger{Filename: f, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		hs = append(hs, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	}

	var h slog.Handler
	switch len(hs) {
	case 0:
		h = slog.NewTextHandler(io.Discard, nil)
	case 1:
		h = hs[0]
	default:
		h = fanout(hs)
	}

	logger := slog.New(frameTagger{next: h}).With(
		slog.String("app", "livedoodle"),
		slog.String("ver", version.Version),
		slog.String("session", session),
		slog.Time("ts_init", time.Now()),
	)

	mu.Lock()
	current = logger
	mu.Unlock()
	slog.SetDefault(logger)
}

// FromEnv builds Options from DOODLE_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("DOODLE_LOG_LEVEL", "info"),
		Format:    getenv("DOODLE_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("DOODLE_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("DOODLE_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type frameKey struct{}

// WithFrame returns a context whose log records carry frame=n.
func WithFrame(ctx context.Context, n int64) context.Context {
	return context.WithValue(ctx, frameKey{}, n)
}

// FrameFrom returns the frame number stored by WithFrame.
func FrameFrom(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	n, ok := ctx.Value(frameKey{}).(int64)
	return n, ok
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
