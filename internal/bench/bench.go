/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bench times the drawing, compositing and frame-counter paths the
// main loop depends on.
package bench

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"livedoodle/internal/canvas"
	"livedoodle/internal/compose"
	applog "livedoodle/internal/log"
	"livedoodle/internal/perf"
)

// Config sets the canvas size and iteration counts. Zero fields take the
// defaults from Defaults.
type Config struct {
	Width, Height int
	Shapes        int // lines, circles and rectangles each
	Images        int // clones and blends each
	FPSUpdates    int
	Seed          uint64
}

func Defaults() Config {
	return Config{Width: 640, Height: 480, Shapes: 1000, Images: 100, FPSUpdates: 1000, Seed: 1}
}

// Result is one timed case.
type Result struct {
	Name    string
	N       int
	TotalMs float64
}

// AvgMs is the mean time per iteration.
func (r Result) AvgMs() float64 {
	if r.N == 0 {
		return 0
	}
	return r.TotalMs / float64(r.N)
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = d.Width, d.Height
	}
	if c.Shapes <= 0 {
		c.Shapes = d.Shapes
	}
	if c.Images <= 0 {
		c.Images = d.Images
	}
	if c.FPSUpdates <= 0 {
		c.FPSUpdates = d.FPSUpdates
	}
	return c
}

// Run executes every case in order.
func Run(cfg Config) []Result {
	cfg = cfg.withDefaults()
	lg := applog.WithComponent("bench")
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))
	w, h := cfg.Width, cfg.Height
	color := canvas.RGB{R: 255}
	l := canvas.NewLayer(w, h)

	var out []Result
	add := func(name string, n int, fn func()) {
		ms := perf.Measure(fn)
		out = append(out, Result{Name: name, N: n, TotalMs: ms})
		lg.Debug("case done", slog.String("case", name), slog.Float64("ms", ms))
	}

	add("lines", cfg.Shapes, func() {
		for i := 0; i < cfg.Shapes; i++ {
			l.Line(rng.IntN(w), rng.IntN(h), rng.IntN(w), rng.IntN(h), color, 3)
		}
	})
	add("circles", cfg.Shapes, func() {
		for i := 0; i < cfg.Shapes; i++ {
			l.Circle(rng.IntN(w), rng.IntN(h), rng.IntN(50)+1, color, 3)
		}
	})
	add("rectangles", cfg.Shapes, func() {
		for i := 0; i < cfg.Shapes; i++ {
			x, y := rng.IntN(w), rng.IntN(h)
			l.Rect(x, y, x+rng.IntN(100), y+rng.IntN(100), color, 3)
		}
	})
	add("clones", cfg.Images, func() {
		for i := 0; i < cfg.Images; i++ {
			_ = l.Clone()
		}
	})
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	dst := image.NewRGBA(frame.Rect)
	add("blends", cfg.Images, func() {
		for i := 0; i < cfg.Images; i++ {
			compose.Blend(dst, frame, l)
		}
	})
	fc := perf.NewFPSCounter(perf.DefaultWindow)
	add("fps updates", cfg.FPSUpdates, func() {
		for i := 0; i < cfg.FPSUpdates; i++ {
			fc.Update()
		}
	})
	return out
}

// Report writes one line per result plus the total.
func Report(w io.Writer, cfg Config, results []Result) error {
	cfg = cfg.withDefaults()
	if _, err := fmt.Fprintf(w, "Benchmark on %dx%d canvas\n", cfg.Width, cfg.Height); err != nil {
		return err
	}
	var total float64
	for _, r := range results {
		total += r.TotalMs
		if _, err := fmt.Fprintf(w, "  %-12s %6d ops  %10.2f ms total  %8.4f ms/op\n", r.Name, r.N, r.TotalMs, r.AvgMs()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Total: %.2f ms (%s)\n", total, time.Duration(total*float64(time.Millisecond)).Round(time.Millisecond))
	return err
}
