/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"livedoodle/internal/canvas"
	applog "livedoodle/internal/log"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
	PresetAll   PresetName = "all"
)

// FileName returns the timestamped drawing name, doodle_YYYYMMDD_HHMMSS.<ext>.
func FileName(t time.Time, ext string) string {
	return fmt.Sprintf("doodle_%s.%s", t.Format("20060102_150405"), ext)
}

// Options controls which files a save writes.
//
// Path semantics: files land directly in OutDir (created when missing), one
// per format, all sharing the same timestamp.
type Options struct {
	Preset      PresetName
	Formats     []string // png, jpg, bmp, tiff, pdf; empty means the preset's defaults
	OutDir      string
	JPEGQuality int
}

// PresetFormats lists the formats a preset writes.
func PresetFormats(p PresetName) []string {
	switch p {
	case PresetPrint:
		return []string{"pdf", "tiff"}
	case PresetAll:
		return append(append([]string{}, rasterFormats...), "pdf")
	default:
		return []string{"png"}
	}
}

// formats resolves the effective, normalized format list.
func (o Options) formats() []string {
	fs := o.Formats
	if len(fs) == 0 {
		fs = PresetFormats(o.Preset)
	}
	out := make([]string, 0, len(fs))
	seen := map[string]bool{}
	for _, f := range fs {
		f = NormalizeFormat(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Export writes img in every configured format and returns the paths.
func Export(img image.Image, at time.Time, opt Options) ([]string, error) {
	dir := opt.OutDir
	if dir == "" {
		dir = "."
	}
	var paths []string
	for _, f := range opt.formats() {
		path := filepath.Join(dir, FileName(at, f))
		var err error
		switch f {
		case "pdf":
			err = WritePDF(path, img, PDFOptions{
				Title:   strings.TrimSuffix(filepath.Base(path), ".pdf"),
				Caption: "Drawn " + at.Format("2006-01-02 15:04:05"),
				Created: at,
			})
		case "png", "jpg", "bmp", "tiff":
			err = WriteImage(path, img, ImageOptions{JPEGQuality: opt.JPEGQuality})
		default:
			err = fmt.Errorf("unknown format: %s", f)
		}
		if err != nil {
			return paths, fmt.Errorf("%s export: %w", f, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Saved describes a completed save.
type Saved struct {
	Paths []string
	Image *image.RGBA
	At    time.Time
}

// Saver writes the annotation layer on SaveDrawing. After hooks run once the
// files are written; their failures are logged, never returned.
type Saver struct {
	Options Options
	Now     func() time.Time
	After   []func(ctx context.Context, s Saved) error
}

// Save implements the engine's save hook.
func (s *Saver) Save(ctx context.Context, l *canvas.Layer) ([]string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	at := now()
	img := l.ToRGBA()
	paths, err := Export(img, at, s.Options)
	if err != nil {
		return paths, err
	}
	lg := applog.WithComponent("export")
	for _, hook := range s.After {
		if herr := hook(ctx, Saved{Paths: paths, Image: img, At: at}); herr != nil {
			lg.Warn("post-save hook failed", slog.Any("err", herr))
		}
	}
	return paths, nil
}
