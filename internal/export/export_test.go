/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"livedoodle/internal/canvas"
)

var stamp = time.Date(2024, 3, 7, 9, 5, 2, 0, time.Local)

func sampleLayer() *canvas.Layer {
	l := canvas.NewLayer(32, 24)
	l.Line(2, 2, 29, 21, canvas.RGB{R: 255}, 3)
	l.SetRGB(0, 0, canvas.RGB{G: 255})
	return l
}

func TestFileName(t *testing.T) {
	if got := FileName(stamp, "png"); got != "doodle_20240307_090502.png" {
		t.Fatalf("unexpected name: %s", got)
	}
}

func TestNormalizeFormat(t *testing.T) {
	cases := map[string]string{"PNG": "png", ".jpeg": "jpg", "tif": "tiff", " bmp ": "bmp", "pdf": "pdf"}
	for in, want := range cases {
		if got := NormalizeFormat(in); got != want {
			t.Fatalf("NormalizeFormat(%q) = %q, want %q", in, got, want)
		}
	}
	if FormatFromPath("/x/y/a.TIF") != "tiff" {
		t.Fatalf("expected tiff from extension")
	}
}

func TestExportWebPresetWritesPNG(t *testing.T) {
	dir := t.TempDir()
	l := sampleLayer()
	paths, err := Export(l.ToRGBA(), stamp, Options{Preset: PresetWeb, OutDir: dir})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := filepath.Join(dir, "doodle_20240307_090502.png")
	if len(paths) != 1 || paths[0] != want {
		t.Fatalf("unexpected paths: %v", paths)
	}
	f, err := os.Open(want)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds() != l.Bounds() {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r != 0 || g != 0xffff || b != 0 {
		t.Fatalf("pixel (0,0) not preserved: %v %v %v", r, g, b)
	}
}

func TestExportPrintPreset(t *testing.T) {
	dir := t.TempDir()
	paths, err := Export(sampleLayer().ToRGBA(), stamp, Options{Preset: PresetPrint, OutDir: dir})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected pdf and tiff, got %v", paths)
	}
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}
	head := make([]byte, 5)
	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatalf("open pdf: %v", err)
	}
	defer f.Close()
	if _, err := f.Read(head); err != nil || string(head) != "%PDF-" {
		t.Fatalf("expected PDF header, got %q (%v)", head, err)
	}
}

func TestExportAllFormatsDecode(t *testing.T) {
	dir := t.TempDir()
	paths, err := Export(sampleLayer().ToRGBA(), stamp, Options{Preset: PresetAll, OutDir: dir, JPEGQuality: 75})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(paths) != 5 {
		t.Fatalf("expected 5 files, got %v", paths)
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		switch FormatFromPath(p) {
		case "bmp":
			if _, err := bmp.Decode(bytes.NewReader(data)); err != nil {
				t.Fatalf("bmp decode: %v", err)
			}
		case "tiff":
			if _, err := tiff.Decode(bytes.NewReader(data)); err != nil {
				t.Fatalf("tiff decode: %v", err)
			}
		case "png", "jpg":
			if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
				t.Fatalf("%s decode: %v", p, err)
			}
		}
	}
}

func TestExportExplicitFormatsDeduplicated(t *testing.T) {
	paths, err := Export(sampleLayer().ToRGBA(), stamp, Options{Formats: []string{"JPEG", "jpg", "png"}, OutDir: t.TempDir()})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected jpg and png, got %v", paths)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	_, err := Export(sampleLayer().ToRGBA(), stamp, Options{Formats: []string{"gif"}, OutDir: t.TempDir()})
	if err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestEncodeJPEGQualityChangesSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	var lo, hi bytes.Buffer
	if err := Encode(&lo, img, "jpg", ImageOptions{JPEGQuality: 10}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := Encode(&hi, img, "jpeg", ImageOptions{JPEGQuality: 100}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if lo.Len() >= hi.Len() {
		t.Fatalf("expected quality 10 (%d bytes) smaller than 100 (%d bytes)", lo.Len(), hi.Len())
	}
}

func TestSaverRunsHooksAndKeepsLayer(t *testing.T) {
	dir := t.TempDir()
	l := sampleLayer()
	before := l.Clone()
	var seen Saved
	s := &Saver{
		Options: Options{OutDir: dir},
		Now:     func() time.Time { return stamp },
		After: []func(context.Context, Saved) error{
			func(_ context.Context, sv Saved) error { seen = sv; return nil },
			func(context.Context, Saved) error { return errors.New("index offline") },
		},
	}
	paths, err := s.Save(context.Background(), l)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "doodle_20240307_090502.png" {
		t.Fatalf("unexpected paths: %v", paths)
	}
	if !seen.At.Equal(stamp) || len(seen.Paths) != 1 || seen.Image == nil {
		t.Fatalf("hook did not receive the save: %+v", seen)
	}
	if seen.Image.RGBAAt(0, 0) != (color.RGBA{0, 255, 0, 255}) {
		t.Fatalf("unexpected hook image pixel: %v", seen.Image.RGBAAt(0, 0))
	}
	if !l.Equal(before) {
		t.Fatalf("save modified the layer")
	}
}

func TestWritePNGCreatesDirs(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "snap.png")
	if err := WritePNG(p, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("missing: %v", err)
	}
}
