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
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ImageOptions controls raster encoding.
type ImageOptions struct {
	// JPEGQuality is 1..100; zero selects 90.
	JPEGQuality int
}

// Raster formats accepted by Encode.
var rasterFormats = []string{"png", "jpg", "bmp", "tiff"}

// NormalizeFormat maps extensions and aliases to a canonical format name.
func NormalizeFormat(f string) string {
	f = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))
	switch f {
	case "jpeg":
		return "jpg"
	case "tif":
		return "tiff"
	}
	return f
}

// FormatFromPath returns the canonical format for path's extension.
func FormatFromPath(path string) string { return NormalizeFormat(filepath.Ext(path)) }

// Encode writes img to w in the given raster format.
func Encode(w io.Writer, img image.Image, format string, opt ImageOptions) error {
	switch NormalizeFormat(format) {
	case "png":
		return png.Encode(w, img)
	case "jpg":
		q := opt.JPEGQuality
		if q <= 0 || q > 100 {
			q = 90
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
	return fmt.Errorf("unknown image format: %s", format)
}

// WriteImage encodes img into path, creating parent directories. The format
// follows the file extension.
func WriteImage(path string, img image.Image, opt ImageOptions) error {
	var buf bytes.Buffer
	if err := Encode(&buf, img, FormatFromPath(path), opt); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WritePNG is WriteImage for PNG regardless of path's extension.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}
