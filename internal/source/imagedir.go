/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package source

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true}

// ImageDir replays still images from a directory in name order, scaled to the
// configured size. It loops when Loop is set and otherwise ends with
// ErrEmptyFrame after the last image.
type ImageDir struct {
	files []string
	next  int
	loop  bool
	buf   *image.RGBA
}

// OpenImageDir lists the decodable images in cfg.Dir.
func OpenImageDir(cfg Config) (*ImageDir, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("source: image directory not set")
	}
	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(cfg.Dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("source: no images in %s", cfg.Dir)
	}
	slices.Sort(files)
	w, h := cfg.size()
	return &ImageDir{files: files, loop: cfg.Loop, buf: image.NewRGBA(image.Rect(0, 0, w, h))}, nil
}

// Len reports the number of images found.
func (d *ImageDir) Len() int { return len(d.files) }

func (d *ImageDir) Next(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.next >= len(d.files) {
		if !d.loop {
			return nil, ErrEmptyFrame
		}
		d.next = 0
	}
	path := d.files[d.next]
	d.next++
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	xdraw.ApproxBiLinear.Scale(d.buf, d.buf.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return d.buf, nil
}

func (d *ImageDir) Close() error { return nil }

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
