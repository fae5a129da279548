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
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternFramesMove(t *testing.T) {
	p := NewPattern(64, 48)
	ctx := context.Background()
	f1, err := p.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), f1.Bounds())
	first := append([]uint8(nil), f1.Pix...)
	f2, err := p.Next(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, f2.Pix)
	assert.Equal(t, 2, p.Frames())
	assert.Equal(t, uint8(0xff), f2.Pix[3])
}

func TestPatternHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPattern(8, 8).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func writePNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestImageDirReplaysInOrder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 20, 10, color.RGBA{0, 200, 0, 255})
	writePNG(t, filepath.Join(dir, "a.png"), 40, 30, color.RGBA{200, 0, 0, 255})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	d, err := OpenImageDir(Config{Dir: dir, Width: 16, Height: 12})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())

	ctx := context.Background()
	f, err := d.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 12), f.Bounds())
	assertNear(t, color.RGBA{200, 0, 0, 255}, f.RGBAAt(8, 6))
	f, err = d.Next(ctx)
	require.NoError(t, err)
	assertNear(t, color.RGBA{0, 200, 0, 255}, f.RGBAAt(8, 6))

	_, err = d.Next(ctx)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

// assertNear allows for rounding in the scaler.
func assertNear(t *testing.T, want, got color.RGBA) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 2)
	assert.InDelta(t, want.G, got.G, 2)
	assert.InDelta(t, want.B, got.B, 2)
}

func TestImageDirLoops(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "only.png"), 4, 4, color.RGBA{1, 2, 3, 255})
	src, err := Open(Config{Kind: "images", Dir: dir, Loop: true})
	require.NoError(t, err)
	defer src.Close()
	for i := 0; i < 3; i++ {
		f, err := src.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, DefaultWidth, DefaultHeight), f.Bounds())
	}
}

func TestImageDirErrors(t *testing.T) {
	_, err := OpenImageDir(Config{})
	assert.Error(t, err)
	_, err = OpenImageDir(Config{Dir: t.TempDir()})
	assert.Error(t, err)
	_, err = OpenImageDir(Config{Dir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(Config{Kind: "webcam2000"})
	assert.Error(t, err)
	s, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Pattern{}, s)
}

func TestValidate(t *testing.T) {
	_, err := Validate(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)
	_, err = Validate(image.NewRGBA(image.Rect(0, 0, 0, 5)), nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)
	_, err = Validate(nil, errors.New("device unplugged"))
	assert.ErrorIs(t, err, ErrEmptyFrame)
	assert.Contains(t, err.Error(), "device unplugged")
	f := image.NewRGBA(image.Rect(0, 0, 2, 2))
	got, err := Validate(f, nil)
	require.NoError(t, err)
	assert.Same(t, f, got)
}
