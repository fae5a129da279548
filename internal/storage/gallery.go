/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"

	"livedoodle/internal/export"
	applog "livedoodle/internal/log"
)

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ThumbMax bounds the longer thumbnail side in pixels.
const ThumbMax = 160

// ErrNotFound is returned for unknown drawing ids.
var ErrNotFound = errors.New("storage: drawing not found")

// Drawing is one saved doodle.
type Drawing struct {
	ID      int64
	At      time.Time
	Session string
	Width   int
	Height  int
	// Painted counts non-background pixels.
	Painted int
	Paths   []string
	Formats []string
	// Thumb is a PNG, at most ThumbMax on the longer side.
	Thumb []byte
}

// FromSaved builds the gallery record for a completed save.
func FromSaved(s export.Saved) (Drawing, error) {
	d := Drawing{At: s.At, Session: applog.Session(), Paths: append([]string(nil), s.Paths...)}
	for _, p := range s.Paths {
		d.Formats = append(d.Formats, export.FormatFromPath(p))
	}
	if s.Image == nil {
		return d, nil
	}
	b := s.Image.Bounds()
	d.Width, d.Height = b.Dx(), b.Dy()
	d.Painted = painted(s.Image)
	th, err := EncodeThumbnail(s.Image, ThumbMax)
	if err != nil {
		return d, err
	}
	d.Thumb = th
	return d, nil
}

func painted(img *image.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			if row[i]|row[i+1]|row[i+2] != 0 {
				n++
			}
		}
	}
	return n
}

// Thumbnail scales src so its longer side is at most maxSide, keeping the
// aspect ratio. Smaller images are copied unscaled.
func Thumbnail(src image.Image, maxSide int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		if w >= h {
			h = max(1, h*maxSide/w)
			w = maxSide
		} else {
			w = max(1, w*maxSide/h)
			h = maxSide
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// EncodeThumbnail returns Thumbnail(src, maxSide) as PNG bytes.
func EncodeThumbnail(src image.Image, maxSide int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Thumbnail(src, maxSide)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Add inserts d and its thumbnail in one transaction and returns the new id.
func (g *Gallery) Add(ctx context.Context, d Drawing) (int64, error) {
	paths, err := json.Marshal(d.Paths)
	if err != nil {
		return 0, err
	}
	var id int64
	err = withTx(ctx, g.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO drawings(created_at, session, width, height, painted, paths, formats) VALUES(?,?,?,?,?,?,?)`,
			d.At.UTC().Format(timeLayout), d.Session, d.Width, d.Height, d.Painted, string(paths), strings.Join(d.Formats, ","))
		if err != nil {
			return fmt.Errorf("insert drawing: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if len(d.Thumb) == 0 {
			return nil
		}
		cfg, err := png.DecodeConfig(bytes.NewReader(d.Thumb))
		if err != nil {
			return fmt.Errorf("thumbnail: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO thumbnails(drawing_id, w, h, png) VALUES(?,?,?,?)`, id, cfg.Width, cfg.Height, d.Thumb); err != nil {
			return fmt.Errorf("insert thumbnail: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("add drawing: %w", err)
	}
	g.log.Info("drawing indexed", slog.Int64("id", id), slog.Int("files", len(d.Paths)))
	return id, nil
}

// Record is an export.Saver hook that indexes every save.
func (g *Gallery) Record(ctx context.Context, s export.Saved) error {
	d, err := FromSaved(s)
	if err != nil {
		return err
	}
	_, err = g.Add(ctx, d)
	return err
}

const drawingCols = `d.id, d.created_at, d.session, d.width, d.height, d.painted, d.paths, d.formats`

// List returns drawings newest first, without thumbnails. limit <= 0 means all.
func (g *Gallery) List(ctx context.Context, limit int) ([]Drawing, error) {
	q := `SELECT ` + drawingCols + ` FROM drawings d ORDER BY d.created_at DESC, d.id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := g.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	defer rows.Close()
	var out []Drawing
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Get returns one drawing including its thumbnail.
func (g *Gallery) Get(ctx context.Context, id int64) (Drawing, error) {
	row := g.db.QueryRowContext(ctx, `SELECT `+drawingCols+`, t.png FROM drawings d
		LEFT JOIN thumbnails t ON t.drawing_id = d.id WHERE d.id = ?`, id)
	var thumb []byte
	d, err := scanDrawing(row, &thumb)
	if errors.Is(err, sql.ErrNoRows) {
		return Drawing{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Drawing{}, err
	}
	d.Thumb = thumb
	return d, nil
}

// Delete removes the index entry. Exported files are left alone.
func (g *Gallery) Delete(ctx context.Context, id int64) error {
	res, err := g.db.ExecContext(ctx, `DELETE FROM drawings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete drawing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// Count returns the number of indexed drawings.
func (g *Gallery) Count(ctx context.Context) (int, error) {
	var n int
	err := g.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drawings`).Scan(&n)
	return n, err
}

type scanner interface{ Scan(dest ...any) error }

func scanDrawing(s scanner, extra ...any) (Drawing, error) {
	var (
		d                  Drawing
		at, paths, formats string
	)
	dest := append([]any{&d.ID, &at, &d.Session, &d.Width, &d.Height, &d.Painted, &paths, &formats}, extra...)
	if err := s.Scan(dest...); err != nil {
		return Drawing{}, err
	}
	if t, err := time.Parse(timeLayout, at); err == nil {
		d.At = t
	}
	_ = json.Unmarshal([]byte(paths), &d.Paths)
	if formats != "" {
		d.Formats = strings.Split(formats, ",")
	}
	return d, nil
}

// Name returns a short label for listings: the base name of the first file.
func (d Drawing) Name() string {
	if len(d.Paths) == 0 {
		return fmt.Sprintf("drawing-%d", d.ID)
	}
	return filepath.Base(d.Paths[0])
}
