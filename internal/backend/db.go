/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend mirrors the local gallery into a shared Postgres database
// so several capture stations can feed one gallery.
package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"livedoodle/internal/export"
	applog "livedoodle/internal/log"
	"livedoodle/internal/storage"
)

// Mirror writes gallery entries to Postgres.
type Mirror struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects to dsn and applies pending migrations. password is used when
// the DSN carries none; it normally comes from the OS keychain.
func Open(ctx context.Context, dsn, password string) (*Mirror, error) {
	cc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cc.Password == "" && password != "" {
		cc.Password = password
	}
	db := stdlib.OpenDB(*cc)
	m, err := newMirror(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func newMirror(ctx context.Context, db *sql.DB) (*Mirror, error) {
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(pctx, db, migrationsFS); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Mirror{db: db, log: applog.WithComponent("backend")}, nil
}

func (m *Mirror) Close() error { return m.db.Close() }

// Push upserts d keyed by its session and timestamp.
func (m *Mirror) Push(ctx context.Context, d storage.Drawing) (int64, error) {
	paths, err := json.Marshal(d.Paths)
	if err != nil {
		return 0, err
	}
	if d.Paths == nil {
		paths = []byte("[]")
	}
	var id int64
	err = m.db.QueryRowContext(ctx, `
		INSERT INTO drawings(session, local_id, created_at, width, height, painted, paths, formats, thumb)
		VALUES($1,$2,$3,$4,$5,$6,$7::jsonb,string_to_array($8, ','),$9)
		ON CONFLICT (session, created_at) DO UPDATE SET
			paths = EXCLUDED.paths, formats = EXCLUDED.formats, thumb = EXCLUDED.thumb
		RETURNING id`,
		d.Session, d.ID, d.At.UTC(), d.Width, d.Height, d.Painted, string(paths), strings.Join(d.Formats, ","), d.Thumb).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("push drawing: %w", err)
	}
	m.log.Info("drawing mirrored", slog.Int64("id", id), slog.String("session", d.Session))
	return id, nil
}

// Record is an export.Saver hook.
func (m *Mirror) Record(ctx context.Context, s export.Saved) error {
	d, err := storage.FromSaved(s)
	if err != nil {
		return err
	}
	_, err = m.Push(ctx, d)
	return err
}

// Recent lists the newest mirrored drawings without thumbnails.
func (m *Mirror) Recent(ctx context.Context, limit int) ([]storage.Drawing, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := m.db.QueryContext(ctx, `SELECT id, session, created_at, width, height, painted, array_to_string(formats, ',')
		FROM drawings ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	defer rows.Close()
	var out []storage.Drawing
	for rows.Next() {
		var (
			d       storage.Drawing
			formats string
		)
		if err := rows.Scan(&d.ID, &d.Session, &d.At, &d.Width, &d.Height, &d.Painted, &formats); err != nil {
			return nil, err
		}
		if formats != "" {
			d.Formats = strings.Split(formats, ",")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
