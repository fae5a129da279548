/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "livedoodle/internal/log"
	"livedoodle/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// IndexFileName is created inside the export directory unless a path is configured.
const IndexFileName = "gallery.sqlite"

// schemaVersion is the newest schema this build knows how to write.
const schemaVersion = 2

// IndexPath returns the default index location for an export directory.
func IndexPath(exportDir string) string {
	return filepath.Join(exportDir, IndexFileName)
}

// Gallery is an open gallery index.
type Gallery struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// baseline is the version 1 layout. Every statement is idempotent so an index
// written by any build can be opened.
var baseline = []string{
	`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS version (
		id         INTEGER PRIMARY KEY CHECK(id=1),
		schema     INTEGER NOT NULL,
		app        TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS drawings (
		id         INTEGER PRIMARY KEY,
		created_at TEXT    NOT NULL,
		session    TEXT    NOT NULL DEFAULT '',
		width      INTEGER NOT NULL,
		height     INTEGER NOT NULL,
		painted    INTEGER NOT NULL DEFAULT 0,
		paths      TEXT    NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_drawings_created ON drawings(created_at)`,
	`CREATE TABLE IF NOT EXISTS thumbnails (
		drawing_id INTEGER PRIMARY KEY REFERENCES drawings(id) ON DELETE CASCADE,
		w          INTEGER NOT NULL,
		h          INTEGER NOT NULL,
		png        BLOB    NOT NULL
	)`,
}

// upgrades[i] moves the schema from version i+1 to i+2.
var upgrades = [][]string{
	// listing formats without decoding paths
	{`ALTER TABLE drawings ADD COLUMN formats TEXT NOT NULL DEFAULT ''`},
}

// Open creates or opens the index at path in WAL mode and upgrades its schema.
func Open(path string) (*Gallery, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "gallery_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("gallery path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create gallery dir: %w", err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY between our own statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	from, err := prepare(ctx, db)
	if err != nil {
		_ = db.Close()
		l.Error("gallery setup failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("gallery ready", slog.Int("schema_from", from), slog.Int("schema", max(from, schemaVersion)))
	return &Gallery{db: db, path: path, log: applog.WithComponent("storage")}, nil
}

// prepare sets connection pragmas, creates the baseline tables and applies
// pending upgrades. It returns the schema version found on disk.
func prepare(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		return 0, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys=ON`); err != nil {
		return 0, fmt.Errorf("enable foreign keys: %w", err)
	}
	var from int
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		for _, q := range baseline {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("create baseline schema: %w", err)
			}
		}
		var err error
		from, err = stamp(ctx, tx)
		return err
	})
	if err != nil {
		return 0, err
	}
	for v := from; v < schemaVersion; v++ {
		step := upgrades[v-1]
		err := withTx(ctx, db, func(tx *sql.Tx) error {
			for _, q := range step {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, v+1, nowText())
			return err
		})
		if err != nil {
			return from, fmt.Errorf("upgrade schema %d to %d: %w", v, v+1, err)
		}
	}
	return from, nil
}

// stamp records the running build in the version row, creating it at
// version 1 for a new index, and returns the stored schema.
func stamp(ctx context.Context, tx *sql.Tx) (int, error) {
	now := nowText()
	var cur int
	err := tx.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES (1, 1, ?, ?, ?)`, version.String(), now, now)
		return 1, err
	case err != nil:
		return 0, fmt.Errorf("read version: %w", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now)
	return cur, err
}

func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nowText() string { return time.Now().UTC().Format(time.RFC3339) }

// Path returns the database file location.
func (g *Gallery) Path() string { return g.path }

func (g *Gallery) Close() error { return g.db.Close() }

// SchemaVersion reports the schema currently recorded in the database.
func (g *Gallery) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := g.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}
