// Package bakeindex keeps a SQLite index of baked tile artifacts.
package bakeindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Faultbox/terratile/internal/bake"
)

// ErrNotFound is returned by Lookup for tiles that were never recorded.
var ErrNotFound = errors.New("tile not in bake index")

// Entry is one indexed bake.
type Entry struct {
	Tile        string
	Path        string
	Digest      string
	TileWidth   int
	TileDepth   int
	HeightScale float32
	MinHeight   float32
	MaxHeight   float32
	BakedAt     time.Time
}

// Index is a SQLite-backed table of the latest bake per tile.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index database at path.
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bakes (
			tile TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			tile_width INTEGER NOT NULL,
			tile_depth INTEGER NOT NULL,
			height_scale REAL NOT NULL,
			min_height REAL NOT NULL,
			max_height REAL NOT NULL,
			baked_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bakes_digest ON bakes(digest);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// Record stores the bake of a, written to path, replacing any earlier entry
// for the same tile.
func (x *Index) Record(ctx context.Context, path string, a *bake.Artifact, at time.Time) error {
	minH, maxH := a.CollisionVolume().HeightRange()
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO bakes (tile, path, digest, tile_width, tile_depth, height_scale, min_height, max_height, baked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tile) DO UPDATE SET
			path = excluded.path,
			digest = excluded.digest,
			tile_width = excluded.tile_width,
			tile_depth = excluded.tile_depth,
			height_scale = excluded.height_scale,
			min_height = excluded.min_height,
			max_height = excluded.max_height,
			baked_at = excluded.baked_at`,
		a.Header.Tile, path, a.Header.Digest,
		a.Config.TileCount.Width, a.Config.TileCount.Depth,
		float64(a.Config.HeightScale), float64(minH), float64(maxH),
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording bake of %s: %w", a.Header.Tile, err)
	}
	return nil
}

// Lookup returns the entry for tile.
func (x *Index) Lookup(ctx context.Context, tile string) (Entry, error) {
	row := x.db.QueryRowContext(ctx,
		`SELECT tile, path, digest, tile_width, tile_depth, height_scale, min_height, max_height, baked_at
		FROM bakes WHERE tile = ?`, tile)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, tile)
	}
	return e, err
}

// List returns every entry ordered by tile name.
func (x *Index) List(ctx context.Context) ([]Entry, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT tile, path, digest, tile_width, tile_depth, height_scale, min_height, max_height, baked_at
		FROM bakes ORDER BY tile`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stale reports whether the indexed digest for tile differs from digest.
// Tiles missing from the index are stale.
func (x *Index) Stale(ctx context.Context, tile, digest string) (bool, error) {
	e, err := x.Lookup(ctx, tile)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return e.Digest != digest, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e                 Entry
		scale, minH, maxH float64
		bakedAt           string
	)
	if err := s.Scan(&e.Tile, &e.Path, &e.Digest, &e.TileWidth, &e.TileDepth, &scale, &minH, &maxH, &bakedAt); err != nil {
		return Entry{}, err
	}
	e.HeightScale = float32(scale)
	e.MinHeight = float32(minH)
	e.MaxHeight = float32(maxH)

	t, err := time.Parse(time.RFC3339Nano, bakedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing baked_at of %s: %w", e.Tile, err)
	}
	e.BakedAt = t
	return e, nil
}
