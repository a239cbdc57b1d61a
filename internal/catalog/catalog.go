// Package catalog keeps a local SQLite history of packdex build and
// watch sessions — pure bookkeeping consulted only by the
// `packdex status` command, never by the builder or watcher to decide
// behavior. Connection handling
// follows a dual-build-tag driver selection, WAL mode, and a
// single-writer connection pool.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultDBPath is the default catalog location.
const DefaultDBPath = "~/.packdex/catalog.db"

// Catalog records build and watch-session history, keyed by pack
// path.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if necessary) the catalog database at path,
// expanding a leading "~" the way cmd/packdex's status command expects.
func Open(path string) (*Catalog, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sql.Open(DriverName, expanded)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply catalog migrations: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the catalog's database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// BuildRecord is one completed build() call.
type BuildRecord struct {
	StartedAt         time.Time
	Duration          time.Duration
	FileCount         int
	UncompressedBytes uint64
	CompressedBytes   uint64
	Magic             string
}

// RecordBuild inserts one row per completed build.
func (c *Catalog) RecordBuild(ctx context.Context, packPath string, rec BuildRecord) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO builds (pack_path, started_at, duration_ms, file_count, uncompressed_bytes, compressed_bytes, magic)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, packPath, rec.StartedAt, rec.Duration.Milliseconds(), rec.FileCount, rec.UncompressedBytes, rec.CompressedBytes, rec.Magic)
	if err != nil {
		return fmt.Errorf("record build for %s: %w", packPath, err)
	}
	return nil
}

// WatchSessionRecord is one watch() invocation.
type WatchSessionRecord struct {
	ID          int64
	StartedAt   time.Time
	EndedAt     *time.Time
	Escalations int
}

// StartWatchSession inserts a new watch_sessions row and returns its
// ID, to be passed to EndWatchSession when the session stops.
func (c *Catalog) StartWatchSession(ctx context.Context, packPath string, startedAt time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `
		INSERT INTO watch_sessions (pack_path, started_at, escalations) VALUES (?, ?, 0)
	`, packPath, startedAt)
	if err != nil {
		return 0, fmt.Errorf("start watch session for %s: %w", packPath, err)
	}
	return res.LastInsertId()
}

// EndWatchSession marks a watch session as finished, recording the
// number of repack escalations it triggered.
func (c *Catalog) EndWatchSession(ctx context.Context, id int64, endedAt time.Time, escalations int) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE watch_sessions SET ended_at = ?, escalations = ? WHERE id = ?
	`, endedAt, escalations, id)
	if err != nil {
		return fmt.Errorf("end watch session %d: %w", id, err)
	}
	return nil
}

// RecentBuilds returns up to limit of the most recent build records
// for packPath, newest first.
func (c *Catalog) RecentBuilds(ctx context.Context, packPath string, limit int) ([]BuildRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT started_at, duration_ms, file_count, uncompressed_bytes, compressed_bytes, magic
		FROM builds WHERE pack_path = ? ORDER BY started_at DESC LIMIT ?
	`, packPath, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent builds for %s: %w", packPath, err)
	}
	defer rows.Close()

	var result []BuildRecord
	for rows.Next() {
		var rec BuildRecord
		var durationMs int64
		if err := rows.Scan(&rec.StartedAt, &durationMs, &rec.FileCount, &rec.UncompressedBytes, &rec.CompressedBytes, &rec.Magic); err != nil {
			return nil, fmt.Errorf("scan build record: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		result = append(result, rec)
	}
	return result, rows.Err()
}

// RecentWatchSessions returns up to limit of the most recent watch
// sessions for packPath, newest first.
func (c *Catalog) RecentWatchSessions(ctx context.Context, packPath string, limit int) ([]WatchSessionRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, escalations FROM watch_sessions
		WHERE pack_path = ? ORDER BY started_at DESC LIMIT ?
	`, packPath, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent watch sessions for %s: %w", packPath, err)
	}
	defer rows.Close()

	var result []WatchSessionRecord
	for rows.Next() {
		var rec WatchSessionRecord
		var endedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &endedAt, &rec.Escalations); err != nil {
			return nil, fmt.Errorf("scan watch session: %w", err)
		}
		if endedAt.Valid {
			rec.EndedAt = &endedAt.Time
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func expandHome(path string) (string, error) {
	if path == "" {
		path = DefaultDBPath
	}
	if path == "~" || len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
