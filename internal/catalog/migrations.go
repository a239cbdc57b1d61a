package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CurrentSchemaVersion tracks the catalog database schema version.
const CurrentSchemaVersion = "1.0.0"

// Migration is one schema migration step.
type Migration struct {
	Version string
	Up      string
}

// AllMigrations lists every migration in order.
var AllMigrations = []Migration{
	{Version: "1.0.0", Up: migrationV1Up},
}

const migrationV1Up = `
CREATE TABLE IF NOT EXISTS schema_version (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS builds (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pack_path TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	file_count INTEGER NOT NULL,
	uncompressed_bytes INTEGER NOT NULL,
	compressed_bytes INTEGER NOT NULL,
	magic TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_builds_pack_path ON builds(pack_path);

CREATE TABLE IF NOT EXISTS watch_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pack_path TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	ended_at TIMESTAMP,
	escalations INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_watch_sessions_pack_path ON watch_sessions(pack_path);
`

// ApplyMigrations runs every migration newer than the schema's current
// recorded version.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	current, err := semver.NewVersion("0.0.0")
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("ensure schema_version table: %w", err)
	}

	row := db.QueryRowContext(ctx, `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`)
	var versionStr string
	if err := row.Scan(&versionStr); err == nil {
		if v, err := semver.NewVersion(versionStr); err == nil {
			current = v
		}
	}

	for _, m := range AllMigrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("parse migration version %s: %w", m.Version, err)
		}
		if !v.GreaterThan(current) {
			continue
		}

		if _, err := db.ExecContext(ctx, m.Up); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, m.Version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.Version, err)
		}
	}

	return nil
}
