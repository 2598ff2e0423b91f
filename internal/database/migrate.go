package database

import (
	"database/sql"
	"fmt"
	"log"
)

// migration is one schema step. Up must be idempotent DDL: user_version is
// stamped outside the transaction (modernc/sqlite requirement), so a crash
// between commit and stamp makes the migration re-run.
type migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

var migrations = []migration{
	{
		Version:     1,
		Description: "run archive, source quality, feedback",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS run_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_date TEXT NOT NULL,
	section_key TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	summary TEXT NOT NULL,
	relevance INTEGER NOT NULL,
	item_date TEXT,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_run_items_run ON run_items(run_date, section_key);

CREATE TABLE IF NOT EXISTS source_quality (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	domain TEXT NOT NULL,
	score INTEGER NOT NULL,
	recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_source_quality_domain ON source_quality(domain);

CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	domain TEXT NOT NULL,
	url TEXT NOT NULL,
	rating TEXT NOT NULL CHECK (rating IN ('up', 'down')),
	recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_feedback_domain ON feedback(domain);
`)
			return err
		},
	},
}

func latestVersion() int {
	latest := 0
	for _, m := range migrations {
		if m.Version > latest {
			latest = m.Version
		}
	}
	return latest
}

func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// migrate brings the schema up to the latest version, tracked via
// PRAGMA user_version.
func migrate(conn *sql.DB) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}

	if current >= latestVersion() {
		return nil
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		log.Printf("applying migration %d: %s", m.Version, m.Description)

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return fmt.Errorf("setting version %d: %w", m.Version, err)
		}
	}
	return nil
}
