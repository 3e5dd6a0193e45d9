package store

import (
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version     int
	description string
	stmts       []string
}

var migrations = []migration{
	{
		version:     1,
		description: "runs and checks",
		stmts: []string{
			`CREATE TABLE runs (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL UNIQUE,
				finished_at TEXT NOT NULL,
				total INTEGER NOT NULL,
				valid INTEGER NOT NULL,
				invalid INTEGER NOT NULL,
				timeout INTEGER NOT NULL,
				skipped INTEGER NOT NULL,
				stopped INTEGER NOT NULL,
				duration_ms INTEGER NOT NULL
			)`,
			`CREATE TABLE checks (
				run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				bookmark_id TEXT NOT NULL,
				url TEXT NOT NULL,
				status TEXT NOT NULL,
				status_code INTEGER NOT NULL,
				error_type TEXT NOT NULL,
				error TEXT NOT NULL,
				attempts INTEGER NOT NULL,
				PRIMARY KEY (run_id, bookmark_id)
			)`,
			`CREATE INDEX idx_checks_url ON checks(url)`,
		},
	},
}

// migrate applies every migration newer than the recorded schema version.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL,
			description TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := apply(db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
	}
	return nil
}

func apply(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version, applied_at, description) VALUES (?, ?, ?)`,
		m.version, time.Now().UTC().Format(time.RFC3339), m.description); err != nil {
		return err
	}
	return tx.Commit()
}
