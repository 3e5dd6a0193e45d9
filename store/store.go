// Package store keeps a SQLite history of check sessions so repeated
// failures of the same URL can be told apart from one-off hiccups.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lukemcguire/linkreaper/bookmark"
	"github.com/lukemcguire/linkreaper/result"
)

// maxQueryParams keeps IN lists under SQLite's bound-parameter limit.
const maxQueryParams = 500

// Store is a check history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records a finished (or stopped) session. Saving the same run ID
// twice fails.
func (s *Store) SaveRun(ctx context.Context, runID string, report *result.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, finished_at, total, valid, invalid, timeout, skipped, stopped, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339Nano),
		report.Stats.Total, report.Stats.Valid, report.Stats.Invalid, report.Stats.Timeout, report.Stats.Skipped,
		report.Stopped, report.Stats.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO checks (run_id, bookmark_id, url, status, status_code, error_type, error, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare check insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range report.Results {
		if _, err := stmt.ExecContext(ctx, runID, res.ID, res.URL, res.Status.String(),
			res.StatusCode, string(res.ErrorCategory), res.Error, res.Attempts); err != nil {
			return fmt.Errorf("insert check of %s: %w", res.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", runID, err)
	}
	return nil
}

// FailureStreaks returns, for each of urls that has history, the number of
// most recent runs in a row in which it was invalid or timed out. URLs
// whose latest check succeeded map to 0; URLs never checked are absent.
func (s *Store) FailureStreaks(ctx context.Context, urls []string) (map[string]int, error) {
	streaks := make(map[string]int, len(urls))
	for start := 0; start < len(urls); start += maxQueryParams {
		chunk := urls[start:min(start+maxQueryParams, len(urls))]
		if err := s.streaks(ctx, chunk, streaks); err != nil {
			return nil, err
		}
	}
	return streaks, nil
}

func (s *Store) streaks(ctx context.Context, urls []string, out map[string]int) error {
	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(urls)), ",")

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.url, c.status
		FROM checks c JOIN runs r ON r.id = c.run_id
		WHERE c.url IN (`+placeholders+`)
		ORDER BY c.url, r.seq DESC`, args...)
	if err != nil {
		return fmt.Errorf("query check history: %w", err)
	}
	defer rows.Close()

	settled := make(map[string]bool)
	for rows.Next() {
		var url, name string
		if err := rows.Scan(&url, &name); err != nil {
			return fmt.Errorf("scan check history: %w", err)
		}
		if settled[url] {
			continue
		}
		status, err := bookmark.ParseStatus(name)
		if err != nil {
			return fmt.Errorf("check history of %s: %w", url, err)
		}
		if status.Broken() {
			out[url]++
			continue
		}
		if _, ok := out[url]; !ok {
			out[url] = 0
		}
		settled[url] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read check history: %w", err)
	}
	return nil
}

// RunCount returns how many runs are recorded.
func (s *Store) RunCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// ApplyStreaks fills FailureStreak on every result of report from history.
func (s *Store) ApplyStreaks(ctx context.Context, report *result.Report) error {
	urls := make([]string, len(report.Results))
	for i, res := range report.Results {
		urls[i] = res.URL
	}
	streaks, err := s.FailureStreaks(ctx, urls)
	if err != nil {
		return err
	}
	for i := range report.Results {
		report.Results[i].FailureStreak = streaks[report.Results[i].URL]
	}
	return nil
}
