// Package database records export-run history in SQLite: one row per
// `export` invocation, whether it merged anything or failed. The archives
// themselves are plain text (see internal/archive); this is advisory
// history for the `history` command, not replicated state.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/catchingknives/teams-webapp-exporter/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
	StatusTimeout = "timeout"
)

// ExportRun is one recorded invocation of the extraction pipeline.
type ExportRun struct {
	ID              string
	ChatName        string
	StartedAt       time.Time
	FinishedAt      sql.NullTime
	Status          string
	Reason          string
	MessagesWritten int64
}

// DB wraps the run-history database.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the run-history database and migrates it to the
// latest schema. path can be a file path or ":memory:".
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single connection: this is a one-user CLI, and each pool
	// connection to ":memory:" would otherwise see its own empty DB.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db, path: path}, nil
}

// Path returns the database file path (or ":memory:").
func (d *DB) Path() string { return d.path }

// CreateRun records the start of an export run.
func (d *DB) CreateRun(id, chatName string, startedAt time.Time) error {
	_, err := d.db.Exec(
		`INSERT INTO export_runs (id, chat_name, started_at, status) VALUES (?, ?, ?, ?)`,
		id, chatName, startedAt, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("creating export run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of an export run.
func (d *DB) FinishRun(id, status, reason string, written int, finishedAt time.Time) error {
	res, err := d.db.Exec(
		`UPDATE export_runs SET finished_at = ?, status = ?, reason = ?, messages_written = ? WHERE id = ?`,
		finishedAt, status, reason, written, id,
	)
	if err != nil {
		return fmt.Errorf("finishing export run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing export run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("export run not found: %s", id)
	}
	return nil
}

// ListRuns returns the most recent export runs, newest first.
func (d *DB) ListRuns(limit int) ([]*ExportRun, error) {
	rows, err := d.db.Query(
		`SELECT id, chat_name, started_at, finished_at, status, reason, messages_written
		 FROM export_runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing export runs: %w", err)
	}
	defer rows.Close()

	var runs []*ExportRun
	for rows.Next() {
		var r ExportRun
		if err := rows.Scan(&r.ID, &r.ChatName, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Reason, &r.MessagesWritten); err != nil {
			return nil, fmt.Errorf("scanning export run: %w", err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing export runs: %w", err)
	}
	return runs, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
