// Package history keeps an audit trail of table loads in a local SQLite
// database. Only counters are stored, never patient data.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
	"github.com/giygas/dispensacao-api/interfaces"
)

// Compile-time checks to ensure both recorders implement LoadRecorder
var (
	_ interfaces.LoadRecorder = (*SQLiteRecorder)(nil)
	_ interfaces.LoadRecorder = NopRecorder{}
)

const schema = `
CREATE TABLE IF NOT EXISTS load_runs (
	id                   TEXT PRIMARY KEY,
	kind                 TEXT NOT NULL,
	started_at           TIMESTAMP NOT NULL,
	duration_ms          INTEGER NOT NULL DEFAULT 0,
	files                INTEGER NOT NULL DEFAULT 0,
	rows_read            INTEGER NOT NULL DEFAULT 0,
	rows_loaded          INTEGER NOT NULL DEFAULT 0,
	skipped_lines        INTEGER NOT NULL DEFAULT 0,
	blank_interested     INTEGER NOT NULL DEFAULT 0,
	excluded_supplements INTEGER NOT NULL DEFAULT 0,
	invalid_numbers      INTEGER NOT NULL DEFAULT 0,
	invalid_dates        INTEGER NOT NULL DEFAULT 0,
	lookup_warning       TEXT NOT NULL DEFAULT '',
	error                TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_load_runs_started_at ON load_runs (started_at);
`

const insertRun = `
INSERT INTO load_runs (
	id, kind, started_at, duration_ms, files, rows_read, rows_loaded, skipped_lines,
	blank_interested, excluded_supplements, invalid_numbers, invalid_dates, lookup_warning, error
) VALUES (
	:id, :kind, :started_at, :duration_ms, :files, :rows_read, :rows_loaded, :skipped_lines,
	:blank_interested, :excluded_supplements, :invalid_numbers, :invalid_dates, :lookup_warning, :error
)`

// SQLiteRecorder stores load runs with sqlx over go-sqlite3
type SQLiteRecorder struct {
	db *sqlx.DB
}

// Open creates the database file and schema if needed
func Open(path string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// One writer; also keeps an in-memory database on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

// Record stores one load attempt. report may be nil when the load failed
// before producing one.
func (r *SQLiteRecorder) Record(ctx context.Context, kind string, report *entities.LoadReport, loadErr error) error {
	run := newRun(kind, report, loadErr)
	if _, err := r.db.NamedExecContext(ctx, insertRun, run); err != nil {
		return fmt.Errorf("failed to insert load run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first
func (r *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]interfaces.LoadRun, error) {
	runs := []interfaces.LoadRun{}
	err := r.db.SelectContext(ctx, &runs,
		`SELECT * FROM load_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query load runs: %w", err)
	}
	return runs, nil
}

// Close closes the database
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func newRun(kind string, report *entities.LoadReport, loadErr error) interfaces.LoadRun {
	run := interfaces.LoadRun{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}
	if report != nil {
		run.StartedAt = report.StartedAt.UTC()
		run.DurationMs = report.DurationMs
		run.Files = len(report.Files)
		run.RowsRead = report.RowsRead
		run.RowsLoaded = report.RowsLoaded
		run.SkippedLines = report.SkippedLines
		run.BlankInterested = report.BlankInterested
		run.ExcludedSupplements = report.ExcludedSupplements
		run.InvalidNumbers = report.InvalidNumbers
		run.InvalidDates = report.InvalidDates
		run.LookupWarning = report.LookupWarning
	}
	if loadErr != nil {
		run.Error = loadErr.Error()
	}
	return run
}

// NopRecorder discards every run; used when history is disabled
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, string, *entities.LoadReport, error) error { return nil }

func (NopRecorder) Recent(context.Context, int) ([]interfaces.LoadRun, error) {
	return []interfaces.LoadRun{}, nil
}

func (NopRecorder) Close() error { return nil }
