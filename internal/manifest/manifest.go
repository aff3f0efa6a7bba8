// Package manifest persists the results of filesystem scans into a SQLite
// database. Each scan is recorded as a run with aggregate statistics, with the
// per-file details attached as records of that run.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// StatusRunning is the status of a run that is still in progress.
	StatusRunning = "running"

	// StatusComplete is the status of a run that finished without failures.
	StatusComplete = "complete"

	// StatusFailed is the status of a run that finished with failures.
	StatusFailed = "failed"

	// StatusCanceled is the status of a run that was canceled mid-flight.
	StatusCanceled = "canceled"
)

var (
	// ErrEmptyPath is returned when no database path was given.
	ErrEmptyPath = errors.New("no database path given")

	// ErrInvalidStatus is returned when an unknown run status was given.
	ErrInvalidStatus = errors.New("invalid run status")

	// ErrInvalidLimit is returned when a non-positive query limit was given.
	ErrInvalidLimit = errors.New("limit must be positive")
)

// Run is the aggregate record of a single filesystem scan.
type Run struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      string
	Roots       []string
	TotalFiles  int64
	TotalDirs   int64
	TotalBytes  int64
	HashedFiles int64
	FailedFiles int64
}

// Record is the per-file detail of a [Run].
type Record struct {
	ID    int64
	RunID int64
	Path  string
	Size  int64
	Ino   uint64
	Dev   uint64
	NLink uint64
	Kind  string
	Hash  string
	Error string
}

// Stats holds the aggregate counters written into a [Run] on finish.
type Stats struct {
	TotalFiles  int64
	TotalDirs   int64
	TotalBytes  int64
	HashedFiles int64
	FailedFiles int64
}

// Store is a persistent manifest of scan runs, backed by SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the manifest database at the given path and
// returns a pointer to a new [Store]. Parent directories are created as
// needed.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("(manifest-open) %w", ErrEmptyPath)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
			return nil, fmt.Errorf("(manifest-open) %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("(manifest-open) %w", err)
	}

	// A single connection prevents "database is locked" errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()

		return nil, fmt.Errorf("(manifest-pragma) %w", err)
	}

	s := &Store{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()

		return nil, fmt.Errorf("(manifest-schema) %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		status TEXT NOT NULL,
		roots TEXT NOT NULL,
		total_files INTEGER DEFAULT 0,
		total_dirs INTEGER DEFAULT 0,
		total_bytes INTEGER DEFAULT 0,
		hashed_files INTEGER DEFAULT 0,
		failed_files INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		inode INTEGER NOT NULL,
		device INTEGER NOT NULL,
		nlink INTEGER NOT NULL,
		kind TEXT NOT NULL,
		hash TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);
	CREATE INDEX IF NOT EXISTS idx_records_path ON records(path);
	`

	_, err := s.db.Exec(schema)

	return err
}

// BeginRun inserts a new [Run] in [StatusRunning] state and returns its ID.
func (s *Store) BeginRun(ctx context.Context, roots []string) (int64, error) {
	query := `
		INSERT INTO runs (started_at, status, roots)
		VALUES (?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query, time.Now(), StatusRunning, strings.Join(roots, " "))
	if err != nil {
		return 0, fmt.Errorf("(manifest-begin) %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("(manifest-begin) %w", err)
	}

	return id, nil
}

// FinishRun closes out a [Run] with a final status and its aggregate [Stats].
func (s *Store) FinishRun(ctx context.Context, id int64, status string, stats Stats) error {
	switch status {
	case StatusComplete, StatusFailed, StatusCanceled:
	default:
		return fmt.Errorf("(manifest-finish) %w: %q", ErrInvalidStatus, status)
	}

	query := `
		UPDATE runs
		SET finished_at = ?, status = ?, total_files = ?, total_dirs = ?,
			total_bytes = ?, hashed_files = ?, failed_files = ?
		WHERE id = ?
	`

	_, err := s.db.ExecContext(ctx, query,
		time.Now(),
		status,
		stats.TotalFiles,
		stats.TotalDirs,
		stats.TotalBytes,
		stats.HashedFiles,
		stats.FailedFiles,
		id,
	)
	if err != nil {
		return fmt.Errorf("(manifest-finish) %w", err)
	}

	return nil
}

// AddRecords inserts the given [Record](s) for a run within one transaction.
func (s *Store) AddRecords(ctx context.Context, runID int64, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("(manifest-add) %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO records (run_id, path, size, inode, device, nlink, kind, hash, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("(manifest-add) %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			runID,
			rec.Path,
			rec.Size,
			int64(rec.Ino),
			int64(rec.Dev),
			int64(rec.NLink),
			rec.Kind,
			rec.Hash,
			rec.Error,
		)
		if err != nil {
			return fmt.Errorf("(manifest-add) %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("(manifest-add) %w", err)
	}

	return nil
}

// RecentRuns returns up to limit [Run](s), most recently started first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("(manifest-runs) %w: %d", ErrInvalidLimit, limit)
	}

	query := `
		SELECT id, started_at, finished_at, status, roots, total_files,
			total_dirs, total_bytes, hashed_files, failed_files
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("(manifest-runs) %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("(manifest-runs) %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("(manifest-runs) %w", err)
	}

	return runs, nil
}

// LastComplete returns the most recent [Run] in [StatusComplete] state, or
// nil when no run has completed yet.
func (s *Store) LastComplete(ctx context.Context) (*Run, error) {
	query := `
		SELECT id, started_at, finished_at, status, roots, total_files,
			total_dirs, total_bytes, hashed_files, failed_files
		FROM runs
		WHERE status = ?
		ORDER BY started_at DESC
		LIMIT 1
	`

	rows, err := s.db.QueryContext(ctx, query, StatusComplete)
	if err != nil {
		return nil, fmt.Errorf("(manifest-last) %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("(manifest-last) %w", err)
		}

		return nil, nil //nolint:nilnil
	}

	run, err := scanRun(rows)
	if err != nil {
		return nil, fmt.Errorf("(manifest-last) %w", err)
	}

	return &run, nil
}

// RunRecords returns up to limit [Record](s) of a run, in insertion order.
func (s *Store) RunRecords(ctx context.Context, runID int64, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("(manifest-records) %w: %d", ErrInvalidLimit, limit)
	}

	query := `
		SELECT id, run_id, path, size, inode, device, nlink, kind, hash, error
		FROM records
		WHERE run_id = ?
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("(manifest-records) %w", err)
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		var rec Record
		var ino, dev, nlink int64
		var hash, errText sql.NullString

		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Path,
			&rec.Size,
			&ino,
			&dev,
			&nlink,
			&rec.Kind,
			&hash,
			&errText,
		)
		if err != nil {
			return nil, fmt.Errorf("(manifest-records) %w", err)
		}

		rec.Ino = uint64(ino)
		rec.Dev = uint64(dev)
		rec.NLink = uint64(nlink)
		rec.Hash = hash.String
		rec.Error = errText.String

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("(manifest-records) %w", err)
	}

	return records, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("(manifest-close) %w", err)
		}
	}

	return nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var run Run
	var finished sql.NullTime
	var roots string

	err := rows.Scan(
		&run.ID,
		&run.StartedAt,
		&finished,
		&run.Status,
		&roots,
		&run.TotalFiles,
		&run.TotalDirs,
		&run.TotalBytes,
		&run.HashedFiles,
		&run.FailedFiles,
	)
	if err != nil {
		return Run{}, err
	}

	if finished.Valid {
		run.FinishedAt = finished.Time
	}

	if roots != "" {
		run.Roots = strings.Split(roots, " ")
	}

	return run, nil
}
