// Package state records the history of query runs in a local SQLite
// database. The schema is managed with goose migrations.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

// RunStatus is the outcome of a run.
type RunStatus string

// RunStatus values.
const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// Run is one execution of a named query.
type Run struct {
	ID       string
	Query    string
	Dialect  string
	Target   string
	SQL      string
	Page     int // 0 when every row was fetched
	Rows     int
	Duration time.Duration
	Status   RunStatus
	Error    string

	StartedAt time.Time
}

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore persists runs in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the database at path, creating its directory if needed.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A second connection to :memory: would see an empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened state store", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// OpenAndMigrate opens the store at path and applies pending migrations.
func OpenAndMigrate(path string, logger *slog.Logger) (*SQLiteStore, error) {
	s := NewSQLiteStore(logger)
	if err := s.Open(path); err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// RecordRun stores a finished run. An empty ID is replaced by a new UUID
// and a zero StartedAt by the current time.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()

	var errMsg *string
	if run.Error != "" {
		errMsg = &run.Error
	}

	s.logger.Debug("recording run",
		slog.String("id", run.ID),
		slog.String("query", run.Query),
		slog.String("status", string(run.Status)))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, query, dialect, target, sql_text, page, row_count, duration_ms, status, error, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Query, run.Dialect, run.Target, run.SQL, run.Page, run.Rows,
		run.Duration.Milliseconds(), string(run.Status), errMsg, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-empty query limits the
// result to runs of that query; limit <= 0 returns every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, query string, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	stmt := selectRuns
	var args []any
	if query != "" {
		stmt += ` WHERE query = ?`
		args = append(args, query)
	}
	stmt += ` ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneRuns deletes all but the newest keep runs and reports how many were
// removed.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

const selectRuns = `SELECT id, query, dialect, target, sql_text, page, row_count, duration_ms, status, error, started_at FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run        Run
		status     string
		durationMs int64
		errMsg     sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.Query, &run.Dialect, &run.Target, &run.SQL, &run.Page,
		&run.Rows, &durationMs, &status, &errMsg, &run.StartedAt); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return &run, nil
}
