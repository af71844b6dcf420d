// Package duckdb provides a DuckDB database adapter for leapquery.
//
// DuckDB accepts the PostgreSQL dialect's SQL, so statements for this
// adapter are compiled with the postgres dialect.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialects/postgres"
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "postgres"
}

// Connect establishes a connection to DuckDB and applies the configured
// extensions, settings and secrets.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}
	stmts, err := params.setupStatements()
	if err != nil {
		return fmt.Errorf("invalid duckdb params: %w", err)
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	// Settings are per connection; keep a single one.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	for _, stmt := range stmts {
		a.Logger.Debug("applying duckdb setup", slog.String("sql", stmt))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply duckdb setup: %w", err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// Inspect reads a table's columns from information_schema.
func (a *Adapter) Inspect(ctx context.Context, table string) (*core.TableDef, error) {
	schema := a.Cfg.Schema
	if schema == "" {
		schema = "main"
	}
	return a.InspectCommon(ctx, table, schema, postgres.Postgres)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
