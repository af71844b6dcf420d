// Package sqlite provides a SQLite database adapter for leapquery, backed
// by the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "sqlite"
}

// Connect opens the database file, or an in-memory database when the path
// is empty or ":memory:".
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// Inspect reads a table's columns with pragma_table_info. SQLite has no
// information_schema.
func (a *Adapter) Inspect(ctx context.Context, table string) (*core.TableDef, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}
	sets, err := a.ExecuteSQL(ctx, `SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, []any{table})
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 || len(sets[0].Values) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	def := core.NewTable(table)
	for _, row := range sets[0].Values {
		name := fmt.Sprint(row[0])
		def.Columns = append(def.Columns, core.ColumnDef{
			Name:     name,
			Table:    table,
			Type:     fmt.Sprint(row[1]),
			Nullable: fmt.Sprint(row[2]) == "0",
		})
		if fmt.Sprint(row[3]) == "1" {
			def.PrimaryKey = name
		}
	}
	return def, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
