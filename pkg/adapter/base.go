package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// BaseSQLAdapter provides the core.Executor and core.Transactor
// implementation shared by every database/sql adapter. Embed it in concrete
// adapters and set DB from Connect.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger

	mu sync.Mutex
	tx *sql.Tx // leased for an explicit transaction
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// conn returns the open transaction, or the pool when there is none.
// Callers hold mu.
func (b *BaseSQLAdapter) conn() queryer {
	if b.tx != nil {
		return b.tx
	}
	return b.DB
}

// Close closes the database connection, rolling back an open transaction.
func (b *BaseSQLAdapter) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tx != nil {
		_ = b.tx.Rollback()
		b.tx = nil
	}
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Capabilities implements core.Executor.
func (b *BaseSQLAdapter) Capabilities() core.ExecutorCapabilities {
	return core.ExecutorCapabilities{SupportsTransactions: true}
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, params ...any) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.conn().ExecContext(ctx, sqlStr, params...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// ExecuteSQL runs one statement and returns every result set it produced.
// Result sets without columns, such as the update counts of a batch, are
// skipped.
func (b *BaseSQLAdapter) ExecuteSQL(ctx context.Context, sqlStr string, params []any) ([]core.ResultSet, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	//nolint:rowserrcheck // checked in ReadResultSets
	rows, err := b.conn().QueryContext(ctx, sqlStr, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return ReadResultSets(rows)
}

// ReadResultSets drains rows, following NextResultSet.
func ReadResultSets(rows *sql.Rows) ([]core.ResultSet, error) {
	var sets []core.ResultSet
	for {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read columns: %w", err)
		}
		rs := core.ResultSet{Columns: cols}
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return nil, fmt.Errorf("failed to scan row: %w", err)
			}
			rs.Values = append(rs.Values, vals)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating rows: %w", err)
		}
		if len(cols) > 0 {
			sets = append(sets, rs)
		}
		if !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error advancing result sets: %w", err)
	}
	return sets, nil
}

// BeginTransaction leases a connection for an explicit transaction.
func (b *BaseSQLAdapter) BeginTransaction(ctx context.Context) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tx != nil {
		return errors.New("transaction already open")
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	b.tx = tx
	return nil
}

// CommitTransaction commits and releases the leased connection.
func (b *BaseSQLAdapter) CommitTransaction(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tx == nil {
		return errors.New("no transaction open")
	}
	err := b.tx.Commit()
	b.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction aborts and releases the leased connection.
func (b *BaseSQLAdapter) RollbackTransaction(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tx == nil {
		return errors.New("no transaction open")
	}
	err := b.tx.Rollback()
	b.tx = nil
	if err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// ParseQualifiedName splits a table reference into schema and name,
// falling back to defaultSchema.
func ParseQualifiedName(table, defaultSchema string) (schema, name string) {
	if s, n, ok := strings.Cut(table, "."); ok {
		return s, n
	}
	return defaultSchema, table
}

// InspectCommon reads a table's columns from information_schema, using the
// dialect's placeholders.
func (b *BaseSQLAdapter) InspectCommon(ctx context.Context, table, defaultSchema string, d *dialect.Dialect) (*core.TableDef, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	schema, tableName := ParseQualifiedName(table, defaultSchema)

	//nolint:gosec // Placeholders come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type,
			is_nullable
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	b.mu.Lock()
	defer b.mu.Unlock()
	rows, err := b.conn().QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	def := core.NewTable(tableName)
	if table != tableName {
		def.Schema = schema
	}
	for rows.Next() {
		col := core.ColumnDef{Table: tableName}
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		def.Columns = append(def.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return def, nil
}
