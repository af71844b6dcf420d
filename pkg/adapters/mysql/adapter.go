// Package mysql provides a MySQL database adapter for leapquery.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
	mysqldialect "github.com/leapstack-labs/leapquery/pkg/dialects/mysql"
)

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "mysql"
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	a.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("mysql", buildMySQLDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open mysql connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping mysql: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// ExecuteSQL runs a statement and converts text columns, which the text
// protocol returns as bytes, to strings.
func (a *Adapter) ExecuteSQL(ctx context.Context, sqlStr string, params []any) ([]core.ResultSet, error) {
	sets, err := a.BaseSQLAdapter.ExecuteSQL(ctx, sqlStr, params)
	if err != nil {
		return nil, err
	}
	for _, rs := range sets {
		for _, row := range rs.Values {
			for i, v := range row {
				if b, ok := v.([]byte); ok {
					row[i] = string(b)
				}
			}
		}
	}
	return sets, nil
}

// Inspect reads a table's columns from information_schema. The schema
// defaults to the connected database.
func (a *Adapter) Inspect(ctx context.Context, table string) (*core.TableDef, error) {
	schema := a.Cfg.Schema
	if schema == "" {
		schema = a.Cfg.Database
	}
	return a.InspectCommon(ctx, table, schema, mysqldialect.MySQL)
}

// buildMySQLDSN constructs a go-sql-driver DSN. Procedure calls compile to
// several statements with client-side interpolated parameters, so both
// multiStatements and interpolateParams are enabled.
func buildMySQLDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	c := gomysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	c.DBName = cfg.Database
	c.MultiStatements = true
	c.InterpolateParams = true
	c.ParseTime = true
	for k, v := range cfg.Options {
		if c.Params == nil {
			c.Params = make(map[string]string)
		}
		c.Params[k] = v
	}
	return c.FormatDSN()
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
