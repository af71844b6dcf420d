// Package mssql provides a SQL Server database adapter for leapquery.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	_ "github.com/microsoft/go-mssqldb" // sqlserver driver

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
	mssqldialect "github.com/leapstack-labs/leapquery/pkg/dialects/mssql"
)

// Adapter implements the adapter.Adapter interface for SQL Server.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQL Server adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "mssql"
}

// Connect establishes a connection to SQL Server.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	a.Logger.Debug("connecting to sql server", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("sqlserver", buildMSSQLDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open sql server connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sql server: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// Inspect reads a table's columns from information_schema.
func (a *Adapter) Inspect(ctx context.Context, table string) (*core.TableDef, error) {
	schema := a.Cfg.Schema
	if schema == "" {
		schema = "dbo"
	}
	return a.InspectCommon(ctx, table, schema, mssqldialect.MSSQL)
}

// buildMSSQLDSN constructs a sqlserver:// URL. Options become query
// parameters.
func buildMSSQLDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 1433
	}

	q := url.Values{}
	if cfg.Database != "" {
		q.Set("database", cfg.Database)
	}
	for k, v := range cfg.Options {
		q.Set(k, v)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		RawQuery: q.Encode(),
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
