// Package adapter provides the database/sql backed executors that sessions
// run compiled statements through.
//
// This package contains the contract every adapter implements and the
// shared BaseSQLAdapter. Concrete adapters live in pkg/adapters/
// subdirectories and register themselves in init().
package adapter

import (
	"context"
	"errors"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// ErrNotConnected is returned when an adapter is used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	core.Executor
	core.Transactor

	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Inspect reads a table's columns from the database catalog.
	Inspect(ctx context.Context, table string) (*core.TableDef, error)

	// DialectName returns the registered dialect statements for this
	// database are compiled with.
	DialectName() string
}
