package core

import "context"

// ResultSet is one tabular result returned by an executor.
type ResultSet struct {
	Columns []string
	Values  [][]any
}

// Rows returns the result set as column-keyed maps.
func (rs ResultSet) Rows() []map[string]any {
	out := make([]map[string]any, len(rs.Values))
	for i, vals := range rs.Values {
		row := make(map[string]any, len(rs.Columns))
		for j, col := range rs.Columns {
			if j < len(vals) {
				row[col] = vals[j]
			}
		}
		out[i] = row
	}
	return out
}

// ExecutorCapabilities describes optional executor features. It is read
// once when a session is constructed, never re-read per call.
type ExecutorCapabilities struct {
	SupportsTransactions bool
}

// Executor runs SQL text with bound parameters and returns every result set
// the statement produced. Implementations run one statement at a time.
type Executor interface {
	ExecuteSQL(ctx context.Context, sql string, params []any) ([]ResultSet, error)
	Capabilities() ExecutorCapabilities
}

// Transactor is implemented by executors that support explicit transactions.
type Transactor interface {
	BeginTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}
