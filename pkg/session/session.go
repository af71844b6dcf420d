// Package session runs compiled statements through an injected executor
// and turns the returned result sets into entities, counts and procedure
// outputs.
//
// A session issues one statement at a time. Multi-statement operations such
// as ExecutePaged wait for each statement to finish before sending the
// next, since most connections cannot pipeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/hydrate"
	"github.com/leapstack-labs/leapquery/pkg/query"
)

// Session executes statements for one dialect against one executor.
type Session struct {
	exec    core.Executor
	tx      core.Transactor // nil unless the executor supports transactions
	dialect *dialect.Dialect
	logger  *slog.Logger

	// mu serializes statements on the executor.
	mu sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates a session. The executor's capabilities are read once here.
func New(exec core.Executor, d *dialect.Dialect, opts ...Option) (*Session, error) {
	if exec == nil {
		return nil, fmt.Errorf("session: executor is required")
	}
	if d == nil {
		return nil, fmt.Errorf("session: %w", dialect.ErrDialectRequired)
	}
	s := &Session{exec: exec, dialect: d}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	caps := exec.Capabilities()
	if tx, ok := exec.(core.Transactor); ok && caps.SupportsTransactions {
		s.tx = tx
	}
	s.logger.Debug("session ready", "dialect", d.Name, "transactions", s.tx != nil)
	return s, nil
}

// Dialect returns the dialect statements are compiled for.
func (s *Session) Dialect() *dialect.Dialect { return s.dialect }

// ExecuteCompiled runs already compiled SQL.
func (s *Session) ExecuteCompiled(ctx context.Context, c *core.CompiledQuery) ([]core.ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("executing statement", "dialect", s.dialect.Name, "params", len(c.Params))
	sets, err := s.exec.ExecuteSQL(ctx, c.SQL, c.Params)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return sets, nil
}

// Execute compiles stmt and runs it.
func (s *Session) Execute(ctx context.Context, stmt query.Statement) ([]core.ResultSet, error) {
	c, err := stmt.Compile(s.dialect)
	if err != nil {
		return nil, err
	}
	return s.ExecuteCompiled(ctx, c)
}

// FindMany runs q and returns its rows. When q includes relations, the rows
// are hydrated into nested entities.
func (s *Session) FindMany(ctx context.Context, q query.SelectQuery) ([]hydrate.Entity, error) {
	var plan *hydrate.Plan
	if len(q.Includes()) > 0 {
		var err error
		if plan, err = q.HydrationPlan(); err != nil {
			return nil, err
		}
	}
	sets, err := s.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	rs := firstResultSet(sets)
	if plan == nil {
		return rs.Rows(), nil
	}
	entities, err := hydrate.Hydrate(rs, plan)
	if err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", q.Exposed(), err)
	}
	return entities, nil
}

// FindManyInto runs q like FindMany and decodes the entities into T.
func FindManyInto[T any](ctx context.Context, s *Session, q query.SelectQuery) ([]T, error) {
	entities, err := s.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}
	return hydrate.Decode[T](entities)
}

// Count returns the number of distinct root rows q matches.
func (s *Session) Count(ctx context.Context, q query.SelectQuery) (int64, error) {
	return s.count(ctx, q.CountQuery())
}

// CountRows returns the number of joined rows q returns.
func (s *Session) CountRows(ctx context.Context, q query.SelectQuery) (int64, error) {
	return s.count(ctx, q.CountRowsQuery())
}

func (s *Session) count(ctx context.Context, q query.SelectQuery) (int64, error) {
	sets, err := s.Execute(ctx, q)
	if err != nil {
		return 0, err
	}
	rs := firstResultSet(sets)
	if len(rs.Values) == 0 || len(rs.Values[0]) == 0 {
		return 0, fmt.Errorf("count: no result row")
	}
	return toInt64(rs.Values[0][0])
}

// Page is one page of hydrated entities.
type Page struct {
	Entities   []hydrate.Entity
	Total      int64 // distinct root rows across all pages
	Page       int
	PageSize   int
	TotalPages int
}

// ExecutePaged counts the distinct root rows of q, then fetches the
// requested 1-based page of roots with all their included rows. The two
// statements run one after the other.
func (s *Session) ExecutePaged(ctx context.Context, q query.SelectQuery, page, size int) (*Page, error) {
	paged := q.PageRoots(page, size)
	if err := paged.Err(); err != nil {
		return nil, err
	}
	total, err := s.Count(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("paged count: %w", err)
	}
	entities, err := s.FindMany(ctx, paged)
	if err != nil {
		return nil, fmt.Errorf("paged fetch: %w", err)
	}
	return &Page{
		Entities:   entities,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

// CallResult holds what a procedure call returned.
type CallResult struct {
	ResultSets []core.ResultSet
	Out        map[string]any // OUT and INOUT values by parameter name
}

// Call runs a stored procedure and reads back its output parameters from
// the result set the dialect reports.
func (s *Session) Call(ctx context.Context, q query.ProcedureQuery) (*CallResult, error) {
	c, err := q.Compile(s.dialect)
	if err != nil {
		return nil, err
	}
	sets, err := s.ExecuteCompiled(ctx, c)
	if err != nil {
		return nil, err
	}
	res := &CallResult{ResultSets: sets}
	if c.OutParams == nil {
		return res, nil
	}
	out, err := outValues(sets, c.OutParams)
	if err != nil {
		return nil, err
	}
	res.Out = out
	return res, nil
}

func outValues(sets []core.ResultSet, op *core.OutParams) (map[string]any, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("call: no result set carries output parameters")
	}
	rs := sets[0]
	if op.Source == core.LastResultSet {
		rs = sets[len(sets)-1]
	}
	if len(rs.Values) == 0 {
		return nil, fmt.Errorf("call: output result set is empty")
	}
	row := rs.Rows()[0]
	out := make(map[string]any, len(op.Names))
	for _, name := range op.Names {
		v, ok := row[name]
		if !ok {
			return nil, fmt.Errorf("call: output parameter %q missing from result", name)
		}
		out[name] = v
	}
	return out, nil
}

// Begin starts an explicit transaction.
func (s *Session) Begin(ctx context.Context) error {
	if s.tx == nil {
		return core.ErrTransactionUnsupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("begin transaction")
	return s.tx.BeginTransaction(ctx)
}

// Commit commits the open transaction.
func (s *Session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return core.ErrTransactionUnsupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("commit transaction")
	return s.tx.CommitTransaction(ctx)
}

// Rollback aborts the open transaction.
func (s *Session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return core.ErrTransactionUnsupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("rollback transaction")
	return s.tx.RollbackTransaction(ctx)
}

// Transaction runs fn inside a transaction, committing when fn returns nil
// and rolling back otherwise.
func (s *Session) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := s.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.Rollback(ctx)
			panic(p)
		}
	}()
	if err := fn(ctx); err != nil {
		if rbErr := s.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return s.Commit(ctx)
}

func firstResultSet(sets []core.ResultSet) core.ResultSet {
	if len(sets) == 0 {
		return core.ResultSet{}
	}
	return sets[0]
}

// toInt64 converts a driver count value. Drivers disagree on the type:
// int64 from most, []byte or string from MySQL text results, float64 from
// some JSON-backed executors.
func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		return int64(x), nil //nolint:gosec // counts fit
	case float64:
		return int64(x), nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("count: unexpected value %v (%T)", v, v)
	}
}
