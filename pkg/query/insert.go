package query

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/expr"
)

// InsertQuery builds an INSERT statement, optionally an upsert.
type InsertQuery struct {
	ast *core.InsertQuery
	err error
}

// InsertInto starts an INSERT into table. The table's primary key is its
// natural key for upserts without an explicit conflict target.
func InsertInto(table *core.TableDef) InsertQuery {
	if err := requireTable("InsertInto", table); err != nil {
		return InsertQuery{ast: &core.InsertQuery{}, err: err}
	}
	return InsertQuery{ast: &core.InsertQuery{Table: table.Ref(), KeyColumns: []string{table.PK()}}}
}

// Err returns the first construction error, if any.
func (q InsertQuery) Err() error { return q.err }

func (q InsertQuery) fail(err error) InsertQuery {
	if q.err == nil {
		q.err = err
	}
	return q
}

func (q InsertQuery) edit(fn func(s *core.InsertQuery)) InsertQuery {
	if q.err != nil {
		return q
	}
	next := q.ast.Clone()
	fn(next)
	q.ast = next
	return q
}

// Columns sets the inserted columns. Rows added later must match.
func (q InsertQuery) Columns(cols ...string) InsertQuery {
	if len(q.ast.Rows) > 0 {
		return q.fail(&core.InvalidOperandError{Builder: "Columns", Reason: "columns must be set before values"})
	}
	return q.edit(func(s *core.InsertQuery) { s.Columns = cols })
}

// Values adds one row, in column order.
func (q InsertQuery) Values(vals ...any) InsertQuery {
	if q.err != nil {
		return q
	}
	if q.ast.Select != nil {
		return q.fail(&core.InvalidOperandError{Builder: "Values", Reason: "an INSERT ... SELECT takes no values"})
	}
	if len(vals) != len(q.ast.Columns) {
		return q.fail(&core.InvalidOperandError{
			Builder: "Values",
			Reason:  fmt.Sprintf("got %d values for %d columns", len(vals), len(q.ast.Columns)),
		})
	}
	row := make([]core.Expr, len(vals))
	for i, v := range vals {
		row[i] = expr.Val(v)
		if err := expr.Err(row[i]); err != nil {
			return q.fail(err)
		}
	}
	return q.edit(func(s *core.InsertQuery) {
		rows := make([][]core.Expr, 0, len(s.Rows)+1)
		rows = append(rows, s.Rows...)
		s.Rows = append(rows, row)
	})
}

// Record adds one row from a column map. The first record fixes the column
// list (sorted by name) when none was set; later records must have the same
// keys.
func (q InsertQuery) Record(rec map[string]any) InsertQuery {
	if q.err != nil {
		return q
	}
	if len(q.ast.Columns) == 0 {
		cols := make([]string, 0, len(rec))
		for c := range rec {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		q = q.Columns(cols...)
	}
	if len(rec) != len(q.ast.Columns) {
		return q.fail(&core.InvalidOperandError{Builder: "Record", Reason: "record keys differ from the insert columns"})
	}
	vals := make([]any, len(q.ast.Columns))
	for i, c := range q.ast.Columns {
		v, ok := rec[c]
		if !ok {
			return q.fail(&core.InvalidOperandError{Builder: "Record", Reason: fmt.Sprintf("record has no value for %q", c)})
		}
		vals[i] = v
	}
	return q.Values(vals...)
}

// FromSelect inserts the rows of sub.
func (q InsertQuery) FromSelect(sub SelectQuery) InsertQuery {
	ast, err := sub.AST()
	if err != nil {
		return q.fail(err)
	}
	if len(q.ast.Rows) > 0 {
		return q.fail(&core.InvalidOperandError{Builder: "FromSelect", Reason: "an INSERT with values takes no SELECT"})
	}
	return q.edit(func(s *core.InsertQuery) { s.Select = ast })
}

// KeyColumns overrides the natural key used by upserts without a target.
func (q InsertQuery) KeyColumns(cols ...string) InsertQuery {
	return q.edit(func(s *core.InsertQuery) { s.KeyColumns = cols })
}

// Returning adds a RETURNING (or OUTPUT) list.
func (q InsertQuery) Returning(cols ...any) InsertQuery {
	items, err := selectItems("Returning", "", cols)
	if err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.InsertQuery) { s.Returning = items })
}

// OnConflict starts an upsert clause. An empty target means the table's
// natural key.
func (q InsertQuery) OnConflict(target ...string) Conflict {
	return Conflict{q: q, clause: core.OnConflict{Target: target}}
}

// Conflict configures the upsert clause of an insert.
type Conflict struct {
	q      InsertQuery
	clause core.OnConflict
}

// Where restricts which conflicting rows are updated.
func (c Conflict) Where(cond core.Expr) Conflict {
	if err := checkExprs(cond); err != nil {
		c.q = c.q.fail(err)
		return c
	}
	c.clause.Where = expr.And(c.clause.Where, cond)
	return c
}

// DoNothing keeps the existing row.
func (c Conflict) DoNothing() InsertQuery {
	c.clause.Action = core.ConflictDoNothing
	return c.apply()
}

// DoUpdate updates the existing row. Use expr.Excluded to reference the
// incoming values; with no assignments every inserted non-key column is
// taken from the incoming row.
func (c Conflict) DoUpdate(set ...core.Assignment) InsertQuery {
	for _, a := range set {
		if err := checkExprs(a.Value); err != nil {
			return c.q.fail(err)
		}
	}
	c.clause.Action = core.ConflictDoUpdate
	c.clause.Set = set
	return c.apply()
}

func (c Conflict) apply() InsertQuery {
	clause := c.clause
	return c.q.edit(func(s *core.InsertQuery) { s.OnConflict = &clause })
}

// AST returns the statement as built.
func (q InsertQuery) AST() (*core.InsertQuery, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.ast, nil
}

// Compile renders the statement for d.
func (q InsertQuery) Compile(d *dialect.Dialect) (*core.CompiledQuery, error) {
	return compile(q.AST, d)
}

// CompileFor renders the statement for the dialect registered as name.
func (q InsertQuery) CompileFor(name string) (*core.CompiledQuery, error) {
	return compileFor(q.AST, name)
}

// ToSQL returns only the SQL text of Compile.
func (q InsertQuery) ToSQL(d *dialect.Dialect) (string, error) {
	return toSQL(q.AST, d)
}
