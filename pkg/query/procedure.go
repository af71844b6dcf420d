package query

import (
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/expr"
)

// ProcedureQuery builds a stored procedure call.
type ProcedureQuery struct {
	ast *core.ProcedureCall
	err error
}

// CallProcedure starts a call to name, which may be schema-qualified.
func CallProcedure(name string) ProcedureQuery {
	c := &core.ProcedureCall{Name: name}
	if schema, proc, ok := strings.Cut(name, "."); ok {
		c.Schema, c.Name = schema, proc
	}
	return ProcedureQuery{ast: c}
}

// Err returns the first construction error, if any.
func (q ProcedureQuery) Err() error { return q.err }

func (q ProcedureQuery) param(p core.ProcedureParam, value any) ProcedureQuery {
	if q.err != nil {
		return q
	}
	if p.Direction != core.ParamOut {
		p.Value = expr.Val(value)
		if err := expr.Err(p.Value); err != nil {
			q.err = err
			return q
		}
	}
	next := *q.ast
	next.Params = make([]core.ProcedureParam, 0, len(q.ast.Params)+1)
	next.Params = append(next.Params, q.ast.Params...)
	next.Params = append(next.Params, p)
	q.ast = &next
	return q
}

// In adds an input parameter.
func (q ProcedureQuery) In(name string, value any) ProcedureQuery {
	return q.param(core.ProcedureParam{Name: name, Direction: core.ParamIn}, value)
}

// Out adds an output parameter. SQL Server requires dbType; other dialects
// ignore it.
func (q ProcedureQuery) Out(name, dbType string) ProcedureQuery {
	return q.param(core.ProcedureParam{Name: name, Direction: core.ParamOut, DbType: dbType}, nil)
}

// InOut adds a parameter that is passed in and read back.
func (q ProcedureQuery) InOut(name string, value any, dbType string) ProcedureQuery {
	return q.param(core.ProcedureParam{Name: name, Direction: core.ParamInOut, DbType: dbType}, value)
}

// AST returns the statement as built.
func (q ProcedureQuery) AST() (*core.ProcedureCall, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.ast, nil
}

// Compile renders the call for d. The result describes where OUT values
// are returned.
func (q ProcedureQuery) Compile(d *dialect.Dialect) (*core.CompiledQuery, error) {
	return compile(q.AST, d)
}

// CompileFor renders the call for the dialect registered as name.
func (q ProcedureQuery) CompileFor(name string) (*core.CompiledQuery, error) {
	return compileFor(q.AST, name)
}

// ToSQL returns only the SQL text of Compile.
func (q ProcedureQuery) ToSQL(d *dialect.Dialect) (string, error) {
	return toSQL(q.AST, d)
}

// IndexQuery builds a CREATE INDEX statement.
type IndexQuery struct {
	ast *core.CreateIndex
	err error
}

// CreateIndex starts an index named name on table.
func CreateIndex(name string, table *core.TableDef) IndexQuery {
	if err := requireTable("CreateIndex", table); err != nil {
		return IndexQuery{ast: &core.CreateIndex{Name: name}, err: err}
	}
	return IndexQuery{ast: &core.CreateIndex{Name: name, Table: table.Ref()}}
}

// Err returns the first construction error, if any.
func (q IndexQuery) Err() error { return q.err }

func (q IndexQuery) edit(fn func(c *core.CreateIndex)) IndexQuery {
	if q.err != nil {
		return q
	}
	next := *q.ast
	fn(&next)
	q.ast = &next
	return q
}

// On sets the indexed columns.
func (q IndexQuery) On(cols ...string) IndexQuery {
	return q.edit(func(c *core.CreateIndex) { c.Columns = cols })
}

// Unique makes the index unique.
func (q IndexQuery) Unique() IndexQuery {
	return q.edit(func(c *core.CreateIndex) { c.Unique = true })
}

// Where makes the index partial. Dialects without partial indexes reject
// the statement rather than dropping the filter.
func (q IndexQuery) Where(cond core.Expr) IndexQuery {
	if err := checkExprs(cond); err != nil {
		if q.err == nil {
			q.err = err
		}
		return q
	}
	return q.edit(func(c *core.CreateIndex) { c.Where = expr.And(c.Where, cond) })
}

// AST returns the statement as built.
func (q IndexQuery) AST() (*core.CreateIndex, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.ast, nil
}

// Compile renders the statement for d.
func (q IndexQuery) Compile(d *dialect.Dialect) (*core.CompiledQuery, error) {
	return compile(q.AST, d)
}

// CompileFor renders the statement for the dialect registered as name.
func (q IndexQuery) CompileFor(name string) (*core.CompiledQuery, error) {
	return compileFor(q.AST, name)
}

// ToSQL returns only the SQL text of Compile.
func (q IndexQuery) ToSQL(d *dialect.Dialect) (string, error) {
	return toSQL(q.AST, d)
}
