package query

import (
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/expr"
	"github.com/leapstack-labs/leapquery/pkg/join"
)

// UpdateQuery builds an UPDATE statement.
type UpdateQuery struct {
	ast *core.UpdateQuery
	err error
}

// Update starts an UPDATE of table.
func Update(table *core.TableDef) UpdateQuery {
	if err := requireTable("Update", table); err != nil {
		return UpdateQuery{ast: &core.UpdateQuery{}, err: err}
	}
	return UpdateQuery{ast: &core.UpdateQuery{Table: table.Ref()}}
}

// Err returns the first construction error, if any.
func (q UpdateQuery) Err() error { return q.err }

func (q UpdateQuery) fail(err error) UpdateQuery {
	if q.err == nil {
		q.err = err
	}
	return q
}

func (q UpdateQuery) edit(fn func(s *core.UpdateQuery)) UpdateQuery {
	if q.err != nil {
		return q
	}
	next := q.ast.Clone()
	fn(next)
	q.ast = next
	return q
}

// As aliases the updated table.
func (q UpdateQuery) As(alias string) UpdateQuery {
	if q.err != nil {
		return q
	}
	t := *q.ast.Table
	t.Alias = alias
	return q.edit(func(s *core.UpdateQuery) { s.Table = &t })
}

// Set adds column = value. Values are wrapped like expr.Val.
func (q UpdateQuery) Set(column string, value any) UpdateQuery {
	a := Set(column, value)
	if err := checkExprs(a.Value); err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.UpdateQuery) {
		set := make([]core.Assignment, 0, len(s.Set)+1)
		set = append(set, s.Set...)
		s.Set = append(set, a)
	})
}

// Where adds a predicate, ANDed with any existing one.
func (q UpdateQuery) Where(cond core.Expr) UpdateQuery {
	if err := checkExprs(cond); err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.UpdateQuery) { s.Where = expr.And(s.Where, cond) })
}

// Join joins another source to the update. Colliding table names are
// aliased as in SelectQuery.JoinTable.
func (q UpdateQuery) Join(kind core.JoinKind, src core.TableRef, on core.Expr) UpdateQuery {
	if q.err != nil {
		return q
	}
	if err := checkExprs(on); err != nil {
		return q.fail(err)
	}
	j, err := resolveJoin(q.ast.Table, q.ast.Joins, kind, src, on)
	if err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.UpdateQuery) {
		joins := make([]*core.Join, 0, len(s.Joins)+1)
		joins = append(joins, s.Joins...)
		s.Joins = append(joins, j)
	})
}

// Returning adds a RETURNING (or OUTPUT) list.
func (q UpdateQuery) Returning(cols ...any) UpdateQuery {
	items, err := selectItems("Returning", "", cols)
	if err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.UpdateQuery) { s.Returning = items })
}

// AST returns the statement as built.
func (q UpdateQuery) AST() (*core.UpdateQuery, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.ast.Set) == 0 {
		return nil, &core.InvalidOperandError{Builder: "Update", Reason: "nothing to set"}
	}
	return q.ast, nil
}

// Compile renders the statement for d.
func (q UpdateQuery) Compile(d *dialect.Dialect) (*core.CompiledQuery, error) {
	return compile(q.AST, d)
}

// CompileFor renders the statement for the dialect registered as name.
func (q UpdateQuery) CompileFor(name string) (*core.CompiledQuery, error) {
	return compileFor(q.AST, name)
}

// ToSQL returns only the SQL text of Compile.
func (q UpdateQuery) ToSQL(d *dialect.Dialect) (string, error) {
	return toSQL(q.AST, d)
}

// DeleteQuery builds a DELETE statement.
type DeleteQuery struct {
	ast *core.DeleteQuery
	err error
}

// DeleteFrom starts a DELETE from table.
func DeleteFrom(table *core.TableDef) DeleteQuery {
	if err := requireTable("DeleteFrom", table); err != nil {
		return DeleteQuery{ast: &core.DeleteQuery{}, err: err}
	}
	return DeleteQuery{ast: &core.DeleteQuery{Table: table.Ref()}}
}

// Err returns the first construction error, if any.
func (q DeleteQuery) Err() error { return q.err }

func (q DeleteQuery) fail(err error) DeleteQuery {
	if q.err == nil {
		q.err = err
	}
	return q
}

func (q DeleteQuery) edit(fn func(s *core.DeleteQuery)) DeleteQuery {
	if q.err != nil {
		return q
	}
	next := q.ast.Clone()
	fn(next)
	q.ast = next
	return q
}

// As aliases the table rows are deleted from.
func (q DeleteQuery) As(alias string) DeleteQuery {
	if q.err != nil {
		return q
	}
	t := *q.ast.Table
	t.Alias = alias
	return q.edit(func(s *core.DeleteQuery) { s.Table = &t })
}

// Where adds a predicate, ANDed with any existing one.
func (q DeleteQuery) Where(cond core.Expr) DeleteQuery {
	if err := checkExprs(cond); err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.DeleteQuery) { s.Where = expr.And(s.Where, cond) })
}

// Using adds sources whose rows the WHERE clause can reference.
func (q DeleteQuery) Using(srcs ...core.TableRef) DeleteQuery {
	for _, src := range srcs {
		if bad, ok := src.(*core.BadTable); ok {
			return q.fail(bad.Err)
		}
	}
	return q.edit(func(s *core.DeleteQuery) {
		using := make([]core.TableRef, 0, len(s.Using)+len(srcs))
		using = append(using, s.Using...)
		s.Using = append(using, srcs...)
	})
}

// Join joins another source to the delete.
func (q DeleteQuery) Join(kind core.JoinKind, src core.TableRef, on core.Expr) DeleteQuery {
	if q.err != nil {
		return q
	}
	if err := checkExprs(on); err != nil {
		return q.fail(err)
	}
	j, err := resolveJoin(q.ast.Table, q.ast.Joins, kind, src, on)
	if err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.DeleteQuery) {
		joins := make([]*core.Join, 0, len(s.Joins)+1)
		joins = append(joins, s.Joins...)
		s.Joins = append(joins, j)
	})
}

// Returning adds a RETURNING (or OUTPUT) list.
func (q DeleteQuery) Returning(cols ...any) DeleteQuery {
	items, err := selectItems("Returning", "", cols)
	if err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.DeleteQuery) { s.Returning = items })
}

// AST returns the statement as built.
func (q DeleteQuery) AST() (*core.DeleteQuery, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.ast, nil
}

// Compile renders the statement for d.
func (q DeleteQuery) Compile(d *dialect.Dialect) (*core.CompiledQuery, error) {
	return compile(q.AST, d)
}

// CompileFor renders the statement for the dialect registered as name.
func (q DeleteQuery) CompileFor(name string) (*core.CompiledQuery, error) {
	return compileFor(q.AST, name)
}

// ToSQL returns only the SQL text of Compile.
func (q DeleteQuery) ToSQL(d *dialect.Dialect) (string, error) {
	return toSQL(q.AST, d)
}

func resolveJoin(from core.TableRef, existing []*core.Join, kind core.JoinKind, src core.TableRef, on core.Expr) (*core.Join, error) {
	if src == nil {
		return nil, &core.InvalidOperandError{Builder: "Join", Reason: "a table source is required"}
	}
	if bad, ok := src.(*core.BadTable); ok {
		return nil, bad.Err
	}
	used := join.ExposedNames(from, existing)
	resolved := join.ResolveAlias(src, used, "")
	if t, ok := src.(*core.TableName); ok && resolved != src {
		on = join.RemapTable(on, t.Name, core.ExposedName(resolved))
	}
	return &core.Join{Kind: kind, Table: resolved, Condition: on}, nil
}
