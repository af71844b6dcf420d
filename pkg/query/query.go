// Package query provides immutable builders for every statement kind.
//
// Each method returns a new value and leaves its receiver untouched; only
// the root struct and the slice being changed are copied, every other
// subtree is shared. Construction errors are captured on the value and
// reported by Err, AST and Compile before any I/O happens.
package query

import (
	"fmt"

	"github.com/leapstack-labs/leapquery/pkg/compiler"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/expr"
)

// Statement is implemented by every builder in this package.
type Statement interface {
	Err() error
	Compile(d *dialect.Dialect) (*core.CompiledQuery, error)
	CompileFor(name string) (*core.CompiledQuery, error)
	ToSQL(d *dialect.Dialect) (string, error)
}

// compile is the single code path behind Compile, CompileFor and ToSQL.
func compile[S core.Stmt](build func() (S, error), d *dialect.Dialect) (*core.CompiledQuery, error) {
	stmt, err := build()
	if err != nil {
		return nil, err
	}
	return compiler.Compile(stmt, d)
}

func compileFor[S core.Stmt](build func() (S, error), name string) (*core.CompiledQuery, error) {
	d, err := dialect.Resolve(name)
	if err != nil {
		return nil, err
	}
	return compile(build, d)
}

func toSQL[S core.Stmt](build func() (S, error), d *dialect.Dialect) (string, error) {
	c, err := compile(build, d)
	if err != nil {
		return "", err
	}
	return c.SQL, nil
}

// Set builds a SET column = value assignment.
func Set(column string, value any) core.Assignment {
	return core.Assignment{Column: column, Value: expr.Val(value)}
}

// As aliases an expression in a select list.
func As(e core.Expr, alias string) core.SelectItem {
	return core.SelectItem{Expr: e, Alias: alias}
}

// Star selects every column of every source.
func Star() core.SelectItem {
	return core.SelectItem{Star: true}
}

// TableStar selects every column of one source.
func TableStar(exposed string) core.SelectItem {
	return core.SelectItem{TableStar: exposed}
}

// selectItems converts builder arguments to select items. Strings name
// columns of the source exposed as table.
func selectItems(builder, table string, cols []any) ([]core.SelectItem, error) {
	items := make([]core.SelectItem, 0, len(cols))
	for _, c := range cols {
		switch x := c.(type) {
		case string:
			if x == "*" {
				items = append(items, core.SelectItem{Star: true})
				continue
			}
			items = append(items, core.SelectItem{Expr: &core.ColumnRef{Table: table, Column: x}})
		case core.SelectItem:
			if err := expr.Err(x.Expr); err != nil {
				return nil, err
			}
			items = append(items, x)
		case core.Expr:
			if err := expr.Err(x); err != nil {
				return nil, err
			}
			items = append(items, core.SelectItem{Expr: x})
		default:
			return nil, &core.InvalidOperandError{Builder: builder, Reason: fmt.Sprintf("unsupported column %T", c)}
		}
	}
	return items, nil
}

// checkExprs returns the first construction error among exprs.
func checkExprs(exprs ...core.Expr) error {
	for _, e := range exprs {
		if err := expr.Err(e); err != nil {
			return err
		}
	}
	return nil
}

func checkOrder(items []core.OrderByItem) error {
	for _, o := range items {
		if o.Expr == nil {
			return &core.InvalidOperandError{Builder: "OrderBy", Reason: "missing order expression"}
		}
		if err := expr.Err(o.Expr); err != nil {
			return err
		}
	}
	return nil
}

func requireTable(builder string, t *core.TableDef) error {
	if t == nil || t.Name == "" {
		return &core.InvalidOperandError{Builder: builder, Reason: "a table is required"}
	}
	return nil
}
