// Package expr provides validated constructors for expression AST nodes.
//
// Builders never accept ambiguous shapes silently. A rejected construction
// returns a *core.BadExpr carrying the error; query builders surface it
// before compilation and Err reports it directly.
package expr

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/shopspring/decimal"
)

// Err returns the first construction error found in e, or nil.
func Err(e core.Expr) error {
	var err error
	core.Walk(e, func(n core.Expr) bool {
		if err != nil {
			return false
		}
		if bad, ok := n.(*core.BadExpr); ok {
			err = bad.Err
			return false
		}
		return true
	})
	return err
}

func bad(builder, reason, suggest string) *core.BadExpr {
	return &core.BadExpr{Err: &core.InvalidOperandError{Builder: builder, Reason: reason, Suggest: suggest}}
}

// Col returns a qualified column reference.
func Col(table, column string) *core.ColumnRef {
	return &core.ColumnRef{Table: table, Column: column}
}

// Column returns an unqualified column reference.
func Column(name string) *core.ColumnRef {
	return &core.ColumnRef{Column: name}
}

// Val wraps a primitive value as a literal. Already-built expressions pass
// through unchanged.
func Val(v any) core.Expr {
	return wrap("Val", v, "")
}

func wrap(builder string, v any, suggest string) core.Expr {
	switch x := v.(type) {
	case nil:
		return &core.Literal{Value: nil}
	case core.Expr:
		return x
	case string, bool, time.Time, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return &core.Literal{Value: x}
	case uuid.UUID:
		return &core.Literal{Value: x.String()}
	case decimal.Decimal:
		return &core.Literal{Value: x.String()}
	case driver.Valuer:
		return &core.Literal{Value: x}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return bad(builder, "list-shaped operand where a scalar is required", suggest)
	case reflect.Pointer:
		if rv.IsNil() {
			return &core.Literal{Value: nil}
		}
		return wrap(builder, rv.Elem().Interface(), suggest)
	}
	return bad(builder, fmt.Sprintf("unsupported operand type %T", v), "")
}

// isList reports whether v is a slice or array other than a byte slice.
func isList(v any) bool {
	if _, ok := v.([]byte); ok {
		return false
	}
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func compare(builder string, op core.BinaryOp, left core.Expr, right any) core.Expr {
	if isList(right) {
		suggest := "InList"
		if op == core.OpNe {
			suggest = "NotInList"
		}
		return bad(builder, "list-shaped operand passed to a scalar comparison", suggest)
	}
	if right == nil {
		switch op {
		case core.OpEq:
			return &core.IsNullExpr{Expr: left}
		case core.OpNe:
			return &core.IsNullExpr{Expr: left, Not: true}
		}
	}
	return &core.BinaryExpr{Left: left, Op: op, Right: wrap(builder, right, "InList")}
}

// Eq returns left = right. A nil right operand renders as IS NULL.
func Eq(left core.Expr, right any) core.Expr { return compare("Eq", core.OpEq, left, right) }

// Ne returns left <> right. A nil right operand renders as IS NOT NULL.
func Ne(left core.Expr, right any) core.Expr { return compare("Ne", core.OpNe, left, right) }

// Gt returns left > right.
func Gt(left core.Expr, right any) core.Expr { return compare("Gt", core.OpGt, left, right) }

// Gte returns left >= right.
func Gte(left core.Expr, right any) core.Expr { return compare("Gte", core.OpGte, left, right) }

// Lt returns left < right.
func Lt(left core.Expr, right any) core.Expr { return compare("Lt", core.OpLt, left, right) }

// Lte returns left <= right.
func Lte(left core.Expr, right any) core.Expr { return compare("Lte", core.OpLte, left, right) }

// Like returns left LIKE pattern.
func Like(left core.Expr, pattern string) core.Expr {
	return &core.BinaryExpr{Left: left, Op: core.OpLike, Right: &core.Literal{Value: pattern}}
}

// NotLike returns left NOT LIKE pattern.
func NotLike(left core.Expr, pattern string) core.Expr {
	return &core.BinaryExpr{Left: left, Op: core.OpNotLike, Right: &core.Literal{Value: pattern}}
}

// ILike returns a case-insensitive LIKE. Dialects without ILIKE lower both sides.
func ILike(left core.Expr, pattern string) core.Expr {
	return &core.BinaryExpr{Left: left, Op: core.OpILike, Right: &core.Literal{Value: pattern}}
}

// Add returns left + right.
func Add(left core.Expr, right any) core.Expr { return arith("Add", core.OpAdd, left, right) }

// Sub returns left - right.
func Sub(left core.Expr, right any) core.Expr { return arith("Sub", core.OpSub, left, right) }

// Mul returns left * right.
func Mul(left core.Expr, right any) core.Expr { return arith("Mul", core.OpMul, left, right) }

// Div returns left / right.
func Div(left core.Expr, right any) core.Expr { return arith("Div", core.OpDiv, left, right) }

func arith(builder string, op core.BinaryOp, left core.Expr, right any) core.Expr {
	return &core.BinaryExpr{Left: left, Op: op, Right: wrap(builder, right, "")}
}

// InList returns e IN (values...). values must be a slice or array.
func InList(e core.Expr, values any) core.Expr {
	return in("InList", e, values, false)
}

// NotInList returns e NOT IN (values...). values must be a slice or array.
func NotInList(e core.Expr, values any) core.Expr {
	return in("NotInList", e, values, true)
}

func in(builder string, e core.Expr, values any, not bool) core.Expr {
	if !isList(values) {
		suggest := "Eq"
		if not {
			suggest = "Ne"
		}
		return &core.BadExpr{Err: &core.InvalidOperandError{
			Builder: builder,
			Reason:  fmt.Sprintf("expected a slice or array, got %T; use %s for scalar comparisons", values, suggest),
		}}
	}
	rv := reflect.ValueOf(values)
	list := make([]core.Expr, rv.Len())
	for i := range list {
		item := rv.Index(i).Interface()
		if isList(item) {
			return bad(builder, "nested list inside a list comparison", "")
		}
		list[i] = wrap(builder, item, "")
	}
	return &core.InExpr{Expr: e, List: list, Not: not}
}

// InSubquery returns e IN (subquery).
func InSubquery(e core.Expr, sub *core.SelectQuery) core.Expr {
	return &core.InExpr{Expr: e, Subquery: sub}
}

// NotInSubquery returns e NOT IN (subquery).
func NotInSubquery(e core.Expr, sub *core.SelectQuery) core.Expr {
	return &core.InExpr{Expr: e, Subquery: sub, Not: true}
}

// Exists returns EXISTS (subquery).
func Exists(sub *core.SelectQuery) core.Expr { return &core.ExistsExpr{Subquery: sub} }

// NotExists returns NOT EXISTS (subquery).
func NotExists(sub *core.SelectQuery) core.Expr { return &core.ExistsExpr{Subquery: sub, Not: true} }

// Subquery wraps a select as a scalar expression.
func Subquery(sub *core.SelectQuery) core.Expr { return &core.SubqueryExpr{Select: sub} }

// IsNull returns e IS NULL.
func IsNull(e core.Expr) core.Expr { return &core.IsNullExpr{Expr: e} }

// IsNotNull returns e IS NOT NULL.
func IsNotNull(e core.Expr) core.Expr { return &core.IsNullExpr{Expr: e, Not: true} }

// Between returns e BETWEEN low AND high.
func Between(e core.Expr, low, high any) core.Expr {
	return &core.BetweenExpr{Expr: e, Low: wrap("Between", low, ""), High: wrap("Between", high, "")}
}

// Not negates e.
func Not(e core.Expr) core.Expr {
	if e == nil {
		return nil
	}
	return &core.NotExpr{Expr: e}
}

// And combines operands with AND. Nil operands are skipped and nested ANDs
// are flattened; a single operand is returned as is.
func And(operands ...core.Expr) core.Expr { return logical(core.OpAnd, operands) }

// Or combines operands with OR, following the same rules as And.
func Or(operands ...core.Expr) core.Expr { return logical(core.OpOr, operands) }

func logical(op core.LogicalOp, operands []core.Expr) core.Expr {
	var flat []core.Expr
	for _, o := range operands {
		if o == nil {
			continue
		}
		if l, ok := o.(*core.LogicalExpr); ok && l.Op == op {
			flat = append(flat, l.Operands...)
			continue
		}
		flat = append(flat, o)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return &core.LogicalExpr{Op: op, Operands: flat}
}

// Excluded references the incoming value of column inside upsert assignments.
func Excluded(column string) core.Expr { return &core.ExcludedRef{Column: column} }

// Asc orders by e ascending.
func Asc(e core.Expr) core.OrderByItem { return core.OrderByItem{Expr: e} }

// Desc orders by e descending.
func Desc(e core.Expr) core.OrderByItem { return core.OrderByItem{Expr: e, Desc: true} }
