// Package join resolves table aliases and translates declared relations
// into JOIN nodes.
//
// Aliasing is driven by name collisions alone, never by the target
// dialect: a source keeps its base name unless that name is already exposed
// by FROM or an earlier JOIN.
package join

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Names is a case-insensitive set of exposed names.
type Names map[string]struct{}

// ExposedNames returns the names exposed by from and joins.
func ExposedNames(from core.TableRef, joins []*core.Join) Names {
	used := make(Names, len(joins)+1)
	if from != nil {
		used.Add(core.ExposedName(from))
	}
	for _, j := range joins {
		used.Add(core.ExposedName(j.Table))
	}
	return used
}

// Add records name as used.
func (n Names) Add(name string) {
	if name != "" {
		n[strings.ToLower(name)] = struct{}{}
	}
}

// Has reports whether name is used.
func (n Names) Has(name string) bool {
	_, ok := n[strings.ToLower(name)]
	return ok
}

// Clone returns a copy of the set.
func (n Names) Clone() Names {
	c := make(Names, len(n))
	for k := range n {
		c[k] = struct{}{}
	}
	return c
}

// ResolveAlias returns src unchanged when its exposed name is free, or a
// copy aliased after relationName (relationName, relationName_2, ...) when
// it collides with used or reserved. Explicit aliases are kept verbatim and
// only table names are ever aliased.
func ResolveAlias(src core.TableRef, used Names, relationName string, reserved ...string) core.TableRef {
	t, ok := src.(*core.TableName)
	if !ok || t.Alias != "" {
		return src
	}
	taken := func(name string) bool {
		if used.Has(name) {
			return true
		}
		for _, r := range reserved {
			if strings.EqualFold(r, name) {
				return true
			}
		}
		return false
	}
	if !taken(t.Name) {
		return src
	}
	base := relationName
	if base == "" {
		base = t.Name
	}
	alias := base
	for i := 2; taken(alias); i++ {
		alias = base + "_" + strconv.Itoa(i)
	}
	aliased := *t
	aliased.Alias = alias
	return &aliased
}

// RemapTable rewrites column qualifiers equal to from so they read to.
// Unchanged subtrees are returned as is; when nothing matches, e itself is
// returned.
func RemapTable(e core.Expr, from, to string) core.Expr {
	if e == nil || from == to {
		return e
	}
	switch x := e.(type) {
	case *core.ColumnRef:
		if strings.EqualFold(x.Table, from) {
			return &core.ColumnRef{Table: to, Column: x.Column}
		}
		return x
	case *core.BinaryExpr:
		l, r := RemapTable(x.Left, from, to), RemapTable(x.Right, from, to)
		if l == x.Left && r == x.Right {
			return x
		}
		return &core.BinaryExpr{Left: l, Op: x.Op, Right: r}
	case *core.LogicalExpr:
		ops, changed := remapList(x.Operands, from, to)
		if !changed {
			return x
		}
		return &core.LogicalExpr{Op: x.Op, Operands: ops}
	case *core.NotExpr:
		inner := RemapTable(x.Expr, from, to)
		if inner == x.Expr {
			return x
		}
		return &core.NotExpr{Expr: inner}
	case *core.IsNullExpr:
		inner := RemapTable(x.Expr, from, to)
		if inner == x.Expr {
			return x
		}
		return &core.IsNullExpr{Expr: inner, Not: x.Not}
	case *core.BetweenExpr:
		v, lo, hi := RemapTable(x.Expr, from, to), RemapTable(x.Low, from, to), RemapTable(x.High, from, to)
		if v == x.Expr && lo == x.Low && hi == x.High {
			return x
		}
		return &core.BetweenExpr{Expr: v, Low: lo, High: hi, Not: x.Not}
	case *core.InExpr:
		v := RemapTable(x.Expr, from, to)
		list, changed := remapList(x.List, from, to)
		if v == x.Expr && !changed {
			return x
		}
		return &core.InExpr{Expr: v, List: list, Subquery: x.Subquery, Not: x.Not}
	case *core.FuncCall:
		return remapFunc(x, from, to)
	case *core.CastExpr:
		inner := RemapTable(x.Expr, from, to)
		if inner == x.Expr {
			return x
		}
		return &core.CastExpr{Expr: inner, TypeName: x.TypeName}
	case *core.CaseExpr:
		op := RemapTable(x.Operand, from, to)
		els := RemapTable(x.Else, from, to)
		changed := op != x.Operand || els != x.Else
		whens := make([]core.WhenClause, len(x.Whens))
		for i, w := range x.Whens {
			whens[i] = core.WhenClause{
				Condition: RemapTable(w.Condition, from, to),
				Result:    RemapTable(w.Result, from, to),
			}
			if whens[i].Condition != w.Condition || whens[i].Result != w.Result {
				changed = true
			}
		}
		if !changed {
			return x
		}
		return &core.CaseExpr{Operand: op, Whens: whens, Else: els}
	default:
		// Subqueries keep their own scope; literals have nothing to remap.
		return e
	}
}

func remapFunc(x *core.FuncCall, from, to string) core.Expr {
	args, changed := remapList(x.Args, from, to)
	var order []core.OrderByItem
	for i, o := range x.OrderBy {
		r := RemapTable(o.Expr, from, to)
		if r == o.Expr {
			continue
		}
		if order == nil {
			order = append([]core.OrderByItem(nil), x.OrderBy...)
		}
		order[i].Expr = r
	}
	if !changed && order == nil {
		return x
	}
	c := *x
	c.Args = args
	if order != nil {
		c.OrderBy = order
	}
	return &c
}

// remapList remaps every element, copying the slice only when one changes.
func remapList(list []core.Expr, from, to string) ([]core.Expr, bool) {
	var out []core.Expr
	for i, e := range list {
		r := RemapTable(e, from, to)
		if r != e && out == nil {
			out = make([]core.Expr, len(list))
			copy(out, list)
		}
		if out != nil {
			out[i] = r
		}
	}
	if out == nil {
		return list, false
	}
	return out, true
}
