package query

import (
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/expr"
)

// CountColumn is the result column of count queries.
const CountColumn = "total"

// CountQuery counts distinct root rows, ignoring join fan-out. It keeps the
// FROM, JOIN and WHERE of q and drops projection and pagination. Ordering is
// dropped too unless DISTINCT ON needs it to pick rows.
// Without a declared root table it counts rows like CountRowsQuery.
func (q SelectQuery) CountQuery() SelectQuery {
	if q.err != nil {
		return q
	}
	if q.root == nil || len(q.ast.GroupBy) > 0 {
		return q.count(expr.CountStar())
	}
	pk := q.root.PK()
	base := q.ast.Clone()
	base.Limit, base.Offset = nil, nil
	// DISTINCT does not change which roots match.
	base.Distinct = false
	if len(base.DistinctOn) == 0 {
		base.OrderBy = nil
		base.Columns = []core.SelectItem{{Expr: expr.CountDistinct(expr.Col(q.Exposed(), pk)), Alias: CountColumn}}
		return SelectQuery{root: q.root, ast: base}
	}

	// DISTINCT ON keeps one row per key, chosen by the ordering, which can
	// drop roots; count the roots of the rows it keeps.
	base.Columns = []core.SelectItem{{Expr: expr.Col(q.Exposed(), pk), Alias: pk}}
	outer := &core.SelectQuery{
		With:    base.With,
		Columns: []core.SelectItem{{Expr: expr.CountDistinct(expr.Col("counted", pk)), Alias: CountColumn}},
		From:    &core.DerivedTable{Select: base, Alias: "counted"},
	}
	base.With = nil
	return SelectQuery{root: q.root, ast: outer}
}

// CountRowsQuery counts the rows the joined query returns.
func (q SelectQuery) CountRowsQuery() SelectQuery {
	return q.count(expr.CountStar())
}

// count builds a statement counting result rows. Grouped and DISTINCT
// queries count through a derived table over their projection.
func (q SelectQuery) count(agg core.Expr) SelectQuery {
	if q.err != nil {
		return q
	}
	base := q.ast.Clone()
	base.OrderBy, base.Limit, base.Offset = nil, nil, nil
	total := []core.SelectItem{{Expr: agg, Alias: CountColumn}}

	if len(base.GroupBy) == 0 && !base.Distinct && len(base.DistinctOn) == 0 {
		base.Columns = total
		return SelectQuery{root: q.root, ast: base}
	}

	if len(q.includes) > 0 {
		base.Columns, _ = q.projection()
	}
	outer := &core.SelectQuery{
		With:    base.With,
		Columns: total,
		From:    &core.DerivedTable{Select: base, Alias: "counted"},
	}
	base.With = nil
	return SelectQuery{root: q.root, ast: outer}
}
