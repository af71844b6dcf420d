package query

import (
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/expr"
)

// SelectQuery builds a SELECT statement.
type SelectQuery struct {
	root     *core.TableDef // nil when selecting from an arbitrary source
	ast      *core.SelectQuery
	includes []include
	err      error
}

// Select starts a query over a declared table. Relations declared on the
// table can be joined and included by name.
func Select(table *core.TableDef) SelectQuery {
	if err := requireTable("Select", table); err != nil {
		return SelectQuery{ast: &core.SelectQuery{}, err: err}
	}
	return SelectQuery{root: table, ast: &core.SelectQuery{From: table.Ref()}}
}

// SelectFrom starts a query over any table source, such as a derived table.
func SelectFrom(src core.TableRef) SelectQuery {
	q := SelectQuery{ast: &core.SelectQuery{From: src}}
	if src == nil {
		q.err = &core.InvalidOperandError{Builder: "SelectFrom", Reason: "a table source is required"}
	}
	if bad, ok := src.(*core.BadTable); ok {
		q.err = bad.Err
	}
	return q
}

// Err returns the first construction error, if any.
func (q SelectQuery) Err() error { return q.err }

// Root returns the declared root table, or nil.
func (q SelectQuery) Root() *core.TableDef { return q.root }

// Exposed returns the name the root source is referenced by.
func (q SelectQuery) Exposed() string { return core.ExposedName(q.ast.From) }

func (q SelectQuery) fail(err error) SelectQuery {
	if q.err == nil {
		q.err = err
	}
	return q
}

// edit applies fn to a copy of the root node.
func (q SelectQuery) edit(fn func(s *core.SelectQuery)) SelectQuery {
	if q.err != nil {
		return q
	}
	next := q.ast.Clone()
	fn(next)
	q.ast = next
	return q
}

// As aliases the root source. It must be called before any join.
func (q SelectQuery) As(alias string) SelectQuery {
	if len(q.ast.Joins) > 0 {
		return q.fail(&core.InvalidOperandError{Builder: "As", Reason: "the root alias must be set before joining"})
	}
	t, ok := q.ast.From.(*core.TableName)
	if !ok {
		return q.fail(&core.InvalidOperandError{Builder: "As", Reason: "only table sources can be re-aliased"})
	}
	aliased := *t
	aliased.Alias = alias
	return q.edit(func(s *core.SelectQuery) { s.From = &aliased })
}

// Columns replaces the projection. Strings name root columns; expressions
// and select items are used as given.
func (q SelectQuery) Columns(cols ...any) SelectQuery {
	items, err := selectItems("Columns", q.Exposed(), cols)
	if err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.SelectQuery) { s.Columns = items })
}

// Distinct removes duplicate rows.
func (q SelectQuery) Distinct() SelectQuery {
	return q.edit(func(s *core.SelectQuery) { s.Distinct = true })
}

// DistinctOn keeps the first row per distinct value of exprs.
func (q SelectQuery) DistinctOn(exprs ...core.Expr) SelectQuery {
	if err := checkExprs(exprs...); err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.SelectQuery) { s.DistinctOn = exprs })
}

// Where adds a predicate, ANDed with any existing one.
func (q SelectQuery) Where(cond core.Expr) SelectQuery {
	if err := checkExprs(cond); err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.SelectQuery) { s.Where = expr.And(s.Where, cond) })
}

// GroupBy replaces the grouping expressions.
func (q SelectQuery) GroupBy(exprs ...core.Expr) SelectQuery {
	if err := checkExprs(exprs...); err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.SelectQuery) { s.GroupBy = exprs })
}

// Having adds a group predicate, ANDed with any existing one.
func (q SelectQuery) Having(cond core.Expr) SelectQuery {
	if err := checkExprs(cond); err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.SelectQuery) { s.Having = expr.And(s.Having, cond) })
}

// OrderBy appends ordering items.
func (q SelectQuery) OrderBy(items ...core.OrderByItem) SelectQuery {
	if err := checkOrder(items); err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.SelectQuery) {
		next := make([]core.OrderByItem, 0, len(s.OrderBy)+len(items))
		next = append(next, s.OrderBy...)
		s.OrderBy = append(next, items...)
	})
}

// Limit caps the number of rows.
func (q SelectQuery) Limit(n int) SelectQuery {
	if n < 0 {
		return q.fail(&core.InvalidOperandError{Builder: "Limit", Reason: "limit must not be negative"})
	}
	return q.edit(func(s *core.SelectQuery) { s.Limit = &n })
}

// Offset skips rows.
func (q SelectQuery) Offset(n int) SelectQuery {
	if n < 0 {
		return q.fail(&core.InvalidOperandError{Builder: "Offset", Reason: "offset must not be negative"})
	}
	return q.edit(func(s *core.SelectQuery) { s.Offset = &n })
}

// Page selects the 1-based page of the given size.
func (q SelectQuery) Page(page, size int) SelectQuery {
	if page < 1 || size < 1 {
		return q.fail(&core.InvalidOperandError{Builder: "Page", Reason: "page and size must be positive"})
	}
	return q.Limit(size).Offset((page - 1) * size)
}

// PageRoots selects the 1-based page of root rows. Without includes it is
// Page. With includes, LIMIT and OFFSET would cut through the joined rows,
// so the page is taken over distinct root keys in a subquery and every
// joined row of those roots is returned.
func (q SelectQuery) PageRoots(page, size int) SelectQuery {
	if page < 1 || size < 1 {
		return q.fail(&core.InvalidOperandError{Builder: "PageRoots", Reason: "page and size must be positive"})
	}
	if q.err != nil || q.root == nil || len(q.includes) == 0 || len(q.ast.GroupBy) > 0 {
		return q.Page(page, size)
	}

	pk := q.root.PK()
	key := expr.Col(q.Exposed(), pk)
	limit, offset := size, (page-1)*size

	keys := q.ast.Clone()
	keys.With = nil
	keys.Distinct, keys.DistinctOn = false, nil
	keys.Columns = []core.SelectItem{{Expr: key, Alias: pk}}
	keys.GroupBy = []core.Expr{key}
	keys.OrderBy = rootOrder(q.ast.OrderBy, key)
	keys.Limit, keys.Offset = &limit, &offset

	// The extra derived table lets MySQL accept a LIMIT inside IN.
	paged := &core.SelectQuery{
		Columns: []core.SelectItem{{Expr: expr.Col("paged", pk)}},
		From:    &core.DerivedTable{Select: keys, Alias: "paged"},
	}
	return q.edit(func(s *core.SelectQuery) {
		s.Where = expr.And(s.Where, expr.InSubquery(key, paged))
		s.Limit, s.Offset = nil, nil
	})
}

// rootOrder orders grouped root keys the way order sorts rows: each root
// sorts by its smallest value ascending or its largest descending. The key
// itself breaks ties so pages are stable.
func rootOrder(order []core.OrderByItem, key *core.ColumnRef) []core.OrderByItem {
	out := make([]core.OrderByItem, 0, len(order)+1)
	for _, it := range order {
		if c, ok := it.Expr.(*core.ColumnRef); ok && c.Table == key.Table && c.Column == key.Column {
			out = append(out, it)
			return out
		}
		agg := expr.Min(it.Expr)
		if it.Desc {
			agg = expr.Max(it.Expr)
		}
		out = append(out, core.OrderByItem{Expr: agg, Desc: it.Desc, NullsFirst: it.NullsFirst})
	}
	return append(out, core.OrderByItem{Expr: key})
}

// With adds a common table expression.
func (q SelectQuery) With(name string, sub SelectQuery) SelectQuery {
	return q.with(name, sub, false)
}

// WithRecursive adds a recursive common table expression.
func (q SelectQuery) WithRecursive(name string, sub SelectQuery) SelectQuery {
	return q.with(name, sub, true)
}

func (q SelectQuery) with(name string, sub SelectQuery, recursive bool) SelectQuery {
	ast, err := sub.AST()
	if err != nil {
		return q.fail(err)
	}
	if name == "" {
		return q.fail(&core.InvalidOperandError{Builder: "With", Reason: "a CTE needs a name"})
	}
	return q.edit(func(s *core.SelectQuery) {
		w := &core.WithClause{}
		if s.With != nil {
			w.Recursive = s.With.Recursive
			w.CTEs = append(w.CTEs, s.With.CTEs...)
		}
		w.Recursive = w.Recursive || recursive
		w.CTEs = append(w.CTEs, &core.CTE{Name: name, Select: ast})
		s.With = w
	})
}

// JoinTable joins an arbitrary source. A table whose name is already
// exposed in the query is aliased and the ON condition is rewritten to
// match; give an explicit alias to reference both copies.
func (q SelectQuery) JoinTable(kind core.JoinKind, src core.TableRef, on core.Expr) SelectQuery {
	if q.err != nil {
		return q
	}
	if err := checkExprs(on); err != nil {
		return q.fail(err)
	}
	j, err := resolveJoin(q.ast.From, q.ast.Joins, kind, src, on)
	if err != nil {
		return q.fail(err)
	}
	return q.edit(func(s *core.SelectQuery) { *s = *s.AppendJoins(j) })
}

// AST returns the statement as built. Repeated calls return equal trees.
func (q SelectQuery) AST() (*core.SelectQuery, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.includes) == 0 {
		return q.ast, nil
	}
	items, _ := q.projection()
	s := q.ast.Clone()
	s.Columns = items
	return s, nil
}

// Compile renders the statement for d.
func (q SelectQuery) Compile(d *dialect.Dialect) (*core.CompiledQuery, error) {
	return compile(q.AST, d)
}

// CompileFor renders the statement for the dialect registered as name.
func (q SelectQuery) CompileFor(name string) (*core.CompiledQuery, error) {
	return compileFor(q.AST, name)
}

// ToSQL returns only the SQL text of Compile.
func (q SelectQuery) ToSQL(d *dialect.Dialect) (string, error) {
	return toSQL(q.AST, d)
}

// Subquery returns the statement as an expression, for IN and scalar use.
func (q SelectQuery) Subquery() core.Expr {
	ast, err := q.AST()
	if err != nil {
		return &core.BadExpr{Err: err}
	}
	return expr.Subquery(ast)
}

// Derived returns the statement as a FROM source. A query with errors
// yields a *core.BadTable carrying the first one.
func (q SelectQuery) Derived(alias string) core.TableRef {
	ast, err := q.AST()
	if err != nil {
		return &core.BadTable{Err: err}
	}
	return &core.DerivedTable{Select: ast, Alias: alias}
}
