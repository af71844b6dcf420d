package query

import (
	"fmt"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/hydrate"
	"github.com/leapstack-labs/leapquery/pkg/join"
)

// include records a relation whose columns are projected for hydration.
type include struct {
	relation string
	target   string // exposed name of the target join
	pivot    string
	columns  []string
	keys     join.Keys
}

// IncludeOption configures Join, LeftJoin, Include and UpdateInclude.
type IncludeOption func(*includeOptions)

type includeOptions struct {
	kind    core.JoinKind
	filter  core.Expr
	columns []string
	alias   string
}

// IncludeKind sets the join kind.
func IncludeKind(kind core.JoinKind) IncludeOption {
	return func(o *includeOptions) { o.kind = kind }
}

// IncludeFilter adds a predicate to the join condition. Qualify columns
// with the target (or pivot) table name; they are rewritten to whatever
// name the join ends up exposing.
func IncludeFilter(cond core.Expr) IncludeOption {
	return func(o *includeOptions) { o.filter = cond }
}

// IncludeColumns limits the projected target columns. The target primary
// key is always projected.
func IncludeColumns(cols ...string) IncludeOption {
	return func(o *includeOptions) { o.columns = cols }
}

// IncludeAlias gives the target an explicit alias.
func IncludeAlias(alias string) IncludeOption {
	return func(o *includeOptions) { o.alias = alias }
}

func applyOptions(opts []IncludeOption) includeOptions {
	var o includeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Join inner-joins a declared relation without projecting it.
func (q SelectQuery) Join(relation string, opts ...IncludeOption) SelectQuery {
	o := applyOptions(opts)
	if o.kind == "" {
		o.kind = core.JoinInner
	}
	q, _ = q.joinRelation(relation, o)
	return q
}

// LeftJoin left-joins a declared relation without projecting it.
func (q SelectQuery) LeftJoin(relation string, opts ...IncludeOption) SelectQuery {
	o := applyOptions(opts)
	o.kind = core.JoinLeft
	q, _ = q.joinRelation(relation, o)
	return q
}

// Include joins a declared relation (LEFT by default) and projects its
// columns for hydration. Including a relation that is already joined
// reuses the existing join; options given here update it.
func (q SelectQuery) Include(relation string, opts ...IncludeOption) SelectQuery {
	if q.err != nil {
		return q
	}
	for _, inc := range q.includes {
		if inc.relation == relation {
			return q.UpdateInclude(relation, opts...)
		}
	}
	o := applyOptions(opts)

	target, pivot, joined := q.joinedNames(relation)
	if joined {
		if o.kind != "" || o.filter != nil {
			q = q.updateJoin(join.Spec{Name: relation, Kind: o.kind, Filter: o.filter})
		}
	} else {
		if o.kind == "" {
			o.kind = core.JoinLeft
		}
		var res join.Result
		if q, res = q.joinRelation(relation, o); q.err != nil {
			return q
		}
		target, pivot = res.Target, res.Pivot
	}
	if q.err != nil {
		return q
	}

	rel, _ := q.root.Relation(relation)
	keys := join.ResolveKeys(q.root, rel)
	inc := include{
		relation: relation,
		target:   target,
		pivot:    pivot,
		columns:  hydrate.TargetColumns(keys.Target, o.columns),
		keys:     keys,
	}
	next := make([]include, 0, len(q.includes)+1)
	next = append(next, q.includes...)
	q.includes = append(next, inc)
	return q
}

// UpdateInclude changes the join kind, filter or projected columns of a
// relation that is already joined. The join condition is re-derived and a
// many-to-many pivot join takes the new kind as well.
func (q SelectQuery) UpdateInclude(relation string, opts ...IncludeOption) SelectQuery {
	if q.err != nil {
		return q
	}
	o := applyOptions(opts)
	if q.root == nil {
		return q.fail(&core.UnknownRelationError{Relation: relation})
	}
	q = q.updateJoin(join.Spec{Name: relation, Kind: o.kind, Filter: o.filter})
	if q.err != nil || len(o.columns) == 0 {
		return q
	}
	for i, inc := range q.includes {
		if inc.relation != relation {
			continue
		}
		next := make([]include, len(q.includes))
		copy(next, q.includes)
		next[i].columns = hydrate.TargetColumns(inc.keys.Target, o.columns)
		q.includes = next
		break
	}
	return q
}

func (q SelectQuery) joinRelation(relation string, o includeOptions) (SelectQuery, join.Result) {
	if q.err != nil {
		return q, join.Result{}
	}
	if q.root == nil {
		return q.fail(&core.UnknownRelationError{Relation: relation}), join.Result{}
	}
	if err := checkExprs(o.filter); err != nil {
		return q.fail(err), join.Result{}
	}
	used := join.ExposedNames(q.ast.From, q.ast.Joins)
	res, err := join.Build(q.root, q.Exposed(), used, join.Spec{
		Name:   relation,
		Kind:   o.kind,
		Filter: o.filter,
		Alias:  o.alias,
	})
	if err != nil {
		return q.fail(err), join.Result{}
	}
	return q.edit(func(s *core.SelectQuery) { *s = *s.AppendJoins(res.Joins...) }), res
}

func (q SelectQuery) updateJoin(spec join.Spec) SelectQuery {
	if err := checkExprs(spec.Filter); err != nil {
		return q.fail(err)
	}
	joins, err := join.Update(q.ast.Joins, q.root, q.Exposed(), spec)
	if err != nil {
		return q.fail(fmt.Errorf("update include %q: %w", spec.Name, err))
	}
	return q.edit(func(s *core.SelectQuery) { s.Joins = joins })
}

// joinedNames returns the exposed target and pivot names of a relation
// that is already joined.
func (q SelectQuery) joinedNames(relation string) (target, pivot string, ok bool) {
	for _, j := range q.ast.Joins {
		if j.RelationName() != relation {
			continue
		}
		ok = true
		if j.Meta.Pivot {
			pivot = core.ExposedName(j.Table)
		} else {
			target = core.ExposedName(j.Table)
		}
	}
	return target, pivot, ok
}

// projection returns the select list with included relations and the root
// column names to hydrate. Root columns are projected under their own
// names. When relations are included, an explicit projection gets the root
// primary key added if it is missing, since hydration groups rows by it.
func (q SelectQuery) projection() ([]core.SelectItem, []string) {
	exposed := q.Exposed()
	var items []core.SelectItem
	var rootCols []string

	switch {
	case len(q.ast.Columns) > 0:
		items = append(items, q.ast.Columns...)
		hasPK := false
		for _, it := range q.ast.Columns {
			name := itemName(it)
			if name == "" {
				continue
			}
			rootCols = append(rootCols, name)
			if q.root != nil && name == q.root.PK() {
				hasPK = true
			}
		}
		if q.root != nil && !hasPK && len(q.includes) > 0 {
			items = append(items, core.SelectItem{Expr: &core.ColumnRef{Table: exposed, Column: q.root.PK()}})
			rootCols = append(rootCols, q.root.PK())
		}
	case len(q.includes) == 0:
		// SELECT * keeps whatever the table has.
	case q.root != nil && len(q.root.Columns) > 0:
		for _, c := range q.root.Columns {
			items = append(items, core.SelectItem{Expr: &core.ColumnRef{Table: exposed, Column: c.Name}})
			rootCols = append(rootCols, c.Name)
		}
	default:
		items = append(items, core.SelectItem{TableStar: exposed})
	}

	for _, inc := range q.includes {
		for _, c := range inc.columns {
			items = append(items, core.SelectItem{
				Expr:  &core.ColumnRef{Table: inc.target, Column: c},
				Alias: hydrate.ColumnAlias(inc.relation, c),
			})
		}
		if inc.pivot == "" {
			continue
		}
		for _, c := range hydrate.PivotColumns(inc.keys) {
			items = append(items, core.SelectItem{
				Expr:  &core.ColumnRef{Table: inc.pivot, Column: c},
				Alias: hydrate.PivotAlias(inc.relation, c),
			})
		}
	}
	return items, rootCols
}

// itemName is the result column name of a select item, or "" when the
// database picks one.
func itemName(it core.SelectItem) string {
	if it.Alias != "" {
		return it.Alias
	}
	if c, ok := it.Expr.(*core.ColumnRef); ok {
		return c.Column
	}
	return ""
}

// HydrationPlan describes how to rebuild entities from the rows this query
// returns.
func (q SelectQuery) HydrationPlan() (*hydrate.Plan, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.root == nil {
		return nil, &core.InvalidOperandError{Builder: "HydrationPlan", Reason: "hydration needs a declared root table"}
	}
	_, rootCols := q.projection()
	incs := make([]hydrate.Include, len(q.includes))
	for i, inc := range q.includes {
		incs[i] = hydrate.Include{Relation: inc.relation, Prefix: inc.relation, Columns: inc.columns}
	}
	return hydrate.BuildPlan(q.root, rootCols, incs)
}

// Includes lists the included relation names in order.
func (q SelectQuery) Includes() []string {
	out := make([]string, len(q.includes))
	for i, inc := range q.includes {
		out[i] = inc.relation
	}
	return out
}
