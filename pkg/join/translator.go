package join

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// ErrNotJoined is returned by Update when the relation is declared but no
// join for it exists yet.
var ErrNotJoined = errors.New("relation is not joined")

// Spec asks for one relation to be joined.
type Spec struct {
	Name   string        // relation name declared on the root table
	Kind   core.JoinKind // defaults to LEFT
	Filter core.Expr     // qualified by the target (or pivot) table name
	Alias  string        // explicit target alias; never overridden
}

// Result is the outcome of translating one relation.
type Result struct {
	Joins  []*core.Join
	Target string // exposed name of the target source
	Pivot  string // exposed name of the pivot source, many-to-many only
	Keys   Keys
}

// Build translates spec into joins against root, which is exposed as
// rootExposed. Names already taken in the statement are read from used, and
// the names the new joins expose are added to it.
func Build(root *core.TableDef, rootExposed string, used Names, spec Spec) (Result, error) {
	rel, ok := root.Relation(spec.Name)
	if !ok {
		return Result{}, &core.UnknownRelationError{Table: root.Name, Relation: spec.Name}
	}
	kind := spec.Kind
	if kind == "" {
		kind = core.JoinLeft
	}
	keys := ResolveKeys(root, rel)
	target := &core.TableName{Schema: keys.Target.Schema, Name: keys.Target.Name, Alias: spec.Alias}

	if keys.Type != core.RelBelongsToMany {
		src := ResolveAlias(target, used, spec.Name)
		exposed := core.ExposedName(src)
		used.Add(exposed)
		j := &core.Join{
			Kind:      kind,
			Table:     src,
			Condition: targetCondition(keys, rootExposed, exposed, "", spec.Filter),
			Meta:      &core.JoinMeta{RelationName: spec.Name, Filter: spec.Filter},
		}
		return Result{Joins: []*core.Join{j}, Target: exposed, Keys: keys}, nil
	}

	// The pivot claims its name first so the target can step around it.
	pivotSrc := ResolveAlias(&core.TableName{Schema: root.Schema, Name: keys.PivotTable}, used, spec.Name+"_pivot")
	pivot := core.ExposedName(pivotSrc)
	used.Add(pivot)
	src := ResolveAlias(target, used, spec.Name, pivot)
	exposed := core.ExposedName(src)
	used.Add(exposed)

	joins := []*core.Join{
		{
			Kind:      kind,
			Table:     pivotSrc,
			Condition: pivotCondition(keys, rootExposed, pivot),
			Meta:      &core.JoinMeta{RelationName: spec.Name, Pivot: true},
		},
		{
			Kind:      kind,
			Table:     src,
			Condition: targetCondition(keys, rootExposed, exposed, pivot, spec.Filter),
			Meta:      &core.JoinMeta{RelationName: spec.Name, Filter: spec.Filter},
		},
	}
	return Result{Joins: joins, Target: exposed, Pivot: pivot, Keys: keys}, nil
}

// Update rewrites the joins generated for spec.Name. An empty Kind keeps the
// current kind and a nil Filter keeps the current filter; the condition is
// re-derived either way. The pivot join of a many-to-many relation takes the
// same kind as its target join. Joins for other relations are shared with
// the input slice.
func Update(joins []*core.Join, root *core.TableDef, rootExposed string, spec Spec) ([]*core.Join, error) {
	rel, ok := root.Relation(spec.Name)
	if !ok {
		return nil, &core.UnknownRelationError{Table: root.Name, Relation: spec.Name}
	}
	keys := ResolveKeys(root, rel)

	pivot := ""
	found := false
	for _, j := range joins {
		if j.RelationName() != spec.Name {
			continue
		}
		found = true
		if j.Meta.Pivot {
			pivot = core.ExposedName(j.Table)
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotJoined, spec.Name)
	}

	out := make([]*core.Join, len(joins))
	copy(out, joins)
	for i, j := range joins {
		if j.RelationName() != spec.Name {
			continue
		}
		next := *j
		meta := *j.Meta
		next.Meta = &meta
		if spec.Kind != "" {
			next.Kind = spec.Kind
		}
		if meta.Pivot {
			next.Condition = pivotCondition(keys, rootExposed, pivot)
		} else {
			if spec.Filter != nil {
				meta.Filter = spec.Filter
			}
			next.Condition = targetCondition(keys, rootExposed, core.ExposedName(j.Table), pivot, meta.Filter)
		}
		out[i] = &next
	}
	return out, nil
}

func pivotCondition(k Keys, root, pivot string) core.Expr {
	return eq(pivot, k.PivotForeignKeyToRoot, root, k.LocalKey)
}

// targetCondition equates the relation keys and ANDs in the caller filter,
// remapped from logical table names to the exposed ones.
func targetCondition(k Keys, root, target, pivot string, filter core.Expr) core.Expr {
	var cond core.Expr
	switch k.Type {
	case core.RelHasMany, core.RelHasOne:
		cond = eq(target, k.ForeignKey, root, k.LocalKey)
	case core.RelBelongsTo:
		cond = eq(target, k.LocalKey, root, k.ForeignKey)
	case core.RelBelongsToMany:
		cond = eq(target, k.TargetKey, pivot, k.PivotForeignKeyToTarget)
	}
	if filter == nil {
		return cond
	}
	filter = RemapTable(filter, k.Target.Name, target)
	if pivot != "" {
		filter = RemapTable(filter, k.PivotTable, pivot)
	}
	return &core.LogicalExpr{Op: core.OpAnd, Operands: []core.Expr{cond, filter}}
}

func eq(lt, lc, rt, rc string) core.Expr {
	return &core.BinaryExpr{
		Left:  &core.ColumnRef{Table: lt, Column: lc},
		Op:    core.OpEq,
		Right: &core.ColumnRef{Table: rt, Column: rc},
	}
}
