// Package hydrate turns flat, alias-prefixed result rows back into nested
// entities according to declared relations.
//
// Planning records which columns were projected under which prefix;
// execution is a pure function over a result set and a plan.
package hydrate

import (
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/join"
)

// Separator joins an alias prefix and a column name.
const Separator = "__"

// PivotKey is the field that carries pivot columns on many-to-many entities.
const PivotKey = "_pivot"

// ColumnAlias returns the result column name of a target column.
func ColumnAlias(prefix, column string) string {
	return prefix + Separator + column
}

// PivotAlias returns the result column name of a pivot column.
func PivotAlias(prefix, column string) string {
	return prefix + Separator + "pivot" + Separator + column
}

// Plan describes how to rebuild root entities and their relations.
type Plan struct {
	PrimaryKey  string
	RootColumns []string // empty means every unprefixed result column
	Relations   []RelationPlan
}

// RelationPlan describes one included relation.
type RelationPlan struct {
	Name       string
	Type       core.RelationType
	Prefix     string
	PrimaryKey string // target primary key, unprefixed
	Columns    []string
	Pivot      *PivotPlan
}

// Many reports whether the relation hydrates into a collection.
func (r RelationPlan) Many() bool {
	return r.Type == core.RelHasMany || r.Type == core.RelBelongsToMany
}

// PivotPlan lists the pivot columns projected for a many-to-many relation.
type PivotPlan struct {
	Table      string
	PrimaryKey string // identity of a pivot row; empty means all Columns
	Columns    []string
}

// Include names a relation to hydrate and the target columns projected for it.
type Include struct {
	Relation string
	Prefix   string   // defaults to Relation
	Columns  []string // defaults to the target's declared columns
}

// BuildPlan plans hydration for root. rootColumns lists the projected root
// columns; empty means all unprefixed result columns are kept.
func BuildPlan(root *core.TableDef, rootColumns []string, includes []Include) (*Plan, error) {
	plan := &Plan{
		PrimaryKey:  root.PK(),
		RootColumns: rootColumns,
		Relations:   make([]RelationPlan, 0, len(includes)),
	}
	for _, inc := range includes {
		rel, ok := root.Relation(inc.Relation)
		if !ok {
			return nil, &core.UnknownRelationError{Table: root.Name, Relation: inc.Relation}
		}
		keys := join.ResolveKeys(root, rel)
		rp := RelationPlan{
			Name:       inc.Relation,
			Type:       keys.Type,
			Prefix:     inc.Prefix,
			PrimaryKey: keys.Target.PK(),
			Columns:    TargetColumns(keys.Target, inc.Columns),
		}
		if rp.Prefix == "" {
			rp.Prefix = inc.Relation
		}
		if keys.Type == core.RelBelongsToMany {
			rp.Pivot = &PivotPlan{
				Table:      keys.PivotTable,
				PrimaryKey: keys.PivotPrimaryKey,
				Columns:    PivotColumns(keys),
			}
		}
		plan.Relations = append(plan.Relations, rp)
	}
	return plan, nil
}

// TargetColumns returns the target columns to project: the requested ones
// (or every declared column) with the primary key always included first.
func TargetColumns(target *core.TableDef, requested []string) []string {
	cols := requested
	if len(cols) == 0 {
		cols = target.ColumnNames()
	}
	pk := target.PK()
	out := []string{pk}
	for _, c := range cols {
		if c != pk {
			out = append(out, c)
		}
	}
	return out
}

// PivotColumns returns the pivot columns projected for a many-to-many
// relation: both foreign keys, the pivot key if declared, then extras.
func PivotColumns(k join.Keys) []string {
	out := []string{k.PivotForeignKeyToRoot, k.PivotForeignKeyToTarget}
	seen := map[string]bool{out[0]: true, out[1]: true}
	if k.PivotPrimaryKey != "" && !seen[k.PivotPrimaryKey] {
		out = append(out, k.PivotPrimaryKey)
		seen[k.PivotPrimaryKey] = true
	}
	for _, c := range k.PivotColumns {
		if !seen[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	return out
}
