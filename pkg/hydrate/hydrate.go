package hydrate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Entity is one hydrated row: column values plus nested relations.
type Entity = map[string]any

// relationState tracks the columns and seen keys of one relation.
type relationState struct {
	plan     RelationPlan
	pk       int
	columns  []int
	pivot    []int
	pivotKey int // -1 when the pivot has no declared key
}

type rootState struct {
	entity Entity
	seen   []map[string]bool // per relation
}

// Hydrate rebuilds root entities from rs. Roots keep the order in which
// their primary key was first seen; relation collections keep the order of
// their first row. Exact duplicates caused by join fan-out collapse to one
// entry; many-to-many entries are distinct per (target, pivot) pair.
func Hydrate(rs core.ResultSet, plan *Plan) ([]Entity, error) {
	index := make(map[string]int, len(rs.Columns))
	for i, c := range rs.Columns {
		index[c] = i
	}
	lookup := func(name string) (int, error) {
		i, ok := index[name]
		if !ok {
			return 0, fmt.Errorf("hydrate: result has no column %q", name)
		}
		return i, nil
	}

	rootPK, err := lookup(plan.PrimaryKey)
	if err != nil {
		return nil, err
	}
	rootCols, err := rootColumns(rs.Columns, plan.RootColumns, lookup)
	if err != nil {
		return nil, err
	}

	states := make([]relationState, len(plan.Relations))
	for r, rp := range plan.Relations {
		st := relationState{plan: rp, pivotKey: -1}
		if st.pk, err = lookup(ColumnAlias(rp.Prefix, rp.PrimaryKey)); err != nil {
			return nil, err
		}
		for _, c := range rp.Columns {
			i, err := lookup(ColumnAlias(rp.Prefix, c))
			if err != nil {
				return nil, err
			}
			st.columns = append(st.columns, i)
		}
		if rp.Pivot != nil {
			for _, c := range rp.Pivot.Columns {
				i, err := lookup(PivotAlias(rp.Prefix, c))
				if err != nil {
					return nil, err
				}
				st.pivot = append(st.pivot, i)
				if c == rp.Pivot.PrimaryKey {
					st.pivotKey = i
				}
			}
		}
		states[r] = st
	}

	var out []Entity
	roots := make(map[string]*rootState)
	for _, row := range rs.Values {
		pk := row[rootPK]
		if pk == nil {
			return nil, fmt.Errorf("hydrate: null primary key %q", plan.PrimaryKey)
		}
		key := identity(pk)
		root, ok := roots[key]
		if !ok {
			root = newRoot(row, rs.Columns, rootCols, states)
			roots[key] = root
			out = append(out, root.entity)
		}
		for r := range states {
			attach(root, r, &states[r], row)
		}
	}
	if out == nil {
		out = []Entity{}
	}
	return out, nil
}

func rootColumns(all, planned []string, lookup func(string) (int, error)) ([]int, error) {
	var out []int
	if len(planned) == 0 {
		for i, c := range all {
			if !strings.Contains(c, Separator) {
				out = append(out, i)
			}
		}
		return out, nil
	}
	for _, c := range planned {
		i, err := lookup(c)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func newRoot(row []any, names []string, cols []int, states []relationState) *rootState {
	e := make(Entity, len(cols)+len(states))
	for _, i := range cols {
		e[names[i]] = row[i]
	}
	seen := make([]map[string]bool, len(states))
	for r, st := range states {
		if st.plan.Many() {
			e[st.plan.Name] = []Entity{}
			seen[r] = make(map[string]bool)
		} else {
			e[st.plan.Name] = nil
		}
	}
	return &rootState{entity: e, seen: seen}
}

// attach adds the relation entity carried by row to root. A null target
// primary key means the outer join found no match.
func attach(root *rootState, r int, st *relationState, row []any) {
	pk := row[st.pk]
	if pk == nil {
		return
	}
	name := st.plan.Name
	if !st.plan.Many() {
		if root.entity[name] == nil {
			root.entity[name] = build(st.plan.Columns, st.columns, row)
		}
		return
	}

	key := identity(pk)
	if st.plan.Pivot != nil {
		key += "|" + pivotIdentity(st, row)
	}
	if root.seen[r][key] {
		return
	}
	root.seen[r][key] = true

	child := build(st.plan.Columns, st.columns, row)
	if st.plan.Pivot != nil {
		child[PivotKey] = build(st.plan.Pivot.Columns, st.pivot, row)
	}
	root.entity[name] = append(root.entity[name].([]Entity), child)
}

func build(names []string, idx []int, row []any) Entity {
	e := make(Entity, len(names))
	for k, i := range idx {
		e[names[k]] = row[i]
	}
	return e
}

func pivotIdentity(st *relationState, row []any) string {
	if st.pivotKey >= 0 {
		return identity(row[st.pivotKey])
	}
	// Length prefixes keep ("a|b", "c") apart from ("a", "b|c").
	var b strings.Builder
	for _, i := range st.pivot {
		part := identity(row[i])
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// identity renders a scalar as a map key. Byte slices are not comparable, so
// every value is keyed by its printed form.
func identity(v any) string {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case nil:
		return "\x00"
	default:
		return fmt.Sprint(x)
	}
}
