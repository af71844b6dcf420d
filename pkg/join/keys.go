package join

import (
	"sort"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Keys are the fully resolved columns a relation joins on.
type Keys struct {
	Type   core.RelationType
	Target *core.TableDef

	// ForeignKey and LocalKey follow the relation's own convention:
	// hasOne/hasMany keep ForeignKey on the target, belongsTo on the root.
	ForeignKey string
	LocalKey   string

	// Many-to-many only.
	PivotTable              string
	PivotForeignKeyToRoot   string
	PivotForeignKeyToTarget string
	TargetKey               string
	PivotPrimaryKey         string
	PivotColumns            []string
}

// IsMany reports whether the relation can yield more than one target per root.
func (k Keys) IsMany() bool {
	return k.Type == core.RelHasMany || k.Type == core.RelBelongsToMany
}

// ResolveKeys fills in the conventional defaults of rel as declared on root:
// foreign keys are the singular table name plus "_id", local and target keys
// are primary keys, and a pivot is named after both tables in sorted order.
func ResolveKeys(root *core.TableDef, rel core.RelationDef) Keys {
	target := rel.TargetTable()
	k := Keys{Type: rel.Type(), Target: target}
	switch r := rel.(type) {
	case core.HasMany:
		k.ForeignKey = or(r.ForeignKey, foreignKey(root.Name))
		k.LocalKey = or(r.LocalKey, root.PK())
	case core.HasOne:
		k.ForeignKey = or(r.ForeignKey, foreignKey(root.Name))
		k.LocalKey = or(r.LocalKey, root.PK())
	case core.BelongsTo:
		k.ForeignKey = or(r.ForeignKey, foreignKey(target.Name))
		k.LocalKey = or(r.LocalKey, target.PK())
	case core.BelongsToMany:
		k.PivotTable = or(r.PivotTable, pivotName(root.Name, target.Name))
		k.PivotForeignKeyToRoot = or(r.PivotForeignKeyToRoot, foreignKey(root.Name))
		k.PivotForeignKeyToTarget = or(r.PivotForeignKeyToTarget, foreignKey(target.Name))
		k.LocalKey = or(r.LocalKey, root.PK())
		k.TargetKey = or(r.TargetKey, target.PK())
		k.PivotPrimaryKey = r.PivotPrimaryKey
		k.PivotColumns = r.PivotColumns
	}
	return k
}

func foreignKey(table string) string {
	return singular(table) + "_id"
}

func pivotName(a, b string) string {
	names := []string{singular(a), singular(b)}
	sort.Strings(names)
	return strings.Join(names, "_")
}

func singular(table string) string {
	return strings.ToLower(inflect.Singularize(table))
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
