package core

// ---------- Schema Metadata ----------
//
// Table and relation definitions are produced by an explicit registration
// step (see internal/manifest) before any query is built. The query and
// hydration packages only read them.

// ColumnDef describes a column of a table.
type ColumnDef struct {
	Name     string
	Table    string
	Type     string
	Args     []any
	Nullable bool
}

// TableDef describes a table and its declared relations.
type TableDef struct {
	Name       string
	Schema     string
	PrimaryKey string // defaults to "id"
	Columns    []ColumnDef
	Relations  map[string]RelationDef
}

// NewTable creates a table definition with the given column names.
func NewTable(name string, columns ...string) *TableDef {
	t := &TableDef{
		Name:       name,
		PrimaryKey: "id",
		Relations:  make(map[string]RelationDef),
	}
	for _, c := range columns {
		t.Columns = append(t.Columns, ColumnDef{Name: c, Table: name})
	}
	return t
}

// PK returns the primary key column name.
func (t *TableDef) PK() string {
	if t.PrimaryKey == "" {
		return "id"
	}
	return t.PrimaryKey
}

// Column looks up a column by name.
func (t *TableDef) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// ColumnNames returns the column names in declaration order.
func (t *TableDef) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Relation looks up a declared relation by name.
func (t *TableDef) Relation(name string) (RelationDef, bool) {
	r, ok := t.Relations[name]
	return r, ok
}

// Ref returns an unaliased table reference for the table.
func (t *TableDef) Ref() *TableName {
	return &TableName{Schema: t.Schema, Name: t.Name}
}

// RelationType classifies a relation.
type RelationType string

// RelationType values.
const (
	RelHasOne        RelationType = "hasOne"
	RelHasMany       RelationType = "hasMany"
	RelBelongsTo     RelationType = "belongsTo"
	RelBelongsToMany RelationType = "belongsToMany"
)

// RelationDef is a closed sum of the relation kinds.
type RelationDef interface {
	Type() RelationType
	TargetTable() *TableDef
	relationDef()
}

// HasMany declares a one-to-many relation; ForeignKey lives on the target.
type HasMany struct {
	Target     *TableDef
	ForeignKey string
	LocalKey   string
}

// HasOne declares a one-to-one relation; ForeignKey lives on the target.
type HasOne struct {
	Target     *TableDef
	ForeignKey string
	LocalKey   string
}

// BelongsTo declares the inverse side; ForeignKey lives on the root and
// LocalKey names the referenced column on the target.
type BelongsTo struct {
	Target     *TableDef
	ForeignKey string
	LocalKey   string
}

// BelongsToMany declares a many-to-many relation through a pivot table.
type BelongsToMany struct {
	Target                  *TableDef
	PivotTable              string
	PivotForeignKeyToRoot   string
	PivotForeignKeyToTarget string
	LocalKey                string
	TargetKey               string
	PivotPrimaryKey         string   // identity of a pivot row, if the pivot has one
	PivotColumns            []string // extra pivot columns exposed as _pivot
}

// Type implements RelationDef.
func (HasMany) Type() RelationType { return RelHasMany }

// Type implements RelationDef.
func (HasOne) Type() RelationType { return RelHasOne }

// Type implements RelationDef.
func (BelongsTo) Type() RelationType { return RelBelongsTo }

// Type implements RelationDef.
func (BelongsToMany) Type() RelationType { return RelBelongsToMany }

// TargetTable implements RelationDef.
func (r HasMany) TargetTable() *TableDef { return r.Target }

// TargetTable implements RelationDef.
func (r HasOne) TargetTable() *TableDef { return r.Target }

// TargetTable implements RelationDef.
func (r BelongsTo) TargetTable() *TableDef { return r.Target }

// TargetTable implements RelationDef.
func (r BelongsToMany) TargetTable() *TableDef { return r.Target }

func (HasMany) relationDef()       {}
func (HasOne) relationDef()        {}
func (BelongsTo) relationDef()     {}
func (BelongsToMany) relationDef() {}
