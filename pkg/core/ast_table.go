package core

// ---------- Table Reference Types ----------

// TableName represents a table name reference.
type TableName struct {
	Schema string
	Name   string
	Alias  string
}

func (*TableName) node()         {}
func (*TableName) tableRefNode() {}

// DerivedTable represents a subquery in FROM clause. Alias is required.
type DerivedTable struct {
	Select *SelectQuery
	Alias  string
}

func (*DerivedTable) node()         {}
func (*DerivedTable) tableRefNode() {}

// FunctionTable represents a table-valued function call in FROM clause.
type FunctionTable struct {
	Name  string
	Args  []Expr
	Alias string
}

func (*FunctionTable) node()         {}
func (*FunctionTable) tableRefNode() {}

// BadTable stands in for a table source whose construction failed, such as
// a derived table over a query with errors. Builders report Err when they
// receive it.
type BadTable struct {
	Err error
}

func (*BadTable) node()         {}
func (*BadTable) tableRefNode() {}

// ExposedName returns the name by which a source is referenced elsewhere in
// the statement: its alias if present, otherwise its base name.
func ExposedName(t TableRef) string {
	switch src := t.(type) {
	case *TableName:
		if src.Alias != "" {
			return src.Alias
		}
		return src.Name
	case *DerivedTable:
		return src.Alias
	case *FunctionTable:
		if src.Alias != "" {
			return src.Alias
		}
		return src.Name
	default:
		return ""
	}
}

// JoinKind represents the type of join.
type JoinKind string

// Join kinds.
const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
	JoinFull  JoinKind = "FULL"
	JoinCross JoinKind = "CROSS"
)

// Stronger reports whether k filters at least as strictly as other.
// INNER is the strongest kind; outer kinds are equal to each other.
func (k JoinKind) Stronger(other JoinKind) bool {
	return k == JoinInner && other != JoinInner
}

// JoinMeta links a join back to the relation it was generated for.
type JoinMeta struct {
	RelationName string
	Pivot        bool // the root→pivot hop of a many-to-many relation
	Filter       Expr // caller filter as given, before table remapping
}

// Join represents a JOIN clause.
type Join struct {
	Kind      JoinKind
	Table     TableRef
	Condition Expr
	Meta      *JoinMeta
}

// RelationName returns the relation this join was generated for, if any.
func (j *Join) RelationName() string {
	if j == nil || j.Meta == nil {
		return ""
	}
	return j.Meta.RelationName
}
