package core

// ---------- Statement Types ----------
//
// Statement roots are immutable once built. Transforms copy the root struct
// and only the slice they change; every other subtree is shared.

// CTE represents a Common Table Expression.
type CTE struct {
	Name   string
	Select *SelectQuery
}

// WithClause represents a WITH clause with CTEs.
type WithClause struct {
	Recursive bool
	CTEs      []*CTE
}

// SelectQuery represents a SELECT statement.
type SelectQuery struct {
	With       *WithClause
	Distinct   bool
	DistinctOn []Expr
	Columns    []SelectItem
	From       TableRef
	Joins      []*Join
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	OrderBy    []OrderByItem
	Limit      *int
	Offset     *int
}

func (*SelectQuery) node()     {}
func (*SelectQuery) stmtNode() {}

// Clone returns a shallow copy of the root. Slices are shared; callers must
// replace, not append to, a slice they intend to change.
func (s *SelectQuery) Clone() *SelectQuery {
	c := *s
	return &c
}

// WithJoins returns a copy with the join list replaced.
func (s *SelectQuery) WithJoins(joins []*Join) *SelectQuery {
	c := s.Clone()
	c.Joins = joins
	return c
}

// AppendJoins returns a copy with joins added after the existing ones.
func (s *SelectQuery) AppendJoins(joins ...*Join) *SelectQuery {
	next := make([]*Join, 0, len(s.Joins)+len(joins))
	next = append(next, s.Joins...)
	next = append(next, joins...)
	return s.WithJoins(next)
}

// AppendColumns returns a copy with select items added.
func (s *SelectQuery) AppendColumns(items ...SelectItem) *SelectQuery {
	c := s.Clone()
	c.Columns = make([]SelectItem, 0, len(s.Columns)+len(items))
	c.Columns = append(c.Columns, s.Columns...)
	c.Columns = append(c.Columns, items...)
	return c
}

// HasPagination reports whether LIMIT or OFFSET is set.
func (s *SelectQuery) HasPagination() bool {
	return s.Limit != nil || s.Offset != nil
}

// OnConflictAction selects the upsert behavior.
type OnConflictAction int

// OnConflictAction values.
const (
	ConflictDoNothing OnConflictAction = iota
	ConflictDoUpdate
)

// OnConflict describes upsert behavior. An empty Target means the table's
// natural uniqueness (InsertQuery.KeyColumns, or whatever the database picks).
type OnConflict struct {
	Target []string
	Action OnConflictAction
	Set    []Assignment
	Where  Expr
}

// InsertQuery represents an INSERT statement.
type InsertQuery struct {
	Table      *TableName
	Columns    []string
	Rows       [][]Expr
	Select     *SelectQuery // INSERT ... SELECT (mutually exclusive with Rows)
	OnConflict *OnConflict
	KeyColumns []string // the table's natural key, used when OnConflict.Target is empty
	Returning  []SelectItem
}

func (*InsertQuery) node()     {}
func (*InsertQuery) stmtNode() {}

// Clone returns a shallow copy of the root.
func (s *InsertQuery) Clone() *InsertQuery {
	c := *s
	return &c
}

// UpdateQuery represents an UPDATE statement.
type UpdateQuery struct {
	Table     *TableName
	Joins     []*Join
	Set       []Assignment
	Where     Expr
	Returning []SelectItem
}

func (*UpdateQuery) node()     {}
func (*UpdateQuery) stmtNode() {}

// Clone returns a shallow copy of the root.
func (s *UpdateQuery) Clone() *UpdateQuery {
	c := *s
	return &c
}

// DeleteQuery represents a DELETE statement.
type DeleteQuery struct {
	Table     *TableName
	Using     []TableRef
	Joins     []*Join
	Where     Expr
	Returning []SelectItem
}

func (*DeleteQuery) node()     {}
func (*DeleteQuery) stmtNode() {}

// Clone returns a shallow copy of the root.
func (s *DeleteQuery) Clone() *DeleteQuery {
	c := *s
	return &c
}

// ParamDirection is the direction of a stored procedure parameter.
type ParamDirection string

// ParamDirection values.
const (
	ParamIn    ParamDirection = "IN"
	ParamOut   ParamDirection = "OUT"
	ParamInOut ParamDirection = "INOUT"
)

// ProcedureParam is one argument of a stored procedure call.
type ProcedureParam struct {
	Name      string
	Direction ParamDirection
	Value     Expr   // IN and INOUT only
	DbType    string // declared type, required by SQL Server for OUT/INOUT
}

// IsOutput reports whether the parameter returns a value.
func (p ProcedureParam) IsOutput() bool {
	return p.Direction == ParamOut || p.Direction == ParamInOut
}

// ProcedureCall represents a stored procedure invocation.
type ProcedureCall struct {
	Schema string
	Name   string
	Params []ProcedureParam
}

func (*ProcedureCall) node()     {}
func (*ProcedureCall) stmtNode() {}

// CreateIndex represents CREATE [UNIQUE] INDEX, optionally partial.
type CreateIndex struct {
	Name    string
	Table   *TableName
	Columns []string
	Unique  bool
	Where   Expr
}

func (*CreateIndex) node()     {}
func (*CreateIndex) stmtNode() {}
