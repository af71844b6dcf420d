package core

// ---------- Expression Types ----------

// ColumnRef represents a column reference (possibly qualified).
type ColumnRef struct {
	Table  string // optional table/alias qualifier
	Column string
}

func (*ColumnRef) node()     {}
func (*ColumnRef) exprNode() {}

// Literal represents a bound value. Literals are always rendered as
// parameters, never interpolated into the SQL text.
type Literal struct {
	Value any
}

func (*Literal) node()     {}
func (*Literal) exprNode() {}

// BinaryOp is a binary comparison or arithmetic operator.
type BinaryOp string

// BinaryOp constants.
const (
	OpEq      BinaryOp = "="
	OpNe      BinaryOp = "<>"
	OpGt      BinaryOp = ">"
	OpGte     BinaryOp = ">="
	OpLt      BinaryOp = "<"
	OpLte     BinaryOp = "<="
	OpLike    BinaryOp = "LIKE"
	OpNotLike BinaryOp = "NOT LIKE"
	OpILike   BinaryOp = "ILIKE"
	OpAdd     BinaryOp = "+"
	OpSub     BinaryOp = "-"
	OpMul     BinaryOp = "*"
	OpDiv     BinaryOp = "/"
)

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	Left  Expr
	Op    BinaryOp
	Right Expr
}

func (*BinaryExpr) node()     {}
func (*BinaryExpr) exprNode() {}

// LogicalOp combines boolean operands.
type LogicalOp string

// LogicalOp constants.
const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
)

// LogicalExpr is an n-ary AND/OR.
type LogicalExpr struct {
	Op       LogicalOp
	Operands []Expr
}

func (*LogicalExpr) node()     {}
func (*LogicalExpr) exprNode() {}

// NotExpr negates a boolean expression.
type NotExpr struct {
	Expr Expr
}

func (*NotExpr) node()     {}
func (*NotExpr) exprNode() {}

// IsNullExpr represents IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

func (*IsNullExpr) node()     {}
func (*IsNullExpr) exprNode() {}

// BetweenExpr represents [NOT] BETWEEN.
type BetweenExpr struct {
	Expr Expr
	Low  Expr
	High Expr
	Not  bool
}

func (*BetweenExpr) node()     {}
func (*BetweenExpr) exprNode() {}

// FuncCall represents a function call. Name is the canonical (upper-case)
// function name; dialects may render it differently.
type FuncCall struct {
	Name     string
	Distinct bool
	Args     []Expr
	Star     bool          // COUNT(*)
	OrderBy  []OrderByItem // ordered-set aggregates (STRING_AGG ... ORDER BY)
}

func (*FuncCall) node()     {}
func (*FuncCall) exprNode() {}

// WindowExpr applies an OVER clause to a function.
type WindowExpr struct {
	Func        *FuncCall
	PartitionBy []Expr
	OrderBy     []OrderByItem
	Frame       *FrameSpec
}

func (*WindowExpr) node()     {}
func (*WindowExpr) exprNode() {}

// FrameSpec represents a window frame specification.
type FrameSpec struct {
	Type  FrameType
	Start FrameBound
	End   FrameBound
}

// FrameType represents the type of window frame.
type FrameType string

// FrameType constants for window frame specification types.
const (
	FrameRows  FrameType = "ROWS"
	FrameRange FrameType = "RANGE"
)

// FrameBound represents a window frame bound.
type FrameBound struct {
	Type   FrameBoundType
	Offset int // for N PRECEDING/FOLLOWING
}

// FrameBoundType represents the type of frame bound.
type FrameBoundType string

// FrameBoundType constants for window frame bound types.
const (
	FrameUnboundedPreceding FrameBoundType = "UNBOUNDED PRECEDING"
	FrameUnboundedFollowing FrameBoundType = "UNBOUNDED FOLLOWING"
	FrameCurrentRow         FrameBoundType = "CURRENT ROW"
	FramePreceding          FrameBoundType = "PRECEDING"
	FrameFollowing          FrameBoundType = "FOLLOWING"
)

// CaseExpr represents a CASE expression.
type CaseExpr struct {
	Operand Expr // CASE operand WHEN... (optional)
	Whens   []WhenClause
	Else    Expr
}

func (*CaseExpr) node()     {}
func (*CaseExpr) exprNode() {}

// WhenClause represents a WHEN clause in CASE expression.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr represents a CAST expression.
type CastExpr struct {
	Expr     Expr
	TypeName string
}

func (*CastExpr) node()     {}
func (*CastExpr) exprNode() {}

// InExpr represents [NOT] IN with either a value list or a subquery.
type InExpr struct {
	Expr     Expr
	List     []Expr
	Subquery *SelectQuery
	Not      bool
}

func (*InExpr) node()     {}
func (*InExpr) exprNode() {}

// ExistsExpr represents [NOT] EXISTS (subquery).
type ExistsExpr struct {
	Subquery *SelectQuery
	Not      bool
}

func (*ExistsExpr) node()     {}
func (*ExistsExpr) exprNode() {}

// SubqueryExpr is a scalar subquery.
type SubqueryExpr struct {
	Select *SelectQuery
}

func (*SubqueryExpr) node()     {}
func (*SubqueryExpr) exprNode() {}

// ExcludedRef references the incoming value of a column inside an upsert's
// update assignments (EXCLUDED.col, VALUES(col), source.col).
type ExcludedRef struct {
	Column string
}

func (*ExcludedRef) node()     {}
func (*ExcludedRef) exprNode() {}

// KeywordExpr is a bare SQL keyword, such as the field of EXTRACT.
// Builders validate the word before constructing it.
type KeywordExpr struct {
	Word string
}

func (*KeywordExpr) node()     {}
func (*KeywordExpr) exprNode() {}

// BadExpr is the result of a rejected construction. It carries the error
// so that chained builders can surface it before compilation.
type BadExpr struct {
	Err error
}

func (*BadExpr) node()     {}
func (*BadExpr) exprNode() {}

// OrderByItem represents an item in ORDER BY clause.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool // nil means default, true = NULLS FIRST, false = NULLS LAST
}

// SelectItem represents an item in the SELECT list.
type SelectItem struct {
	Star      bool   // SELECT *
	TableStar string // SELECT t.*
	Expr      Expr
	Alias     string
}

// Assignment is a single SET target = value.
type Assignment struct {
	Column string
	Value  Expr
}
