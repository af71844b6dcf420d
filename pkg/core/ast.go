package core

// Node is the base interface for all AST nodes.
type Node interface {
	node()
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode() // Marker method to distinguish expressions
}

// Stmt is a marker interface for statement roots.
type Stmt interface {
	Node
	stmtNode() // Marker method to distinguish statements
}

// TableRef is a marker interface for FROM/JOIN sources.
type TableRef interface {
	Node
	tableRefNode() // Marker method to distinguish table sources
}

// Walk visits e and every expression nested inside it in depth-first order.
// Subqueries are not entered. Returning false from fn stops the descent
// into the current node's children.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, child := range children(e) {
		Walk(child, fn)
	}
}

func children(e Expr) []Expr {
	switch x := e.(type) {
	case *BinaryExpr:
		return []Expr{x.Left, x.Right}
	case *LogicalExpr:
		return x.Operands
	case *NotExpr:
		return []Expr{x.Expr}
	case *IsNullExpr:
		return []Expr{x.Expr}
	case *BetweenExpr:
		return []Expr{x.Expr, x.Low, x.High}
	case *FuncCall:
		out := append([]Expr(nil), x.Args...)
		for _, o := range x.OrderBy {
			out = append(out, o.Expr)
		}
		return out
	case *CaseExpr:
		out := []Expr{x.Operand}
		for _, w := range x.Whens {
			out = append(out, w.Condition, w.Result)
		}
		return append(out, x.Else)
	case *CastExpr:
		return []Expr{x.Expr}
	case *WindowExpr:
		out := []Expr{x.Func}
		out = append(out, x.PartitionBy...)
		for _, o := range x.OrderBy {
			out = append(out, o.Expr)
		}
		return out
	case *InExpr:
		return append([]Expr{x.Expr}, x.List...)
	default:
		return nil
	}
}
