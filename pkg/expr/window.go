package expr

import "github.com/leapstack-labs/leapquery/pkg/core"

// WindowBuilder accumulates an OVER clause. Each method returns a new builder.
type WindowBuilder struct {
	fn          core.Expr
	partitionBy []core.Expr
	orderBy     []core.OrderByItem
	frame       *core.FrameSpec
}

// Over applies a window to fn, which must be a function call.
func Over(fn core.Expr) WindowBuilder {
	return WindowBuilder{fn: fn}
}

// PartitionBy sets the PARTITION BY list.
func (w WindowBuilder) PartitionBy(exprs ...core.Expr) WindowBuilder {
	w.partitionBy = append([]core.Expr(nil), exprs...)
	return w
}

// OrderBy sets the window ORDER BY list.
func (w WindowBuilder) OrderBy(items ...core.OrderByItem) WindowBuilder {
	w.orderBy = append([]core.OrderByItem(nil), items...)
	return w
}

// Rows sets a ROWS BETWEEN start AND end frame.
func (w WindowBuilder) Rows(start, end core.FrameBound) WindowBuilder {
	w.frame = &core.FrameSpec{Type: core.FrameRows, Start: start, End: end}
	return w
}

// Range sets a RANGE BETWEEN start AND end frame.
func (w WindowBuilder) Range(start, end core.FrameBound) WindowBuilder {
	w.frame = &core.FrameSpec{Type: core.FrameRange, Start: start, End: end}
	return w
}

// End finishes the window expression.
func (w WindowBuilder) End() core.Expr {
	fc, ok := w.fn.(*core.FuncCall)
	if !ok {
		if b, isBad := w.fn.(*core.BadExpr); isBad {
			return b
		}
		return bad("Over", "window target must be a function call", "")
	}
	if w.frame != nil && len(w.orderBy) == 0 && w.frame.Type == core.FrameRange {
		return bad("Over", "RANGE frames require an ORDER BY", "")
	}
	return &core.WindowExpr{Func: fc, PartitionBy: w.partitionBy, OrderBy: w.orderBy, Frame: w.frame}
}

// RowNumber returns ROW_NUMBER().
func RowNumber() core.Expr { return &core.FuncCall{Name: "ROW_NUMBER"} }

// Rank returns RANK().
func Rank() core.Expr { return &core.FuncCall{Name: "RANK"} }

// DenseRank returns DENSE_RANK().
func DenseRank() core.Expr { return &core.FuncCall{Name: "DENSE_RANK"} }

// Lag returns LAG(e, offset).
func Lag(e core.Expr, offset int) core.Expr { return call("Lag", "LAG", e, offset) }

// Lead returns LEAD(e, offset).
func Lead(e core.Expr, offset int) core.Expr { return call("Lead", "LEAD", e, offset) }

// Frame bounds.
var (
	UnboundedPreceding = core.FrameBound{Type: core.FrameUnboundedPreceding}
	UnboundedFollowing = core.FrameBound{Type: core.FrameUnboundedFollowing}
	CurrentRow         = core.FrameBound{Type: core.FrameCurrentRow}
)

// Preceding returns an n PRECEDING bound.
func Preceding(n int) core.FrameBound { return core.FrameBound{Type: core.FramePreceding, Offset: n} }

// Following returns an n FOLLOWING bound.
func Following(n int) core.FrameBound { return core.FrameBound{Type: core.FrameFollowing, Offset: n} }
