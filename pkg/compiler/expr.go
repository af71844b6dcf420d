package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

func (p *printer) formatExpr(e core.Expr) {
	if e == nil || p.err != nil {
		return
	}

	switch expr := e.(type) {
	case *core.ColumnRef:
		p.formatColumnRef(expr)
	case *core.Literal:
		p.formatLiteral(expr)
	case *core.BinaryExpr:
		p.formatBinaryExpr(expr)
	case *core.LogicalExpr:
		p.formatLogicalExpr(expr)
	case *core.NotExpr:
		p.write("NOT ")
		p.formatParenExpr(expr.Expr)
	case *core.IsNullExpr:
		p.formatOperand(expr.Expr)
		if expr.Not {
			p.write(" IS NOT NULL")
		} else {
			p.write(" IS NULL")
		}
	case *core.BetweenExpr:
		p.formatOperand(expr.Expr)
		if expr.Not {
			p.write(" NOT")
		}
		p.write(" BETWEEN ")
		p.formatOperand(expr.Low)
		p.write(" AND ")
		p.formatOperand(expr.High)
	case *core.FuncCall:
		p.formatFuncCall(expr)
	case *core.WindowExpr:
		p.formatWindowExpr(expr)
	case *core.CaseExpr:
		p.formatCaseExpr(expr)
	case *core.CastExpr:
		p.write("CAST(")
		p.formatExpr(expr.Expr)
		p.write(" AS ")
		p.write(expr.TypeName)
		p.write(")")
	case *core.InExpr:
		p.formatInExpr(expr)
	case *core.ExistsExpr:
		if expr.Not {
			p.write("NOT ")
		}
		p.write("EXISTS ")
		p.formatSubquery(expr.Subquery)
	case *core.SubqueryExpr:
		p.formatSubquery(expr.Select)
	case *core.ExcludedRef:
		if p.excluded == nil {
			p.fail(&core.InvalidOperandError{Builder: "Excluded", Reason: "only valid inside upsert assignments"})
			return
		}
		p.write(p.excluded(expr.Column))
	case *core.KeywordExpr:
		p.write(expr.Word)
	case *core.BadExpr:
		p.fail(expr.Err)
	default:
		p.fail(fmt.Errorf("compile: unsupported expression %T", e))
	}
}

func (p *printer) formatColumnRef(c *core.ColumnRef) {
	if c.Table != "" {
		p.ident(c.Table)
		p.write(".")
	}
	if c.Column == "*" {
		p.write("*")
		return
	}
	p.ident(c.Column)
}

func (p *printer) formatLiteral(l *core.Literal) {
	if !p.inline {
		p.write(p.bind(l.Value))
		return
	}
	p.write(p.inlineLiteral(l.Value))
}

// inlineLiteral renders a value as SQL text. DDL statements cannot carry
// bind parameters, so index predicates are rendered this way.
func (p *printer) inlineLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return p.dialect.QuoteString(x)
	case bool:
		switch {
		case p.dialect.BooleansAsBits && x:
			return "1"
		case p.dialect.BooleansAsBits:
			return "0"
		case x:
			return "TRUE"
		default:
			return "FALSE"
		}
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return p.inlineFloat(float64(x))
	case float64:
		return p.inlineFloat(x)
	case time.Time:
		return p.dialect.QuoteString(x.UTC().Format("2006-01-02 15:04:05.999999"))
	}
	p.fail(&core.InvalidOperandError{Builder: "CreateIndex", Reason: fmt.Sprintf("cannot inline a %T literal", v)})
	return ""
}

func (p *printer) inlineFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		p.fail(&core.InvalidOperandError{Builder: "CreateIndex", Reason: "cannot inline a non-finite number"})
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatOperand renders e, parenthesized when it is itself an operator
// expression, so precedence never depends on the dialect.
func (p *printer) formatOperand(e core.Expr) {
	switch e.(type) {
	case *core.BinaryExpr, *core.LogicalExpr, *core.NotExpr, *core.BetweenExpr,
		*core.InExpr, *core.IsNullExpr, *core.ExistsExpr:
		p.formatParenExpr(e)
	default:
		p.formatExpr(e)
	}
}

func (p *printer) formatParenExpr(e core.Expr) {
	p.write("(")
	p.formatExpr(e)
	p.write(")")
}

func (p *printer) formatBinaryExpr(b *core.BinaryExpr) {
	if b.Op == core.OpILike && !p.dialect.SupportsILike {
		p.write("LOWER(")
		p.formatExpr(b.Left)
		p.write(") LIKE LOWER(")
		p.formatExpr(b.Right)
		p.write(")")
		return
	}
	p.formatOperand(b.Left)
	p.space()
	p.write(string(b.Op))
	p.space()
	p.formatOperand(b.Right)
}

func (p *printer) formatLogicalExpr(l *core.LogicalExpr) {
	switch len(l.Operands) {
	case 0:
		// An empty AND is true, an empty OR is false.
		if l.Op == core.OpAnd {
			p.write("1 = 1")
		} else {
			p.write("1 = 0")
		}
		return
	case 1:
		p.formatExpr(l.Operands[0])
		return
	}
	p.formatList(len(l.Operands), func(i int) {
		if _, nested := l.Operands[i].(*core.LogicalExpr); nested {
			p.formatParenExpr(l.Operands[i])
			return
		}
		p.formatExpr(l.Operands[i])
	}, " "+string(l.Op)+" ")
}

func (p *printer) formatInExpr(in *core.InExpr) {
	if in.Subquery == nil && len(in.List) == 0 {
		// IN () is not valid SQL; an empty list matches nothing.
		if in.Not {
			p.write("1 = 1")
		} else {
			p.write("1 = 0")
		}
		return
	}
	p.formatOperand(in.Expr)
	if in.Not {
		p.write(" NOT")
	}
	p.write(" IN ")
	if in.Subquery != nil {
		p.formatSubquery(in.Subquery)
		return
	}
	p.write("(")
	p.formatList(len(in.List), func(i int) { p.formatExpr(in.List[i]) }, ", ")
	p.write(")")
}

func (p *printer) formatSubquery(q *core.SelectQuery) {
	if q == nil {
		p.fail(&core.InvalidOperandError{Builder: "Subquery", Reason: "nil subquery"})
		return
	}
	p.write("(")
	p.formatSelect(q)
	p.write(")")
}

func (p *printer) formatCaseExpr(c *core.CaseExpr) {
	p.write("CASE")
	if c.Operand != nil {
		p.space()
		p.formatOperand(c.Operand)
	}
	for _, w := range c.Whens {
		p.write(" WHEN ")
		p.formatExpr(w.Condition)
		p.write(" THEN ")
		p.formatExpr(w.Result)
	}
	if c.Else != nil {
		p.write(" ELSE ")
		p.formatExpr(c.Else)
	}
	p.write(" END")
}

func (p *printer) formatFuncCall(fc *core.FuncCall) {
	name := p.dialect.CanonicalFunction(fc.Name)
	if fc.Star {
		p.write(name)
		p.write("(*)")
		return
	}
	render, ok := p.dialect.Function(name)
	if !ok {
		render = dialect.RenderCall
	}
	out, err := render(&funcContext{p: p, call: fc, name: name})
	if err != nil {
		p.fail(err)
		return
	}
	p.write(out)
}

// rankingFunctions need a window ORDER BY on dialects that paginate with
// OFFSET/FETCH.
var rankingFunctions = map[string]bool{
	"ROW_NUMBER": true, "RANK": true, "DENSE_RANK": true, "NTILE": true,
	"LAG": true, "LEAD": true,
}

func (p *printer) formatWindowExpr(w *core.WindowExpr) {
	if w.Func == nil {
		p.fail(&core.InvalidOperandError{Builder: "Over", Reason: "window without a function"})
		return
	}
	p.formatFuncCall(w.Func)
	p.write(" OVER (")
	wrote := false
	if len(w.PartitionBy) > 0 {
		p.write("PARTITION BY ")
		p.formatList(len(w.PartitionBy), func(i int) { p.formatExpr(w.PartitionBy[i]) }, ", ")
		wrote = true
	}
	switch {
	case len(w.OrderBy) > 0:
		if wrote {
			p.space()
		}
		p.write("ORDER BY ")
		p.formatOrderBy(w.OrderBy)
		wrote = true
	case p.dialect.Pagination == core.PaginateOffsetFetch && rankingFunctions[p.dialect.CanonicalFunction(w.Func.Name)]:
		if wrote {
			p.space()
		}
		p.write("ORDER BY (SELECT NULL)")
		wrote = true
	}
	if w.Frame != nil {
		if wrote {
			p.space()
		}
		p.write(string(w.Frame.Type))
		p.write(" BETWEEN ")
		p.formatFrameBound(w.Frame.Start)
		p.write(" AND ")
		p.formatFrameBound(w.Frame.End)
	}
	p.write(")")
}

func (p *printer) formatFrameBound(b core.FrameBound) {
	switch b.Type {
	case core.FramePreceding, core.FrameFollowing:
		p.write(strconv.Itoa(b.Offset))
		p.space()
	}
	p.write(string(b.Type))
}

func (p *printer) formatOrderBy(items []core.OrderByItem) {
	p.formatList(len(items), func(i int) { p.formatOrderByItem(items[i]) }, ", ")
}

func (p *printer) formatOrderByItem(item core.OrderByItem) {
	if item.NullsFirst != nil && !p.dialect.SupportsNullsOrdering {
		// Sort on a null flag first: 0 sorts before 1.
		first, rest := "1", "0"
		if *item.NullsFirst {
			first, rest = "0", "1"
		}
		p.write("CASE WHEN ")
		p.formatOperand(item.Expr)
		p.write(" IS NULL THEN " + first + " ELSE " + rest + " END, ")
		p.formatExpr(item.Expr)
		if item.Desc {
			p.write(" DESC")
		}
		return
	}
	p.formatExpr(item.Expr)
	if item.Desc {
		p.write(" DESC")
	}
	if item.NullsFirst != nil {
		if *item.NullsFirst {
			p.write(" NULLS FIRST")
		} else {
			p.write(" NULLS LAST")
		}
	}
}

// funcContext adapts a printer to dialect.FuncContext.
type funcContext struct {
	p    *printer
	call *core.FuncCall
	name string
}

func (fc *funcContext) Name() string              { return fc.name }
func (fc *funcContext) NumArgs() int              { return len(fc.call.Args) }
func (fc *funcContext) Distinct() bool            { return fc.call.Distinct }
func (fc *funcContext) Dialect() *dialect.Dialect { return fc.p.dialect }
func (fc *funcContext) Bind(v any) string         { return fc.p.bind(v) }

func (fc *funcContext) Arg(i int) core.Expr {
	if i < 0 || i >= len(fc.call.Args) {
		return nil
	}
	return fc.call.Args[i]
}

func (fc *funcContext) Render(i int) (string, error) {
	if i < 0 || i >= len(fc.call.Args) {
		return "", &core.InvalidOperandError{
			Builder: fc.name,
			Reason:  fmt.Sprintf("argument %d out of range", i),
		}
	}
	sub := fc.p.sub()
	sub.formatExpr(fc.call.Args[i])
	return sub.String(), sub.err
}

func (fc *funcContext) Args() ([]string, error) {
	out := make([]string, len(fc.call.Args))
	for i := range fc.call.Args {
		s, err := fc.Render(i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (fc *funcContext) OrderBy() (string, error) {
	if len(fc.call.OrderBy) == 0 {
		return "", nil
	}
	sub := fc.p.sub()
	sub.formatOrderBy(fc.call.OrderBy)
	return strings.TrimSpace(sub.String()), sub.err
}
