package compiler

import (
	"strconv"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

func (p *printer) formatSelect(q *core.SelectQuery) {
	if q == nil {
		p.fail(&core.InvalidOperandError{Builder: "Select", Reason: "nil select"})
		return
	}
	if q.With != nil && len(q.With.CTEs) > 0 {
		p.formatWith(q.With)
	}

	p.write("SELECT ")
	if len(q.DistinctOn) > 0 {
		if !p.dialect.SupportsDistinctOn {
			p.unsupported("DISTINCT ON clauses")
			return
		}
		p.write("DISTINCT ON (")
		p.formatList(len(q.DistinctOn), func(i int) { p.formatExpr(q.DistinctOn[i]) }, ", ")
		p.write(") ")
	} else if q.Distinct {
		p.write("DISTINCT ")
	}
	p.formatSelectItems(q.Columns)

	if q.From != nil {
		p.write(" FROM ")
		p.formatTableRef(q.From)
	}
	p.formatJoins(q.Joins)

	if q.Where != nil {
		p.write(" WHERE ")
		p.formatExpr(q.Where)
	}
	if len(q.GroupBy) > 0 {
		p.write(" GROUP BY ")
		p.formatList(len(q.GroupBy), func(i int) { p.formatExpr(q.GroupBy[i]) }, ", ")
	}
	if q.Having != nil {
		p.write(" HAVING ")
		p.formatExpr(q.Having)
	}
	p.formatOrderAndPagination(q)
}

func (p *printer) formatWith(w *core.WithClause) {
	p.write("WITH ")
	if w.Recursive && p.dialect.RecursiveKeyword {
		p.write("RECURSIVE ")
	}
	p.formatList(len(w.CTEs), func(i int) {
		cte := w.CTEs[i]
		p.ident(cte.Name)
		p.write(" AS ")
		p.formatSubquery(cte.Select)
	}, ", ")
	p.space()
}

func (p *printer) formatSelectItems(items []core.SelectItem) {
	if len(items) == 0 {
		p.write("*")
		return
	}
	p.formatList(len(items), func(i int) {
		item := items[i]
		switch {
		case item.Star:
			p.write("*")
		case item.TableStar != "":
			p.ident(item.TableStar)
			p.write(".*")
		default:
			p.formatExpr(item.Expr)
			if item.Alias != "" {
				p.write(" AS ")
				p.ident(item.Alias)
			}
		}
	}, ", ")
}

func (p *printer) formatTableRef(t core.TableRef) {
	switch src := t.(type) {
	case *core.TableName:
		p.qualified(src.Schema, src.Name)
		if src.Alias != "" {
			p.write(" AS ")
			p.ident(src.Alias)
		}
	case *core.DerivedTable:
		if src.Alias == "" {
			p.fail(&core.InvalidOperandError{Builder: "DerivedTable", Reason: "derived tables require an alias"})
			return
		}
		p.formatSubquery(src.Select)
		p.write(" AS ")
		p.ident(src.Alias)
	case *core.FunctionTable:
		p.write(src.Name)
		p.write("(")
		p.formatList(len(src.Args), func(i int) { p.formatExpr(src.Args[i]) }, ", ")
		p.write(")")
		if src.Alias != "" {
			p.write(" AS ")
			p.ident(src.Alias)
		}
	case *core.BadTable:
		p.fail(src.Err)
	default:
		p.fail(&core.InvalidOperandError{Builder: "From", Reason: "missing table source"})
	}
}

func (p *printer) formatJoins(joins []*core.Join) {
	for _, j := range joins {
		p.space()
		p.formatJoin(j)
	}
}

func (p *printer) formatJoin(j *core.Join) {
	switch j.Kind {
	case core.JoinCross:
		p.write("CROSS JOIN ")
		p.formatTableRef(j.Table)
		return
	case core.JoinFull:
		if !p.dialect.SupportsFullJoin {
			p.unsupported("FULL JOINs")
			return
		}
	case core.JoinInner, core.JoinLeft, core.JoinRight:
	default:
		p.fail(&core.InvalidOperandError{Builder: "Join", Reason: "unknown join kind " + strconv.Quote(string(j.Kind))})
		return
	}
	p.write(string(j.Kind))
	p.write(" JOIN ")
	p.formatTableRef(j.Table)
	if j.Condition == nil {
		p.fail(&core.InvalidOperandError{Builder: "Join", Reason: string(j.Kind) + " JOIN requires a condition"})
		return
	}
	p.write(" ON ")
	p.formatExpr(j.Condition)
}

func (p *printer) formatOrderAndPagination(q *core.SelectQuery) {
	if p.dialect.Pagination == core.PaginateOffsetFetch {
		p.formatOffsetFetch(q)
		return
	}
	if len(q.OrderBy) > 0 {
		p.write(" ORDER BY ")
		p.formatOrderBy(q.OrderBy)
	}
	if q.Limit != nil {
		p.write(" LIMIT ")
		p.write(strconv.Itoa(*q.Limit))
	} else if q.Offset != nil && p.dialect.OffsetOnlyLimit != "" {
		p.write(" LIMIT ")
		p.write(p.dialect.OffsetOnlyLimit)
	}
	if q.Offset != nil {
		p.write(" OFFSET ")
		p.write(strconv.Itoa(*q.Offset))
	}
}

// formatOffsetFetch renders OFFSET m ROWS FETCH NEXT n ROWS ONLY, which is
// only valid after an ORDER BY. An unordered DISTINCT query orders by its
// first column, since ORDER BY items must appear in a DISTINCT select list;
// any other unordered query orders by a constant.
func (p *printer) formatOffsetFetch(q *core.SelectQuery) {
	if len(q.OrderBy) > 0 {
		p.write(" ORDER BY ")
		p.formatOrderBy(q.OrderBy)
	}
	if !q.HasPagination() {
		return
	}
	if len(q.OrderBy) == 0 {
		if q.Distinct || len(q.DistinctOn) > 0 {
			p.write(" ORDER BY 1")
		} else {
			p.write(" ORDER BY (SELECT NULL)")
		}
	}
	offset := 0
	if q.Offset != nil {
		offset = *q.Offset
	}
	p.write(" OFFSET ")
	p.write(strconv.Itoa(offset))
	p.write(" ROWS")
	if q.Limit != nil {
		p.write(" FETCH NEXT ")
		p.write(strconv.Itoa(*q.Limit))
		p.write(" ROWS ONLY")
	}
}
