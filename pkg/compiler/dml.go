package compiler

import (
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// ---------- INSERT ----------

func (p *printer) formatInsert(q *core.InsertQuery) {
	if q.Table == nil {
		p.fail(&core.InvalidOperandError{Builder: "InsertInto", Reason: "missing target table"})
		return
	}
	for _, row := range q.Rows {
		if len(row) != len(q.Columns) {
			p.fail(&core.InvalidOperandError{Builder: "Values", Reason: "row width does not match the column list"})
			return
		}
	}
	if q.OnConflict != nil && p.dialect.Upsert == core.UpsertMerge {
		p.formatMerge(q)
		return
	}
	if len(q.Returning) > 0 && p.dialect.Returning == core.ReturningUnsupported {
		p.unsupported("RETURNING clauses")
		return
	}

	p.write("INSERT INTO ")
	p.qualified(q.Table.Schema, q.Table.Name)
	if len(q.Columns) > 0 {
		p.write(" (")
		p.identList(q.Columns)
		p.write(")")
	}
	if p.dialect.Returning == core.ReturningOutput {
		p.formatOutput(q.Returning, "INSERTED")
	}
	p.formatInsertSource(q)
	if q.OnConflict != nil {
		p.formatOnConflict(q)
	}
	if p.dialect.Returning == core.ReturningClause {
		p.formatReturning(q.Returning)
	}
}

func (p *printer) formatInsertSource(q *core.InsertQuery) {
	switch {
	case q.Select != nil:
		p.space()
		p.formatSelect(q.Select)
	case len(q.Rows) > 0:
		p.write(" VALUES ")
		p.formatValues(q.Rows)
	case len(q.Columns) == 0 && p.dialect.Upsert == core.UpsertOnDuplicateKey:
		// MySQL has no DEFAULT VALUES.
		p.write(" () VALUES ()")
	case len(q.Columns) == 0:
		p.write(" DEFAULT VALUES")
	default:
		p.fail(&core.InvalidOperandError{Builder: "InsertInto", Reason: "columns without values"})
	}
}

func (p *printer) formatValues(rows [][]core.Expr) {
	p.formatList(len(rows), func(i int) {
		p.write("(")
		p.formatList(len(rows[i]), func(j int) { p.formatExpr(rows[i][j]) }, ", ")
		p.write(")")
	}, ", ")
}

// conflictTarget returns the explicit conflict columns, falling back to the
// table's natural key.
func conflictTarget(q *core.InsertQuery) []string {
	if len(q.OnConflict.Target) > 0 {
		return q.OnConflict.Target
	}
	return q.KeyColumns
}

// upsertAssignments returns the explicit assignments, or one that copies
// every inserted non-key column from the incoming row.
func upsertAssignments(q *core.InsertQuery, keys []string) []core.Assignment {
	if len(q.OnConflict.Set) > 0 {
		return q.OnConflict.Set
	}
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var set []core.Assignment
	for _, c := range q.Columns {
		if !isKey[c] {
			set = append(set, core.Assignment{Column: c, Value: &core.ExcludedRef{Column: c}})
		}
	}
	return set
}

func (p *printer) formatOnConflict(q *core.InsertQuery) {
	switch p.dialect.Upsert {
	case core.UpsertOnConflict:
		p.formatOnConflictClause(q)
	case core.UpsertOnDuplicateKey:
		p.formatOnDuplicateKey(q)
	default:
		p.unsupported("upserts")
	}
}

// formatOnConflictClause renders ON CONFLICT (...) DO UPDATE / DO NOTHING.
func (p *printer) formatOnConflictClause(q *core.InsertQuery) {
	oc := q.OnConflict
	target := conflictTarget(q)
	p.write(" ON CONFLICT")
	if len(target) > 0 {
		p.write(" (")
		p.identList(target)
		p.write(")")
	}
	set := upsertAssignments(q, target)
	if oc.Action == core.ConflictDoNothing || len(set) == 0 {
		p.write(" DO NOTHING")
		return
	}
	if len(target) == 0 {
		p.unsupported("upserts that update without a conflict target")
		return
	}
	p.write(" DO UPDATE SET ")
	p.withExcluded(func(col string) string {
		return "EXCLUDED." + p.dialect.QuoteIdentifier(col)
	}, func() {
		p.formatAssignments(set, "")
		if oc.Where != nil {
			p.write(" WHERE ")
			p.formatExpr(oc.Where)
		}
	})
}

// formatOnDuplicateKey renders ON DUPLICATE KEY UPDATE. MySQL picks the
// violated unique key itself, so the conflict target only matters for
// choosing which columns to leave untouched.
func (p *printer) formatOnDuplicateKey(q *core.InsertQuery) {
	oc := q.OnConflict
	if oc.Where != nil {
		p.unsupported("conditional upserts")
		return
	}
	target := conflictTarget(q)
	set := upsertAssignments(q, target)
	if oc.Action == core.ConflictDoNothing || len(set) == 0 {
		// A self-assignment turns the conflict into a no-op.
		noop := ""
		switch {
		case len(target) > 0:
			noop = target[0]
		case len(q.Columns) > 0:
			noop = q.Columns[0]
		default:
			p.fail(&core.InvalidOperandError{Builder: "OnConflict", Reason: "DO NOTHING needs at least one column"})
			return
		}
		p.write(" ON DUPLICATE KEY UPDATE ")
		p.ident(noop)
		p.write(" = ")
		p.ident(noop)
		return
	}
	p.write(" ON DUPLICATE KEY UPDATE ")
	p.withExcluded(func(col string) string {
		return "VALUES(" + p.dialect.QuoteIdentifier(col) + ")"
	}, func() {
		p.formatAssignments(set, "")
	})
}

// formatMerge renders an upsert as MERGE ... USING (VALUES ...) AS source.
func (p *printer) formatMerge(q *core.InsertQuery) {
	oc := q.OnConflict
	target := conflictTarget(q)
	if len(target) == 0 {
		p.unsupported("upserts without a conflict target or key columns")
		return
	}
	if len(q.Columns) == 0 {
		p.fail(&core.InvalidOperandError{Builder: "OnConflict", Reason: "MERGE needs an explicit column list"})
		return
	}

	p.write("MERGE INTO ")
	p.qualified(q.Table.Schema, q.Table.Name)
	p.write(" USING ")
	switch {
	case q.Select != nil:
		p.formatSubquery(q.Select)
	case len(q.Rows) > 0:
		p.write("(VALUES ")
		p.formatValues(q.Rows)
		p.write(")")
	default:
		p.fail(&core.InvalidOperandError{Builder: "InsertInto", Reason: "columns without values"})
		return
	}
	p.write(" AS ")
	p.ident("source")
	p.write(" (")
	p.identList(q.Columns)
	p.write(") ON ")
	p.formatList(len(target), func(i int) {
		p.qualified("", q.Table.Name)
		p.write(".")
		p.ident(target[i])
		p.write(" = ")
		p.ident("source")
		p.write(".")
		p.ident(target[i])
	}, " AND ")

	source := func(col string) string {
		return p.dialect.QuoteIdentifier("source") + "." + p.dialect.QuoteIdentifier(col)
	}
	set := upsertAssignments(q, target)
	if oc.Action == core.ConflictDoUpdate && len(set) > 0 {
		p.write(" WHEN MATCHED")
		p.withExcluded(source, func() {
			if oc.Where != nil {
				p.write(" AND ")
				p.formatOperand(oc.Where)
			}
			p.write(" THEN UPDATE SET ")
			p.formatAssignments(set, "")
		})
	}
	p.write(" WHEN NOT MATCHED THEN INSERT (")
	p.identList(q.Columns)
	p.write(") VALUES (")
	p.formatList(len(q.Columns), func(i int) { p.write(source(q.Columns[i])) }, ", ")
	p.write(")")
	p.formatOutput(q.Returning, "INSERTED")
	// MERGE must be terminated.
	p.write(";")
}

func (p *printer) withExcluded(render func(string) string, fn func()) {
	prev := p.excluded
	p.excluded = render
	fn()
	p.excluded = prev
}

// formatAssignments renders col = value pairs. qualifier, when set, prefixes
// every target column.
func (p *printer) formatAssignments(set []core.Assignment, qualifier string) {
	p.formatList(len(set), func(i int) {
		if qualifier != "" {
			p.ident(qualifier)
			p.write(".")
		}
		p.ident(set[i].Column)
		p.write(" = ")
		p.formatExpr(set[i].Value)
	}, ", ")
}

// ---------- RETURNING / OUTPUT ----------

func (p *printer) formatReturning(items []core.SelectItem) {
	if len(items) == 0 {
		return
	}
	p.write(" RETURNING ")
	p.formatSelectItems(items)
}

// formatOutput renders SQL Server's OUTPUT clause. Only plain columns and
// stars can be read from the INSERTED/DELETED pseudo tables.
func (p *printer) formatOutput(items []core.SelectItem, pseudo string) {
	if len(items) == 0 {
		return
	}
	p.write(" OUTPUT ")
	p.formatList(len(items), func(i int) {
		item := items[i]
		switch {
		case item.Star, item.TableStar != "":
			p.write(pseudo + ".*")
		default:
			col, ok := item.Expr.(*core.ColumnRef)
			if !ok {
				p.unsupported("computed RETURNING expressions")
				return
			}
			p.write(pseudo + ".")
			p.formatColumnRef(&core.ColumnRef{Column: col.Column})
			if item.Alias != "" {
				p.write(" AS ")
				p.ident(item.Alias)
			}
		}
	}, ", ")
}

// ---------- UPDATE ----------

func (p *printer) formatUpdate(q *core.UpdateQuery) {
	if q.Table == nil {
		p.fail(&core.InvalidOperandError{Builder: "Update", Reason: "missing target table"})
		return
	}
	if len(q.Set) == 0 {
		p.fail(&core.InvalidOperandError{Builder: "Update", Reason: "no assignments"})
		return
	}
	if len(q.Returning) > 0 && p.dialect.Returning == core.ReturningUnsupported {
		p.unsupported("RETURNING clauses")
		return
	}
	// SQL Server cannot alias the target of a plain UPDATE.
	aliased := q.Table.Alias != "" && p.dialect.UpdateJoins == core.UpdateJoinsFromTarget
	if len(q.Joins) == 0 && !aliased {
		p.write("UPDATE ")
		p.formatTableRef(q.Table)
		p.write(" SET ")
		p.formatAssignments(q.Set, "")
		if p.dialect.Returning == core.ReturningOutput {
			p.formatOutput(q.Returning, "INSERTED")
		}
		p.formatWhere(q.Where)
		if p.dialect.Returning == core.ReturningClause {
			p.formatReturning(q.Returning)
		}
		return
	}

	switch p.dialect.UpdateJoins {
	case core.UpdateJoinsFrom:
		// UPDATE t SET ... FROM first [JOIN rest] WHERE first.cond AND where
		first := q.Joins[0]
		if !innerLike(first.Kind) {
			p.unsupported("outer joins in UPDATE statements")
			return
		}
		p.write("UPDATE ")
		p.formatTableRef(q.Table)
		p.write(" SET ")
		p.formatAssignments(q.Set, "")
		p.write(" FROM ")
		p.formatTableRef(first.Table)
		p.formatJoins(q.Joins[1:])
		p.formatWhere(andExprs(first.Condition, q.Where))
		p.formatReturning(q.Returning)
	case core.UpdateJoinsInline:
		// UPDATE t JOIN j ON ... SET t.col = ... WHERE ...
		p.write("UPDATE ")
		p.formatTableRef(q.Table)
		p.formatJoins(q.Joins)
		p.write(" SET ")
		p.formatAssignments(q.Set, core.ExposedName(q.Table))
		p.formatWhere(q.Where)
	case core.UpdateJoinsFromTarget:
		// UPDATE t SET ... OUTPUT ... FROM t JOIN j ON ... WHERE ...
		p.write("UPDATE ")
		p.ident(core.ExposedName(q.Table))
		p.write(" SET ")
		p.formatAssignments(q.Set, "")
		p.formatOutput(q.Returning, "INSERTED")
		p.write(" FROM ")
		p.formatTableRef(q.Table)
		p.formatJoins(q.Joins)
		p.formatWhere(q.Where)
	}
}

// ---------- DELETE ----------

func (p *printer) formatDelete(q *core.DeleteQuery) {
	if q.Table == nil {
		p.fail(&core.InvalidOperandError{Builder: "DeleteFrom", Reason: "missing target table"})
		return
	}
	if len(q.Returning) > 0 && p.dialect.Returning == core.ReturningUnsupported {
		p.unsupported("RETURNING clauses")
		return
	}
	aliased := q.Table.Alias != "" && p.dialect.DeleteJoins == core.DeleteJoinsTarget
	if len(q.Joins) == 0 && len(q.Using) == 0 && !aliased {
		p.write("DELETE FROM ")
		p.formatTableRef(q.Table)
		if p.dialect.Returning == core.ReturningOutput {
			p.formatOutput(q.Returning, "DELETED")
		}
		p.formatWhere(q.Where)
		if p.dialect.Returning == core.ReturningClause {
			p.formatReturning(q.Returning)
		}
		return
	}

	switch p.dialect.DeleteJoins {
	case core.DeleteJoinsUsing:
		// DELETE FROM t USING a, b WHERE join conditions AND where
		conds := make([]core.Expr, 0, len(q.Joins)+1)
		for _, j := range q.Joins {
			if !innerLike(j.Kind) {
				p.unsupported("outer joins in DELETE statements")
				return
			}
			conds = append(conds, j.Condition)
		}
		conds = append(conds, q.Where)
		p.write("DELETE FROM ")
		p.formatTableRef(q.Table)
		p.write(" USING ")
		sources := usingSources(q)
		p.formatList(len(sources), func(i int) { p.formatTableRef(sources[i]) }, ", ")
		p.formatWhere(andExprs(conds...))
		p.formatReturning(q.Returning)
	case core.DeleteJoinsTarget:
		// DELETE t [OUTPUT ...] FROM t[, using] JOIN ... WHERE ...
		p.write("DELETE ")
		p.ident(core.ExposedName(q.Table))
		if p.dialect.Returning == core.ReturningOutput {
			p.formatOutput(q.Returning, "DELETED")
		}
		p.write(" FROM ")
		p.formatTableRef(q.Table)
		for _, u := range q.Using {
			p.write(", ")
			p.formatTableRef(u)
		}
		p.formatJoins(q.Joins)
		p.formatWhere(q.Where)
	default:
		p.unsupported("DELETE statements with joins")
	}
}

func usingSources(q *core.DeleteQuery) []core.TableRef {
	sources := make([]core.TableRef, 0, len(q.Using)+len(q.Joins))
	sources = append(sources, q.Using...)
	for _, j := range q.Joins {
		sources = append(sources, j.Table)
	}
	return sources
}

func (p *printer) formatWhere(where core.Expr) {
	if where == nil {
		return
	}
	p.write(" WHERE ")
	p.formatExpr(where)
}

func innerLike(k core.JoinKind) bool {
	return k == core.JoinInner || k == core.JoinCross
}

// andExprs combines the non-nil operands with AND.
func andExprs(exprs ...core.Expr) core.Expr {
	var ops []core.Expr
	for _, e := range exprs {
		if e != nil {
			ops = append(ops, e)
		}
	}
	switch len(ops) {
	case 0:
		return nil
	case 1:
		return ops[0]
	}
	return &core.LogicalExpr{Op: core.OpAnd, Operands: ops}
}
