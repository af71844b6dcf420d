// Package compiler renders query ASTs to dialect-specific SQL text with
// ordered bound parameters.
//
// Compilation is pure: it reads immutable AST nodes and a dialect and
// produces a fresh core.CompiledQuery. Capability gaps in the dialect are
// reported as errors, never silently dropped.
package compiler

import (
	"bytes"
	"fmt"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// Compile renders any statement root.
func Compile(stmt core.Stmt, d *dialect.Dialect) (*core.CompiledQuery, error) {
	if d == nil {
		return nil, dialect.ErrDialectRequired
	}
	p := newPrinter(d)
	switch s := stmt.(type) {
	case *core.SelectQuery:
		p.formatSelect(s)
	case *core.InsertQuery:
		p.formatInsert(s)
	case *core.UpdateQuery:
		p.formatUpdate(s)
	case *core.DeleteQuery:
		p.formatDelete(s)
	case *core.ProcedureCall:
		p.formatProcedure(s)
	case *core.CreateIndex:
		p.formatCreateIndex(s)
	case nil:
		return nil, fmt.Errorf("compile: nil statement")
	default:
		return nil, fmt.Errorf("compile: unsupported statement %T", stmt)
	}
	if p.err != nil {
		return nil, p.err
	}
	return &core.CompiledQuery{SQL: p.String(), Params: *p.params, OutParams: p.outParams}, nil
}

// CompileSelect renders a SELECT statement.
func CompileSelect(q *core.SelectQuery, d *dialect.Dialect) (*core.CompiledQuery, error) {
	return Compile(q, d)
}

// CompileInsert renders an INSERT statement, including upserts.
func CompileInsert(q *core.InsertQuery, d *dialect.Dialect) (*core.CompiledQuery, error) {
	return Compile(q, d)
}

// CompileUpdate renders an UPDATE statement.
func CompileUpdate(q *core.UpdateQuery, d *dialect.Dialect) (*core.CompiledQuery, error) {
	return Compile(q, d)
}

// CompileDelete renders a DELETE statement.
func CompileDelete(q *core.DeleteQuery, d *dialect.Dialect) (*core.CompiledQuery, error) {
	return Compile(q, d)
}

// printer accumulates SQL text. The first error sticks; later writes are
// ignored so format methods need not check errors after every call.
type printer struct {
	dialect *dialect.Dialect
	output  *bytes.Buffer
	params  *[]any
	err     error

	// excluded renders ExcludedRef inside upsert assignments; nil elsewhere.
	excluded func(column string) string
	// inline renders literals as SQL text instead of parameters (DDL).
	inline bool

	outParams *core.OutParams
}

func newPrinter(d *dialect.Dialect) *printer {
	params := make([]any, 0)
	return &printer{
		dialect: d,
		output:  &bytes.Buffer{},
		params:  &params,
	}
}

// sub returns a printer writing to a fresh buffer that shares parameters
// and context with p.
func (p *printer) sub() *printer {
	return &printer{
		dialect:  p.dialect,
		output:   &bytes.Buffer{},
		params:   p.params,
		excluded: p.excluded,
		inline:   p.inline,
	}
}

// String returns the rendered SQL.
func (p *printer) String() string {
	return p.output.String()
}

func (p *printer) write(s string) {
	if p.err != nil {
		return
	}
	p.output.WriteString(s)
}

func (p *printer) space() {
	p.write(" ")
}

func (p *printer) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *printer) unsupported(feature string) {
	p.fail(p.dialect.Unsupported(feature))
}

// bind appends a parameter and returns its placeholder.
func (p *printer) bind(v any) string {
	*p.params = append(*p.params, v)
	return p.dialect.FormatPlaceholder(len(*p.params))
}

func (p *printer) ident(name string) {
	p.write(p.dialect.QuoteIdentifier(name))
}

// qualified writes schema.name with each part quoted.
func (p *printer) qualified(schema, name string) {
	if schema != "" {
		p.ident(schema)
		p.write(".")
	}
	p.ident(name)
}

// formatList prints count items separated by sep.
func (p *printer) formatList(count int, format func(i int), sep string) {
	for i := 0; i < count; i++ {
		if i > 0 {
			p.write(sep)
		}
		format(i)
	}
}

func (p *printer) identList(names []string) {
	p.formatList(len(names), func(i int) { p.ident(names[i]) }, ", ")
}
