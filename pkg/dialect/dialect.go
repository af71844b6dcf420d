// Package dialect provides SQL dialect definitions for the compiler.
//
// A Dialect pairs the pure-data core.DialectConfig with runtime behavior:
// the function renderers that translate canonical function names into the
// dialect's spelling. Concrete dialects are registered from pkg/dialects/*/.
package dialect

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// FuncContext gives a FunctionRenderer access to the call being rendered.
// Arguments are rendered on demand and bind their parameters at that moment,
// so a renderer must render arguments in the order they appear in its output.
type FuncContext interface {
	// Name is the canonical upper-case function name.
	Name() string
	// NumArgs returns the number of arguments.
	NumArgs() int
	// Arg returns the unrendered argument node.
	Arg(i int) core.Expr
	// Render renders argument i.
	Render(i int) (string, error)
	// Args renders all arguments in order.
	Args() ([]string, error)
	// Bind adds v as a parameter and returns its placeholder.
	Bind(v any) string
	// Distinct reports whether the call is an aggregate over DISTINCT values.
	Distinct() bool
	// OrderBy renders the ordered-set ORDER BY list without the keyword, or "".
	OrderBy() (string, error)
	// Dialect returns the dialect being compiled for.
	Dialect() *Dialect
}

// FunctionRenderer renders a function call to SQL text.
type FunctionRenderer func(fc FuncContext) (string, error)

// Dialect represents a SQL dialect.
type Dialect struct {
	core.DialectConfig

	functions map[string]FunctionRenderer
	aliases   map[string]string
}

// Config returns a copy of the pure data configuration for this dialect.
func (d *Dialect) Config() core.DialectConfig {
	return d.DialectConfig
}

// GetName returns the dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// DisplayName returns the name users know the database by.
func (d *Dialect) DisplayName() string {
	return core.DisplayName(d.Name)
}

// Function returns the renderer for a function name. Aliases are resolved
// first, then dialect overrides, then the standard renderers.
func (d *Dialect) Function(name string) (FunctionRenderer, bool) {
	n := d.CanonicalFunction(name)
	if r, ok := d.functions[n]; ok {
		return r, true
	}
	r, ok := standardFunctions[n]
	return r, ok
}

// CanonicalFunction resolves a function alias, e.g. IFNULL to COALESCE.
func (d *Dialect) CanonicalFunction(name string) string {
	n := strings.ToUpper(name)
	if target, ok := d.aliases[n]; ok {
		return target
	}
	return n
}

// Functions returns the names of all functions with a dialect-specific renderer.
func (d *Dialect) Functions() []string {
	names := make([]string, 0, len(d.functions))
	for n := range d.functions {
		names = append(names, n)
	}
	return names
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	case core.PlaceholderAtP:
		return "@p" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., ] -> ]])
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteString renders s as a string literal. Only used where the grammar
// forbids a parameter, such as the MySQL GROUP_CONCAT separator.
func (d *Dialect) QuoteString(s string) string {
	s = strings.ReplaceAll(s, "'", "''")
	if d.BackslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + s + "'"
}

// Unsupported returns the error raised when this dialect lacks a feature.
func (d *Dialect) Unsupported(feature string) error {
	return &core.UnsupportedFeatureError{Dialect: d.Name, Feature: feature}
}

// ---------- Builder ----------

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// New creates a dialect builder from a DialectConfig.
func New(cfg *core.DialectConfig) *Builder {
	return &Builder{
		dialect: &Dialect{
			DialectConfig: *cfg,
			functions:     make(map[string]FunctionRenderer),
			aliases:       make(map[string]string),
		},
	}
}

// Extend starts a builder from a copy of an existing dialect. The original
// is left untouched, so registered dialects can be specialized safely.
func Extend(d *Dialect, name string) *Builder {
	b := New(&d.DialectConfig)
	b.dialect.Name = name
	for n, r := range d.functions {
		b.dialect.functions[n] = r
	}
	for a, t := range d.aliases {
		b.dialect.aliases[a] = t
	}
	return b
}

// RegisterFunction sets the renderer for a canonical function name.
func (b *Builder) RegisterFunction(name string, r FunctionRenderer) *Builder {
	b.dialect.functions[strings.ToUpper(name)] = r
	return b
}

// Functions registers several renderers at once.
func (b *Builder) Functions(renderers map[string]FunctionRenderer) *Builder {
	for name, r := range renderers {
		b.RegisterFunction(name, r)
	}
	return b
}

// Aliases maps alternative function names to canonical ones.
func (b *Builder) Aliases(aliases map[string]string) *Builder {
	for from, to := range aliases {
		b.dialect.aliases[strings.ToUpper(from)] = strings.ToUpper(to)
	}
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
