package expr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

var (
	funcNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	typeNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*(\(\s*(\d+|MAX|max)\s*(,\s*\d+\s*)?\))?(\[\])?$`)
)

// ExtractParts lists the date parts accepted by Extract.
var ExtractParts = []string{
	"YEAR", "QUARTER", "MONTH", "WEEK", "DAY", "DOW", "DOY",
	"HOUR", "MINUTE", "SECOND", "EPOCH",
}

// Fn calls an arbitrary function. The name is rendered verbatim unless the
// dialect registers a renderer for it.
func Fn(name string, args ...any) core.Expr {
	if !funcNameRe.MatchString(name) {
		return bad("Fn", fmt.Sprintf("invalid function name %q", name), "")
	}
	return call("Fn", strings.ToUpper(name), args...)
}

func call(builder, name string, args ...any) core.Expr {
	fc := &core.FuncCall{Name: name, Args: make([]core.Expr, len(args))}
	for i, a := range args {
		if isList(a) {
			return bad(builder, "list-shaped function argument", "")
		}
		fc.Args[i] = wrap(builder, a, "")
	}
	return fc
}

// CountStar returns COUNT(*).
func CountStar() core.Expr { return &core.FuncCall{Name: "COUNT", Star: true} }

// Count returns COUNT(e).
func Count(e core.Expr) core.Expr { return &core.FuncCall{Name: "COUNT", Args: []core.Expr{e}} }

// CountDistinct returns COUNT(DISTINCT e).
func CountDistinct(e core.Expr) core.Expr {
	return &core.FuncCall{Name: "COUNT", Distinct: true, Args: []core.Expr{e}}
}

// Sum returns SUM(e).
func Sum(e core.Expr) core.Expr { return call("Sum", "SUM", e) }

// Avg returns AVG(e).
func Avg(e core.Expr) core.Expr { return call("Avg", "AVG", e) }

// Min returns MIN(e).
func Min(e core.Expr) core.Expr { return call("Min", "MIN", e) }

// Max returns MAX(e).
func Max(e core.Expr) core.Expr { return call("Max", "MAX", e) }

// Lower returns LOWER(e).
func Lower(e core.Expr) core.Expr { return call("Lower", "LOWER", e) }

// Upper returns UPPER(e).
func Upper(e core.Expr) core.Expr { return call("Upper", "UPPER", e) }

// Length returns the character length of e.
func Length(e core.Expr) core.Expr { return call("Length", "LENGTH", e) }

// Trim strips surrounding whitespace from e.
func Trim(e core.Expr) core.Expr { return call("Trim", "TRIM", e) }

// Concat joins its arguments as text.
func Concat(args ...any) core.Expr {
	if len(args) < 2 {
		return bad("Concat", "at least two arguments are required", "")
	}
	return call("Concat", "CONCAT", args...)
}

// Coalesce returns the first non-null argument.
func Coalesce(args ...any) core.Expr {
	if len(args) == 0 {
		return bad("Coalesce", "at least one argument is required", "")
	}
	return call("Coalesce", "COALESCE", args...)
}

// Now returns the current timestamp.
func Now() core.Expr { return &core.FuncCall{Name: "NOW"} }

// Position returns the 1-based index of substr within str, or 0.
func Position(substr, str any) core.Expr { return call("Position", "POSITION", substr, str) }

// Extract returns a date part of e. part must be one of ExtractParts.
func Extract(part string, e core.Expr) core.Expr {
	p := strings.ToUpper(part)
	for _, ok := range ExtractParts {
		if p == ok {
			return &core.FuncCall{Name: "EXTRACT", Args: []core.Expr{&core.KeywordExpr{Word: p}, e}}
		}
	}
	return bad("Extract", fmt.Sprintf("unknown date part %q", part), "")
}

// JSONExtract reads the text value at a dotted path inside a JSON document.
func JSONExtract(e core.Expr, path string) core.Expr {
	if path == "" {
		return bad("JSONExtract", "empty path", "")
	}
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return bad("JSONExtract", fmt.Sprintf("malformed path %q", path), "")
		}
	}
	return &core.FuncCall{Name: "JSON_EXTRACT", Args: []core.Expr{e, &core.Literal{Value: path}}}
}

// StringAgg concatenates e across a group, separated by sep.
func StringAgg(e core.Expr, sep string, orderBy ...core.OrderByItem) core.Expr {
	return &core.FuncCall{
		Name:    "STRING_AGG",
		Args:    []core.Expr{e, &core.Literal{Value: sep}},
		OrderBy: orderBy,
	}
}

// ValidTypeName reports whether s is safe to splice into SQL as a type name,
// such as VARCHAR(255) or NUMERIC(10, 2).
func ValidTypeName(s string) bool {
	return typeNameRe.MatchString(strings.TrimSpace(s))
}

// Cast converts e to typeName. The type name is validated, not bound.
func Cast(e any, typeName string) core.Expr {
	if !ValidTypeName(typeName) {
		return bad("Cast", fmt.Sprintf("invalid type name %q", typeName), "")
	}
	return &core.CastExpr{Expr: wrap("Cast", e, ""), TypeName: strings.TrimSpace(typeName)}
}

// CaseBuilder accumulates a CASE expression. Each method returns a new builder.
type CaseBuilder struct {
	operand core.Expr
	whens   []core.WhenClause
	els     core.Expr
	err     *core.BadExpr
}

// Case starts a searched CASE, or a simple CASE when an operand is given.
func Case(operand ...core.Expr) CaseBuilder {
	var b CaseBuilder
	switch len(operand) {
	case 0:
	case 1:
		b.operand = operand[0]
	default:
		b.err = bad("Case", "at most one operand is allowed", "")
	}
	return b
}

// When adds a WHEN cond THEN result arm.
func (b CaseBuilder) When(cond core.Expr, result any) CaseBuilder {
	whens := make([]core.WhenClause, len(b.whens), len(b.whens)+1)
	copy(whens, b.whens)
	b.whens = append(whens, core.WhenClause{Condition: cond, Result: wrap("Case", result, "")})
	return b
}

// Else sets the ELSE result.
func (b CaseBuilder) Else(result any) CaseBuilder {
	b.els = wrap("Case", result, "")
	return b
}

// End finishes the expression.
func (b CaseBuilder) End() core.Expr {
	if b.err != nil {
		return b.err
	}
	if len(b.whens) == 0 {
		return bad("Case", "at least one WHEN arm is required", "")
	}
	return &core.CaseExpr{Operand: b.operand, Whens: b.whens, Else: b.els}
}
