package dialect

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// ---------- Standard Function Renderers ----------
// Stateless renderers that concrete dialects compose. Calls without a
// registered renderer fall back to RenderCall.

var standardFunctions = map[string]FunctionRenderer{
	"POSITION": RenderPosition,
	"EXTRACT":  RenderExtract,
}

// RenderCall renders NAME([DISTINCT ]args[ ORDER BY ...]) using the
// canonical name.
func RenderCall(fc FuncContext) (string, error) {
	return RenderNamed(fc.Name())(fc)
}

// RenderNamed renders the call under a different function name.
func RenderNamed(name string) FunctionRenderer {
	return func(fc FuncContext) (string, error) {
		args, err := fc.Args()
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		sb.WriteString(name)
		sb.WriteByte('(')
		if fc.Distinct() {
			sb.WriteString("DISTINCT ")
		}
		sb.WriteString(strings.Join(args, ", "))
		order, err := fc.OrderBy()
		if err != nil {
			return "", err
		}
		if order != "" {
			sb.WriteString(" ORDER BY ")
			sb.WriteString(order)
		}
		sb.WriteByte(')')
		return sb.String(), nil
	}
}

// RenderKeyword renders a function that takes no parentheses, such as
// CURRENT_TIMESTAMP.
func RenderKeyword(word string) FunctionRenderer {
	return func(FuncContext) (string, error) {
		return word, nil
	}
}

// RenderPosition renders POSITION(substr IN str).
func RenderPosition(fc FuncContext) (string, error) {
	if err := Arity(fc, 2); err != nil {
		return "", err
	}
	sub, err := fc.Render(0)
	if err != nil {
		return "", err
	}
	str, err := fc.Render(1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("POSITION(%s IN %s)", sub, str), nil
}

// RenderExtract renders EXTRACT(part FROM source).
func RenderExtract(fc FuncContext) (string, error) {
	part, err := ExtractPart(fc)
	if err != nil {
		return "", err
	}
	src, err := fc.Render(1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EXTRACT(%s FROM %s)", part, src), nil
}

// RenderConcatOperator renders CONCAT(a, b, ...) as (a || b || ...).
func RenderConcatOperator(fc FuncContext) (string, error) {
	args, err := fc.Args()
	if err != nil {
		return "", err
	}
	return "(" + strings.Join(args, " || ") + ")", nil
}

// ExtractPart returns the validated date part of an EXTRACT call.
func ExtractPart(fc FuncContext) (string, error) {
	if err := Arity(fc, 2); err != nil {
		return "", err
	}
	kw, ok := fc.Arg(0).(*core.KeywordExpr)
	if !ok {
		return "", &core.InvalidOperandError{Builder: "Extract", Reason: "date part must be a keyword"}
	}
	return kw.Word, nil
}

// JSONPath returns the dotted path argument of a JSON_EXTRACT call.
func JSONPath(fc FuncContext) ([]string, error) {
	if err := Arity(fc, 2); err != nil {
		return nil, err
	}
	lit, ok := fc.Arg(1).(*core.Literal)
	if !ok {
		return nil, &core.InvalidOperandError{Builder: "JSONExtract", Reason: "path must be a literal"}
	}
	path, ok := lit.Value.(string)
	if !ok {
		return nil, &core.InvalidOperandError{Builder: "JSONExtract", Reason: "path must be a string"}
	}
	return strings.Split(path, "."), nil
}

// DollarPath converts path segments into a $.a.b style JSON path.
// Segments that are not plain identifiers are double-quoted.
func DollarPath(segments []string) string {
	var sb strings.Builder
	sb.WriteByte('$')
	for _, seg := range segments {
		sb.WriteByte('.')
		if plainSegment(seg) {
			sb.WriteString(seg)
			continue
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(seg, `"`, `\"`))
		sb.WriteByte('"')
	}
	return sb.String()
}

func plainSegment(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}

// Arity returns an error unless the call has exactly n arguments.
func Arity(fc FuncContext, n int) error {
	if fc.NumArgs() != n {
		return &core.InvalidOperandError{
			Builder: fc.Name(),
			Reason:  fmt.Sprintf("expected %d arguments, got %d", n, fc.NumArgs()),
		}
	}
	return nil
}
