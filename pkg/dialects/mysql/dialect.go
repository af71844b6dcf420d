package mysql

import (
	"fmt"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

func init() {
	dialect.Register(MySQL)
}

// MySQL is the MySQL dialect.
var MySQL = dialect.New(Config).
	Functions(map[string]dialect.FunctionRenderer{
		// LENGTH counts bytes in MySQL.
		"LENGTH":       dialect.RenderNamed("CHAR_LENGTH"),
		"EXTRACT":      renderExtract,
		"JSON_EXTRACT": renderJSONExtract,
		"STRING_AGG":   renderGroupConcat,
	}).
	Aliases(map[string]string{
		"NVL":         "COALESCE",
		"LEN":         "LENGTH",
		"CHAR_LENGTH": "LENGTH",
	}).
	Build()

// renderExtract maps the parts MySQL's EXTRACT lacks onto dedicated functions.
func renderExtract(fc dialect.FuncContext) (string, error) {
	part, err := dialect.ExtractPart(fc)
	if err != nil {
		return "", err
	}
	src, err := fc.Render(1)
	if err != nil {
		return "", err
	}
	switch part {
	case "DOW":
		return fmt.Sprintf("(DAYOFWEEK(%s) - 1)", src), nil
	case "DOY":
		return fmt.Sprintf("DAYOFYEAR(%s)", src), nil
	case "EPOCH":
		return fmt.Sprintf("UNIX_TIMESTAMP(%s)", src), nil
	}
	return fmt.Sprintf("EXTRACT(%s FROM %s)", part, src), nil
}

func renderJSONExtract(fc dialect.FuncContext) (string, error) {
	segments, err := dialect.JSONPath(fc)
	if err != nil {
		return "", err
	}
	doc, err := fc.Render(0)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(%s, %s))", doc, fc.Bind(dialect.DollarPath(segments))), nil
}

// renderGroupConcat renders GROUP_CONCAT(expr ORDER BY ... SEPARATOR 'sep').
// The separator must be a literal in MySQL's grammar.
func renderGroupConcat(fc dialect.FuncContext) (string, error) {
	if err := dialect.Arity(fc, 2); err != nil {
		return "", err
	}
	sep, ok := fc.Arg(1).(*core.Literal)
	if !ok {
		return "", &core.InvalidOperandError{Builder: "StringAgg", Reason: "separator must be a literal"}
	}
	sepText, ok := sep.Value.(string)
	if !ok {
		return "", &core.InvalidOperandError{Builder: "StringAgg", Reason: "separator must be a string"}
	}
	val, err := fc.Render(0)
	if err != nil {
		return "", err
	}
	out := "GROUP_CONCAT("
	if fc.Distinct() {
		out += "DISTINCT "
	}
	out += val
	order, err := fc.OrderBy()
	if err != nil {
		return "", err
	}
	if order != "" {
		out += " ORDER BY " + order
	}
	return out + " SEPARATOR " + fc.Dialect().QuoteString(sepText) + ")", nil
}
