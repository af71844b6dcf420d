package sqlite

import (
	"fmt"

	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect.
var SQLite = dialect.New(Config).
	Functions(map[string]dialect.FunctionRenderer{
		"CONCAT":       dialect.RenderConcatOperator,
		"NOW":          dialect.RenderKeyword("CURRENT_TIMESTAMP"),
		"POSITION":     renderInstr,
		"EXTRACT":      renderStrftime,
		"JSON_EXTRACT": renderJSONExtract,
		"STRING_AGG":   dialect.RenderNamed("GROUP_CONCAT"),
	}).
	Aliases(map[string]string{
		"NVL": "COALESCE",
		"LEN": "LENGTH",
	}).
	Build()

// renderInstr renders POSITION(sub, str) as INSTR(str, sub).
func renderInstr(fc dialect.FuncContext) (string, error) {
	if err := dialect.Arity(fc, 2); err != nil {
		return "", err
	}
	str, err := fc.Render(1)
	if err != nil {
		return "", err
	}
	sub, err := fc.Render(0)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INSTR(%s, %s)", str, sub), nil
}

var strftimeFormats = map[string]string{
	"YEAR":   "%Y",
	"MONTH":  "%m",
	"WEEK":   "%W",
	"DAY":    "%d",
	"DOW":    "%w",
	"DOY":    "%j",
	"HOUR":   "%H",
	"MINUTE": "%M",
	"SECOND": "%S",
	"EPOCH":  "%s",
}

// renderStrftime emulates EXTRACT with strftime, which returns text.
func renderStrftime(fc dialect.FuncContext) (string, error) {
	part, err := dialect.ExtractPart(fc)
	if err != nil {
		return "", err
	}
	src, err := fc.Render(1)
	if err != nil {
		return "", err
	}
	if part == "QUARTER" {
		return fmt.Sprintf("((CAST(strftime('%%m', %s) AS INTEGER) + 2) / 3)", src), nil
	}
	format, ok := strftimeFormats[part]
	if !ok {
		return "", fc.Dialect().Unsupported("EXTRACT(" + part + ") calls")
	}
	return fmt.Sprintf("CAST(strftime('%s', %s) AS INTEGER)", format, src), nil
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
	return fmt.Sprintf("json_extract(%s, %s)", doc, fc.Bind(dialect.DollarPath(segments))), nil
}
