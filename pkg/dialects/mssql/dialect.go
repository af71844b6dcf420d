package mssql

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

func init() {
	dialect.Register(MSSQL)
}

// MSSQL is the SQL Server dialect.
var MSSQL = dialect.New(Config).
	Functions(map[string]dialect.FunctionRenderer{
		"LENGTH":       dialect.RenderNamed("LEN"),
		"NOW":          dialect.RenderNamed("SYSDATETIME"),
		"POSITION":     dialect.RenderNamed("CHARINDEX"),
		"EXTRACT":      renderDatePart,
		"JSON_EXTRACT": renderJSONValue,
		"STRING_AGG":   renderStringAgg,
	}).
	Aliases(map[string]string{
		"IFNULL": "COALESCE",
		"NVL":    "COALESCE",
		"LEN":    "LENGTH",
	}).
	Build()

var dateParts = map[string]string{
	"YEAR":    "year",
	"QUARTER": "quarter",
	"MONTH":   "month",
	"WEEK":    "week",
	"DAY":     "day",
	"DOY":     "dayofyear",
	"HOUR":    "hour",
	"MINUTE":  "minute",
	"SECOND":  "second",
}

func renderDatePart(fc dialect.FuncContext) (string, error) {
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
		// DATEPART(weekday) depends on DATEFIRST; this form is 0 for Sunday regardless.
		return fmt.Sprintf("((DATEPART(weekday, %s) + @@DATEFIRST - 1) %% 7)", src), nil
	case "EPOCH":
		return fmt.Sprintf("DATEDIFF_BIG(second, '1970-01-01', %s)", src), nil
	}
	return fmt.Sprintf("DATEPART(%s, %s)", dateParts[part], src), nil
}

func renderJSONValue(fc dialect.FuncContext) (string, error) {
	segments, err := dialect.JSONPath(fc)
	if err != nil {
		return "", err
	}
	doc, err := fc.Render(0)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("JSON_VALUE(%s, %s)", doc, fc.Bind(dialect.DollarPath(segments))), nil
}

// renderStringAgg moves the ordering into WITHIN GROUP.
func renderStringAgg(fc dialect.FuncContext) (string, error) {
	if fc.Distinct() {
		return "", fc.Dialect().Unsupported("DISTINCT STRING_AGG calls")
	}
	args, err := fc.Args()
	if err != nil {
		return "", err
	}
	out := "STRING_AGG(" + strings.Join(args, ", ") + ")"
	order, err := fc.OrderBy()
	if err != nil {
		return "", err
	}
	if order != "" {
		out += " WITHIN GROUP (ORDER BY " + order + ")"
	}
	return out, nil
}
