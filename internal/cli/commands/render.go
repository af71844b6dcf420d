package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/leapquery/pkg/hydrate"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderEntities prints hydrated entities as a table. Root columns come
// first in plan order, then one column per relation holding its JSON.
func renderEntities(w io.Writer, entities []hydrate.Entity, plan *hydrate.Plan) error {
	if len(entities) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	cols := entityColumns(entities, plan)
	t := newTable(w)
	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, e := range entities {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = formatValue(e[c])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(entities))
	return nil
}

func entityColumns(entities []hydrate.Entity, plan *hydrate.Plan) []string {
	var relations []string
	if plan != nil {
		for _, rp := range plan.Relations {
			relations = append(relations, rp.Name)
		}
	}

	var cols []string
	if plan != nil && len(plan.RootColumns) > 0 {
		cols = append(cols, plan.RootColumns...)
	} else {
		for k := range entities[0] {
			if !slices.Contains(relations, k) {
				cols = append(cols, k)
			}
		}
		sort.Strings(cols)
	}
	return append(cols, relations...)
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case hydrate.Entity, []hydrate.Entity:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatParams(params []any) string {
	parts := make([]string, len(params))
	for i, p := range params {
		switch p := p.(type) {
		case string:
			parts[i] = fmt.Sprintf("%q", p)
		default:
			parts[i] = formatValue(p)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
