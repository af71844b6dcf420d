package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the registered SQL dialects",
		Long: `List every registered SQL dialect with the syntax it compiles
placeholders, pagination, upserts, procedure calls and RETURNING to.`,
		Example: `  leapquery dialects
  leapquery dialects --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := dialectRows()
			w := cmd.OutOrStdout()
			if GetConfig(cmd.Context()).Output == "json" {
				return renderJSON(w, rows)
			}

			t := newTable(w)
			t.AppendHeader(table.Row{"Name", "Database", "Placeholder", "Pagination", "Upsert", "Procedures", "Returning"})
			for _, r := range rows {
				t.AppendRow(table.Row{r.Name, r.Database, r.Placeholder, r.Pagination, r.Upsert, r.Procedures, r.Returning})
			}
			t.Render()
			return nil
		},
	}
}

type dialectRow struct {
	Name        string `json:"name"`
	Database    string `json:"database"`
	Placeholder string `json:"placeholder"`
	Pagination  string `json:"pagination"`
	Upsert      string `json:"upsert"`
	Procedures  string `json:"procedures"`
	Returning   string `json:"returning"`
}

func dialectRows() []dialectRow {
	titleCaser := cases.Title(language.English)
	title := func(s string) string {
		return titleCaser.String(strings.ReplaceAll(s, "_", " "))
	}

	names := dialect.List()
	rows := make([]dialectRow, 0, len(names))
	for _, name := range names {
		d, ok := dialect.Get(name)
		if !ok {
			continue
		}
		rows = append(rows, dialectRow{
			Name:        d.Name,
			Database:    d.DisplayName(),
			Placeholder: d.FormatPlaceholder(1),
			Pagination:  title(paginationName(d.Pagination)),
			Upsert:      title(upsertName(d.Upsert)),
			Procedures:  title(procedureName(d.Procedures)),
			Returning:   title(returningName(d.Returning)),
		})
	}
	return rows
}

func paginationName(p core.PaginationStyle) string {
	if p == core.PaginateOffsetFetch {
		return "offset_fetch"
	}
	return "limit_offset"
}

func upsertName(u core.UpsertStyle) string {
	switch u {
	case core.UpsertOnDuplicateKey:
		return "on_duplicate_key"
	case core.UpsertMerge:
		return "merge"
	default:
		return "on_conflict"
	}
}

func procedureName(p core.ProcedureStyle) string {
	switch p {
	case core.ProceduresCall:
		return "call"
	case core.ProceduresSessionVars:
		return "session_vars"
	case core.ProceduresExec:
		return "exec"
	default:
		return "none"
	}
}

func returningName(r core.ReturningStyle) string {
	switch r {
	case core.ReturningClause:
		return "returning"
	case core.ReturningOutput:
		return "output"
	default:
		return "none"
	}
}
