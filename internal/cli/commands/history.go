package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapquery/internal/state"
)

// historyOptions holds flags for the history command.
type historyOptions struct {
	limit int
	prune int
}

// historyEntry is the JSON shape of a recorded run.
type historyEntry struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	Dialect    string    `json:"dialect"`
	Target     string    `json:"target"`
	Page       int       `json:"page,omitempty"`
	Rows       int       `json:"rows"`
	DurationMs int64     `json:"duration_ms"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	SQL        string    `json:"sql"`
	StartedAt  time.Time `json:"started_at"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history [query]",
		Short: "Show recently executed queries",
		Long: `List the runs recorded by the run command, newest first. Each entry
holds the compiled SQL, the row count, the duration and the outcome.

Pass a query name to show only its runs. Recording is disabled by setting
history to an empty string in leapquery.yaml.`,
		Example: `  leapquery history
  leapquery history users_with_posts --limit 5 --output json
  leapquery history --prune 100`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if cc.Cfg.History == "" {
				return fmt.Errorf("run history is disabled\nHint: set history in leapquery.yaml")
			}
			store, err := state.OpenAndMigrate(cc.Cfg.History, cc.Logger)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, store.Close()) }()

			ctx := commandContext(cmd)
			w := cmd.OutOrStdout()
			if opts.prune > 0 {
				n, err := store.PruneRuns(ctx, opts.prune)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "pruned %d runs\n", n)
				return nil
			}

			var name string
			if len(args) == 1 {
				name = args[0]
			}
			runs, err := store.ListRuns(ctx, name, opts.limit)
			if err != nil {
				return err
			}
			return renderHistory(w, cc.Cfg.Output, runs)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Number of runs to show (0 shows all)")
	cmd.Flags().IntVar(&opts.prune, "prune", 0, "Delete all but the newest N runs")

	return cmd
}

// recordRun stores a finished run. History is best effort: a failure is
// logged and never fails the command.
func recordRun(ctx context.Context, cc *CommandContext, run *state.Run, runErr error) {
	if cc.Cfg.History == "" {
		return
	}
	run.Status = state.RunStatusSuccess
	if runErr != nil {
		run.Status = state.RunStatusFailed
		run.Error = runErr.Error()
	}
	if run.Duration == 0 {
		run.Duration = time.Since(run.StartedAt)
	}

	store, err := state.OpenAndMigrate(cc.Cfg.History, cc.Logger)
	if err != nil {
		cc.Logger.Warn("failed to open run history", slog.String("path", cc.Cfg.History), slog.String("error", err.Error()))
		return
	}
	defer func() { _ = store.Close() }()

	// Record even when the command was cancelled.
	if err := store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		cc.Logger.Warn("failed to record run", slog.String("query", run.Query), slog.String("error", err.Error()))
	}
}

func renderHistory(w io.Writer, format string, runs []*state.Run) error {
	if format == "json" {
		entries := make([]historyEntry, 0, len(runs))
		for _, r := range runs {
			entries = append(entries, historyEntry{
				ID:         r.ID,
				Query:      r.Query,
				Dialect:    r.Dialect,
				Target:     r.Target,
				Page:       r.Page,
				Rows:       r.Rows,
				DurationMs: r.Duration.Milliseconds(),
				Status:     string(r.Status),
				Error:      r.Error,
				SQL:        r.SQL,
				StartedAt:  r.StartedAt,
			})
		}
		return renderJSON(w, entries)
	}

	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "(no runs recorded)")
		return nil
	}

	if format == "sql" {
		for _, r := range runs {
			_, _ = fmt.Fprintf(w, "-- %s %s\n%s;\n", r.Query, r.StartedAt.Local().Format(time.DateTime), r.SQL)
		}
		return nil
	}

	renderer := lipgloss.NewRenderer(w)
	ok := renderer.NewStyle().Foreground(lipgloss.Color("2"))
	failed := renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

	t := newTable(w)
	t.AppendHeader(table.Row{"Started", "Query", "Dialect", "Rows", "Duration", "Status"})
	for _, r := range runs {
		status := ok.Render(string(r.Status))
		if r.Status == state.RunStatusFailed {
			status = failed.Render(string(r.Status)) + ": " + truncateOneLine(r.Error, 60)
		}
		t.AppendRow(table.Row{
			r.StartedAt.Local().Format(time.DateTime),
			r.Query,
			r.Dialect,
			r.Rows,
			r.Duration.Round(time.Millisecond).String(),
			status,
		})
	}
	t.Render()
	return nil
}

func truncateOneLine(s string, maxLen int) string {
	runes := []rune(s)
	for i, r := range runes {
		if r == '\n' {
			runes[i] = ' '
		}
	}
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-3]) + "..."
}
