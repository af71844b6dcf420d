package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/query"
)

// compileOptions holds flags for the compile command.
type compileOptions struct {
	all       bool
	count     bool
	countRows bool
	watch     bool
}

// compiled is one query compiled for one dialect.
type compiled struct {
	Dialect string `json:"dialect"`
	SQL     string `json:"sql,omitempty"`
	Params  []any  `json:"params,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile <query>",
		Short: "Compile a manifest query to SQL",
		Long: `Compile a named query from the manifest to SQL and its bound parameters.

The query is compiled for the configured dialect, or with --all for every
registered dialect. Features a dialect lacks are reported per dialect.`,
		Example: `  # Compile for the configured dialect
  leapquery compile recent_posts

  # Compare every dialect side by side
  leapquery compile recent_posts --all

  # Compile the pagination count query
  leapquery compile recent_posts --count --output sql

  # Recompile whenever the manifest is saved
  leapquery compile recent_posts --all --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Compile for every registered dialect")
	cmd.Flags().BoolVar(&opts.count, "count", false, "Compile the distinct root row count query")
	cmd.Flags().BoolVar(&opts.countRows, "count-rows", false, "Compile the joined row count query")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Recompile whenever the manifest changes")
	cmd.MarkFlagsMutuallyExclusive("count", "count-rows")

	return cmd
}

func runCompile(cmd *cobra.Command, name string, opts *compileOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if !opts.watch {
		return compileOnce(cmd, cc, name, opts)
	}

	// Errors are reported and the watch goes on, so the manifest can be
	// fixed in place.
	recompile := func() {
		if err := compileOnce(cmd, cc, name, opts); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
	recompile()
	return watchFile(commandContext(cmd), cc.Cfg.Manifest, cc.Logger, recompile)
}

func compileOnce(cmd *cobra.Command, cc *CommandContext, name string, opts *compileOptions) error {
	m, err := cc.LoadManifest()
	if err != nil {
		return err
	}
	q, err := m.Query(name)
	if err != nil {
		return err
	}
	switch {
	case opts.count:
		q = q.CountQuery()
	case opts.countRows:
		q = q.CountRowsQuery()
	}

	var results []compiled
	if opts.all {
		results, err = compileAll(cmd.Context(), cc.Logger, q, dialect.List())
		if err != nil {
			return err
		}
	} else {
		c, err := q.Compile(cc.Dialect)
		if err != nil {
			return err
		}
		results = []compiled{{Dialect: cc.Dialect.Name, SQL: c.SQL, Params: c.Params}}
	}

	return renderCompiled(cmd.OutOrStdout(), cc.Cfg.Output, results, opts.all)
}

// compileAll compiles q for every named dialect concurrently. Dialects that
// lack a feature the query uses get an error entry; any other failure
// aborts the whole run.
func compileAll(ctx context.Context, logger *slog.Logger, q query.SelectQuery, names []string) ([]compiled, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]compiled, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := dialect.Resolve(name)
			if err != nil {
				return err
			}
			c, err := q.Compile(d)
			var unsupported *core.UnsupportedFeatureError
			switch {
			case errors.As(err, &unsupported):
				logger.Debug("dialect lacks feature", slog.String("dialect", name), slog.String("feature", unsupported.Feature))
				results[i] = compiled{Dialect: name, Error: err.Error()}
			case err != nil:
				return fmt.Errorf("%s: %w", name, err)
			default:
				results[i] = compiled{Dialect: name, SQL: c.SQL, Params: c.Params}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func renderCompiled(w io.Writer, format string, results []compiled, all bool) error {
	switch format {
	case "json":
		if !all && len(results) == 1 {
			return renderJSON(w, results[0])
		}
		return renderJSON(w, results)
	case "sql":
		for _, r := range results {
			if all {
				_, _ = fmt.Fprintf(w, "-- %s\n", r.Dialect)
			}
			if r.Error != "" {
				_, _ = fmt.Fprintf(w, "-- error: %s\n", r.Error)
				continue
			}
			_, _ = fmt.Fprintf(w, "%s;\n", r.SQL)
			if len(r.Params) > 0 {
				_, _ = fmt.Fprintf(w, "-- params: %s\n", formatParams(r.Params))
			}
		}
		return nil
	default:
		t := newTable(w)
		t.AppendHeader(table.Row{"Dialect", "SQL", "Params"})
		for _, r := range results {
			sql := r.SQL
			if r.Error != "" {
				sql = "error: " + r.Error
			}
			t.AppendRow(table.Row{r.Dialect, sql, formatParams(r.Params)})
		}
		t.Render()
		return nil
	}
}
