package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapquery/internal/state"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/hydrate"
	"github.com/leapstack-labs/leapquery/pkg/session"
)

// runOptions holds flags for the run command.
type runOptions struct {
	page int
	size int
}

// pagedResult is the JSON shape of a paged run.
type pagedResult struct {
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	Total      int64            `json:"total"`
	TotalPages int              `json:"total_pages"`
	Rows       []hydrate.Entity `json:"rows"`
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Run a manifest query against the configured target",
		Long: `Run a named query from the manifest against the target database and
print the hydrated rows. Included relations are nested under their names.

With --page the distinct root rows are counted first and only that page is
fetched.`,
		Example: `  leapquery run active_authors
  leapquery run recent_posts --page 2 --size 20 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.page, "page", 0, "Page number, starting at 1 (0 fetches every row)")
	cmd.Flags().IntVar(&opts.size, "size", 20, "Rows per page")

	return cmd
}

func runQuery(cmd *cobra.Command, name string, opts *runOptions) (err error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	m, err := cc.LoadManifest()
	if err != nil {
		return err
	}
	q, err := m.Query(name)
	if err != nil {
		return err
	}
	plan, err := q.HydrationPlan()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	sess, closeFn, err := openSession(ctx, cc)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeFn()) }()

	run := &state.Run{
		Query:     name,
		Dialect:   sess.Dialect().Name,
		Target:    cc.Cfg.Target.Type,
		Page:      opts.page,
		StartedAt: time.Now(),
	}
	run.SQL, _ = q.ToSQL(sess.Dialect())
	defer func() { recordRun(ctx, cc, run, err) }()

	w := cmd.OutOrStdout()
	if opts.page > 0 {
		page, err := sess.ExecutePaged(ctx, q, opts.page, opts.size)
		if err != nil {
			return err
		}
		run.Rows = len(page.Entities)
		run.Duration = time.Since(run.StartedAt)
		if cc.Cfg.Output == "json" {
			return renderJSON(w, pagedResult{
				Page:       page.Page,
				PageSize:   page.PageSize,
				Total:      page.Total,
				TotalPages: page.TotalPages,
				Rows:       page.Entities,
			})
		}
		if err := renderEntities(w, page.Entities, plan); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "page %d of %d (%d total)\n", page.Page, page.TotalPages, page.Total)
		return nil
	}

	entities, err := sess.FindMany(ctx, q)
	if err != nil {
		return err
	}
	run.Rows = len(entities)
	run.Duration = time.Since(run.StartedAt)
	if cc.Cfg.Output == "json" {
		if entities == nil {
			entities = []hydrate.Entity{}
		}
		return renderJSON(w, entities)
	}
	return renderEntities(w, entities, plan)
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <table>",
		Short: "Show a table's columns as the target database reports them",
		Long: `Read a table's columns from the target database catalog. The output
can be compared with the manifest's declaration of the same table.`,
		Example: `  leapquery inspect users
  leapquery inspect billing.invoices --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			a, err := connect(ctx, cc)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			def, err := a.Inspect(ctx, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if cc.Cfg.Output == "json" {
				return renderJSON(w, def)
			}
			t := newTable(w)
			t.AppendHeader(table.Row{"Column", "Type", "Nullable"})
			for _, c := range def.Columns {
				t.AppendRow(table.Row{c.Name, c.Type, c.Nullable})
			}
			t.Render()
			return nil
		},
	}
}

// connect opens the configured target adapter.
func connect(ctx context.Context, cc *CommandContext) (adapter.Adapter, error) {
	if cc.Cfg.Target == nil {
		return nil, fmt.Errorf("no target configured\nHint: add a target section to leapquery.yaml")
	}
	cfg := cc.Cfg.Target.AdapterConfig()
	a, err := adapter.NewAdapter(cfg, cc.Logger)
	if err != nil {
		return nil, err
	}
	cc.Logger.Debug("connecting to target", slog.String("type", cfg.Type))
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// openSession connects the target and opens a session in the adapter's
// dialect. The returned function closes the connection.
func openSession(ctx context.Context, cc *CommandContext) (*session.Session, func() error, error) {
	a, err := connect(ctx, cc)
	if err != nil {
		return nil, nil, err
	}
	d, err := dialect.Resolve(a.DialectName())
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	if d.Name != cc.Dialect.Name {
		cc.Logger.Warn("configured dialect differs from the target's; using the target's",
			slog.String("configured", cc.Dialect.Name), slog.String("target", d.Name))
	}
	sess, err := session.New(a, d, session.WithLogger(cc.Logger))
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return sess, a.Close, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
