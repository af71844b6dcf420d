//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/leapstack-labs/leapquery/internal/testutil"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
	pgdialect "github.com/leapstack-labs/leapquery/pkg/dialects/postgres"
	"github.com/leapstack-labs/leapquery/pkg/expr"
	"github.com/leapstack-labs/leapquery/pkg/query"
	"github.com/leapstack-labs/leapquery/pkg/session"
)

const fixtureSQL = `
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL REFERENCES users(id), title TEXT NOT NULL);
INSERT INTO users VALUES (1, 'ada'), (2, 'grace');
INSERT INTO posts VALUES (10, 1, 'engines'), (11, 1, 'notes'), (12, 1, 'tables');
CREATE PROCEDURE close_month(IN month INTEGER, OUT total INTEGER, INOUT note TEXT)
LANGUAGE plpgsql AS $$
BEGIN
	total := month * 6;
	note := note || ' closed';
END;
$$;
`

func startPostgres(t *testing.T) adapter.Config {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("leapquery"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return adapter.Config{
		Type:     "postgres",
		Host:     host,
		Port:     port.Int(),
		Database: "leapquery",
		Username: "test",
		Password: "test",
	}
}

func TestIntegration_Postgres(t *testing.T) {
	ctx := context.Background()
	cfg := startPostgres(t)

	adp, err := adapter.NewAdapter(cfg, testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, adp.Connect(ctx, cfg))
	t.Cleanup(func() { _ = adp.Close() })

	pg, ok := adp.(*Adapter)
	require.True(t, ok)
	require.NoError(t, pg.Exec(ctx, fixtureSQL))

	users, err := adp.Inspect(ctx, "users")
	require.NoError(t, err)
	posts, err := adp.Inspect(ctx, "posts")
	require.NoError(t, err)
	users.Relations["posts"] = core.HasMany{Target: posts}

	s, err := session.New(adp, pgdialect.Postgres, session.WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)

	q := query.Select(users).
		Include("posts").
		Where(expr.Eq(expr.Col("users", "id"), 1)).
		OrderBy(expr.Asc(expr.Col("posts", "id")))

	t.Run("count ignores fan-out", func(t *testing.T) {
		n, err := s.Count(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = s.CountRows(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("hydrates", func(t *testing.T) {
		entities, err := s.FindMany(ctx, q)
		require.NoError(t, err)
		require.Len(t, entities, 1)
		assert.Equal(t, "ada", entities[0]["name"])
		assert.Len(t, entities[0]["posts"], 3)
	})

	t.Run("procedure output parameters", func(t *testing.T) {
		res, err := s.Call(ctx, query.CallProcedure("close_month").
			In("month", 7).
			Out("total", "INTEGER").
			InOut("note", "march", "TEXT"))
		require.NoError(t, err)
		assert.EqualValues(t, 42, res.Out["total"])
		assert.Equal(t, "march closed", res.Out["note"])
	})

	t.Run("transaction rollback", func(t *testing.T) {
		err := s.Transaction(ctx, func(ctx context.Context) error {
			_, err := s.Execute(ctx, query.DeleteFrom(posts).Where(expr.Eq(expr.Col("posts", "user_id"), 1)))
			require.NoError(t, err)
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		n, err := s.CountRows(ctx, query.Select(posts))
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}
