package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
	sqlitedialect "github.com/leapstack-labs/leapquery/pkg/dialects/sqlite"
	"github.com/leapstack-labs/leapquery/pkg/expr"
	"github.com/leapstack-labs/leapquery/pkg/query"
)

func connect(t *testing.T, path string) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{Path: path}))
	t.Cleanup(func() { _ = adp.Close() })
	require.NoError(t, adp.Exec(context.Background(),
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT)`))
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "in-memory", path: ":memory:"},
		{name: "empty path", path: ""},
		{name: "file-based", path: filepath.Join(t.TempDir(), "test.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := connect(t, tt.path)
			assert.True(t, adp.IsConnected())
		})
	}
}

func TestAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	adp := connect(t, ":memory:")
	users := core.NewTable("users", "id", "name", "email")

	ins, err := query.InsertInto(users).
		Columns("id", "name").
		Values(1, "ada").
		Values(2, "grace").
		Compile(sqlitedialect.SQLite)
	require.NoError(t, err)
	_, err = adp.ExecuteSQL(ctx, ins.SQL, ins.Params)
	require.NoError(t, err)

	sel, err := query.Select(users).
		Columns("id", "name").
		Where(expr.Gt(expr.Col("users", "id"), 1)).
		Compile(sqlitedialect.SQLite)
	require.NoError(t, err)
	sets, err := adp.ExecuteSQL(ctx, sel.SQL, sel.Params)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, []map[string]any{{"id": int64(2), "name": "grace"}}, sets[0].Rows())
}

func TestAdapter_Transactions(t *testing.T) {
	ctx := context.Background()
	adp := connect(t, ":memory:")

	require.NoError(t, adp.BeginTransaction(ctx))
	require.NoError(t, adp.Exec(ctx, `INSERT INTO users (id, name) VALUES (?, ?)`, 1, "ada"))
	require.NoError(t, adp.RollbackTransaction(ctx))

	sets, err := adp.ExecuteSQL(ctx, `SELECT COUNT(*) AS n FROM users`, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sets[0].Values[0][0])
}

func TestAdapter_Inspect(t *testing.T) {
	adp := connect(t, ":memory:")

	def, err := adp.Inspect(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "id", def.PK())
	assert.Equal(t, []core.ColumnDef{
		{Name: "id", Table: "users", Type: "INTEGER", Nullable: true},
		{Name: "name", Table: "users", Type: "TEXT"},
		{Name: "email", Table: "users", Type: "TEXT", Nullable: true},
	}, def.Columns)

	_, err = adp.Inspect(context.Background(), "ghosts")
	assert.EqualError(t, err, "table ghosts not found")
}

func TestAdapter_NotConnected(t *testing.T) {
	_, err := New(nil).Inspect(context.Background(), "users")
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("sqlite")
	require.True(t, ok)
	assert.Equal(t, "sqlite", factory(nil).DialectName())
}
