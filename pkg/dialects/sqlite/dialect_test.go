package sqlite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/pkg/compiler"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/expr"
)

func render(t *testing.T, e core.Expr) (string, []any) {
	t.Helper()
	cq, err := compiler.CompileSelect(&core.SelectQuery{Columns: []core.SelectItem{{Expr: e}}}, SQLite)
	require.NoError(t, err)
	return strings.TrimPrefix(cq.SQL, "SELECT "), cq.Params
}

func TestBuild(t *testing.T) {
	require.NotNil(t, SQLite)
	assert.Equal(t, "sqlite", SQLite.Name)
	assert.Equal(t, "main", SQLite.DefaultSchema)
	assert.Equal(t, "-1", Config.OffsetOnlyLimit)
	assert.Equal(t, core.ProceduresUnsupported, Config.Procedures)
	assert.Equal(t, core.DeleteJoinsUnsupported, Config.DeleteJoins)

	d, ok := dialect.Get("sqlite")
	require.True(t, ok)
	assert.Same(t, SQLite, d)
}

func TestFunctionRendering(t *testing.T) {
	name := expr.Col("users", "name")
	created := expr.Col("users", "created_at")

	tests := []struct {
		name   string
		expr   core.Expr
		sql    string
		params []any
	}{
		{"concat uses the operator", expr.Concat(name, "!"), `("users"."name" || ?)`, []any{"!"}},
		{"now", expr.Now(), `CURRENT_TIMESTAMP`, []any{}},
		{"position swaps arguments", expr.Position("a", name), `INSTR("users"."name", ?)`, []any{"a"}},
		{"extract month", expr.Extract("month", created), `CAST(strftime('%m', "users"."created_at") AS INTEGER)`, []any{}},
		{"extract epoch", expr.Extract("epoch", created), `CAST(strftime('%s', "users"."created_at") AS INTEGER)`, []any{}},
		{"extract quarter", expr.Extract("quarter", created), `((CAST(strftime('%m', "users"."created_at") AS INTEGER) + 2) / 3)`, []any{}},
		{"json extract", expr.JSONExtract(expr.Col("users", "meta"), "tags.0"), `json_extract("users"."meta", ?)`, []any{`$.tags."0"`}},
		{"string agg", expr.StringAgg(name, ","), `GROUP_CONCAT("users"."name", ?)`, []any{","}},
		{"nvl alias", expr.Fn("nvl", name, "x"), `COALESCE("users"."name", ?)`, []any{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params := render(t, tt.expr)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestPositionArgumentsBindInOutputOrder(t *testing.T) {
	sql, params := render(t, expr.Position("needle", "haystack"))
	assert.Equal(t, `INSTR(?, ?)`, sql)
	assert.Equal(t, []any{"haystack", "needle"}, params)
}
