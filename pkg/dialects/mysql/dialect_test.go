package mysql

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

func render(t *testing.T, e core.Expr) (string, []any, error) {
	t.Helper()
	cq, err := compiler.CompileSelect(&core.SelectQuery{Columns: []core.SelectItem{{Expr: e}}}, MySQL)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimPrefix(cq.SQL, "SELECT "), cq.Params, nil
}

func TestBuild(t *testing.T) {
	require.NotNil(t, MySQL)
	assert.Equal(t, "mysql", MySQL.Name)
	assert.Equal(t, "MySQL", MySQL.DisplayName())
	assert.Equal(t, "?", MySQL.FormatPlaceholder(4))
	assert.False(t, Config.SupportsDistinctOn)
	assert.False(t, Config.SupportsFullJoin)
	assert.Equal(t, core.ProceduresSessionVars, Config.Procedures)
	assert.Equal(t, core.ReturningUnsupported, Config.Returning)

	d, ok := dialect.Get("MySQL")
	require.True(t, ok)
	assert.Same(t, MySQL, d)
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
		{"length counts characters", expr.Length(name), "CHAR_LENGTH(`users`.`name`)", []any{}},
		{"char_length alias", expr.Fn("char_length", name), "CHAR_LENGTH(`users`.`name`)", []any{}},
		{"extract year", expr.Extract("year", created), "EXTRACT(YEAR FROM `users`.`created_at`)", []any{}},
		{"extract dow", expr.Extract("dow", created), "(DAYOFWEEK(`users`.`created_at`) - 1)", []any{}},
		{"extract doy", expr.Extract("doy", created), "DAYOFYEAR(`users`.`created_at`)", []any{}},
		{"extract epoch", expr.Extract("epoch", created), "UNIX_TIMESTAMP(`users`.`created_at`)", []any{}},
		{
			"json extract",
			expr.JSONExtract(expr.Col("users", "meta"), "first name"),
			"JSON_UNQUOTE(JSON_EXTRACT(`users`.`meta`, ?))",
			[]any{`$."first name"`},
		},
		{
			"group concat separator is inlined",
			expr.StringAgg(name, `a'b\`),
			"GROUP_CONCAT(`users`.`name` SEPARATOR 'a''b\\\\')",
			[]any{},
		},
		{"position", expr.Position("x", name), "POSITION(? IN `users`.`name`)", []any{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := render(t, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestStringAggRequiresLiteralSeparator(t *testing.T) {
	agg := &core.FuncCall{
		Name: "STRING_AGG",
		Args: []core.Expr{expr.Col("users", "name"), expr.Col("users", "sep")},
	}
	_, _, err := render(t, agg)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidOperand)
	assert.Contains(t, err.Error(), "separator must be a literal")
}

func TestILikeLowersBothSides(t *testing.T) {
	sql, params, err := render(t, expr.ILike(expr.Col("users", "name"), "A%"))
	require.NoError(t, err)
	assert.Equal(t, "LOWER(`users`.`name`) LIKE LOWER(?)", sql)
	assert.Equal(t, []any{"A%"}, params)
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, "`we``ird`", MySQL.QuoteIdentifier("we`ird"))
	assert.Equal(t, `'a\\b'`, MySQL.QuoteString(`a\b`))
}
