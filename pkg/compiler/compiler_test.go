package compiler_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/pkg/compiler"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/dialects/mssql"
	"github.com/leapstack-labs/leapquery/pkg/dialects/mysql"
	"github.com/leapstack-labs/leapquery/pkg/dialects/postgres"
	"github.com/leapstack-labs/leapquery/pkg/dialects/sqlite"
	"github.com/leapstack-labs/leapquery/pkg/expr"
)

var dialects = []*dialect.Dialect{mssql.MSSQL, mysql.MySQL, postgres.Postgres, sqlite.SQLite}

func intPtr(n int) *int { return &n }

func table(name string) *core.TableName { return &core.TableName{Name: name} }

func col(t, c string) core.Expr { return expr.Col(t, c) }

// renderAll compiles stmt for every dialect in a stable, reviewable layout.
func renderAll(stmt core.Stmt) []byte {
	var sb strings.Builder
	for _, d := range dialects {
		fmt.Fprintf(&sb, "-- %s\n", d.Name)
		cq, err := compiler.Compile(stmt, d)
		if err != nil {
			fmt.Fprintf(&sb, "-- error: %v\n", err)
			continue
		}
		fmt.Fprintf(&sb, "%s\n-- params: %v\n", cq.SQL, cq.Params)
	}
	return []byte(sb.String())
}

func postsJoinUsers() *core.Join {
	return &core.Join{
		Kind:      core.JoinInner,
		Table:     table("users"),
		Condition: expr.Eq(col("users", "id"), col("posts", "user_id")),
	}
}

func TestCompileGolden(t *testing.T) {
	tests := []struct {
		name string
		stmt core.Stmt
	}{
		{
			name: "select_filtered",
			stmt: &core.SelectQuery{
				Columns: []core.SelectItem{{Expr: col("users", "id")}, {Expr: col("users", "name")}},
				From:    table("users"),
				Where:   expr.And(expr.Eq(col("users", "name"), "ada"), expr.Gt(col("users", "age"), 30)),
				OrderBy: []core.OrderByItem{expr.Desc(col("users", "id"))},
				Limit:   intPtr(10),
				Offset:  intPtr(20),
			},
		},
		{
			name: "select_offset_only",
			stmt: &core.SelectQuery{From: table("posts"), Offset: intPtr(5)},
		},
		{
			name: "select_ilike_nulls_last",
			stmt: &core.SelectQuery{
				From:    table("users"),
				Where:   expr.ILike(col("users", "name"), "a%"),
				OrderBy: []core.OrderByItem{{Expr: col("users", "bio"), NullsFirst: new(bool)}},
			},
		},
		{
			name: "select_distinct_on",
			stmt: &core.SelectQuery{
				DistinctOn: []core.Expr{col("users", "name")},
				From:       table("users"),
				OrderBy:    []core.OrderByItem{expr.Asc(col("users", "name"))},
			},
		},
		{
			name: "select_in_not_exists",
			stmt: &core.SelectQuery{
				From: table("users"),
				Where: expr.And(
					expr.InList(col("users", "id"), []int{1, 2, 3}),
					expr.NotExists(&core.SelectQuery{
						From:  table("bans"),
						Where: expr.Eq(col("bans", "user_id"), col("users", "id")),
					}),
				),
			},
		},
		{
			name: "select_recursive_cte",
			stmt: &core.SelectQuery{
				With: &core.WithClause{
					Recursive: true,
					CTEs: []*core.CTE{{
						Name:   "recent",
						Select: &core.SelectQuery{From: table("posts"), Where: expr.Gt(col("posts", "id"), 10)},
					}},
				},
				From: table("recent"),
			},
		},
		{
			name: "select_windows",
			stmt: &core.SelectQuery{
				Columns: []core.SelectItem{
					{Expr: col("posts", "id")},
					{Expr: expr.Over(expr.RowNumber()).PartitionBy(col("posts", "user_id")).End(), Alias: "rn"},
					{
						Expr: expr.Over(expr.Sum(col("posts", "views"))).
							OrderBy(expr.Asc(col("posts", "id"))).
							Rows(expr.UnboundedPreceding, expr.CurrentRow).
							End(),
						Alias: "running",
					},
				},
				From: table("posts"),
			},
		},
		{
			name: "select_functions",
			stmt: &core.SelectQuery{
				Columns: []core.SelectItem{
					{Expr: expr.Length(col("users", "name")), Alias: "len"},
					{Expr: expr.Extract("dow", col("users", "created_at")), Alias: "dow"},
					{Expr: expr.JSONExtract(col("users", "meta"), "address.city"), Alias: "city"},
					{Expr: expr.Now(), Alias: "now"},
				},
				From: table("users"),
			},
		},
		{
			name: "select_string_agg",
			stmt: &core.SelectQuery{
				Columns: []core.SelectItem{
					{Expr: col("posts", "user_id")},
					{Expr: expr.StringAgg(col("posts", "title"), "|", expr.Asc(col("posts", "title"))), Alias: "titles"},
				},
				From:    table("posts"),
				GroupBy: []core.Expr{col("posts", "user_id")},
			},
		},
		{
			name: "insert_upsert",
			stmt: &core.InsertQuery{
				Table:      table("users"),
				Columns:    []string{"id", "name", "email"},
				Rows:       [][]core.Expr{{expr.Val(1), expr.Val("ada"), expr.Val("ada@example.com")}},
				OnConflict: &core.OnConflict{Target: []string{"id"}, Action: core.ConflictDoUpdate},
			},
		},
		{
			name: "insert_returning",
			stmt: &core.InsertQuery{
				Table:     table("users"),
				Columns:   []string{"name"},
				Rows:      [][]core.Expr{{expr.Val("ada")}},
				Returning: []core.SelectItem{{Expr: expr.Column("id")}},
			},
		},
		{
			name: "update_join",
			stmt: &core.UpdateQuery{
				Table: table("posts"),
				Joins: []*core.Join{postsJoinUsers()},
				Set:   []core.Assignment{{Column: "title", Value: expr.Val("hidden")}},
				Where: expr.Eq(col("users", "name"), "spam"),
			},
		},
		{
			name: "delete_join",
			stmt: &core.DeleteQuery{
				Table: table("posts"),
				Joins: []*core.Join{postsJoinUsers()},
				Where: expr.Eq(col("users", "name"), "spam"),
			},
		},
		{
			name: "procedure_out_param",
			stmt: &core.ProcedureCall{
				Name: "transfer",
				Params: []core.ProcedureParam{
					{Name: "from_id", Direction: core.ParamIn, Value: expr.Val(1)},
					{Name: "amount", Direction: core.ParamIn, Value: expr.Val(50)},
					{Name: "balance", Direction: core.ParamOut, DbType: "DECIMAL(10, 2)"},
				},
			},
		},
		{
			name: "create_partial_index",
			stmt: &core.CreateIndex{
				Name:    "users_active_email",
				Table:   table("users"),
				Columns: []string{"email"},
				Unique:  true,
				Where:   expr.Eq(expr.Column("active"), true),
			},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, renderAll(tt.stmt))
		})
	}
}

func TestCompileRequiresDialect(t *testing.T) {
	_, err := compiler.Compile(&core.SelectQuery{From: table("users")}, nil)
	assert.ErrorIs(t, err, dialect.ErrDialectRequired)

	_, err = compiler.Compile(nil, postgres.Postgres)
	assert.Error(t, err)
}

func TestCompileParamsMatchPlaceholders(t *testing.T) {
	q := &core.SelectQuery{
		From: table("users"),
		Where: expr.Or(
			expr.Eq(col("users", "name"), "ada"),
			expr.And(expr.Gte(col("users", "age"), 18), expr.Lt(col("users", "age"), 65)),
		),
	}

	cq, err := compiler.CompileSelect(q, postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" WHERE "users"."name" = $1 OR ("users"."age" >= $2 AND "users"."age" < $3)`, cq.SQL)
	assert.Equal(t, []any{"ada", 18, 65}, cq.Params)

	cq, err = compiler.CompileSelect(q, mssql.MSSQL)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(cq.SQL, "@p"))
	assert.Contains(t, cq.SQL, "@p3")
}

func TestCompileEmptyLists(t *testing.T) {
	q := &core.SelectQuery{
		From: table("users"),
		Where: expr.And(
			expr.InList(col("users", "id"), []int{}),
			expr.NotInList(col("users", "id"), []string{}),
		),
	}
	sql, err := compiler.CompileSelect(q, sqlite.SQLite)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users" WHERE 1 = 0 AND 1 = 1`, sql.SQL)
	assert.Empty(t, sql.Params)
}

func TestCompileUnsupportedFeatures(t *testing.T) {
	fullJoin := &core.SelectQuery{
		From: table("posts"),
		Joins: []*core.Join{{
			Kind:      core.JoinFull,
			Table:     table("users"),
			Condition: expr.Eq(col("users", "id"), col("posts", "user_id")),
		}},
	}
	proc := &core.ProcedureCall{Name: "refresh"}

	tests := []struct {
		name    string
		stmt    core.Stmt
		d       *dialect.Dialect
		message string
	}{
		{"full join on mysql", fullJoin, mysql.MySQL, "FULL JOINs are not supported by the MySQL dialect"},
		{"procedures on sqlite", proc, sqlite.SQLite, "stored procedures are not supported by the SQLite dialect"},
		{
			"conditional upsert on mysql",
			&core.InsertQuery{
				Table:   table("users"),
				Columns: []string{"id", "name"},
				Rows:    [][]core.Expr{{expr.Val(1), expr.Val("ada")}},
				OnConflict: &core.OnConflict{
					Target: []string{"id"},
					Action: core.ConflictDoUpdate,
					Where:  expr.Eq(col("users", "locked"), false),
				},
			},
			mysql.MySQL,
			"conditional upserts are not supported by the MySQL dialect",
		},
		{
			"computed output on mssql",
			&core.DeleteQuery{
				Table:     table("users"),
				Returning: []core.SelectItem{{Expr: expr.Lower(col("users", "name"))}},
			},
			mssql.MSSQL,
			"computed RETURNING expressions are not supported by the SQL Server dialect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compiler.Compile(tt.stmt, tt.d)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrUnsupportedFeature))
			assert.EqualError(t, err, tt.message)

			var fe *core.UnsupportedFeatureError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.d.Name, fe.Dialect)
		})
	}
}

func TestCompileReportsBadExpressions(t *testing.T) {
	q := &core.SelectQuery{
		From:  table("users"),
		Where: expr.Eq(col("users", "id"), []int{1, 2}),
	}
	_, err := compiler.CompileSelect(q, postgres.Postgres)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidOperand)
	assert.Contains(t, err.Error(), "use InList for list comparisons")
}

func TestCompileReportsBadTables(t *testing.T) {
	q := &core.SelectQuery{From: &core.BadTable{Err: core.ErrUnknownRelation}}
	_, err := compiler.CompileSelect(q, postgres.Postgres)
	assert.ErrorIs(t, err, core.ErrUnknownRelation)
}

func TestCompileExcludedOutsideUpsert(t *testing.T) {
	q := &core.UpdateQuery{
		Table: table("users"),
		Set:   []core.Assignment{{Column: "name", Value: expr.Excluded("name")}},
	}
	_, err := compiler.CompileUpdate(q, postgres.Postgres)
	assert.ErrorIs(t, err, core.ErrInvalidOperand)
}

func TestCompileProcedureOutParams(t *testing.T) {
	call := &core.ProcedureCall{
		Name: "bump",
		Params: []core.ProcedureParam{
			{Name: "counter", Direction: core.ParamInOut, Value: expr.Val(1), DbType: "INT"},
		},
	}

	tests := []struct {
		d      *dialect.Dialect
		sql    string
		source core.OutParamSource
	}{
		{postgres.Postgres, `CALL "bump"($1)`, core.FirstResultSet},
		{mysql.MySQL, "SET @_p_counter = ?; CALL `bump`(@_p_counter); SELECT @_p_counter AS `counter`", core.LastResultSet},
		{mssql.MSSQL, "DECLARE @_p_counter INT = @p1; EXEC [bump] @counter = @_p_counter OUTPUT; SELECT @_p_counter AS [counter];", core.LastResultSet},
	}

	for _, tt := range tests {
		t.Run(tt.d.Name, func(t *testing.T) {
			cq, err := compiler.Compile(call, tt.d)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, cq.SQL)
			assert.Equal(t, []any{1}, cq.Params)
			require.NotNil(t, cq.OutParams)
			assert.Equal(t, tt.source, cq.OutParams.Source)
			assert.Equal(t, []string{"counter"}, cq.OutParams.Names)
		})
	}
}

func TestCompileMissingDbType(t *testing.T) {
	call := &core.ProcedureCall{
		Name:   "bump",
		Params: []core.ProcedureParam{{Name: "counter", Direction: core.ParamOut}},
	}
	_, err := compiler.Compile(call, mssql.MSSQL)
	assert.ErrorIs(t, err, core.ErrMissingDbType)

	_, err = compiler.Compile(call, postgres.Postgres)
	assert.NoError(t, err, "only SQL Server needs declared output types")
}

func TestCompileUpsertDoNothing(t *testing.T) {
	q := &core.InsertQuery{
		Table:      table("tags"),
		Columns:    []string{"name"},
		Rows:       [][]core.Expr{{expr.Val("go")}, {expr.Val("sql")}},
		OnConflict: &core.OnConflict{Target: []string{"name"}, Action: core.ConflictDoNothing},
	}

	tests := []struct {
		d   *dialect.Dialect
		sql string
	}{
		{postgres.Postgres, `INSERT INTO "tags" ("name") VALUES ($1), ($2) ON CONFLICT ("name") DO NOTHING`},
		{mysql.MySQL, "INSERT INTO `tags` (`name`) VALUES (?), (?) ON DUPLICATE KEY UPDATE `name` = `name`"},
		{mssql.MSSQL, "MERGE INTO [tags] USING (VALUES (@p1), (@p2)) AS [source] ([name]) ON [tags].[name] = [source].[name] WHEN NOT MATCHED THEN INSERT ([name]) VALUES ([source].[name]);"},
	}

	for _, tt := range tests {
		t.Run(tt.d.Name, func(t *testing.T) {
			cq, err := compiler.CompileInsert(q, tt.d)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, cq.SQL)
			assert.Equal(t, []any{"go", "sql"}, cq.Params)
		})
	}
}

func TestCompileIsRepeatable(t *testing.T) {
	q := &core.SelectQuery{From: table("users"), Where: expr.Eq(col("users", "id"), 1)}
	first, err := compiler.CompileSelect(q, postgres.Postgres)
	require.NoError(t, err)
	second, err := compiler.CompileSelect(q, postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
