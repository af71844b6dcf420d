package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialects/mssql"
	"github.com/leapstack-labs/leapquery/pkg/dialects/mysql"
	"github.com/leapstack-labs/leapquery/pkg/dialects/postgres"
	"github.com/leapstack-labs/leapquery/pkg/dialects/sqlite"
	"github.com/leapstack-labs/leapquery/pkg/expr"
)

func TestInsert(t *testing.T) {
	tb := fixture()
	q := InsertInto(tb.users).Columns("id", "name").Values(1, "ada").Values(2, "grace")

	c, err := q.Compile(postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("id", "name") VALUES ($1, $2), ($3, $4)`, c.SQL)
	assert.Equal(t, []any{1, "ada", 2, "grace"}, c.Params)
}

func TestInsertRecordSortsColumns(t *testing.T) {
	tb := fixture()
	q := InsertInto(tb.users).
		Record(map[string]any{"name": "ada", "id": 1}).
		Record(map[string]any{"id": 2, "name": "grace"})

	c, err := q.Compile(mysql.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `users` (`id`, `name`) VALUES (?, ?), (?, ?)", c.SQL)
	assert.Equal(t, []any{1, "ada", 2, "grace"}, c.Params)

	bad := q.Record(map[string]any{"id": 3})
	assert.ErrorIs(t, bad.Err(), core.ErrInvalidOperand)
}

func TestInsertValueCount(t *testing.T) {
	tb := fixture()
	q := InsertInto(tb.users).Columns("id", "name").Values(1)
	require.ErrorIs(t, q.Err(), core.ErrInvalidOperand)
	assert.ErrorContains(t, q.Err(), "got 1 values for 2 columns")
}

func TestUpsertPerDialect(t *testing.T) {
	tb := fixture()
	q := InsertInto(tb.users).Columns("id", "name").Values(1, "ada").OnConflict().DoUpdate()

	tests := []struct {
		name string
		want string
	}{
		{"postgres", `INSERT INTO "users" ("id", "name") VALUES ($1, $2) ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name"`},
		{"sqlite", `INSERT INTO "users" ("id", "name") VALUES (?, ?) ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name"`},
		{"mysql", "INSERT INTO `users` (`id`, `name`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `name` = VALUES(`name`)"},
		{"mssql", `MERGE INTO [users] USING (VALUES (@p1, @p2)) AS [source] ([id], [name]) ON [users].[id] = [source].[id] ` +
			`WHEN MATCHED THEN UPDATE SET [name] = [source].[name] ` +
			`WHEN NOT MATCHED THEN INSERT ([id], [name]) VALUES ([source].[id], [source].[name]);`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := q.CompileFor(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.SQL)
			assert.Equal(t, []any{1, "ada"}, c.Params)
		})
	}
}

func TestUpsertExplicitSet(t *testing.T) {
	tb := fixture()
	q := InsertInto(tb.users).Columns("id", "name").Values(1, "ada").
		OnConflict("id").
		DoUpdate(Set("name", expr.Excluded("name"))).
		Returning("id")

	sql, err := q.ToSQL(postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("id", "name") VALUES ($1, $2) ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name" RETURNING "id"`, sql)

	_, err = q.ToSQL(mysql.MySQL)
	assert.ErrorIs(t, err, core.ErrUnsupportedFeature, "MySQL has no RETURNING")
}

func TestUpsertDoNothing(t *testing.T) {
	tb := fixture()
	q := InsertInto(tb.users).Columns("id", "name").Values(1, "ada").OnConflict().DoNothing()

	pg, err := q.ToSQL(postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("id", "name") VALUES ($1, $2) ON CONFLICT ("id") DO NOTHING`, pg)

	my, err := q.ToSQL(mysql.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `users` (`id`, `name`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `id` = `id`", my)

	ms, err := q.ToSQL(mssql.MSSQL)
	require.NoError(t, err)
	assert.Equal(t, `MERGE INTO [users] USING (VALUES (@p1, @p2)) AS [source] ([id], [name]) ON [users].[id] = [source].[id] `+
		`WHEN NOT MATCHED THEN INSERT ([id], [name]) VALUES ([source].[id], [source].[name]);`, ms)
}

func TestInsertFromSelect(t *testing.T) {
	tb := fixture()
	archive := core.NewTable("archived_posts", "id", "title")
	q := InsertInto(archive).Columns("id", "title").
		FromSelect(Select(tb.posts).Columns("id", "title").Where(expr.IsNull(expr.Col("posts", "user_id"))))

	sql, err := q.ToSQL(sqlite.SQLite)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "archived_posts" ("id", "title") SELECT "posts"."id", "posts"."title" FROM "posts" WHERE "posts"."user_id" IS NULL`, sql)

	assert.ErrorIs(t, q.Values(1, "x").Err(), core.ErrInvalidOperand)
}

func TestUpdate(t *testing.T) {
	tb := fixture()
	q := Update(tb.users).Set("name", "ada").Where(expr.Eq(expr.Col("users", "id"), 1)).Returning("id")

	tests := []struct {
		name string
		want string
	}{
		{"postgres", `UPDATE "users" SET "name" = $1 WHERE "users"."id" = $2 RETURNING "id"`},
		{"mssql", `UPDATE [users] SET [name] = @p1 OUTPUT INSERTED.[id] WHERE [users].[id] = @p2`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := q.CompileFor(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.SQL)
			assert.Equal(t, []any{"ada", 1}, c.Params)
		})
	}
}

func TestUpdateWithJoin(t *testing.T) {
	tb := fixture()
	q := Update(tb.posts).
		Set("title", "x").
		Join(core.JoinInner, tb.users.Ref(), expr.Eq(expr.Col("posts", "user_id"), expr.Col("users", "id"))).
		Where(expr.Eq(expr.Col("users", "name"), "ada"))

	want := map[string]string{
		"postgres": `UPDATE "posts" SET "title" = $1 FROM "users" WHERE "posts"."user_id" = "users"."id" AND "users"."name" = $2`,
		"mysql":    "UPDATE `posts` INNER JOIN `users` ON `posts`.`user_id` = `users`.`id` SET `posts`.`title` = ? WHERE `users`.`name` = ?",
		"mssql":    `UPDATE [posts] SET [title] = @p1 FROM [posts] INNER JOIN [users] ON [posts].[user_id] = [users].[id] WHERE [users].[name] = @p2`,
	}
	for name, sql := range want {
		t.Run(name, func(t *testing.T) {
			c, err := q.CompileFor(name)
			require.NoError(t, err)
			assert.Equal(t, sql, c.SQL)
			assert.Equal(t, []any{"x", "ada"}, c.Params)
		})
	}
}

func TestUpdateRequiresAssignments(t *testing.T) {
	tb := fixture()
	_, err := Update(tb.users).Where(expr.Eq(expr.Col("users", "id"), 1)).AST()
	require.ErrorIs(t, err, core.ErrInvalidOperand)
	assert.ErrorContains(t, err, "nothing to set")
}

func TestDelete(t *testing.T) {
	tb := fixture()
	q := DeleteFrom(tb.posts).Where(expr.Lt(expr.Col("posts", "id"), 100))

	pg, err := q.Compile(postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "posts" WHERE "posts"."id" < $1`, pg.SQL)
	assert.Equal(t, []any{100}, pg.Params)

	ms, err := q.Returning("id").ToSQL(mssql.MSSQL)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM [posts] OUTPUT DELETED.[id] WHERE [posts].[id] < @p1`, ms)
}

func TestDeleteWithJoin(t *testing.T) {
	tb := fixture()
	q := DeleteFrom(tb.posts).
		Join(core.JoinInner, tb.users.Ref(), expr.Eq(expr.Col("posts", "user_id"), expr.Col("users", "id"))).
		Where(expr.Eq(expr.Col("users", "name"), "spam"))

	pg, err := q.ToSQL(postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "posts" USING "users" WHERE "posts"."user_id" = "users"."id" AND "users"."name" = $1`, pg)

	my, err := q.ToSQL(mysql.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "DELETE `posts` FROM `posts` INNER JOIN `users` ON `posts`.`user_id` = `users`.`id` WHERE `users`.`name` = ?", my)

	_, err = q.ToSQL(sqlite.SQLite)
	require.ErrorIs(t, err, core.ErrUnsupportedFeature)
	assert.EqualError(t, err, "DELETE statements with joins are not supported by the SQLite dialect")
}

func TestMutationJoinAliasesCollisions(t *testing.T) {
	tb := fixture()
	q := DeleteFrom(tb.users).
		Join(core.JoinInner, tb.users.Ref(), expr.Eq(expr.Col("users", "id"), 1))

	ast, err := q.AST()
	require.NoError(t, err)
	require.Len(t, ast.Joins, 1)
	assert.Equal(t, "users_2", core.ExposedName(ast.Joins[0].Table))
}

func TestCallProcedure(t *testing.T) {
	q := CallProcedure("billing.close_month").
		In("month", 7).
		Out("total", "INT").
		InOut("note", "draft", "NVARCHAR(100)")

	ast, err := q.AST()
	require.NoError(t, err)
	assert.Equal(t, "billing", ast.Schema)
	assert.Equal(t, "close_month", ast.Name)

	tests := []struct {
		name   string
		sql    string
		params []any
		out    *core.OutParams
	}{
		{
			name:   "postgres",
			sql:    `CALL "billing"."close_month"($1, NULL, $2)`,
			params: []any{7, "draft"},
			out:    &core.OutParams{Source: core.FirstResultSet, Names: []string{"total", "note"}},
		},
		{
			name:   "mysql",
			sql:    "SET @_p_note = ?; CALL `billing`.`close_month`(?, @_p_total, @_p_note); SELECT @_p_total AS `total`, @_p_note AS `note`",
			params: []any{"draft", 7},
			out:    &core.OutParams{Source: core.LastResultSet, Names: []string{"total", "note"}},
		},
		{
			name: "mssql",
			sql: `DECLARE @_p_total INT; DECLARE @_p_note NVARCHAR(100) = @p1; ` +
				`EXEC [billing].[close_month] @month = @p2, @total = @_p_total OUTPUT, @note = @_p_note OUTPUT; ` +
				`SELECT @_p_total AS [total], @_p_note AS [note];`,
			params: []any{"draft", 7},
			out:    &core.OutParams{Source: core.LastResultSet, Names: []string{"total", "note"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := q.CompileFor(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, c.SQL)
			assert.Equal(t, tt.params, c.Params)
			assert.Equal(t, tt.out, c.OutParams)
		})
	}
}

func TestCallProcedureErrors(t *testing.T) {
	_, err := CallProcedure("p").Out("x", "").Compile(mssql.MSSQL)
	require.ErrorIs(t, err, core.ErrMissingDbType)
	assert.ErrorContains(t, err, "dbType")

	_, err = CallProcedure("p").In("x", 1).Compile(sqlite.SQLite)
	require.ErrorIs(t, err, core.ErrUnsupportedFeature)
	assert.ErrorContains(t, err, "not supported by the SQLite dialect")

	// OUT parameters need no type outside SQL Server.
	c, err := CallProcedure("p").Out("x", "").Compile(postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `CALL "p"(NULL)`, c.SQL)
}

func TestCreateIndex(t *testing.T) {
	tb := fixture()
	q := CreateIndex("posts_live_title", tb.posts).
		On("title").
		Unique().
		Where(expr.Eq(expr.Column("status"), "live"))

	pg, err := q.Compile(postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX "posts_live_title" ON "posts" ("title") WHERE "status" = 'live'`, pg.SQL)
	assert.Empty(t, pg.Params)

	ms, err := q.ToSQL(mssql.MSSQL)
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX [posts_live_title] ON [posts] ([title]) WHERE [status] = 'live'`, ms)

	_, err = q.ToSQL(mysql.MySQL)
	assert.ErrorIs(t, err, core.ErrUnsupportedFeature)

	plain, err := CreateIndex("posts_user", tb.posts).On("user_id").ToSQL(mysql.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "CREATE INDEX `posts_user` ON `posts` (`user_id`)", plain)
}
