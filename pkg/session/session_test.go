package session

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/internal/testutil"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
	"github.com/leapstack-labs/leapquery/pkg/dialects/mssql"
	"github.com/leapstack-labs/leapquery/pkg/dialects/mysql"
	"github.com/leapstack-labs/leapquery/pkg/dialects/postgres"
	"github.com/leapstack-labs/leapquery/pkg/expr"
	"github.com/leapstack-labs/leapquery/pkg/query"
)

// fakeExecutor returns queued result sets in order and records every
// statement it receives.
type fakeExecutor struct {
	results [][]core.ResultSet
	errs    []error
	sql     []string
	params  [][]any
}

func (f *fakeExecutor) ExecuteSQL(_ context.Context, sql string, params []any) ([]core.ResultSet, error) {
	i := len(f.sql)
	f.sql = append(f.sql, sql)
	f.params = append(f.params, params)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return nil, nil
}

func (f *fakeExecutor) Capabilities() core.ExecutorCapabilities {
	return core.ExecutorCapabilities{}
}

func one(cols []string, rows ...[]any) []core.ResultSet {
	return []core.ResultSet{{Columns: cols, Values: rows}}
}

func schema() (users, posts *core.TableDef) {
	users = core.NewTable("users", "id", "name")
	posts = core.NewTable("posts", "id", "user_id", "title")
	users.Relations["posts"] = core.HasMany{Target: posts}
	return users, posts
}

func TestNew(t *testing.T) {
	_, err := New(nil, postgres.Postgres)
	assert.Error(t, err)

	_, err = New(&fakeExecutor{}, nil)
	assert.ErrorIs(t, err, dialect.ErrDialectRequired)

	s, err := New(&fakeExecutor{}, postgres.Postgres, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	assert.Same(t, postgres.Postgres, s.Dialect())
}

func TestFindMany_Plain(t *testing.T) {
	users, _ := schema()
	exec := &fakeExecutor{results: [][]core.ResultSet{
		one([]string{"id", "name"}, []any{int64(1), "ada"}),
	}}
	s, err := New(exec, postgres.Postgres)
	require.NoError(t, err)

	rows, err := s.FindMany(context.Background(), query.Select(users).Where(expr.Eq(expr.Col("users", "id"), 1)))
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": int64(1), "name": "ada"}}, rows)
	assert.Equal(t, []string{`SELECT * FROM "users" WHERE "users"."id" = $1`}, exec.sql)
	assert.Equal(t, [][]any{{1}}, exec.params)
}

func TestFindMany_Hydrates(t *testing.T) {
	users, _ := schema()
	exec := &fakeExecutor{results: [][]core.ResultSet{
		one([]string{"id", "name", "posts__id", "posts__user_id", "posts__title"},
			[]any{int64(1), "ada", int64(10), int64(1), "engines"},
			[]any{int64(1), "ada", int64(11), int64(1), "notes"},
			[]any{int64(2), "grace", nil, nil, nil},
		),
	}}
	s, err := New(exec, postgres.Postgres)
	require.NoError(t, err)

	entities, err := s.FindMany(context.Background(), query.Select(users).Include("posts"))
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "ada", entities[0]["name"])
	assert.Len(t, entities[0]["posts"], 2)
	assert.Empty(t, entities[1]["posts"])
}

func TestFindManyInto(t *testing.T) {
	type Post struct {
		ID    int64  `mapstructure:"id"`
		Title string `mapstructure:"title"`
	}
	type User struct {
		ID    int64  `mapstructure:"id"`
		Name  string `mapstructure:"name"`
		Posts []Post `mapstructure:"posts"`
	}

	users, _ := schema()
	exec := &fakeExecutor{results: [][]core.ResultSet{
		one([]string{"id", "name", "posts__id", "posts__user_id", "posts__title"},
			[]any{int64(1), []byte("ada"), int64(10), int64(1), "engines"},
		),
	}}
	s, err := New(exec, postgres.Postgres)
	require.NoError(t, err)

	got, err := FindManyInto[User](context.Background(), s, query.Select(users).Include("posts"))
	require.NoError(t, err)
	assert.Equal(t, []User{{ID: 1, Name: "ada", Posts: []Post{{ID: 10, Title: "engines"}}}}, got)
}

func TestFindMany_BuildErrorsBeforeIO(t *testing.T) {
	users, _ := schema()
	exec := &fakeExecutor{}
	s, err := New(exec, postgres.Postgres)
	require.NoError(t, err)

	_, err = s.FindMany(context.Background(), query.Select(users).Include("comments"))
	assert.ErrorIs(t, err, core.ErrUnknownRelation)

	_, err = s.FindMany(context.Background(), query.Select(users).Where(expr.Eq(expr.Col("users", "id"), []int{1, 2})))
	assert.ErrorIs(t, err, core.ErrInvalidOperand)
	assert.Empty(t, exec.sql, "nothing reaches the executor")
}

func TestCount(t *testing.T) {
	users, _ := schema()
	tests := []struct {
		name  string
		value any
		want  int64
	}{
		{"int64", int64(3), 3},
		{"int32", int32(3), 3},
		{"bytes", []byte("3"), 3},
		{"string", "3", 3},
		{"float", float64(3), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{results: [][]core.ResultSet{one([]string{"count"}, []any{tt.value})}}
			s, err := New(exec, postgres.Postgres)
			require.NoError(t, err)

			got, err := s.Count(context.Background(), query.Select(users))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	exec := &fakeExecutor{results: [][]core.ResultSet{one([]string{"count"}, []any{true})}}
	s, err := New(exec, postgres.Postgres)
	require.NoError(t, err)
	_, err = s.Count(context.Background(), query.Select(users))
	assert.ErrorContains(t, err, "unexpected value")

	exec = &fakeExecutor{results: [][]core.ResultSet{one([]string{"count"})}}
	s, err = New(exec, postgres.Postgres)
	require.NoError(t, err)
	_, err = s.CountRows(context.Background(), query.Select(users))
	assert.ErrorContains(t, err, "no result row")
}

func TestExecutePaged(t *testing.T) {
	users, _ := schema()
	exec := &fakeExecutor{results: [][]core.ResultSet{
		one([]string{"count"}, []any{int64(41)}),
		one([]string{"id", "name"}, []any{int64(21), "ada"}),
	}}
	s, err := New(exec, postgres.Postgres)
	require.NoError(t, err)

	page, err := s.ExecutePaged(context.Background(), query.Select(users).OrderBy(expr.Asc(expr.Col("users", "id"))), 2, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(41), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Entities, 1)

	require.Len(t, exec.sql, 2)
	assert.Contains(t, exec.sql[0], "COUNT(")
	assert.Contains(t, exec.sql[1], "LIMIT 20 OFFSET 20")
}

func TestExecutePaged_InvalidPage(t *testing.T) {
	users, _ := schema()
	exec := &fakeExecutor{}
	s, err := New(exec, postgres.Postgres)
	require.NoError(t, err)

	_, err = s.ExecutePaged(context.Background(), query.Select(users), 0, 20)
	assert.ErrorIs(t, err, core.ErrInvalidOperand)
	assert.Empty(t, exec.sql)
}

func TestExecute_WrapsDriverErrors(t *testing.T) {
	users, _ := schema()
	exec := &fakeExecutor{errs: []error{assert.AnError}}
	s, err := New(exec, postgres.Postgres)
	require.NoError(t, err)

	_, err = s.Execute(context.Background(), query.DeleteFrom(users).Where(expr.Eq(expr.Col("users", "id"), 1)))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCall(t *testing.T) {
	proc := query.CallProcedure("close_month").
		In("month", 7).
		Out("total", "INT").
		InOut("note", "draft", "VARCHAR(20)")

	tests := []struct {
		name    string
		dialect *dialect.Dialect
		sets    []core.ResultSet
	}{
		{
			name:    "postgres reads the first result set",
			dialect: postgres.Postgres,
			sets: []core.ResultSet{
				{Columns: []string{"total", "note"}, Values: [][]any{{int64(42), "closed"}}},
			},
		},
		{
			name:    "mysql reads the last result set",
			dialect: mysql.MySQL,
			sets: []core.ResultSet{
				{Columns: []string{"id"}, Values: [][]any{{int64(1)}}},
				{Columns: []string{"total", "note"}, Values: [][]any{{int64(42), "closed"}}},
			},
		},
		{
			name:    "mssql reads the last result set",
			dialect: mssql.MSSQL,
			sets: []core.ResultSet{
				{Columns: []string{"id"}, Values: [][]any{{int64(1)}}},
				{Columns: []string{"total", "note"}, Values: [][]any{{int64(42), "closed"}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{results: [][]core.ResultSet{tt.sets}}
			s, err := New(exec, tt.dialect)
			require.NoError(t, err)

			res, err := s.Call(context.Background(), proc)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"total": int64(42), "note": "closed"}, res.Out)
			assert.Len(t, res.ResultSets, len(tt.sets))
		})
	}
}

func TestCall_Errors(t *testing.T) {
	proc := query.CallProcedure("close_month").Out("total", "INT")

	exec := &fakeExecutor{results: [][]core.ResultSet{nil}}
	s, err := New(exec, postgres.Postgres)
	require.NoError(t, err)
	_, err = s.Call(context.Background(), proc)
	assert.ErrorContains(t, err, "no result set")

	exec = &fakeExecutor{results: [][]core.ResultSet{one([]string{"other"}, []any{1})}}
	s, err = New(exec, postgres.Postgres)
	require.NoError(t, err)
	_, err = s.Call(context.Background(), proc)
	assert.ErrorContains(t, err, `output parameter "total" missing`)

	exec = &fakeExecutor{}
	s, err = New(exec, mssql.MSSQL)
	require.NoError(t, err)
	_, err = s.Call(context.Background(), query.CallProcedure("close_month").Out("total", ""))
	assert.ErrorIs(t, err, core.ErrMissingDbType)
	assert.Empty(t, exec.sql)
}

func TestTransaction_Unsupported(t *testing.T) {
	s, err := New(&fakeExecutor{}, postgres.Postgres)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Begin(context.Background()), core.ErrTransactionUnsupported)
	assert.ErrorIs(t, s.Commit(context.Background()), core.ErrTransactionUnsupported)
	assert.ErrorIs(t, s.Rollback(context.Background()), core.ErrTransactionUnsupported)

	called := false
	err = s.Transaction(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, core.ErrTransactionUnsupported)
	assert.False(t, called)
}

func newMockSession(t *testing.T) (*Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	base := &adapter.BaseSQLAdapter{DB: db}
	t.Cleanup(func() { _ = base.Close() })
	s, err := New(base, postgres.Postgres)
	require.NoError(t, err)
	return s, mock
}

func TestTransaction(t *testing.T) {
	users, _ := schema()
	update := query.Update(users).Set("name", "ada").Where(expr.Eq(expr.Col("users", "id"), 1))

	t.Run("commits on success", func(t *testing.T) {
		s, mock := newMockSession(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE "users" SET "name" = \$1`).WithArgs("ada", 1).
			WillReturnRows(sqlmock.NewRows(nil))
		mock.ExpectCommit()

		err := s.Transaction(context.Background(), func(ctx context.Context) error {
			_, err := s.Execute(ctx, update)
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		s, mock := newMockSession(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		errBoom := errors.New("boom")
		err := s.Transaction(context.Background(), func(context.Context) error { return errBoom })
		assert.ErrorIs(t, err, errBoom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("joins rollback failures", func(t *testing.T) {
		s, mock := newMockSession(t)
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(assert.AnError)

		errBoom := errors.New("boom")
		err := s.Transaction(context.Background(), func(context.Context) error { return errBoom })
		assert.ErrorIs(t, err, errBoom)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		s, mock := newMockSession(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "kaboom", func() {
			_ = s.Transaction(context.Background(), func(context.Context) error { panic("kaboom") })
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
