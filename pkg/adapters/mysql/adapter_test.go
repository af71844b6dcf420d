package mysql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/query"
)

func TestBuildMySQLDSN(t *testing.T) {
	tests := []struct {
		name   string
		config adapter.Config
		addr   string
		user   string
		db     string
		params map[string]string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "db.internal",
				Port:     3307,
				Database: "shop",
				Username: "app",
				Password: "secret",
			},
			addr: "db.internal:3307",
			user: "app",
			db:   "shop",
		},
		{
			name:   "defaults",
			config: adapter.Config{Database: "shop"},
			addr:   "localhost:3306",
			db:     "shop",
		},
		{
			name: "extra options pass through",
			config: adapter.Config{
				Database: "shop",
				Options:  map[string]string{"charset": "utf8mb4"},
			},
			addr:   "localhost:3306",
			db:     "shop",
			params: map[string]string{"charset": "utf8mb4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := gomysql.ParseDSN(buildMySQLDSN(tt.config))
			require.NoError(t, err)
			assert.Equal(t, "tcp", parsed.Net)
			assert.Equal(t, tt.addr, parsed.Addr)
			assert.Equal(t, tt.user, parsed.User)
			assert.Equal(t, tt.db, parsed.DBName)
			assert.True(t, parsed.MultiStatements, "procedure calls need multiStatements")
			assert.True(t, parsed.InterpolateParams, "procedure calls need interpolateParams")
			assert.True(t, parsed.ParseTime)
			for k, v := range tt.params {
				assert.Equal(t, v, parsed.Params[k], k)
			}
		})
	}
}

func TestNew(t *testing.T) {
	adp := New(nil)
	assert.False(t, adp.IsConnected())
	assert.Equal(t, "mysql", adp.DialectName())
}

func TestAdapter_NotConnected(t *testing.T) {
	_, err := New(nil).ExecuteSQL(context.Background(), "SELECT 1", nil)
	assert.ErrorIs(t, err, adapter.ErrNotConnected)

	_, err = New(nil).Inspect(context.Background(), "users")
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
}

func TestAdapter_ExecuteSQLConvertsBytes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	adp := New(nil)
	adp.DB = db
	t.Cleanup(func() { _ = adp.Close() })

	c, err := query.CallProcedure("close_month").
		In("month", 7).
		Out("total", "INT").
		CompileFor("mysql")
	require.NoError(t, err)

	mock.ExpectQuery("CALL `close_month`").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow([]byte("42")))

	sets, err := adp.ExecuteSQL(context.Background(), c.SQL, c.Params)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, [][]any{{"42"}}, sets[0].Values)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("mysql")
	require.True(t, ok)
	assert.Equal(t, "mysql", factory(nil).DialectName())
}
