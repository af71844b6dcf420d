package hydrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

func fixture() *core.TableDef {
	users := core.NewTable("users", "id", "name")
	posts := core.NewTable("posts", "id", "user_id", "title")
	projects := core.NewTable("projects", "id", "name")
	users.Relations["posts"] = core.HasMany{Target: posts}
	users.Relations["profile"] = core.HasOne{Target: core.NewTable("profiles", "id", "bio")}
	users.Relations["projects"] = core.BelongsToMany{Target: projects, PivotColumns: []string{"role"}}
	return users
}

func TestBuildPlan(t *testing.T) {
	plan, err := BuildPlan(fixture(), []string{"id", "name"}, []Include{
		{Relation: "posts", Columns: []string{"title"}},
		{Relation: "projects"},
	})
	require.NoError(t, err)

	assert.Equal(t, "id", plan.PrimaryKey)
	require.Len(t, plan.Relations, 2)

	posts := plan.Relations[0]
	assert.Equal(t, "posts", posts.Prefix)
	assert.Equal(t, []string{"id", "title"}, posts.Columns, "primary key is always projected")
	assert.True(t, posts.Many())
	assert.Nil(t, posts.Pivot)

	projects := plan.Relations[1]
	require.NotNil(t, projects.Pivot)
	assert.Equal(t, "project_user", projects.Pivot.Table)
	assert.Equal(t, []string{"user_id", "project_id", "role"}, projects.Pivot.Columns)
}

func TestBuildPlanUnknownRelation(t *testing.T) {
	_, err := BuildPlan(fixture(), nil, []Include{{Relation: "comments"}})
	assert.ErrorIs(t, err, core.ErrUnknownRelation)
}

func TestAliases(t *testing.T) {
	assert.Equal(t, "posts__title", ColumnAlias("posts", "title"))
	assert.Equal(t, "projects__pivot__role", PivotAlias("projects", "role"))
}

func TestHydrateHasMany(t *testing.T) {
	plan, err := BuildPlan(fixture(), []string{"id", "name"}, []Include{{Relation: "posts", Columns: []string{"title"}}})
	require.NoError(t, err)

	rs := core.ResultSet{
		Columns: []string{"id", "name", "posts__id", "posts__title"},
		Values: [][]any{
			{int64(1), "ada", int64(10), "first"},
			{int64(1), "ada", int64(11), "second"},
			{int64(1), "ada", int64(10), "first"}, // fan-out duplicate
			{int64(2), "bob", nil, nil},
		},
	}

	got, err := Hydrate(rs, plan)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "ada", got[0]["name"])
	assert.Equal(t, []Entity{
		{"id": int64(10), "title": "first"},
		{"id": int64(11), "title": "second"},
	}, got[0]["posts"])
	assert.Equal(t, []Entity{}, got[1]["posts"], "no match yields an empty collection")
}

func TestHydrateHasOne(t *testing.T) {
	plan, err := BuildPlan(fixture(), []string{"id"}, []Include{{Relation: "profile"}})
	require.NoError(t, err)

	rs := core.ResultSet{
		Columns: []string{"id", "profile__id", "profile__bio"},
		Values: [][]any{
			{int64(1), nil, nil},
			{int64(1), int64(7), "hello"},
			{int64(1), int64(8), "ignored"},
			{int64(2), nil, nil},
		},
	}

	got, err := Hydrate(rs, plan)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Entity{"id": int64(7), "bio": "hello"}, got[0]["profile"])
	assert.Nil(t, got[1]["profile"])
}

func TestHydrateBelongsToManyKeepsDistinctPivots(t *testing.T) {
	plan, err := BuildPlan(fixture(), []string{"id"}, []Include{{Relation: "projects"}})
	require.NoError(t, err)

	cols := []string{"id", "projects__id", "projects__name",
		"projects__pivot__user_id", "projects__pivot__project_id", "projects__pivot__role"}
	rs := core.ResultSet{
		Columns: cols,
		Values: [][]any{
			{int64(1), int64(5), "apollo", int64(1), int64(5), "owner"},
			{int64(1), int64(5), "apollo", int64(1), int64(5), "viewer"},
			{int64(1), int64(5), "apollo", int64(1), int64(5), "viewer"}, // exact duplicate
		},
	}

	got, err := Hydrate(rs, plan)
	require.NoError(t, err)
	require.Len(t, got, 1)

	projects := got[0]["projects"].([]Entity)
	require.Len(t, projects, 2)
	assert.Equal(t, "owner", projects[0][PivotKey].(Entity)["role"])
	assert.Equal(t, "viewer", projects[1][PivotKey].(Entity)["role"])
}

func TestHydrateBelongsToManyPivotValuesContainingSeparators(t *testing.T) {
	plan, err := BuildPlan(fixture(), []string{"id"}, []Include{{Relation: "projects"}})
	require.NoError(t, err)

	// Without a pivot key, every pivot value is part of the identity.
	cols := []string{"id", "projects__id", "projects__name",
		"projects__pivot__user_id", "projects__pivot__project_id", "projects__pivot__role"}
	rs := core.ResultSet{
		Columns: cols,
		Values: [][]any{
			{int64(1), int64(5), "apollo", int64(1), "5|lead", "dev"},
			{int64(1), int64(5), "apollo", int64(1), "5", "lead|dev"},
		},
	}

	got, err := Hydrate(rs, plan)
	require.NoError(t, err)
	require.Len(t, got, 1)

	projects := got[0]["projects"].([]Entity)
	require.Len(t, projects, 2)
	assert.Equal(t, "dev", projects[0][PivotKey].(Entity)["role"])
	assert.Equal(t, "lead|dev", projects[1][PivotKey].(Entity)["role"])
}

func TestHydrateFallsBackToUnprefixedRootColumns(t *testing.T) {
	plan, err := BuildPlan(fixture(), nil, []Include{{Relation: "posts", Columns: []string{"title"}}})
	require.NoError(t, err)

	rs := core.ResultSet{
		Columns: []string{"id", "name", "posts__id", "posts__title"},
		Values:  [][]any{{int64(1), "ada", nil, nil}},
	}

	got, err := Hydrate(rs, plan)
	require.NoError(t, err)
	assert.Equal(t, Entity{"id": int64(1), "name": "ada", "posts": []Entity{}}, got[0])
}

func TestHydrateErrors(t *testing.T) {
	plan, err := BuildPlan(fixture(), nil, []Include{{Relation: "posts"}})
	require.NoError(t, err)

	_, err = Hydrate(core.ResultSet{Columns: []string{"name"}}, plan)
	assert.ErrorContains(t, err, `no column "id"`)

	_, err = Hydrate(core.ResultSet{Columns: []string{"id"}}, plan)
	assert.ErrorContains(t, err, `no column "posts__id"`)

	_, err = Hydrate(core.ResultSet{
		Columns: []string{"id", "posts__id", "posts__user_id", "posts__title"},
		Values:  [][]any{{nil, nil, nil, nil}},
	}, plan)
	assert.ErrorContains(t, err, "null primary key")
}

func TestHydrateEmpty(t *testing.T) {
	plan, err := BuildPlan(fixture(), nil, nil)
	require.NoError(t, err)

	got, err := Hydrate(core.ResultSet{Columns: []string{"id"}}, plan)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

type project struct {
	ID    int64  `mapstructure:"id"`
	Name  string `mapstructure:"name"`
	Pivot struct {
		Role string `mapstructure:"role"`
	} `mapstructure:"_pivot"`
}

type user struct {
	ID        int64     `mapstructure:"id"`
	Name      string    `mapstructure:"name"`
	CreatedAt time.Time `mapstructure:"created_at"`
	Projects  []project `mapstructure:"projects"`
}

func TestDecode(t *testing.T) {
	entities := []Entity{{
		"id":         []byte("1"),
		"name":       []byte("ada"),
		"created_at": "2024-03-01 10:00:00",
		"projects": []Entity{
			{"id": int64(5), "name": "apollo", PivotKey: Entity{"role": "owner"}},
		},
	}}

	got, err := Decode[user](entities)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "ada", got[0].Name)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), got[0].CreatedAt)
	require.Len(t, got[0].Projects, 1)
	assert.Equal(t, "owner", got[0].Projects[0].Pivot.Role)
}

func TestDecodeBadTimestamp(t *testing.T) {
	_, err := Decode[user]([]Entity{{"created_at": "yesterday"}})
	assert.ErrorContains(t, err, "timestamp")
}
