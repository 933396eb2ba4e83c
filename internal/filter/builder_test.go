package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazytable/internal/models"
)

func TestBuildWhereSimple(t *testing.T) {
	b := NewBuilder(Postgres, []string{"status", "age"})

	where, args, err := b.BuildWhere(models.SimpleFilter(map[string]any{"status": "ready", "age": 30}), SearchClause{})
	require.NoError(t, err)
	assert.Equal(t, `WHERE ("age" = $1 AND CAST("status" AS TEXT) ILIKE $2 ESCAPE '\')`, where)
	assert.Equal(t, []any{30, "%ready%"}, args)
}

func TestBuildWhereGroupWithSearch(t *testing.T) {
	b := NewBuilder(SQLite, []string{"name", "age", "city"})

	spec := models.GroupFilter(&models.FilterGroup{Logic: models.LogicOr, Conditions: []models.FilterNode{
		cond("age", models.OpGt, 30),
		cond("city", models.OpIn, []any{"Paris", "Rome"}),
	}})
	where, args, err := b.BuildWhere(spec, SearchClause{Term: " Smith ", Columns: []string{"name", "city"}, Mode: models.SearchAny})
	require.NoError(t, err)
	assert.Equal(t,
		`WHERE ("age" > ? OR LOWER(CAST("city" AS TEXT)) IN (?, ?)) AND `+
			`(LOWER(CAST("name" AS TEXT)) LIKE ? ESCAPE '\' OR LOWER(CAST("city" AS TEXT)) LIKE ? ESCAPE '\')`,
		where)
	assert.Equal(t, []any{30, "paris", "rome", "%smith%", "%smith%"}, args)
}

func TestBuildWhereEdgeCases(t *testing.T) {
	b := NewBuilder(Postgres, []string{"n", "tag"})

	where, args, err := b.BuildWhere(nil, SearchClause{Term: "  "})
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Nil(t, args)

	between := models.GroupFilter(&models.FilterGroup{Logic: models.LogicAnd, Conditions: []models.FilterNode{
		models.ConditionNode(models.FilterCondition{Field: "n", Operator: models.OpBetween, Value: 1}),
	}})
	where, _, err = b.BuildWhere(between, SearchClause{})
	require.NoError(t, err)
	assert.Equal(t, "WHERE (1 = 0)", where)

	emptyIn := models.GroupFilter(&models.FilterGroup{Logic: models.LogicAnd, Conditions: []models.FilterNode{
		cond("tag", models.OpIn, []any{}),
	}})
	where, _, err = b.BuildWhere(emptyIn, SearchClause{})
	require.NoError(t, err)
	assert.Equal(t, "WHERE (1 = 0)", where)

	escaped := models.GroupFilter(&models.FilterGroup{Logic: models.LogicAnd, Conditions: []models.FilterNode{
		cond("tag", models.OpContains, "50%_off"),
	}})
	_, args, err = b.BuildWhere(escaped, SearchClause{})
	require.NoError(t, err)
	assert.Equal(t, []any{`%50\%\_off%`}, args)
}

func TestBuildWhereCoercesRangeBounds(t *testing.T) {
	b := NewBuilder(Postgres, []string{"age", "created"})
	group := func(conds ...models.FilterCondition) *models.FilterSpec {
		g := &models.FilterGroup{Logic: models.LogicAnd}
		for _, c := range conds {
			g.Conditions = append(g.Conditions, models.ConditionNode(c))
		}
		return models.GroupFilter(g)
	}

	where, args, err := b.BuildWhere(group(
		models.FilterCondition{Field: "age", Operator: models.OpGte, Value: " 30 "},
		models.FilterCondition{Field: "age", Operator: models.OpLt, Value: 60},
		models.FilterCondition{Field: "created", Operator: models.OpBetween, Value: "2024-01-01", ValueTo: "2024-12-31"},
	), SearchClause{})
	require.NoError(t, err)
	assert.Equal(t, `WHERE ("age" >= $1 AND "age" < $2 AND "created" BETWEEN $3 AND $4)`, where)
	assert.Equal(t, []any{
		30.0,
		60,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}, args)

	tests := []struct {
		name string
		cond models.FilterCondition
	}{
		{"gt text", models.FilterCondition{Field: "age", Operator: models.OpGt, Value: "thirty"}},
		{"lte bool", models.FilterCondition{Field: "age", Operator: models.OpLte, Value: true}},
		{"lt missing", models.FilterCondition{Field: "age", Operator: models.OpLt}},
		{"between text bound", models.FilterCondition{Field: "age", Operator: models.OpBetween, Value: 1, ValueTo: "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args, err := b.BuildWhere(group(tt.cond), SearchClause{})
			require.NoError(t, err)
			assert.Equal(t, "WHERE (1 = 0)", where)
			assert.Empty(t, args)
		})
	}
}

func TestBuildWhereRejectsUnknownColumns(t *testing.T) {
	b := NewBuilder(Postgres, []string{"name"})

	_, _, err := b.BuildWhere(models.SimpleFilter(map[string]any{"password": "x"}), SearchClause{})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = b.BuildOrderBy(&models.SortState{Key: "name; DROP TABLE users", Direction: models.SortAsc})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestBuildOrderBy(t *testing.T) {
	b := NewBuilder(Postgres, []string{"age"})

	order, err := b.BuildOrderBy(&models.SortState{Key: "age", Direction: models.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, `ORDER BY "age" DESC NULLS FIRST`, order)

	order, err = b.BuildOrderBy(nil)
	require.NoError(t, err)
	assert.Empty(t, order)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
}
