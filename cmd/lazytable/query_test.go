package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/rebeliceyang/lazytable/internal/config"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/state"
)

func testStore(t *testing.T) *state.Store {
	t.Helper()
	s, err := state.NewStore(state.Config{Columns: []models.Column{
		{Key: "name", Sortable: true},
		{Key: "age", Sortable: true},
		{Key: "city"},
	}})
	require.NoError(t, err)
	return s
}

func TestParseSort(t *testing.T) {
	sort, err := parseSort("age")
	require.NoError(t, err)
	assert.Equal(t, &models.SortState{Key: "age", Direction: models.SortAsc}, sort)

	sort, err = parseSort("age:DESC")
	require.NoError(t, err)
	assert.Equal(t, &models.SortState{Key: "age", Direction: models.SortDesc}, sort)

	sort, err = parseSort(" ")
	require.NoError(t, err)
	assert.Nil(t, sort)

	_, err = parseSort("age:up")
	assert.Error(t, err)
}

func TestApplyFilter(t *testing.T) {
	s := testStore(t)

	require.NoError(t, applyFilter(s, "city=Paris"))
	require.NoError(t, applyFilter(s, "age:between:18:30"))
	require.NoError(t, applyFilter(s, "name:in:ann,bob"))
	require.NoError(t, applyFilter(s, "city:isEmpty"))

	vs := s.State()
	assert.Equal(t, map[string]any{"city": "Paris"}, vs.Filters)
	require.NotNil(t, vs.Advanced)
	require.Len(t, vs.Advanced.Conditions, 3)

	between := vs.Advanced.Conditions[0].Condition
	assert.Equal(t, models.OpBetween, between.Operator)
	assert.Equal(t, 18.0, between.Value)
	assert.Equal(t, 30.0, between.ValueTo)

	in := vs.Advanced.Conditions[1].Condition
	assert.Equal(t, []any{"ann", "bob"}, in.Value)

	assert.Equal(t, models.OpIsEmpty, vs.Advanced.Conditions[2].Condition.Operator)

	assert.Error(t, applyFilter(s, "age:approx:3"))
	assert.Error(t, applyFilter(s, "nonsense"))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 42.0, parseValue("42"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "Paris", parseValue(" Paris "))
}

func TestLocale(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Table.Locale = "sv"
	assert.Equal(t, language.Swedish, locale(cfg))

	cfg.Table.Locale = "not a locale!"
	assert.Equal(t, language.Und, locale(cfg))
}
