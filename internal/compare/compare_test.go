package compare

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rebeliceyang/lazytable/internal/models"
)

func ids(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	return out
}

func asc(key string) *models.SortState {
	return &models.SortState{Key: key, Direction: models.SortAsc}
}

func desc(key string) *models.SortState {
	return &models.SortState{Key: key, Direction: models.SortDesc}
}

func TestSortNullsFirst(t *testing.T) {
	records := []models.Record{
		{"id": "1", "age": 30},
		{"id": "2", "age": nil},
		{"id": "3", "age": 25},
	}

	assert.Equal(t, []string{"2", "3", "1"}, ids(Sort(records, asc("age"), nil)))
	assert.Equal(t, []string{"2", "1", "3"}, ids(Sort(records, desc("age"), nil)))
}

func TestSortNaturalOrder(t *testing.T) {
	records := []models.Record{
		{"id": "a", "name": "item10"},
		{"id": "b", "name": "item2"},
		{"id": "c", "name": "Item1"},
	}

	assert.Equal(t, []string{"c", "b", "a"}, ids(Sort(records, asc("name"), nil)))
}

func TestSortIsStable(t *testing.T) {
	records := []models.Record{
		{"id": "1", "group": "b"},
		{"id": "2", "group": "a"},
		{"id": "3", "group": "b"},
		{"id": "4", "group": "a"},
	}

	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(Sort(records, asc("group"), nil)))
	assert.Equal(t, []string{"1", "3", "2", "4"}, ids(Sort(records, desc("group"), nil)))
}

func TestSortLeavesInputAlone(t *testing.T) {
	records := []models.Record{{"id": "2", "n": 2}, {"id": "1", "n": 1}}

	sorted := Sort(records, asc("n"), nil)
	assert.Equal(t, []string{"1", "2"}, ids(sorted))
	assert.Equal(t, []string{"2", "1"}, ids(records))

	assert.Equal(t, []string{"2", "1"}, ids(Sort(records, nil, nil)))
}

func TestSortUsesFormatter(t *testing.T) {
	columns := []models.Column{{
		Key: "code",
		Format: func(v any, _ models.Record) string {
			// sort by the reversed code
			s := models.Stringify(v)
			var b strings.Builder
			for i := len(s) - 1; i >= 0; i-- {
				b.WriteByte(s[i])
			}
			return b.String()
		},
	}}
	records := []models.Record{
		{"id": "1", "code": "az"},
		{"id": "2", "code": "zb"},
	}

	assert.Equal(t, []string{"2", "1"}, ids(Sort(records, asc("code"), columns)))
}

func TestCompareValues(t *testing.T) {
	c := New(asc("x"), nil)

	assert.Equal(t, 0, c.CompareValues(nil, nil))
	assert.Equal(t, -1, c.CompareValues(nil, 1))
	assert.Equal(t, 1, c.CompareValues(1, nil))
	assert.Equal(t, 0, c.CompareValues("same", "same"))
	assert.Equal(t, -1, c.CompareValues(2, 10.5))
	assert.Equal(t, 0, c.CompareValues(2, 2.0))
	assert.Negative(t, c.CompareValues("2", "10"))

	d := New(desc("x"), nil)
	assert.Equal(t, -1, d.CompareValues(nil, 1))
	assert.Equal(t, 1, d.CompareValues(2, 10))
}
