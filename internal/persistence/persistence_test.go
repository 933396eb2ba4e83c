package persistence

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazytable/internal/logger"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/state"
)

var columns = []models.Column{
	{Key: "name", Type: models.ColumnText, Sortable: true},
	{Key: "age", Type: models.ColumnNumber, Sortable: true},
	{Key: "status", Type: models.ColumnBadge},
}

func newStore(t *testing.T) *state.Store {
	t.Helper()
	s, err := state.NewStore(state.Config{Columns: columns})
	require.NoError(t, err)
	return s
}

// customized builds a store with every persisted field changed
func customized(t *testing.T) *state.Store {
	t.Helper()
	s := newStore(t)
	s.SetSimpleFilter("status", "ready")
	require.NoError(t, s.AddCondition(models.FilterCondition{Field: "age", Operator: models.OpBetween, Value: 10.0, ValueTo: 20.0}))
	s.SetSort(&models.SortState{Key: "age", Direction: models.SortDesc})
	s.SetSearchTerm("smith")
	s.SetSearchColumns([]string{"name"})
	s.SetSearchMode(models.SearchAll)
	s.SetPageSize(25)
	s.SetPage(3)
	s.ReorderColumns([]string{"status", "name", "age"})
	s.ToggleColumnVisibility("age")
	return s
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := customized(t).State()

	data, err := Encode(original)
	require.NoError(t, err)

	decoded, fields, err := Decode(data, logger.Discard())
	require.NoError(t, err)
	for _, f := range state.Fields() {
		assert.True(t, fields[f], "field %s", f)
	}

	restored := newStore(t)
	restored.Restore(decoded, fields, logger.Discard())
	got := restored.State()

	assert.Equal(t, original.SearchTerm, got.SearchTerm)
	assert.Equal(t, original.Pagination.CurrentPage, got.Pagination.CurrentPage)
	assert.Equal(t, original.Pagination.PageSize, got.Pagination.PageSize)
	assert.Equal(t, original.ColumnOrder, got.ColumnOrder)
	assert.Equal(t, original.HiddenColumns, got.HiddenColumns)
	assert.Equal(t, original.Sort, got.Sort)
	assert.Equal(t, original.Filters, got.Filters)
	assert.Equal(t, original.Advanced, got.Advanced)
	assert.Equal(t, original.SearchColumns, got.SearchColumns)
	assert.Equal(t, original.SearchMode, got.SearchMode)
}

func TestEncodeDecodeFlatFilterWithGroupKeys(t *testing.T) {
	s := newStore(t)
	s.SetSimpleFilter("logic", "x")
	s.SetSimpleFilter("conditions", "y")
	original := s.State()

	data, err := Encode(original)
	require.NoError(t, err)

	decoded, fields, err := Decode(data, logger.Discard())
	require.NoError(t, err)
	require.True(t, fields[state.FieldFilters])
	assert.Equal(t, map[string]any{"logic": "x", "conditions": "y"}, decoded.Filters)
	assert.Nil(t, decoded.Advanced)

	restored := newStore(t)
	restored.Restore(decoded, fields, logger.Discard())
	assert.Equal(t, original.Filters, restored.State().Filters)
	assert.Equal(t, original.EffectiveFilters(), restored.State().EffectiveFilters())
}

func TestEncodeShape(t *testing.T) {
	data, err := Encode(newStore(t).State())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"searchTerm": "",
		"page": 1,
		"pageSize": 10,
		"columnOrder": ["name", "age", "status"],
		"hiddenColumns": [],
		"sort": null,
		"filters": null,
		"searchColumns": [],
		"searchMode": "any"
	}`, string(data))
}

func TestDecodeSkipsMalformedFields(t *testing.T) {
	vs, fields, err := Decode([]byte(`{
		"searchTerm": 42,
		"page": "three",
		"pageSize": 25,
		"sort": {"key": "age", "direction": "desc"},
		"filters": [1, 2]
	}`), logger.Discard())
	require.NoError(t, err)

	assert.False(t, fields[state.FieldSearchTerm])
	assert.False(t, fields[state.FieldPage])
	assert.False(t, fields[state.FieldFilters])
	assert.False(t, fields[state.FieldColumnOrder])
	assert.True(t, fields[state.FieldPageSize])
	assert.True(t, fields[state.FieldSort])
	assert.Equal(t, 25, vs.Pagination.PageSize)
	assert.Equal(t, &models.SortState{Key: "age", Direction: models.SortDesc}, vs.Sort)

	_, _, err = Decode([]byte(`not json`), logger.Discard())
	assert.Error(t, err)
}

func TestPersisterStorageMode(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	p, err := NewPersister(ModeStorage, "users", mem, logger.Discard())
	require.NoError(t, err)

	_, _, found := p.Load(ctx)
	assert.False(t, found)

	require.NoError(t, p.Save(ctx, customized(t).State()))
	raw, err := mem.Get(ctx, "smartTableState:users")
	require.NoError(t, err)
	assert.Contains(t, raw, `"searchTerm":"smith"`)

	s := newStore(t)
	assert.True(t, p.Restore(ctx, s))
	assert.Equal(t, "smith", s.State().SearchTerm)

	require.NoError(t, p.Clear(ctx))
	_, _, found = p.Load(ctx)
	assert.False(t, found)
}

func TestPersisterMalformedStorageIsIgnored(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.Set(ctx, StorageKey("users"), "{broken"))

	p, err := NewPersister(ModeStorage, "users", mem, logger.Discard())
	require.NoError(t, err)

	s := newStore(t)
	assert.False(t, p.Restore(ctx, s))
	assert.Equal(t, 1, s.State().Pagination.CurrentPage)
}

func TestPersisterURLMode(t *testing.T) {
	ctx := context.Background()
	p, err := NewPersister(ModeURL, "users", nil, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, p.SetQuery("tab=2"))

	require.NoError(t, p.Save(ctx, customized(t).State()))

	q, err := url.ParseQuery(p.Query())
	require.NoError(t, err)
	assert.Equal(t, "2", q.Get("tab"))
	assert.Contains(t, q.Get(URLParam("users")), `"searchTerm":"smith"`)

	// a fresh persister given only the link restores from it
	other, err := NewPersister(ModeURL, "users", NewMemoryStore(), logger.Discard())
	require.NoError(t, err)
	require.NoError(t, other.SetQuery(p.Query()))
	vs, fields, found := other.Load(ctx)
	require.True(t, found)
	assert.True(t, fields[state.FieldSearchTerm])
	assert.Equal(t, "smith", vs.SearchTerm)
}

func TestPersisterURLDoubleEncoded(t *testing.T) {
	ctx := context.Background()
	p, err := NewPersister(ModeURL, "t", nil, logger.Discard())
	require.NoError(t, err)

	doc := `{"searchTerm":"a b","page":2}`
	once := url.QueryEscape(doc)
	require.NoError(t, p.SetQuery(URLParam("t")+"="+url.QueryEscape(once)))

	vs, _, found := p.Load(ctx)
	require.True(t, found)
	assert.Equal(t, "a b", vs.SearchTerm)
	assert.Equal(t, 2, vs.Pagination.CurrentPage)
}

func TestPersisterURLFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.Set(ctx, StorageKey("t"), `{"searchTerm":"stored"}`))

	p, err := NewPersister(ModeURL, "t", mem, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, p.SetQuery(URLParam("t")+"=garbage"))

	vs, _, found := p.Load(ctx)
	require.True(t, found)
	assert.Equal(t, "stored", vs.SearchTerm)
}

func TestPersisterNoneMode(t *testing.T) {
	ctx := context.Background()
	p, err := NewPersister(ModeNone, "t", nil, nil)
	require.NoError(t, err)

	require.NoError(t, p.Save(ctx, newStore(t).State()))
	_, _, found := p.Load(ctx)
	assert.False(t, found)
	assert.Empty(t, p.Query())

	_, err = NewPersister("cookie", "t", nil, nil)
	assert.Error(t, err)
}

func testKeyValueStore(t *testing.T, store KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "a", "1"))
	require.NoError(t, store.Set(ctx, "a", "2"))
	v, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, "a"))
}

func TestMemoryStore(t *testing.T) {
	testKeyValueStore(t, NewMemoryStore())
}

func TestYAMLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")
	store, err := NewYAMLStore(path)
	require.NoError(t, err)
	testKeyValueStore(t, store)

	require.NoError(t, store.Set(context.Background(), "kept", `{"page":2}`))
	reopened, err := NewYAMLStore(path)
	require.NoError(t, err)
	v, err := reopened.Get(context.Background(), "kept")
	require.NoError(t, err)
	assert.Equal(t, `{"page":2}`, v)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	testKeyValueStore(t, store)

	require.NoError(t, store.Set(context.Background(), "kept", "x"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, err := reopened.Get(context.Background(), "kept")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}
