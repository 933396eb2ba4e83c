package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/rebeliceyang/lazytable/internal/datasource"
	"github.com/rebeliceyang/lazytable/internal/logger"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/persistence"
	"github.com/rebeliceyang/lazytable/internal/state"
	"github.com/rebeliceyang/lazytable/internal/window"
)

var columns = []models.Column{
	{Key: "name", Header: "Name", Type: models.ColumnText, Sortable: true},
	{Key: "age", Header: "Age", Type: models.ColumnNumber, Sortable: true},
	{Key: "status", Header: "Status", Type: models.ColumnBadge},
	{Key: "edit", Type: models.ColumnAction},
}

func users(n int) []models.Record {
	statuses := []string{"ready", "urgent"}
	out := make([]models.Record, n)
	for i := range out {
		out[i] = models.Record{
			"id":     fmt.Sprint(i + 1),
			"name":   fmt.Sprintf("user%02d", i+1),
			"age":    20 + i,
			"status": statuses[i%2],
		}
	}
	return out
}

func ids(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	return out
}

func newClient(t *testing.T, records []models.Record, opts ...func(*Options)) *Engine {
	t.Helper()
	o := Options{
		State:   state.Config{Columns: columns, PageSize: 5, PageSizeOptions: []int{5, 10}},
		Mode:    ModeClient,
		Records: records,
		Locale:  language.English,
		Logger:  logger.Discard(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	e, err := New(context.Background(), o)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func newServer(t *testing.T, src datasource.Source, opts ...func(*Options)) *Engine {
	t.Helper()
	return newClient(t, nil, append([]func(*Options){func(o *Options) {
		o.Mode = ModeServer
		o.Source = src
	}}, opts...)...)
}

func settle(e *Engine) {
	for {
		e.Wait()
		if !e.Loading() {
			return
		}
	}
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(context.Background(), Options{State: state.Config{Columns: columns}, Mode: ModeServer})
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = New(context.Background(), Options{State: state.Config{Columns: columns}, Mode: "hybrid"})
	assert.Error(t, err)
}

func TestClientView(t *testing.T) {
	e := newClient(t, users(12))

	v := e.View()
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(v.Visible))
	assert.Equal(t, 12, v.TotalItems)
	assert.Equal(t, 3, v.TotalPages)

	e.Store().SetPage(3)
	assert.Equal(t, []string{"11", "12"}, ids(e.View().Visible))

	e.Store().SetSimpleFilter("status", "urgent")
	v = e.View()
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, 6, v.TotalItems)
	assert.Equal(t, []string{"2", "4", "6", "8", "10"}, ids(v.Visible))

	e.Store().ToggleSort("age")
	e.Store().ToggleSort("age")
	assert.Equal(t, []string{"12", "10", "8", "6", "4"}, ids(e.View().Visible))
}

func TestClientPageFollowsShrinkingData(t *testing.T) {
	e := newClient(t, users(12))
	e.Store().SetPage(3)

	e.SetRecords(users(6))
	assert.Equal(t, 2, e.Store().State().Pagination.CurrentPage)
	assert.Equal(t, []string{"6"}, ids(e.View().Visible))
}

func TestClientRecordEdits(t *testing.T) {
	e := newClient(t, users(3))

	e.UpsertRecord(models.Record{"id": "2", "name": "renamed", "age": 99, "status": "ready"})
	e.UpsertRecord(models.Record{"id": "4", "name": "new", "age": 1, "status": "ready"})

	v := e.View()
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(v.Visible))
	assert.Equal(t, "renamed", v.Visible[1]["name"])

	assert.True(t, e.DeleteRecord("1"))
	assert.False(t, e.DeleteRecord("missing"))
	assert.Equal(t, []string{"2", "3", "4"}, ids(e.View().Visible))
}

func TestClientInfiniteScroll(t *testing.T) {
	e := newClient(t, users(12), func(o *Options) { o.Infinite = true })

	assert.Len(t, e.View().Visible, 5)
	assert.Equal(t, window.ScrollNone, e.OnScroll(0))
	assert.Equal(t, window.ScrollGrew, e.OnScroll(3))
	assert.Len(t, e.View().Visible, 10)
	assert.Equal(t, window.ScrollGrew, e.OnScroll(9))
	assert.Len(t, e.View().Visible, 12)
	assert.Equal(t, window.ScrollNone, e.OnScroll(11))

	// user10, user11 and user12
	e.Store().SetSearchTerm("user1")
	assert.Len(t, e.View().Visible, 3)
}

func TestExportRows(t *testing.T) {
	e := newClient(t, users(12))
	e.Store().ToggleColumnVisibility("age")
	e.Store().SetSimpleFilter("status", "ready")

	cols, rows := e.ExportRows()
	assert.Equal(t, []string{"name", "status"}, models.ColumnKeys(cols))
	assert.Len(t, rows, 6)
}

func TestServerMode(t *testing.T) {
	src := datasource.NewStaticSource(users(12), columns, language.English)
	e := newServer(t, src)
	settle(e)

	v := e.View()
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(v.Visible))
	assert.Equal(t, 12, v.TotalItems)
	assert.Equal(t, 3, v.TotalPages)
	assert.Equal(t, 12, e.Store().State().Pagination.TotalItems)

	e.Store().SetPage(3)
	settle(e)
	assert.Equal(t, []string{"11", "12"}, ids(e.View().Visible))

	e.Store().SetSearchTerm("user1")
	settle(e)
	v = e.View()
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, 3, v.TotalItems)
	assert.Equal(t, []string{"10", "11", "12"}, ids(v.Visible))
}

func TestServerDeduplicatesDispatch(t *testing.T) {
	var calls atomic.Int32
	static := datasource.NewStaticSource(users(12), columns, language.English)
	src := datasource.SourceFunc(func(ctx context.Context, p models.QueryParams) (any, error) {
		calls.Add(1)
		return static.Load(ctx, p)
	})
	e := newServer(t, src)
	settle(e)
	assert.Equal(t, int32(1), calls.Load())

	// layout changes do not touch the query
	e.Store().ToggleColumnVisibility("age")
	e.Store().MoveColumn(0, 1)
	settle(e)
	assert.Equal(t, int32(1), calls.Load())

	e.Refresh()
	settle(e)
	assert.Equal(t, int32(2), calls.Load())
}

func TestServerError(t *testing.T) {
	src := datasource.SourceFunc(func(context.Context, models.QueryParams) (any, error) {
		return nil, errors.New("database is down")
	})
	e := newServer(t, src)
	settle(e)

	assert.Equal(t, "database is down", e.Error())
	assert.Empty(t, e.View().Visible)
}

func TestServerInfiniteScroll(t *testing.T) {
	src := datasource.NewStaticSource(users(12), columns, language.English)
	e := newServer(t, src, func(o *Options) { o.Infinite = true })
	settle(e)
	assert.Len(t, e.View().Visible, 5)

	assert.Equal(t, window.ScrollNone, e.OnScroll(0))
	assert.Equal(t, window.ScrollFetch, e.OnScroll(3))
	settle(e)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, ids(e.View().Visible))

	assert.Equal(t, window.ScrollFetch, e.OnScroll(9))
	settle(e)
	assert.Len(t, e.View().Visible, 12)
	assert.Equal(t, window.ScrollNone, e.OnScroll(11))
}

func TestServerRefresh(t *testing.T) {
	var calls atomic.Int32
	static := datasource.NewStaticSource(users(12), columns, language.English)
	src := datasource.SourceFunc(func(ctx context.Context, p models.QueryParams) (any, error) {
		calls.Add(1)
		return static.Load(ctx, p)
	})
	e := newServer(t, src)
	settle(e)
	e.Store().SetPage(2)
	settle(e)
	require.Equal(t, []string{"6", "7", "8", "9", "10"}, ids(e.View().Visible))

	static.SetRecords(users(8))
	e.Refresh()
	settle(e)

	v := e.View()
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, v.CurrentPage)
	assert.Equal(t, 8, v.TotalItems)
	assert.Equal(t, 8, e.Store().State().Pagination.TotalItems)
	assert.Equal(t, []string{"6", "7", "8"}, ids(v.Visible))
}

func TestServerInfiniteRefreshReloadsFirstPage(t *testing.T) {
	src := datasource.NewStaticSource(users(12), columns, language.English)
	e := newServer(t, src, func(o *Options) { o.Infinite = true })
	settle(e)

	require.Equal(t, window.ScrollFetch, e.OnScroll(4))
	settle(e)
	require.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, ids(e.View().Visible))

	e.Refresh()
	settle(e)

	v := e.View()
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(v.Visible))
	assert.Equal(t, 12, v.TotalItems)
	assert.Equal(t, 5, e.Store().VisibleCount())

	// scrolling continues from the reloaded rows without duplicates
	assert.Equal(t, window.ScrollFetch, e.OnScroll(4))
	settle(e)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, ids(e.View().Visible))
}

func TestServerRecordEdits(t *testing.T) {
	src := datasource.NewStaticSource(users(3), columns, language.English)
	e := newServer(t, src)
	settle(e)

	e.UpsertRecord(models.Record{"id": "9", "name": "added"})
	assert.Equal(t, 4, e.View().TotalItems)
	assert.True(t, e.DeleteRecord("1"))
	v := e.View()
	assert.Equal(t, 3, v.TotalItems)
	assert.Equal(t, []string{"2", "3", "9"}, ids(v.Visible))
}

func TestPersistedStateIsRestoredAndSaved(t *testing.T) {
	ctx := context.Background()
	mem := persistence.NewMemoryStore()
	p, err := persistence.NewPersister(persistence.ModeStorage, "users", mem, logger.Discard())
	require.NoError(t, err)

	first := newClient(t, users(12), func(o *Options) { o.Persister = p })
	first.Store().SetSearchTerm("user1")
	first.Store().SetPageSize(10)

	raw, err := mem.Get(ctx, persistence.StorageKey("users"))
	require.NoError(t, err)
	assert.Contains(t, raw, `"pageSize":10`)

	second := newClient(t, users(12), func(o *Options) { o.Persister = p })
	vs := second.Store().State()
	assert.Equal(t, "user1", vs.SearchTerm)
	assert.Equal(t, 10, vs.Pagination.PageSize)
	assert.Len(t, second.View().Visible, 3)
}
