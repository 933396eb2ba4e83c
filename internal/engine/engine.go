// Package engine wires the view state store, the data source adapter and
// state persistence into one table.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/text/language"

	"github.com/rebeliceyang/lazytable/internal/datasource"
	"github.com/rebeliceyang/lazytable/internal/logger"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/persistence"
	"github.com/rebeliceyang/lazytable/internal/pipeline"
	"github.com/rebeliceyang/lazytable/internal/state"
	"github.com/rebeliceyang/lazytable/internal/window"
)

// DataMode says where filtering, sorting and paging happen
type DataMode string

const (
	// ModeClient derives everything in memory from Records
	ModeClient DataMode = "client"
	// ModeServer sends the state to Source as query params
	ModeServer DataMode = "server"
)

// ErrNoSource is returned for server mode without a source
var ErrNoSource = errors.New("server mode needs a data source")

// Options configures an Engine
type Options struct {
	State     state.Config
	Mode      DataMode
	Infinite  bool
	Records   []models.Record   // client mode
	Source    datasource.Source // server mode
	Persister *persistence.Persister
	Locale    language.Tag
	Logger    *slog.Logger
}

// Engine is one table session
type Engine struct {
	opts      Options
	log       *slog.Logger
	store     *state.Store
	adapter   *datasource.Adapter
	persister *persistence.Persister

	mu      sync.Mutex
	records []models.Record
	baseKey string

	unsubscribe []func()
}

// New creates the engine, restores persisted state and, in server mode,
// dispatches the first query
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Mode == "" {
		opts.Mode = ModeClient
	}
	if opts.Mode != ModeClient && opts.Mode != ModeServer {
		return nil, fmt.Errorf("unknown data mode %q", opts.Mode)
	}
	if opts.Mode == ModeServer && opts.Source == nil {
		return nil, ErrNoSource
	}

	store, err := state.NewStore(opts.State)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:      opts,
		log:       logger.Or(opts.Logger),
		store:     store,
		persister: opts.Persister,
		records:   slices.Clone(opts.Records),
	}

	if e.persister != nil {
		e.persister.Restore(ctx, store)
	}

	if opts.Mode == ModeServer {
		e.adapter = datasource.NewAdapter(opts.Source, datasource.WithLogger(e.log))
		e.unsubscribe = append(e.unsubscribe, e.adapter.Subscribe(e.onResult))
	}
	e.unsubscribe = append(e.unsubscribe, store.Subscribe(func(vs state.ViewState) {
		e.onStateChange(ctx, vs)
	}))

	if opts.Mode == ModeServer {
		e.dispatch(store.State())
	} else {
		e.syncTotal(store.State())
	}
	return e, nil
}

// Store exposes the named view state transitions
func (e *Engine) Store() *state.Store {
	return e.store
}

// Columns returns the configured columns
func (e *Engine) Columns() []models.Column {
	return e.store.Columns()
}

func (e *Engine) onStateChange(ctx context.Context, vs state.ViewState) {
	if e.persister != nil {
		if err := e.persister.Save(ctx, vs); err != nil {
			e.log.Warn("failed to persist view state", "error", err)
		}
	}
	if e.opts.Mode == ModeServer {
		e.dispatch(vs)
		return
	}
	e.syncTotal(vs)
}

// params are the query params for the first (or only) requested window
func (e *Engine) params(vs state.ViewState) models.QueryParams {
	params := vs.QueryParams()
	if e.opts.Infinite {
		params.Page = 1
	}
	return params
}

// dispatch sends the state to the source when the query it encodes changed
func (e *Engine) dispatch(vs state.ViewState) {
	params := e.params(vs)
	key, err := params.Key()
	if err != nil {
		e.log.Error("failed to encode query", "error", err)
		return
	}

	e.mu.Lock()
	if key == e.baseKey {
		e.mu.Unlock()
		return
	}
	e.baseKey = key
	e.mu.Unlock()

	if _, err := e.adapter.Load(params, false); err != nil {
		e.log.Error("failed to dispatch query", "error", err)
	}
}

// onResult feeds server totals back into the pagination state
func (e *Engine) onResult(snap datasource.Snapshot) {
	if snap.Loading {
		return
	}
	if e.opts.Infinite {
		e.store.AcceptLoaded(len(snap.Items))
	}
	e.store.SetTotalItems(snap.Total)
}

// syncTotal recounts the filtered client rows so the page stays in range
func (e *Engine) syncTotal(vs state.ViewState) {
	e.mu.Lock()
	records := e.records
	e.mu.Unlock()

	filtered := pipeline.Filter(records, pipeline.Options{
		Columns:       e.Columns(),
		Filters:       vs.EffectiveFilters(),
		SearchTerm:    vs.SearchTerm,
		SearchColumns: vs.SearchColumns,
		SearchMode:    vs.SearchMode,
	})
	e.store.SetTotalItems(len(filtered))
}

// View derives the rows and pager data for the current state
func (e *Engine) View() state.Derived {
	vs := e.store.State()
	opts := state.DeriveOptions{
		Locale:   e.opts.Locale,
		Infinite: e.opts.Infinite,
	}

	if e.opts.Mode == ModeServer {
		snap := e.adapter.Snapshot()
		opts.Server = true
		opts.ServerTotal = snap.Total
		opts.VisibleCount = len(snap.Items)
		return state.Derive(snap.Items, vs, e.Columns(), opts)
	}

	e.mu.Lock()
	records := e.records
	e.mu.Unlock()
	opts.VisibleCount = e.store.VisibleCount()
	return state.Derive(records, vs, e.Columns(), opts)
}

// VisibleColumns returns the shown columns in display order
func (e *Engine) VisibleColumns() []models.Column {
	return state.VisibleColumns(e.store.State(), e.Columns())
}

// OnScroll reports the last rendered row index in infinite mode. It grows
// the window or fetches and appends the next server page.
func (e *Engine) OnScroll(lastSeen int) window.ScrollResult {
	if !e.opts.Infinite {
		return window.ScrollNone
	}

	if e.opts.Mode == ModeClient {
		return e.store.Scroll(lastSeen, e.View().TotalItems)
	}

	snap := e.adapter.Snapshot()
	if snap.Loading {
		return window.ScrollNone
	}
	page, ok := e.store.NeedsFetch(lastSeen, len(snap.Items), snap.Total)
	if !ok {
		return window.ScrollNone
	}
	params := e.params(e.store.State())
	params.Page = page
	if _, err := e.adapter.Load(params, true); err != nil {
		e.log.Error("failed to dispatch next page", "error", err)
		return window.ScrollNone
	}
	return window.ScrollFetch
}

// Refresh reissues the current server query. In infinite mode the rows load
// again from the first page.
func (e *Engine) Refresh() {
	if e.adapter == nil {
		return
	}
	if e.opts.Infinite {
		e.store.ResetWindow()
	}
	e.adapter.Refresh()
}

// Loading reports whether a server query is in flight
func (e *Engine) Loading() bool {
	return e.adapter != nil && e.adapter.Snapshot().Loading
}

// Error returns the last data source failure, if any
func (e *Engine) Error() string {
	if e.adapter == nil {
		return ""
	}
	return e.adapter.Snapshot().Error
}

// Wait blocks until in-flight server queries have settled
func (e *Engine) Wait() {
	if e.adapter != nil {
		e.adapter.Wait()
	}
}

// Close releases the pending query and all subscriptions
func (e *Engine) Close() {
	for _, fn := range e.unsubscribe {
		fn()
	}
	e.unsubscribe = nil
	if e.adapter != nil {
		e.adapter.Close()
	}
}
