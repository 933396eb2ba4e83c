package datasource

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/rebeliceyang/lazytable/internal/logger"
	"github.com/rebeliceyang/lazytable/internal/models"
)

// Snapshot is a consistent view of the adapter. Items must not be modified.
type Snapshot struct {
	Items   []models.Record
	Total   int
	Loading bool
	Error   string
	Key     string
}

// Adapter drives a Source for the engine. Results are applied under a lock
// and observers are notified after it is released.
type Adapter struct {
	source Source
	log    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	items      []models.Record
	total      int
	loading    bool
	errMsg     string
	current    string
	lastParams models.QueryParams
	lastAppend bool
	baseKey    string
	baseParams models.QueryParams
	closed     bool
	observers  map[int]func(Snapshot)
	nextID     int
}

// AdapterOption configures an Adapter
type AdapterOption func(*Adapter)

// WithLogger sets the adapter logger
func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.log = l
	}
}

// NewAdapter creates an adapter around source
func NewAdapter(source Source, opts ...AdapterOption) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		source:    source,
		ctx:       ctx,
		cancel:    cancel,
		observers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logger.Or(a.log)
	return a
}

// Load dispatches params unless they encode to the key of the last dispatched
// query. appendMode accumulates items instead of replacing them. It reports
// whether a new dispatch happened.
func (a *Adapter) Load(params models.QueryParams, appendMode bool) (bool, error) {
	key, err := params.Key()
	if err != nil {
		return false, err
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false, nil
	}
	if key == a.current {
		a.mu.Unlock()
		return false, nil
	}
	snap := a.dispatchLocked(key, params, appendMode)
	observers := a.observersLocked()
	a.mu.Unlock()

	notify(observers, snap)
	return true, nil
}

// Refresh re-dispatches the last query even though its key is unchanged.
// After appended pages it reloads the first page in replace mode, so the
// accumulated rows are not appended twice.
func (a *Adapter) Refresh() bool {
	a.mu.Lock()
	if a.closed || a.current == "" {
		a.mu.Unlock()
		return false
	}
	key, params := a.current, a.lastParams
	if a.lastAppend && a.baseKey != "" {
		key, params = a.baseKey, a.baseParams
	}
	snap := a.dispatchLocked(key, params, false)
	observers := a.observersLocked()
	a.mu.Unlock()

	notify(observers, snap)
	return true
}

func (a *Adapter) dispatchLocked(key string, params models.QueryParams, appendMode bool) Snapshot {
	a.current = key
	a.lastParams = params
	a.lastAppend = appendMode
	if !appendMode {
		a.baseKey = key
		a.baseParams = params
	}
	a.loading = true
	a.errMsg = ""

	id := uuid.NewString()
	a.log.Debug("dispatching query", "dispatch_id", id, "page", params.Page, "page_size", params.PageSize, "append", appendMode)

	a.wg.Add(1)
	go a.run(id, key, params, appendMode)
	return a.snapshotLocked()
}

func (a *Adapter) run(id, key string, params models.QueryParams, appendMode bool) {
	defer a.wg.Done()

	result, err := a.resolve(params)
	a.apply(id, key, appendMode, result, err)
}

func (a *Adapter) resolve(params models.QueryParams) (models.QueryResult, error) {
	v, err := a.source.Load(a.ctx, params)
	if err != nil {
		return models.QueryResult{}, err
	}
	settled, err := toFuture(a.ctx, v).Await(a.ctx)
	if err != nil {
		return models.QueryResult{}, err
	}
	return Normalize(settled)
}

func (a *Adapter) apply(id, key string, appendMode bool, result models.QueryResult, err error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	if key != a.current {
		a.mu.Unlock()
		a.log.Debug("discarding stale result", "dispatch_id", id)
		return
	}

	a.loading = false
	if err != nil {
		a.items = nil
		a.total = 0
		a.errMsg = err.Error()
		a.log.Error("data source failed", "dispatch_id", id, "error", err)
	} else if appendMode {
		a.items = slices.Concat(a.items, result.Items)
		a.total = result.TotalOr(len(a.items))
	} else {
		a.items = result.Items
		a.total = result.TotalOr(len(result.Items))
	}
	snap := a.snapshotLocked()
	observers := a.observersLocked()
	a.mu.Unlock()

	if err == nil {
		a.log.Debug("query resolved", "dispatch_id", id, "items", len(result.Items), "total", snap.Total)
	}
	notify(observers, snap)
}

// Replace swaps the cached record set, for local edits between queries
func (a *Adapter) Replace(items []models.Record, total int) {
	a.mu.Lock()
	a.items = items
	a.total = total
	snap := a.snapshotLocked()
	observers := a.observersLocked()
	a.mu.Unlock()

	notify(observers, snap)
}

// Snapshot returns the current state
func (a *Adapter) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Adapter) snapshotLocked() Snapshot {
	return Snapshot{
		Items:   a.items,
		Total:   a.total,
		Loading: a.loading,
		Error:   a.errMsg,
		Key:     a.current,
	}
}

// Subscribe registers fn for every state change and returns its cancel func
func (a *Adapter) Subscribe(fn func(Snapshot)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.observers[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.observers, id)
		a.mu.Unlock()
	}
}

func (a *Adapter) observersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(a.observers))
	for id := 0; id < a.nextID; id++ {
		if fn, ok := a.observers[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(observers []func(Snapshot), snap Snapshot) {
	for _, fn := range observers {
		fn(snap)
	}
}

// Wait blocks until every dispatched query has settled
func (a *Adapter) Wait() {
	a.wg.Wait()
}

// Close releases the pending query. Results arriving afterwards are dropped.
// The source itself is left open for its owner to close.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	a.loading = false
	a.cancel()
}
