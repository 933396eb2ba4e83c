package engine

import (
	"slices"

	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/state"
)

// SetRecords replaces the client-side record set
func (e *Engine) SetRecords(records []models.Record) {
	e.mu.Lock()
	e.records = slices.Clone(records)
	e.mu.Unlock()
	e.syncTotal(e.store.State())
}

// UpsertRecord replaces the record with the same id, or appends it when the
// id is new. In server mode only the cached page is touched.
func (e *Engine) UpsertRecord(rec models.Record) {
	if e.opts.Mode == ModeServer {
		snap := e.adapter.Snapshot()
		items, added := upsert(snap.Items, rec)
		total := snap.Total
		if added {
			total++
		}
		e.adapter.Replace(items, total)
		return
	}

	e.mu.Lock()
	e.records, _ = upsert(e.records, rec)
	e.mu.Unlock()
	e.syncTotal(e.store.State())
}

// DeleteRecord removes the record with id. It reports whether one was found.
func (e *Engine) DeleteRecord(id string) bool {
	if e.opts.Mode == ModeServer {
		snap := e.adapter.Snapshot()
		items, removed := remove(snap.Items, id)
		if removed {
			e.adapter.Replace(items, max(0, snap.Total-1))
		}
		return removed
	}

	e.mu.Lock()
	var removed bool
	e.records, removed = remove(e.records, id)
	e.mu.Unlock()
	if removed {
		e.syncTotal(e.store.State())
	}
	return removed
}

// ExportRows returns the exportable columns in display order and every
// filtered row (the loaded rows in server mode)
func (e *Engine) ExportRows() ([]models.Column, []models.Record) {
	columns := models.SearchableColumns(state.VisibleColumns(e.store.State(), e.Columns()))
	return columns, e.View().Filtered
}

func upsert(records []models.Record, rec models.Record) ([]models.Record, bool) {
	out := slices.Clone(records)
	id := rec.ID()
	for i, existing := range out {
		if existing.ID() == id {
			out[i] = rec
			return out, false
		}
	}
	return append(out, rec), true
}

func remove(records []models.Record, id string) ([]models.Record, bool) {
	out := slices.DeleteFunc(slices.Clone(records), func(r models.Record) bool {
		return r.ID() == id
	})
	return out, len(out) != len(records)
}
