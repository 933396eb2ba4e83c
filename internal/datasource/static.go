package datasource

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/text/language"

	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/pipeline"
	"github.com/rebeliceyang/lazytable/internal/window"
)

// StaticSource answers queries from an in-memory record set, applying the
// same filter, search and sort stages the client-side view uses.
type StaticSource struct {
	mu      sync.RWMutex
	records []models.Record
	columns []models.Column
	locale  language.Tag
}

// NewStaticSource creates a source over records
func NewStaticSource(records []models.Record, columns []models.Column, locale language.Tag) *StaticSource {
	return &StaticSource{
		records: slices.Clone(records),
		columns: columns,
		locale:  locale,
	}
}

// Load returns the requested page immediately
func (s *StaticSource) Load(_ context.Context, params models.QueryParams) (any, error) {
	s.mu.RLock()
	rows := pipeline.Run(s.records, pipeline.FromParams(params, s.columns, s.locale))
	s.mu.RUnlock()

	total := len(rows)
	if params.PageSize > 0 {
		rows = window.Page(rows, params.Page, params.PageSize)
	}
	return models.QueryResult{Items: rows, Total: models.IntPtr(total)}, nil
}

// Records returns a copy of the backing set
func (s *StaticSource) Records() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// SetRecords replaces the backing set
func (s *StaticSource) SetRecords(records []models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.Clone(records)
}
