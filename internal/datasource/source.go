// Package datasource adapts pluggable record sources to the table engine.
//
// A Source may answer a query with a models.QueryResult (or pointer), a
// []models.Record, a *Future settling to one of those, or a <-chan Payload
// whose first element is used. The Adapter reduces all of them to one
// asynchronous result, deduplicates identical queries and discards results
// that arrive after a newer query was dispatched.
package datasource

import (
	"context"

	"github.com/rebeliceyang/lazytable/internal/models"
)

// Source answers a query. Returning an error is the same as returning a
// future that rejects.
type Source interface {
	Load(ctx context.Context, params models.QueryParams) (any, error)
}

// SourceFunc adapts a plain function to Source
type SourceFunc func(ctx context.Context, params models.QueryParams) (any, error)

// Load calls f
func (f SourceFunc) Load(ctx context.Context, params models.QueryParams) (any, error) {
	return f(ctx, params)
}
