// Package pipeline runs the filter → search → sort stages shared by the
// client-side view derivation and the in-memory data source.
package pipeline

import (
	"golang.org/x/text/language"

	"github.com/rebeliceyang/lazytable/internal/compare"
	"github.com/rebeliceyang/lazytable/internal/filter"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/search"
)

// Options selects what each stage does
type Options struct {
	Columns       []models.Column
	Filters       *models.FilterSpec
	SearchTerm    string
	SearchColumns []string
	SearchMode    models.SearchMode
	Sort          *models.SortState
	Locale        language.Tag
}

// FromParams maps remote query params onto pipeline options
func FromParams(params models.QueryParams, columns []models.Column, locale language.Tag) Options {
	return Options{
		Columns:       columns,
		Filters:       params.Filters,
		SearchTerm:    params.SearchTerm,
		SearchColumns: params.SearchColumns,
		SearchMode:    params.SearchMode,
		Sort:          params.Sort,
		Locale:        locale,
	}
}

// Filter applies the filter and search stages
func Filter(records []models.Record, opts Options) []models.Record {
	out := filter.Apply(records, opts.Filters)
	return search.NewMatcher(opts.Columns).Apply(out, opts.SearchTerm, opts.SearchColumns, opts.SearchMode)
}

// Run applies filter, search and sort. The input slice is never reordered.
func Run(records []models.Record, opts Options) []models.Record {
	out := Filter(records, opts)
	if opts.Sort == nil {
		return out
	}
	return compare.Sort(out, opts.Sort, opts.Columns, compare.WithLocale(opts.Locale))
}
