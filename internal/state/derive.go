package state

import (
	"slices"

	"golang.org/x/text/language"

	"github.com/rebeliceyang/lazytable/internal/filter"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/pipeline"
	"github.com/rebeliceyang/lazytable/internal/window"
)

// PageRadius is how many page buttons are shown either side of the current page
const PageRadius = 2

// DefaultStatusTypes are the statuses counted by StatusSummary when none are given
var DefaultStatusTypes = []string{"ready", "inProgress", "completed", "urgent"}

// DeriveOptions selects the windowing strategy
type DeriveOptions struct {
	Locale language.Tag
	// Server means records already are the filtered, sorted page (or the
	// accumulated pages in infinite mode) and ServerTotal is the full count.
	Server      bool
	ServerTotal int
	// Infinite uses the growing window of VisibleCount rows instead of pages.
	Infinite     bool
	VisibleCount int
}

// Derived is everything a view renders for one state
type Derived struct {
	Visible       []models.Record
	Filtered      []models.Record
	TotalItems    int
	CurrentPage   int
	TotalPages    int
	Range         window.PageRange
	VisibleCount  int
	PageNumbers   []int
	StatusSummary StatusSummary
}

// Derive runs filter, search, sort and windowing. It is a pure function of
// its arguments.
func Derive(records []models.Record, vs ViewState, columns []models.Column, opts DeriveOptions) Derived {
	pageSize := vs.Pagination.PageSize

	var filtered []models.Record
	total := 0
	if opts.Server {
		filtered = records
		total = opts.ServerTotal
	} else {
		filtered = pipeline.Run(records, pipeline.Options{
			Columns:       columns,
			Filters:       vs.EffectiveFilters(),
			SearchTerm:    vs.SearchTerm,
			SearchColumns: vs.SearchColumns,
			SearchMode:    vs.SearchMode,
			Sort:          vs.Sort,
			Locale:        opts.Locale,
		})
		total = len(filtered)
	}

	page := window.Clamp(vs.Pagination.CurrentPage, total, pageSize)
	d := Derived{
		Filtered:      filtered,
		TotalItems:    total,
		CurrentPage:   page,
		TotalPages:    window.TotalPages(total, pageSize),
		StatusSummary: Summarize(filtered, nil),
	}

	switch {
	case opts.Infinite:
		d.Visible = filtered[:min(max(opts.VisibleCount, 0), len(filtered))]
		if d.VisibleCount = len(d.Visible); d.VisibleCount > 0 {
			d.Range = window.PageRange{Start: 1, End: d.VisibleCount}
		}
	case opts.Server:
		d.Visible = filtered
		d.VisibleCount = len(filtered)
		d.Range = window.Range(total, page, pageSize)
	default:
		d.Visible = window.Page(filtered, page, pageSize)
		d.VisibleCount = len(d.Visible)
		d.Range = window.Range(total, page, pageSize)
	}
	d.PageNumbers = window.PageNumbers(page, d.TotalPages, PageRadius)
	return d
}

// StatusSummary counts records per status plus the total
type StatusSummary struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

// Summarize counts the given statuses (DefaultStatusTypes when nil)
func Summarize(records []models.Record, statuses []string) StatusSummary {
	if statuses == nil {
		statuses = DefaultStatusTypes
	}
	summary := StatusSummary{Total: len(records), Counts: make(map[string]int, len(statuses))}
	for _, status := range statuses {
		summary.Counts[status] = 0
	}
	for _, rec := range records {
		s, ok := rec[models.StatusField].(string)
		if !ok {
			continue
		}
		if _, tracked := summary.Counts[s]; tracked {
			summary.Counts[s]++
		}
	}
	return summary
}

// CountBy counts records whose field strictly equals value. A nil value counts
// every record, like an "all" badge.
func CountBy(records []models.Record, field string, value any) int {
	if value == nil {
		return len(records)
	}
	n := 0
	for _, rec := range records {
		if filter.StrictEqual(models.Value(rec, field), value) {
			n++
		}
	}
	return n
}

// VisibleColumns returns the non-hidden columns in the state's column order
func VisibleColumns(vs ViewState, columns []models.Column) []models.Column {
	index := models.ColumnIndex(columns)
	out := make([]models.Column, 0, len(columns))
	for _, key := range ReconcileOrder(vs.ColumnOrder, columns) {
		if slices.Contains(vs.HiddenColumns, key) {
			continue
		}
		out = append(out, index[key])
	}
	return out
}
