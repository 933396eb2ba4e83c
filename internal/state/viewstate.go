// Package state holds the table view state, the named transitions that mutate
// it and the pure derivation of the visible rows.
package state

import (
	"slices"

	"github.com/rebeliceyang/lazytable/internal/models"
)

// ViewState is the full description of what the table shows
type ViewState struct {
	SearchTerm    string
	Filters       map[string]any      // flat filter from quick filters
	Advanced      *models.FilterGroup // condition tree from the filter builder
	Sort          *models.SortState
	Pagination    models.Pagination
	ColumnOrder   []string
	HiddenColumns []string
	SearchColumns []string
	SearchMode    models.SearchMode
}

// Config is the static configuration a view starts from
type Config struct {
	Columns         []models.Column
	PageSize        int
	PageSizeOptions []int
	SearchMode      models.SearchMode
	Sort            *models.SortState
	Filters         map[string]any
	SearchColumns   []string
}

// DefaultPageSize is used when the config leaves it unset
const DefaultPageSize = 10

// DefaultPageSizeOptions are offered by the pager when none are configured
var DefaultPageSizeOptions = []int{5, 10, 25, 50}

// New builds the initial view state from configuration
func New(cfg Config) ViewState {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	options := cfg.PageSizeOptions
	if len(options) == 0 {
		options = DefaultPageSizeOptions
	}
	if !slices.Contains(options, pageSize) {
		options = append(slices.Clone(options), pageSize)
		slices.Sort(options)
	}
	mode := cfg.SearchMode
	if !mode.IsValid() {
		mode = models.SearchAny
	}

	var hidden []string
	for _, col := range cfg.Columns {
		if col.Hidden {
			hidden = append(hidden, col.Key)
		}
	}

	var sort *models.SortState
	if cfg.Sort != nil {
		s := *cfg.Sort
		sort = &s
	}

	return ViewState{
		Filters: models.CloneMap(cfg.Filters),
		Sort:    sort,
		Pagination: models.Pagination{
			CurrentPage:     1,
			PageSize:        pageSize,
			PageSizeOptions: slices.Clone(options),
		},
		ColumnOrder:   models.ColumnKeys(cfg.Columns),
		HiddenColumns: hidden,
		SearchColumns: slices.Clone(cfg.SearchColumns),
		SearchMode:    mode,
	}
}

// EffectiveFilters merges the flat and advanced filters. When both are set
// they become the two children of an AND group, flat map first.
func (vs ViewState) EffectiveFilters() *models.FilterSpec {
	simple := models.SimpleFilter(vs.Filters)
	hasSimple := !simple.IsEmpty()
	hasAdvanced := !vs.Advanced.IsEmpty()

	switch {
	case hasSimple && hasAdvanced:
		return models.GroupFilter(&models.FilterGroup{
			Logic: models.LogicAnd,
			Conditions: []models.FilterNode{
				models.SimpleNode(vs.Filters),
				models.GroupNode(vs.Advanced),
			},
		})
	case hasAdvanced:
		return models.GroupFilter(vs.Advanced)
	case hasSimple:
		return simple
	}
	return nil
}

// SplitFilters is the inverse of EffectiveFilters
func SplitFilters(spec *models.FilterSpec) (map[string]any, *models.FilterGroup) {
	if spec.IsEmpty() {
		return nil, nil
	}
	if spec.Group == nil {
		return spec.Simple, nil
	}
	g := spec.Group
	if g.Logic == models.LogicAnd && len(g.Conditions) == 2 &&
		g.Conditions[0].Kind == models.KindSimple && g.Conditions[1].Kind == models.KindGroup {
		return g.Conditions[0].Simple, g.Conditions[1].Group
	}
	return nil, g
}

// QueryParams encodes the state for a remote source
func (vs ViewState) QueryParams() models.QueryParams {
	return models.QueryParams{
		SearchTerm:    vs.SearchTerm,
		Page:          vs.Pagination.CurrentPage,
		PageSize:      vs.Pagination.PageSize,
		Sort:          vs.Sort,
		Filters:       vs.EffectiveFilters(),
		SearchColumns: vs.SearchColumns,
		SearchMode:    vs.SearchMode,
	}
}

// IsHidden reports whether the column key is hidden
func (vs ViewState) IsHidden(key string) bool {
	return slices.Contains(vs.HiddenColumns, key)
}

// Clone deep-copies the state so observers can keep it
func (vs ViewState) Clone() ViewState {
	out := vs
	out.Filters = models.CloneMap(vs.Filters)
	out.Advanced = vs.Advanced.Clone()
	if vs.Sort != nil {
		s := *vs.Sort
		out.Sort = &s
	}
	out.Pagination.PageSizeOptions = slices.Clone(vs.Pagination.PageSizeOptions)
	out.ColumnOrder = slices.Clone(vs.ColumnOrder)
	out.HiddenColumns = slices.Clone(vs.HiddenColumns)
	out.SearchColumns = slices.Clone(vs.SearchColumns)
	return out
}

// ReconcileOrder keeps known keys from order, drops duplicates and unknown
// keys, then appends missing keys in configured order.
func ReconcileOrder(order []string, columns []models.Column) []string {
	known := make(map[string]bool, len(columns))
	for _, col := range columns {
		known[col.Key] = true
	}

	out := make([]string, 0, len(columns))
	seen := make(map[string]bool, len(columns))
	for _, key := range order {
		if known[key] && !seen[key] {
			out = append(out, key)
			seen[key] = true
		}
	}
	for _, col := range columns {
		if !seen[col.Key] {
			out = append(out, col.Key)
			seen[col.Key] = true
		}
	}
	return out
}

// knownKeys filters keys to those accepted by allow, keeping order and
// dropping duplicates. An empty result is nil.
func knownKeys(keys []string, allow map[string]models.Column, pred func(models.Column) bool) []string {
	var out []string
	for _, key := range keys {
		col, ok := allow[key]
		if !ok || (pred != nil && !pred(col)) || slices.Contains(out, key) {
			continue
		}
		out = append(out, key)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
