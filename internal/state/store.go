package state

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rebeliceyang/lazytable/internal/filter"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/window"
)

// Store owns one ViewState and exposes the named transitions that change it.
// Filtering, searching and sorting transitions go back to page 1 and reset
// the growing window. Page and page size transitions leave them alone.
type Store struct {
	mu         sync.Mutex
	columns    []models.Column
	index      map[string]models.Column
	state      ViewState
	totalKnown bool
	growing    *window.Growing
	observers  map[int]func(ViewState)
	nextID     int
}

// NewStore creates a store from configuration
func NewStore(cfg Config) (*Store, error) {
	if err := models.ValidateColumns(cfg.Columns); err != nil {
		return nil, fmt.Errorf("invalid columns: %w", err)
	}
	vs := New(cfg)
	return &Store{
		columns:   cfg.Columns,
		index:     models.ColumnIndex(cfg.Columns),
		state:     vs,
		growing:   window.NewGrowing(vs.Pagination.PageSize),
		observers: make(map[int]func(ViewState)),
	}, nil
}

// Columns returns the configured columns
func (s *Store) Columns() []models.Column {
	return s.columns
}

// State returns a copy of the current view state
func (s *Store) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn to run after every effective mutation
func (s *Store) Subscribe(fn func(ViewState)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// update applies fn under the lock and notifies observers when it reports a change
func (s *Store) update(fn func(vs *ViewState) bool) bool {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return false
	}
	snapshot := s.state.Clone()
	observers := make([]func(ViewState), 0, len(s.observers))
	for id := 0; id < s.nextID; id++ {
		if obs, ok := s.observers[id]; ok {
			observers = append(observers, obs)
		}
	}
	s.mu.Unlock()

	for _, obs := range observers {
		obs(snapshot)
	}
	return true
}

// resetView is called inside update for filter, search and sort changes
func (s *Store) resetView(vs *ViewState) {
	vs.Pagination.CurrentPage = 1
	s.growing.Reset(vs.Pagination.PageSize)
}

// SetSearchTerm changes the free-text search
func (s *Store) SetSearchTerm(term string) bool {
	return s.update(func(vs *ViewState) bool {
		if vs.SearchTerm == term {
			return false
		}
		vs.SearchTerm = term
		s.resetView(vs)
		return true
	})
}

// SetSort sets or clears (nil) the sort
func (s *Store) SetSort(sort *models.SortState) bool {
	return s.update(func(vs *ViewState) bool {
		if sameSort(vs.Sort, sort) {
			return false
		}
		if sort == nil {
			vs.Sort = nil
		} else {
			next := *sort
			if next.Direction != models.SortDesc {
				next.Direction = models.SortAsc
			}
			vs.Sort = &next
		}
		s.resetView(vs)
		return true
	})
}

// ToggleSort cycles a column header: asc, desc, then unsorted. Unsortable
// and unknown columns are ignored.
func (s *Store) ToggleSort(key string) bool {
	col, ok := s.index[key]
	if !ok || !col.Sortable {
		return false
	}
	return s.update(func(vs *ViewState) bool {
		switch {
		case vs.Sort == nil || vs.Sort.Key != key:
			vs.Sort = &models.SortState{Key: key, Direction: models.SortAsc}
		case vs.Sort.Direction == models.SortAsc:
			vs.Sort = &models.SortState{Key: key, Direction: models.SortDesc}
		default:
			vs.Sort = nil
		}
		s.resetView(vs)
		return true
	})
}

// SetFilters replaces all filters. A group spec becomes the advanced tree, a
// flat map becomes the quick filters. It fails on an invalid tree.
func (s *Store) SetFilters(spec *models.FilterSpec) error {
	if err := filter.Validate(spec); err != nil {
		return err
	}
	simple, advanced := SplitFilters(spec.Normalize())
	s.update(func(vs *ViewState) bool {
		vs.Filters = models.CloneMap(simple)
		vs.Advanced = advanced.Clone()
		s.resetView(vs)
		return true
	})
	return nil
}

// SetSimpleFilter sets one quick filter entry. A blank value removes it.
func (s *Store) SetSimpleFilter(field string, value any) bool {
	return s.update(func(vs *ViewState) bool {
		current, exists := vs.Filters[field]
		if models.IsBlank(value) {
			if !exists {
				return false
			}
			delete(vs.Filters, field)
		} else {
			if exists && filter.StrictEqual(current, value) {
				return false
			}
			if vs.Filters == nil {
				vs.Filters = make(map[string]any)
			}
			vs.Filters[field] = value
		}
		s.resetView(vs)
		return true
	})
}

// AddCondition appends a condition to the advanced group, creating the group
// on first use
func (s *Store) AddCondition(cond models.FilterCondition) error {
	if err := filter.ValidateCondition(cond); err != nil {
		return err
	}
	s.update(func(vs *ViewState) bool {
		if vs.Advanced == nil {
			vs.Advanced = &models.FilterGroup{Logic: models.LogicAnd}
		}
		vs.Advanced.Conditions = append(vs.Advanced.Conditions, models.ConditionNode(cond))
		s.resetView(vs)
		return true
	})
	return nil
}

// AddGroup appends a nested group to the advanced group
func (s *Store) AddGroup(group *models.FilterGroup) error {
	if err := filter.ValidateGroup(group); err != nil {
		return err
	}
	s.update(func(vs *ViewState) bool {
		if vs.Advanced == nil {
			vs.Advanced = &models.FilterGroup{Logic: models.LogicAnd}
		}
		vs.Advanced.Conditions = append(vs.Advanced.Conditions, models.GroupNode(group.Clone()))
		s.resetView(vs)
		return true
	})
	return nil
}

// UpdateCondition replaces the top-level advanced child at index
func (s *Store) UpdateCondition(index int, cond models.FilterCondition) error {
	if err := filter.ValidateCondition(cond); err != nil {
		return err
	}
	var err error
	s.update(func(vs *ViewState) bool {
		if vs.Advanced == nil || index < 0 || index >= len(vs.Advanced.Conditions) {
			err = fmt.Errorf("no filter condition at index %d", index)
			return false
		}
		vs.Advanced.Conditions[index] = models.ConditionNode(cond)
		s.resetView(vs)
		return true
	})
	return err
}

// RemoveCondition drops the top-level advanced child at index. Removing the
// last child removes the group.
func (s *Store) RemoveCondition(index int) bool {
	return s.update(func(vs *ViewState) bool {
		if vs.Advanced == nil || index < 0 || index >= len(vs.Advanced.Conditions) {
			return false
		}
		vs.Advanced.Conditions = slices.Delete(vs.Advanced.Conditions, index, index+1)
		if vs.Advanced.IsEmpty() {
			vs.Advanced = nil
		}
		s.resetView(vs)
		return true
	})
}

// SetLogic switches the advanced group between and/or. Without a group it
// does nothing.
func (s *Store) SetLogic(logic models.FilterLogic) bool {
	if logic != models.LogicAnd && logic != models.LogicOr {
		return false
	}
	return s.update(func(vs *ViewState) bool {
		if vs.Advanced == nil || vs.Advanced.Logic == logic {
			return false
		}
		vs.Advanced.Logic = logic
		s.resetView(vs)
		return true
	})
}

// ClearFilters removes quick filters and the advanced group
func (s *Store) ClearFilters() bool {
	return s.update(func(vs *ViewState) bool {
		if len(vs.Filters) == 0 && vs.Advanced == nil {
			return false
		}
		vs.Filters = nil
		vs.Advanced = nil
		s.resetView(vs)
		return true
	})
}

// SetPage moves to page, clamped to the known page count
func (s *Store) SetPage(page int) bool {
	return s.update(func(vs *ViewState) bool {
		next := max(1, page)
		if s.totalKnown {
			next = window.Clamp(next, vs.Pagination.TotalItems, vs.Pagination.PageSize)
		}
		if next == vs.Pagination.CurrentPage {
			return false
		}
		vs.Pagination.CurrentPage = next
		return true
	})
}

// SetPageSize changes the page size and returns to page 1. Sizes outside the
// configured options are rejected.
func (s *Store) SetPageSize(size int) bool {
	return s.update(func(vs *ViewState) bool {
		if !vs.Pagination.HasPageSizeOption(size) || size == vs.Pagination.PageSize {
			return false
		}
		vs.Pagination.PageSize = size
		vs.Pagination.CurrentPage = 1
		s.growing.Reset(size)
		return true
	})
}

// SetTotalItems records the filtered total and clamps the current page
func (s *Store) SetTotalItems(total int) bool {
	total = max(0, total)
	return s.update(func(vs *ViewState) bool {
		wasKnown := s.totalKnown
		s.totalKnown = true
		page := window.Clamp(vs.Pagination.CurrentPage, total, vs.Pagination.PageSize)
		if wasKnown && total == vs.Pagination.TotalItems && page == vs.Pagination.CurrentPage {
			return false
		}
		vs.Pagination.TotalItems = total
		vs.Pagination.CurrentPage = page
		return true
	})
}

// ToggleSearchColumn adds or removes a column from the search selection
func (s *Store) ToggleSearchColumn(key string) bool {
	col, ok := s.index[key]
	if !ok || !col.Searchable() {
		return false
	}
	return s.update(func(vs *ViewState) bool {
		if i := slices.Index(vs.SearchColumns, key); i >= 0 {
			vs.SearchColumns = slices.Delete(slices.Clone(vs.SearchColumns), i, i+1)
			if len(vs.SearchColumns) == 0 {
				vs.SearchColumns = nil
			}
		} else {
			vs.SearchColumns = append(slices.Clone(vs.SearchColumns), key)
		}
		s.resetView(vs)
		return true
	})
}

// SetSearchColumns replaces the search selection
func (s *Store) SetSearchColumns(keys []string) bool {
	keys = knownKeys(keys, s.index, models.Column.Searchable)
	return s.update(func(vs *ViewState) bool {
		if slices.Equal(vs.SearchColumns, keys) {
			return false
		}
		vs.SearchColumns = keys
		s.resetView(vs)
		return true
	})
}

// SetSearchMode switches between any and all
func (s *Store) SetSearchMode(mode models.SearchMode) bool {
	if !mode.IsValid() {
		return false
	}
	return s.update(func(vs *ViewState) bool {
		if vs.SearchMode == mode {
			return false
		}
		vs.SearchMode = mode
		s.resetView(vs)
		return true
	})
}

// ReorderColumns sets the display order after reconciling it with the
// configured columns
func (s *Store) ReorderColumns(order []string) bool {
	next := ReconcileOrder(order, s.columns)
	return s.update(func(vs *ViewState) bool {
		if slices.Equal(vs.ColumnOrder, next) {
			return false
		}
		vs.ColumnOrder = next
		return true
	})
}

// MoveColumn moves the column at position from to position to
func (s *Store) MoveColumn(from, to int) bool {
	return s.update(func(vs *ViewState) bool {
		n := len(vs.ColumnOrder)
		if from < 0 || from >= n || to < 0 || to >= n || from == to {
			return false
		}
		order := slices.Clone(vs.ColumnOrder)
		key := order[from]
		order = slices.Delete(order, from, from+1)
		order = slices.Insert(order, to, key)
		vs.ColumnOrder = order
		return true
	})
}

// ToggleColumnVisibility hides a visible column or shows a hidden one
func (s *Store) ToggleColumnVisibility(key string) bool {
	if _, ok := s.index[key]; !ok {
		return false
	}
	return s.update(func(vs *ViewState) bool {
		if i := slices.Index(vs.HiddenColumns, key); i >= 0 {
			vs.HiddenColumns = slices.Delete(slices.Clone(vs.HiddenColumns), i, i+1)
			if len(vs.HiddenColumns) == 0 {
				vs.HiddenColumns = nil
			}
		} else {
			vs.HiddenColumns = append(slices.Clone(vs.HiddenColumns), key)
		}
		return true
	})
}

// VisibleCount is the size of the growing window
func (s *Store) VisibleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.growing.Visible()
}

// Scroll advances the client-side growing window over available rows
func (s *Store) Scroll(lastSeen, available int) window.ScrollResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.growing.Advance(lastSeen, available)
}

// NeedsFetch reports whether a server-side scroll must load another page,
// and which page that is
func (s *Store) NeedsFetch(lastSeen, loaded, total int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.growing.NeedsFetch(lastSeen, loaded, total) != window.ScrollFetch {
		return 0, false
	}
	return s.growing.NextPage(loaded), true
}

// ResetWindow shrinks the growing window back to one page
func (s *Store) ResetWindow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.growing.Reset(0)
}

// AcceptLoaded grows the window to the number of accumulated server rows
func (s *Store) AcceptLoaded(loaded int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.growing.Accept(loaded)
}

func sameSort(a, b *models.SortState) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
