package state

import (
	"log/slog"

	"github.com/rebeliceyang/lazytable/internal/filter"
	"github.com/rebeliceyang/lazytable/internal/logger"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/window"
)

// Field names one persisted part of the view state
type Field string

const (
	FieldSearchTerm    Field = "searchTerm"
	FieldPage          Field = "page"
	FieldPageSize      Field = "pageSize"
	FieldColumnOrder   Field = "columnOrder"
	FieldHiddenColumns Field = "hiddenColumns"
	FieldSort          Field = "sort"
	FieldFilters       Field = "filters"
	FieldSearchColumns Field = "searchColumns"
	FieldSearchMode    Field = "searchMode"
)

// Fields lists every persisted field
func Fields() []Field {
	return []Field{
		FieldSearchTerm, FieldPage, FieldPageSize, FieldColumnOrder, FieldHiddenColumns,
		FieldSort, FieldFilters, FieldSearchColumns, FieldSearchMode,
	}
}

// FieldSet marks the fields present in a restored state
type FieldSet map[Field]bool

// Restore applies the fields of saved present in fields. A field whose value
// does not fit the current columns or options is skipped and logged.
func (s *Store) Restore(saved ViewState, fields FieldSet, log *slog.Logger) {
	log = logger.Or(log)
	skip := func(f Field, reason string) {
		log.Debug("ignoring persisted field", "field", string(f), "reason", reason)
	}

	s.update(func(vs *ViewState) bool {
		changed := false

		if fields[FieldSearchTerm] {
			vs.SearchTerm = saved.SearchTerm
			changed = true
		}

		if fields[FieldPageSize] {
			size := saved.Pagination.PageSize
			if vs.Pagination.HasPageSizeOption(size) {
				vs.Pagination.PageSize = size
				s.growing.Reset(size)
				changed = true
			} else {
				skip(FieldPageSize, "not a page size option")
			}
		}

		if fields[FieldPage] {
			if saved.Pagination.CurrentPage >= 1 {
				vs.Pagination.CurrentPage = saved.Pagination.CurrentPage
				if s.totalKnown {
					vs.Pagination.CurrentPage = window.Clamp(vs.Pagination.CurrentPage, vs.Pagination.TotalItems, vs.Pagination.PageSize)
				}
				changed = true
			} else {
				skip(FieldPage, "page below 1")
			}
		}

		if fields[FieldColumnOrder] {
			vs.ColumnOrder = ReconcileOrder(saved.ColumnOrder, s.columns)
			changed = true
		}

		if fields[FieldHiddenColumns] {
			vs.HiddenColumns = knownKeys(saved.HiddenColumns, s.index, nil)
			changed = true
		}

		if fields[FieldSort] {
			switch {
			case saved.Sort == nil:
				vs.Sort = nil
				changed = true
			case !s.sortable(saved.Sort):
				skip(FieldSort, "unknown sort column or direction")
			default:
				sort := *saved.Sort
				vs.Sort = &sort
				changed = true
			}
		}

		if fields[FieldFilters] {
			spec := models.GroupFilter(saved.Advanced)
			if err := filter.Validate(spec); err != nil {
				skip(FieldFilters, err.Error())
			} else {
				vs.Filters = models.CloneMap(saved.Filters)
				vs.Advanced = saved.Advanced.Clone()
				if vs.Advanced.IsEmpty() {
					vs.Advanced = nil
				}
				changed = true
			}
		}

		if fields[FieldSearchColumns] {
			vs.SearchColumns = knownKeys(saved.SearchColumns, s.index, models.Column.Searchable)
			changed = true
		}

		if fields[FieldSearchMode] {
			if saved.SearchMode.IsValid() {
				vs.SearchMode = saved.SearchMode
				changed = true
			} else {
				skip(FieldSearchMode, "not any or all")
			}
		}

		return changed
	})
}

func (s *Store) sortable(sort *models.SortState) bool {
	if sort.Direction != models.SortAsc && sort.Direction != models.SortDesc {
		return false
	}
	col, ok := s.index[sort.Key]
	return ok && col.Type != models.ColumnAction
}
