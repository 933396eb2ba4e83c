package persistence

import (
	"fmt"
	"log/slog"

	jsoniter "github.com/json-iterator/go"

	"github.com/rebeliceyang/lazytable/internal/logger"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/state"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// persisted is the saved JSON shape
type persisted struct {
	SearchTerm    string             `json:"searchTerm"`
	Page          int                `json:"page"`
	PageSize      int                `json:"pageSize"`
	ColumnOrder   []string           `json:"columnOrder"`
	HiddenColumns []string           `json:"hiddenColumns"`
	Sort          *models.SortState  `json:"sort"`
	Filters       *models.FilterSpec `json:"filters"`
	SearchColumns []string           `json:"searchColumns"`
	SearchMode    models.SearchMode  `json:"searchMode"`
}

// Encode serializes the persisted part of a view state
func Encode(vs state.ViewState) ([]byte, error) {
	p := persisted{
		SearchTerm:    vs.SearchTerm,
		Page:          vs.Pagination.CurrentPage,
		PageSize:      vs.Pagination.PageSize,
		ColumnOrder:   nonNil(vs.ColumnOrder),
		HiddenColumns: nonNil(vs.HiddenColumns),
		Sort:          vs.Sort,
		Filters:       vs.EffectiveFilters(),
		SearchColumns: nonNil(vs.SearchColumns),
		SearchMode:    vs.SearchMode,
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode view state: %w", err)
	}
	return data, nil
}

// Decode reads a saved state field by field. A field that fails to decode is
// left out of the returned set; only a document that is not a JSON object at
// all is an error.
func Decode(data []byte, log *slog.Logger) (state.ViewState, state.FieldSet, error) {
	log = logger.Or(log)

	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return state.ViewState{}, nil, fmt.Errorf("saved view state is not an object: %w", err)
	}

	var vs state.ViewState
	fields := make(state.FieldSet)
	field := func(f state.Field, dst any) bool {
		msg, ok := raw[string(f)]
		if !ok {
			return false
		}
		if err := json.Unmarshal(msg, dst); err != nil {
			log.Debug("ignoring malformed persisted field", "field", string(f), "error", err)
			return false
		}
		fields[f] = true
		return true
	}

	field(state.FieldSearchTerm, &vs.SearchTerm)
	field(state.FieldPage, &vs.Pagination.CurrentPage)
	field(state.FieldPageSize, &vs.Pagination.PageSize)
	field(state.FieldColumnOrder, &vs.ColumnOrder)
	field(state.FieldHiddenColumns, &vs.HiddenColumns)
	field(state.FieldSearchColumns, &vs.SearchColumns)
	field(state.FieldSearchMode, &vs.SearchMode)

	var sort *models.SortState
	if field(state.FieldSort, &sort) {
		vs.Sort = sort
	}

	var spec *models.FilterSpec
	if field(state.FieldFilters, &spec) {
		vs.Filters, vs.Advanced = state.SplitFilters(spec)
	}

	return vs, fields, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
