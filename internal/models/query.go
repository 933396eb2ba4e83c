package models

import (
	"fmt"
	"slices"
)

// SortDirection is asc or desc
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortState is the active sort. A nil *SortState keeps source order.
type SortState struct {
	Key       string        `json:"key" yaml:"key"`
	Direction SortDirection `json:"direction" yaml:"direction"`
}

// SearchMode decides whether a term must match any or all candidate columns
type SearchMode string

const (
	SearchAny SearchMode = "any"
	SearchAll SearchMode = "all"
)

// IsValid reports whether m is any or all
func (m SearchMode) IsValid() bool {
	return m == SearchAny || m == SearchAll
}

// QueryParams describes what a remote source must return
type QueryParams struct {
	SearchTerm    string      `json:"searchTerm"`
	Page          int         `json:"page"`
	PageSize      int         `json:"pageSize"`
	Sort          *SortState  `json:"sort,omitempty"`
	Filters       *FilterSpec `json:"filters,omitempty"`
	SearchColumns []string    `json:"searchColumns,omitempty"`
	SearchMode    SearchMode  `json:"searchMode,omitempty"`
}

// Key returns the canonical serialization used for deduplication and race
// resolution. Map keys are emitted in sorted order so equal params give equal keys.
func (p QueryParams) Key() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode query params: %w", err)
	}
	return string(data), nil
}

// Offset returns the zero-based index of the first row of the page
func (p QueryParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// QueryResult is the normalized output of a data source
type QueryResult struct {
	Items []Record `json:"items"`
	Total *int     `json:"total,omitempty"`
}

// TotalOr returns the reported total or fallback when the source omitted it
func (r QueryResult) TotalOr(fallback int) int {
	if r.Total == nil {
		return fallback
	}
	return *r.Total
}

// IntPtr is a helper for optional totals
func IntPtr(n int) *int {
	return &n
}

// Pagination holds the paging part of the view state
type Pagination struct {
	CurrentPage     int   `json:"currentPage"`
	PageSize        int   `json:"pageSize"`
	TotalItems      int   `json:"totalItems"`
	PageSizeOptions []int `json:"pageSizeOptions,omitempty"`
}

// HasPageSizeOption reports whether size is one of the configured options.
// An empty option list accepts any positive size.
func (p Pagination) HasPageSizeOption(size int) bool {
	if size <= 0 {
		return false
	}
	return len(p.PageSizeOptions) == 0 || slices.Contains(p.PageSizeOptions, size)
}
