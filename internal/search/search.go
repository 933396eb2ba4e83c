// Package search implements the free-text matcher used by the table search box.
package search

import (
	"slices"
	"strings"

	"github.com/rebeliceyang/lazytable/internal/models"
)

// Matcher tests records against a search term over a set of columns
type Matcher struct {
	searchable []models.Column
}

// NewMatcher creates a matcher over the searchable (non-action) columns
func NewMatcher(columns []models.Column) *Matcher {
	return &Matcher{searchable: models.SearchableColumns(columns)}
}

// Candidates resolves the columns to search. An explicit selection is
// intersected with the searchable set; if that leaves nothing, every
// searchable column is used.
func (m *Matcher) Candidates(selected []string) []models.Column {
	if len(selected) == 0 {
		return m.searchable
	}
	picked := make([]models.Column, 0, len(selected))
	for _, col := range m.searchable {
		if slices.Contains(selected, col.Key) {
			picked = append(picked, col)
		}
	}
	if len(picked) == 0 {
		return m.searchable
	}
	return picked
}

// Matches reports whether rec contains term. A blank term matches everything.
func (m *Matcher) Matches(rec models.Record, term string, selected []string, mode models.SearchMode) bool {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return true
	}

	candidates := m.Candidates(selected)
	if len(candidates) == 0 {
		return false
	}

	if mode == models.SearchAll {
		for _, col := range candidates {
			if !columnContains(col, rec, needle) {
				return false
			}
		}
		return true
	}

	for _, col := range candidates {
		if columnContains(col, rec, needle) {
			return true
		}
	}
	return false
}

// Apply filters records to those matching term, preserving order
func (m *Matcher) Apply(records []models.Record, term string, selected []string, mode models.SearchMode) []models.Record {
	if strings.TrimSpace(term) == "" {
		return records
	}
	out := make([]models.Record, 0, len(records))
	for _, rec := range records {
		if m.Matches(rec, term, selected, mode) {
			out = append(out, rec)
		}
	}
	return out
}

// columnContains checks the display value; objects are compared as JSON text
func columnContains(col models.Column, rec models.Record, needle string) bool {
	v := col.Project(rec)
	if models.IsNil(v) {
		return false
	}
	return strings.Contains(strings.ToLower(models.Stringify(v)), needle)
}
