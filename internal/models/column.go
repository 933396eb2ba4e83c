package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ColumnType determines formatting and filter/search eligibility
type ColumnType string

const (
	ColumnText     ColumnType = "text"
	ColumnNumber   ColumnType = "number"
	ColumnBadge    ColumnType = "badge"
	ColumnCurrency ColumnType = "currency"
	ColumnDate     ColumnType = "date"
	ColumnAction   ColumnType = "action"
)

// FormatFunc projects a raw cell value to its display string
type FormatFunc func(value any, rec Record) string

// Column describes one table column
type Column struct {
	Key      string     `mapstructure:"key" yaml:"key" json:"key"`
	Header   string     `mapstructure:"header" yaml:"header" json:"header"`
	Type     ColumnType `mapstructure:"type" yaml:"type" json:"type"`
	Sortable bool       `mapstructure:"sortable" yaml:"sortable" json:"sortable"`
	Hidden   bool       `mapstructure:"hidden" yaml:"hidden" json:"hidden"`
	Format   FormatFunc `mapstructure:"-" yaml:"-" json:"-"`
}

// Searchable reports whether the column takes part in search, filtering and export
func (c Column) Searchable() bool {
	return c.Type != ColumnAction
}

// Project returns the value used for sorting and searching: the formatted
// string when a formatter is configured, the raw field value otherwise.
func (c Column) Project(rec Record) any {
	v := Value(rec, c.Key)
	if c.Format != nil {
		return c.Format(v, rec)
	}
	return v
}

// Display returns the cell text shown to users and written to exports
func (c Column) Display(rec Record) string {
	v := Value(rec, c.Key)
	if c.Format != nil {
		return c.Format(v, rec)
	}
	if IsNil(v) {
		return ""
	}

	switch c.Type {
	case ColumnCurrency:
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'f', 2, 64)
		}
		if n, err := strconv.ParseFloat(Stringify(v), 64); err == nil {
			return strconv.FormatFloat(n, 'f', 2, 64)
		}
	case ColumnDate:
		switch t := v.(type) {
		case time.Time:
			return t.Format(time.DateOnly)
		case string:
			if parsed, err := time.Parse(time.RFC3339, t); err == nil {
				return parsed.Format(time.DateOnly)
			}
		}
	}
	return Stringify(v)
}

// ErrDuplicateColumn is returned when two non-action columns share a key
var ErrDuplicateColumn = errors.New("duplicate column key")

// ValidateColumns checks that keys are present and unique across non-action columns
func ValidateColumns(columns []Column) error {
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		if col.Type == ColumnAction {
			continue
		}
		if col.Key == "" {
			return fmt.Errorf("column %d has an empty key", i)
		}
		if seen[col.Key] {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, col.Key)
		}
		seen[col.Key] = true
	}
	return nil
}

// SearchableColumns returns the non-action columns in configured order
func SearchableColumns(columns []Column) []Column {
	out := make([]Column, 0, len(columns))
	for _, col := range columns {
		if col.Searchable() {
			out = append(out, col)
		}
	}
	return out
}

// ColumnIndex maps keys to columns
func ColumnIndex(columns []Column) map[string]Column {
	idx := make(map[string]Column, len(columns))
	for _, col := range columns {
		idx[col.Key] = col
	}
	return idx
}

// ColumnKeys returns the keys of the given columns in order
func ColumnKeys(columns []Column) []string {
	keys := make([]string, len(columns))
	for i, col := range columns {
		keys[i] = col.Key
	}
	return keys
}
