// Package compare orders records for a sort state the way they are displayed.
package compare

import (
	"reflect"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/rebeliceyang/lazytable/internal/models"
)

// Comparator orders records by one sort key. It holds a collator, which is not
// safe for concurrent use, so create one per sort.
type Comparator struct {
	sort     *models.SortState
	column   *models.Column
	collator *collate.Collator
}

// Option configures a Comparator
type Option func(*options)

type options struct {
	locale language.Tag
}

// WithLocale sets the collation locale (default: language.Und, the CLDR root order)
func WithLocale(tag language.Tag) Option {
	return func(o *options) {
		o.locale = tag
	}
}

// New creates a comparator for sort over the given columns
func New(sort *models.SortState, columns []models.Column, opts ...Option) *Comparator {
	o := options{locale: language.Und}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Comparator{
		sort:     sort,
		collator: collate.New(o.locale, collate.Numeric),
	}
	if sort != nil {
		for i := range columns {
			if columns[i].Key == sort.Key {
				col := columns[i]
				c.column = &col
				break
			}
		}
	}
	return c
}

// Compare returns -1, 0 or 1. With no sort state every pair compares equal.
func (c *Comparator) Compare(a, b models.Record) int {
	if c.sort == nil || c.sort.Key == "" {
		return 0
	}
	return c.CompareValues(c.value(a), c.value(b))
}

// value resolves the comparison value through the column formatter when present
func (c *Comparator) value(rec models.Record) any {
	if c.column != nil && c.column.Format != nil {
		return c.column.Format(models.Value(rec, c.sort.Key), rec)
	}
	return models.Value(rec, c.sort.Key)
}

// CompareValues applies the ordering rules to two resolved values: equal values
// tie, nil sorts first regardless of direction, numbers compare numerically and
// everything else uses natural, locale-aware collation.
func (c *Comparator) CompareValues(a, b any) int {
	aNil, bNil := models.IsNil(a), models.IsNil(b)
	switch {
	case aNil && bNil:
		return 0
	case aNil:
		return -1
	case bNil:
		return 1
	}
	if same(a, b) {
		return 0
	}

	dir := 1
	if c.sort != nil && c.sort.Direction == models.SortDesc {
		dir = -1
	}

	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			switch {
			case x < y:
				return -dir
			case x > y:
				return dir
			default:
				return 0
			}
		}
	}

	return dir * c.collator.CompareString(models.Stringify(a), models.Stringify(b))
}

// Sort returns a stably sorted copy of records
func (c *Comparator) Sort(records []models.Record) []models.Record {
	out := slices.Clone(records)
	if c.sort == nil || c.sort.Key == "" {
		return out
	}
	slices.SortStableFunc(out, c.Compare)
	return out
}

// Sort is a convenience wrapper that builds a comparator and sorts a copy
func Sort(records []models.Record, sort *models.SortState, columns []models.Column, opts ...Option) []models.Record {
	return New(sort, columns, opts...).Sort(records)
}

func same(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == tb && ta.Comparable() {
		return a == b
	}
	return false
}

// numeric accepts only values that are numbers (or times) in their own right
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case time.Time:
		return float64(n.UnixMilli()), true
	}
	return 0, false
}
