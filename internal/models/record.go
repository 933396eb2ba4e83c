package models

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// IDField is the field holding the stable record identifier
const IDField = "id"

// StatusField is the optional field used by status summaries
const StatusField = "status"

// Record is one row of uniform-shaped data
type Record map[string]any

// ID returns the record identifier as a string
func (r Record) ID() string {
	v, ok := r[IDField]
	if !ok || v == nil {
		return ""
	}
	return Stringify(v)
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneMap returns a shallow copy of m, preserving nil
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// IsNil reports whether v is nil or a nil pointer, map, slice or interface
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// IsBlank reports whether v is nil or the empty string
func IsBlank(v any) bool {
	if IsNil(v) {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// IsList reports whether v is a slice or array (but not []byte)
func IsList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// ListItems returns the elements of a slice or array value
func ListItems(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	if !IsList(v) {
		return nil
	}
	rv := reflect.ValueOf(v)
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

// Stringify converts a value to its display string. Numbers use the shortest
// round-trip form, maps and slices are rendered as JSON, nil is empty.
func Stringify(v any) string {
	if IsNil(v) {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
	return fmt.Sprintf("%v", v)
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
