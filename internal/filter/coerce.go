package filter

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/rebeliceyang/lazytable/internal/models"
)

// toNumber coerces numbers, numeric strings, times (epoch millis) and
// date-parseable strings to float64.
func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return val, !math.IsNaN(val)
	case float32:
		return float64(val), !math.IsNaN(float64(val))
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case time.Time:
		return float64(val.UnixMilli()), true
	case *time.Time:
		if val == nil {
			return 0, false
		}
		return float64(val.UnixMilli()), true
	case string:
		return stringToNumber(val)
	case bool:
		return 0, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), !math.IsNaN(rv.Float())
	}
	return 0, false
}

func stringToNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, !math.IsNaN(f)
	}
	t, err := cast.ToTimeE(s)
	if err != nil {
		return 0, false
	}
	return float64(t.UnixMilli()), true
}

// rangeOperand coerces a gt/gte/lt/lte/between bound for SQL the way the
// in-memory comparison does. Numbers are bound as they are, numeric strings
// as float64 and date strings as time.Time.
func rangeOperand(v any) (any, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case *time.Time:
		if val == nil {
			return nil, false
		}
		return *val, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, !math.IsNaN(f)
		}
		t, err := cast.ToTimeE(s)
		if err != nil {
			return nil, false
		}
		return t, true
	}
	if _, ok := toNumber(v); !ok {
		return nil, false
	}
	return v, true
}

// equalValues is the equality rule shared by eq, neq, in, notIn and array contains.
func equalValues(a, b any, caseSensitive bool) bool {
	if models.IsNil(a) || models.IsNil(b) {
		return models.IsNil(a) && models.IsNil(b)
	}

	_, aIsString := a.(string)
	_, bIsString := b.(string)
	if aIsString || bIsString {
		return fold(models.Stringify(a), caseSensitive) == fold(models.Stringify(b), caseSensitive)
	}

	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

// StrictEqual is the flat-map equality: no string folding, numbers compare by
// value regardless of their Go type.
func StrictEqual(a, b any) bool {
	return strictEqual(a, b)
}

func strictEqual(a, b any) bool {
	if models.IsNil(a) || models.IsNil(b) {
		return models.IsNil(a) && models.IsNil(b)
	}
	if isNumeric(a) && isNumeric(b) {
		x, _ := toNumber(a)
		y, _ := toNumber(b)
		return x == y
	}
	return reflect.DeepEqual(a, b)
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func fold(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// isEmptyValue matches nil, missing, "" and empty arrays
func isEmptyValue(v any) bool {
	if models.IsBlank(v) {
		return true
	}
	return models.IsList(v) && len(models.ListItems(v)) == 0
}

// toList coerces an in/notIn operand to a list
func toList(v any) []any {
	if models.IsNil(v) {
		return nil
	}
	if models.IsList(v) {
		return models.ListItems(v)
	}
	return []any{v}
}
