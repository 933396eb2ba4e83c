package models

import (
	"reflect"
	"strconv"
	"strings"
)

// Path represents a dotted field path (e.g., location.city or skills.0)
type Path struct {
	Parts []string
}

// ParsePath splits a dotted key into its parts
func ParsePath(key string) Path {
	if key == "" {
		return Path{}
	}
	return Path{Parts: strings.Split(key, ".")}
}

// String returns the dotted notation
func (p Path) String() string {
	return strings.Join(p.Parts, ".")
}

// Lookup resolves key against the record. An exact top-level key wins; otherwise
// the key is walked as a path through nested maps and slices.
func Lookup(r Record, key string) (any, bool) {
	if v, ok := r[key]; ok {
		return v, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}

	var current any = map[string]any(r)
	for _, part := range ParsePath(key).Parts {
		next, ok := step(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Value is Lookup without the presence flag
func Value(r Record, key string) any {
	v, _ := Lookup(r, key)
	return v
}

func step(current any, part string) (any, bool) {
	switch node := current.(type) {
	case map[string]any:
		v, ok := node[part]
		return v, ok
	case Record:
		v, ok := node[part]
		return v, ok
	case []any:
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, false
		}
		return node[idx], true
	}

	if current == nil {
		return nil, false
	}
	rv := reflect.ValueOf(current)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(part).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	}
	return nil, false
}
