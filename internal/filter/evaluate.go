// Package filter interprets filter specifications against records, validates
// them at construction time and translates them to SQL for remote sources.
package filter

import (
	"strings"

	"github.com/rebeliceyang/lazytable/internal/models"
)

// Evaluate reports whether rec satisfies spec. A nil or empty spec matches every record.
func Evaluate(rec models.Record, spec *models.FilterSpec) bool {
	if spec == nil {
		return true
	}
	if spec.Group != nil {
		return evaluateGroup(rec, spec.Group)
	}
	return evaluateSimple(rec, spec.Simple)
}

// Apply returns the records that satisfy spec, preserving order
func Apply(records []models.Record, spec *models.FilterSpec) []models.Record {
	if spec.IsEmpty() {
		return records
	}
	out := make([]models.Record, 0, len(records)/2+1)
	for _, rec := range records {
		if Evaluate(rec, spec) {
			out = append(out, rec)
		}
	}
	return out
}

// evaluateGroup recursively evaluates children and reduces them with every/some
func evaluateGroup(rec models.Record, group *models.FilterGroup) bool {
	if group == nil || len(group.Conditions) == 0 {
		return true
	}

	if group.Logic == models.LogicOr {
		for _, child := range group.Conditions {
			if evaluateNode(rec, child) {
				return true
			}
		}
		return false
	}

	for _, child := range group.Conditions {
		if !evaluateNode(rec, child) {
			return false
		}
	}
	return true
}

func evaluateNode(rec models.Record, node models.FilterNode) bool {
	switch node.Kind {
	case models.KindGroup:
		return evaluateGroup(rec, node.Group)
	case models.KindSimple:
		return evaluateSimple(rec, node.Simple)
	default:
		if node.Condition == nil {
			return true
		}
		return EvaluateCondition(rec, *node.Condition)
	}
}

// evaluateSimple applies the flat-map shorthand: every non-blank entry must hold
func evaluateSimple(rec models.Record, simple map[string]any) bool {
	for field, want := range simple {
		if models.IsBlank(want) {
			continue
		}
		got := models.Value(rec, field)

		switch {
		case models.IsList(got):
			found := false
			for _, item := range models.ListItems(got) {
				if strictEqual(item, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case isString(got):
			haystack := strings.ToLower(got.(string))
			needle := strings.ToLower(models.Stringify(want))
			if !strings.Contains(haystack, needle) {
				return false
			}
		default:
			if !strictEqual(got, want) {
				return false
			}
		}
	}
	return true
}

// EvaluateCondition applies a single condition. Unknown operators fall back to eq.
func EvaluateCondition(rec models.Record, cond models.FilterCondition) bool {
	current := models.Value(rec, cond.Field)
	cs := cond.CaseSensitive

	switch cond.Operator {
	case models.OpIsEmpty:
		return isEmptyValue(current)
	case models.OpIsNotEmpty:
		return !isEmptyValue(current)

	case models.OpIn:
		return inList(current, cond.Value, cs)
	case models.OpNotIn:
		return !inList(current, cond.Value, cs)

	case models.OpContains:
		if models.IsList(current) {
			for _, item := range models.ListItems(current) {
				if equalValues(item, cond.Value, cs) {
					return true
				}
			}
			return false
		}
		return strings.Contains(fold(models.Stringify(current), cs), fold(models.Stringify(cond.Value), cs))

	case models.OpStartsWith:
		return strings.HasPrefix(fold(models.Stringify(current), cs), fold(models.Stringify(cond.Value), cs))
	case models.OpEndsWith:
		return strings.HasSuffix(fold(models.Stringify(current), cs), fold(models.Stringify(cond.Value), cs))

	case models.OpBetween:
		return between(current, cond.Value, cond.ValueTo)

	case models.OpGt, models.OpGte, models.OpLt, models.OpLte:
		return compareOrdered(cond.Operator, current, cond.Value)

	case models.OpNeq:
		return !equalValues(current, cond.Value, cs)

	default:
		return equalValues(current, cond.Value, cs)
	}
}

func inList(current, value any, caseSensitive bool) bool {
	for _, candidate := range toList(value) {
		if equalValues(current, candidate, caseSensitive) {
			return true
		}
	}
	return false
}

// between is vacuously true when both bounds are absent, and false whenever
// any operand that is needed cannot be coerced.
func between(current, lo, hi any) bool {
	if models.IsNil(lo) && models.IsNil(hi) {
		return true
	}
	from, okFrom := toNumber(lo)
	to, okTo := toNumber(hi)
	if !okFrom || !okTo {
		return false
	}
	cur, ok := toNumber(current)
	if !ok {
		return false
	}
	return cur >= from && cur <= to
}

func compareOrdered(op models.FilterOperator, current, target any) bool {
	cur, ok := toNumber(current)
	if !ok {
		return false
	}
	want, ok := toNumber(target)
	if !ok {
		return false
	}

	switch op {
	case models.OpGt:
		return cur > want
	case models.OpGte:
		return cur >= want
	case models.OpLt:
		return cur < want
	default:
		return cur <= want
	}
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}
