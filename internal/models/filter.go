package models

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FilterOperator represents a filter comparison operator
type FilterOperator string

const (
	OpEq         FilterOperator = "eq"
	OpNeq        FilterOperator = "neq"
	OpContains   FilterOperator = "contains"   // substring, or element of an array field
	OpStartsWith FilterOperator = "startsWith" // string prefix
	OpEndsWith   FilterOperator = "endsWith"   // string suffix
	OpGt         FilterOperator = "gt"
	OpGte        FilterOperator = "gte"
	OpLt         FilterOperator = "lt"
	OpLte        FilterOperator = "lte"
	OpBetween    FilterOperator = "between" // inclusive, uses Value and ValueTo
	OpIn         FilterOperator = "in"
	OpNotIn      FilterOperator = "notIn"
	OpIsEmpty    FilterOperator = "isEmpty" // nil, "", or empty array
	OpIsNotEmpty FilterOperator = "isNotEmpty"
)

// Operators returns every supported operator in display order
func Operators() []FilterOperator {
	return []FilterOperator{
		OpEq, OpNeq, OpContains, OpStartsWith, OpEndsWith,
		OpGt, OpGte, OpLt, OpLte, OpBetween,
		OpIn, OpNotIn, OpIsEmpty, OpIsNotEmpty,
	}
}

// IsValid reports whether op is a known operator
func (op FilterOperator) IsValid() bool {
	for _, known := range Operators() {
		if op == known {
			return true
		}
	}
	return false
}

// NeedsValue reports whether the operator reads Value
func (op FilterOperator) NeedsValue() bool {
	return op != OpIsEmpty && op != OpIsNotEmpty
}

// NeedsValueTo reports whether the operator reads ValueTo
func (op FilterOperator) NeedsValueTo() bool {
	return op == OpBetween
}

// FilterLogic combines the children of a group
type FilterLogic string

const (
	LogicAnd FilterLogic = "and"
	LogicOr  FilterLogic = "or"
)

// FilterCondition represents a single filter condition
type FilterCondition struct {
	Field         string         `json:"field" yaml:"field"`
	Operator      FilterOperator `json:"operator" yaml:"operator"`
	Value         any            `json:"value,omitempty" yaml:"value,omitempty"`
	ValueTo       any            `json:"valueTo,omitempty" yaml:"value_to,omitempty"`
	CaseSensitive bool           `json:"caseSensitive,omitempty" yaml:"case_sensitive,omitempty"`
}

// NodeKind tags the variant held by a FilterNode
type NodeKind string

const (
	KindCondition NodeKind = "condition"
	KindGroup     NodeKind = "group"
	// KindSimple holds a flat equality map. It only appears as the first child of the
	// synthetic group produced when a flat filter and an advanced group are merged.
	KindSimple NodeKind = "simple"
)

// FilterNode is one child of a FilterGroup: a condition, a nested group, or a flat map.
type FilterNode struct {
	Kind      NodeKind
	Condition *FilterCondition
	Group     *FilterGroup
	Simple    map[string]any
}

// ConditionNode wraps a condition as a group child
func ConditionNode(c FilterCondition) FilterNode {
	return FilterNode{Kind: KindCondition, Condition: &c}
}

// GroupNode wraps a nested group as a group child
func GroupNode(g *FilterGroup) FilterNode {
	return FilterNode{Kind: KindGroup, Group: g}
}

// SimpleNode wraps a flat equality map as a group child
func SimpleNode(m map[string]any) FilterNode {
	return FilterNode{Kind: KindSimple, Simple: m}
}

// MarshalJSON writes the node in the untagged wire form used by persisted state
func (n FilterNode) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindCondition:
		if n.Condition == nil {
			return nil, fmt.Errorf("condition node without condition")
		}
		return json.Marshal(n.Condition)
	case KindGroup:
		if n.Group == nil {
			return nil, fmt.Errorf("group node without group")
		}
		return json.Marshal(n.Group)
	case KindSimple:
		return json.Marshal(n.Simple)
	default:
		return nil, fmt.Errorf("unknown filter node kind %q", n.Kind)
	}
}

// UnmarshalJSON recovers the variant from the keys present in the object
func (n *FilterNode) UnmarshalJSON(data []byte) error {
	var probe map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("filter node must be an object: %w", err)
	}

	switch {
	case isGroupShape(probe):
		var g FilterGroup
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		*n = GroupNode(&g)
	case isConditionShape(probe):
		var c FilterCondition
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		*n = ConditionNode(c)
	default:
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		*n = SimpleNode(m)
	}
	return nil
}

// FilterGroup represents a group of conditions with AND/OR logic
type FilterGroup struct {
	Logic      FilterLogic  `json:"logic"`
	Conditions []FilterNode `json:"conditions"`
}

// IsEmpty reports whether the group has no children
func (g *FilterGroup) IsEmpty() bool {
	return g == nil || len(g.Conditions) == 0
}

// Clone deep-copies the group tree
func (g *FilterGroup) Clone() *FilterGroup {
	if g == nil {
		return nil
	}
	out := &FilterGroup{Logic: g.Logic, Conditions: make([]FilterNode, len(g.Conditions))}
	for i, child := range g.Conditions {
		switch child.Kind {
		case KindCondition:
			c := *child.Condition
			out.Conditions[i] = ConditionNode(c)
		case KindGroup:
			out.Conditions[i] = GroupNode(child.Group.Clone())
		case KindSimple:
			out.Conditions[i] = SimpleNode(CloneMap(child.Simple))
		default:
			out.Conditions[i] = child
		}
	}
	return out
}

// FilterSpec is either a flat equality map or a group tree.
type FilterSpec struct {
	Simple map[string]any
	Group  *FilterGroup
}

// SimpleFilter builds a flat-map spec
func SimpleFilter(m map[string]any) *FilterSpec {
	return &FilterSpec{Simple: m}
}

// GroupFilter builds a group spec
func GroupFilter(g *FilterGroup) *FilterSpec {
	return &FilterSpec{Group: g}
}

// IsEmpty reports whether the spec filters nothing out
func (s *FilterSpec) IsEmpty() bool {
	if s == nil {
		return true
	}
	if s.Group != nil {
		return s.Group.IsEmpty()
	}
	for _, v := range s.Simple {
		if !IsBlank(v) {
			return false
		}
	}
	return true
}

// Normalize returns nil for an empty spec so absence is the only "no filter" form
func (s *FilterSpec) Normalize() *FilterSpec {
	if s.IsEmpty() {
		return nil
	}
	return s
}

// Clone deep-copies the spec
func (s *FilterSpec) Clone() *FilterSpec {
	if s == nil {
		return nil
	}
	return &FilterSpec{Simple: CloneMap(s.Simple), Group: s.Group.Clone()}
}

// MarshalJSON writes a group as {logic, conditions} and a flat map as a plain object
func (s FilterSpec) MarshalJSON() ([]byte, error) {
	if s.Group != nil {
		return json.Marshal(s.Group)
	}
	if s.Simple == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.Simple)
}

// UnmarshalJSON treats an object whose logic is and/or and whose conditions
// is an array as a group. Anything else is a flat map.
func (s *FilterSpec) UnmarshalJSON(data []byte) error {
	var probe map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("filters must be an object: %w", err)
	}
	if isGroupShape(probe) {
		var g FilterGroup
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		*s = FilterSpec{Group: &g}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*s = FilterSpec{Simple: m}
	return nil
}

func isGroupShape(probe map[string]jsoniter.RawMessage) bool {
	logic, ok := stringKey(probe, "logic")
	if !ok || (FilterLogic(logic) != LogicAnd && FilterLogic(logic) != LogicOr) {
		return false
	}
	raw, ok := probe["conditions"]
	if !ok {
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	return bytes.HasPrefix(trimmed, []byte("[")) || bytes.Equal(trimmed, []byte("null"))
}

func isConditionShape(probe map[string]jsoniter.RawMessage) bool {
	_, okField := stringKey(probe, "field")
	_, okOp := stringKey(probe, "operator")
	return okField && okOp
}

// stringKey returns the value of key when it is a JSON string
func stringKey(probe map[string]jsoniter.RawMessage, key string) (string, bool) {
	raw, ok := probe[key]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
