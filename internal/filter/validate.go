package filter

import (
	"errors"
	"fmt"

	"github.com/rebeliceyang/lazytable/internal/models"
)

var (
	// ErrUnknownOperator is returned for operators outside the supported set
	ErrUnknownOperator = errors.New("unknown filter operator")
	// ErrCyclicGroup is returned when a group is reachable from itself
	ErrCyclicGroup = errors.New("filter group contains itself")
	// ErrEmptyField is returned for a condition without a field
	ErrEmptyField = errors.New("filter condition has no field")
	// ErrInvalidLogic is returned for group logic other than and/or
	ErrInvalidLogic = errors.New("filter group logic must be and or or")
)

// Validate checks a spec at construction time. Evaluation never fails, so this is
// where unknown operators and self-referencing groups are rejected.
func Validate(spec *models.FilterSpec) error {
	if spec == nil || spec.Group == nil {
		return nil
	}
	return validateGroup(spec.Group, map[*models.FilterGroup]bool{})
}

// ValidateGroup is Validate for a bare group
func ValidateGroup(group *models.FilterGroup) error {
	if group == nil {
		return nil
	}
	return validateGroup(group, map[*models.FilterGroup]bool{})
}

// ValidateCondition checks a single condition
func ValidateCondition(cond models.FilterCondition) error {
	if cond.Field == "" {
		return ErrEmptyField
	}
	if !cond.Operator.IsValid() {
		return fmt.Errorf("%w: %q on field %s", ErrUnknownOperator, cond.Operator, cond.Field)
	}
	return nil
}

// validateGroup walks the tree keeping the groups on the current path
func validateGroup(group *models.FilterGroup, path map[*models.FilterGroup]bool) error {
	if path[group] {
		return ErrCyclicGroup
	}
	if group.Logic != models.LogicAnd && group.Logic != models.LogicOr {
		return fmt.Errorf("%w: got %q", ErrInvalidLogic, group.Logic)
	}

	path[group] = true
	defer delete(path, group)

	for i, child := range group.Conditions {
		switch child.Kind {
		case models.KindGroup:
			if child.Group == nil {
				return fmt.Errorf("child %d: group node without group", i)
			}
			if err := validateGroup(child.Group, path); err != nil {
				return err
			}
		case models.KindCondition:
			if child.Condition == nil {
				return fmt.Errorf("child %d: condition node without condition", i)
			}
			if err := ValidateCondition(*child.Condition); err != nil {
				return fmt.Errorf("child %d: %w", i, err)
			}
		case models.KindSimple:
		default:
			return fmt.Errorf("child %d: unknown node kind %q", i, child.Kind)
		}
	}
	return nil
}
