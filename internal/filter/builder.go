package filter

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/rebeliceyang/lazytable/internal/models"
)

// ErrUnknownColumn is returned when a filter, search or sort names a column the
// builder was not told about. Identifiers are never taken from user input unchecked.
var ErrUnknownColumn = errors.New("unknown column")

// Dialect captures the placeholder and LIKE differences between SQL engines
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// likeOp picks the LIKE variant. SQLite LIKE is already case-insensitive for ASCII.
func (d Dialect) likeOp(caseSensitive bool) string {
	if d == Postgres && !caseSensitive {
		return "ILIKE"
	}
	return "LIKE"
}

// Builder generates SQL WHERE and ORDER BY clauses from filter specs
type Builder struct {
	dialect Dialect
	columns map[string]bool
}

// NewBuilder creates a builder that accepts only the given column names
func NewBuilder(dialect Dialect, columns []string) *Builder {
	allowed := make(map[string]bool, len(columns))
	for _, c := range columns {
		allowed[c] = true
	}
	return &Builder{dialect: dialect, columns: allowed}
}

// SearchClause describes a free-text search over several columns
type SearchClause struct {
	Term    string
	Columns []string
	Mode    models.SearchMode
}

// statement accumulates positional arguments while the clause is built
type statement struct {
	args []any
}

func (b *Builder) bind(st *statement, v any) string {
	st.args = append(st.args, v)
	return b.dialect.placeholder(len(st.args))
}

// BuildWhere generates a WHERE clause from a filter spec and an optional search
func (b *Builder) BuildWhere(spec *models.FilterSpec, search SearchClause) (string, []any, error) {
	st := &statement{}
	var clauses []string

	if !spec.IsEmpty() {
		var (
			clause string
			err    error
		)
		if spec.Group != nil {
			clause, err = b.buildGroup(st, spec.Group)
		} else {
			clause, err = b.buildSimple(st, spec.Simple)
		}
		if err != nil {
			return "", nil, err
		}
		if clause != "" {
			clauses = append(clauses, "("+clause+")")
		}
	}

	if strings.TrimSpace(search.Term) != "" && len(search.Columns) > 0 {
		clause, err := b.buildSearch(st, search)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), st.args, nil
}

// BuildOrderBy renders ORDER BY for the sort state. Nulls sort first in both
// directions to match the in-memory comparator.
func (b *Builder) BuildOrderBy(sort *models.SortState) (string, error) {
	if sort == nil || sort.Key == "" {
		return "", nil
	}
	col, err := b.column(sort.Key)
	if err != nil {
		return "", err
	}
	dir := "ASC"
	if sort.Direction == models.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s NULLS FIRST", col, dir), nil
}

// buildGroup recursively builds a filter group. Children that reduce to no
// clause are vacuously true and dropped.
func (b *Builder) buildGroup(st *statement, group *models.FilterGroup) (string, error) {
	var clauses []string

	for _, child := range group.Conditions {
		var (
			clause string
			err    error
		)
		switch child.Kind {
		case models.KindGroup:
			clause, err = b.buildGroup(st, child.Group)
			if clause != "" {
				clause = "(" + clause + ")"
			}
		case models.KindSimple:
			clause, err = b.buildSimple(st, child.Simple)
			if clause != "" {
				clause = "(" + clause + ")"
			}
		default:
			if child.Condition == nil {
				continue
			}
			clause, err = b.buildCondition(st, *child.Condition)
		}
		if err != nil {
			return "", err
		}
		if clause == "" {
			if group.Logic == models.LogicOr {
				// one vacuously true child makes the whole OR true
				return "", nil
			}
			continue
		}
		clauses = append(clauses, clause)
	}

	logic := " AND "
	if group.Logic == models.LogicOr {
		logic = " OR "
	}
	return strings.Join(clauses, logic), nil
}

// buildSimple translates the flat-map shorthand. Strings become substring matches.
func (b *Builder) buildSimple(st *statement, simple map[string]any) (string, error) {
	var clauses []string
	for _, field := range sortedKeys(simple) {
		value := simple[field]
		if models.IsBlank(value) {
			continue
		}
		col, err := b.column(field)
		if err != nil {
			return "", err
		}
		if s, ok := value.(string); ok {
			clauses = append(clauses, fmt.Sprintf("CAST(%s AS TEXT) %s %s ESCAPE '\\'",
				col, b.dialect.likeOp(false), b.bind(st, "%"+escapeLike(s)+"%")))
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", col, b.bind(st, value)))
	}
	return strings.Join(clauses, " AND "), nil
}

// buildCondition builds a single filter condition
func (b *Builder) buildCondition(st *statement, cond models.FilterCondition) (string, error) {
	col, err := b.column(cond.Field)
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("CAST(%s AS TEXT)", col)
	like := b.dialect.likeOp(cond.CaseSensitive)

	switch cond.Operator {
	case models.OpIsEmpty:
		return fmt.Sprintf("(%s IS NULL OR %s = '')", col, text), nil
	case models.OpIsNotEmpty:
		return fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", col, text), nil

	case models.OpContains:
		return fmt.Sprintf("%s %s %s ESCAPE '\\'", text, like, b.bind(st, "%"+escapeLike(models.Stringify(cond.Value))+"%")), nil
	case models.OpStartsWith:
		return fmt.Sprintf("%s %s %s ESCAPE '\\'", text, like, b.bind(st, escapeLike(models.Stringify(cond.Value))+"%")), nil
	case models.OpEndsWith:
		return fmt.Sprintf("%s %s %s ESCAPE '\\'", text, like, b.bind(st, "%"+escapeLike(models.Stringify(cond.Value)))), nil

	case models.OpGt, models.OpGte, models.OpLt, models.OpLte:
		bound, ok := rangeOperand(cond.Value)
		if !ok {
			return "1 = 0", nil
		}
		return fmt.Sprintf("%s %s %s", col, sqlComparison[cond.Operator], b.bind(st, bound)), nil

	case models.OpBetween:
		if models.IsNil(cond.Value) && models.IsNil(cond.ValueTo) {
			return "", nil
		}
		lo, okLo := rangeOperand(cond.Value)
		hi, okHi := rangeOperand(cond.ValueTo)
		if !okLo || !okHi {
			return "1 = 0", nil
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", col, b.bind(st, lo), b.bind(st, hi)), nil

	case models.OpIn, models.OpNotIn:
		items := toList(cond.Value)
		if len(items) == 0 {
			if cond.Operator == models.OpIn {
				return "1 = 0", nil
			}
			return "", nil
		}
		placeholders := make([]string, len(items))
		for i, item := range items {
			placeholders[i] = b.equalityOperand(st, item, cond.CaseSensitive)
		}
		op := "IN"
		if cond.Operator == models.OpNotIn {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", b.equalityColumn(col, cond.Value, cond.CaseSensitive), op, strings.Join(placeholders, ", ")), nil

	case models.OpNeq:
		return fmt.Sprintf("%s <> %s", b.equalityColumn(col, cond.Value, cond.CaseSensitive), b.equalityOperand(st, cond.Value, cond.CaseSensitive)), nil

	default:
		if models.IsNil(cond.Value) {
			return fmt.Sprintf("%s IS NULL", col), nil
		}
		return fmt.Sprintf("%s = %s", b.equalityColumn(col, cond.Value, cond.CaseSensitive), b.equalityOperand(st, cond.Value, cond.CaseSensitive)), nil
	}
}

var sqlComparison = map[models.FilterOperator]string{
	models.OpGt:  ">",
	models.OpGte: ">=",
	models.OpLt:  "<",
	models.OpLte: "<=",
}

// equalityColumn lowers the column when comparing against strings case-insensitively
func (b *Builder) equalityColumn(col string, value any, caseSensitive bool) string {
	if hasString(value) && !caseSensitive {
		return fmt.Sprintf("LOWER(CAST(%s AS TEXT))", col)
	}
	if hasString(value) {
		return fmt.Sprintf("CAST(%s AS TEXT)", col)
	}
	return col
}

func (b *Builder) equalityOperand(st *statement, value any, caseSensitive bool) string {
	if s, ok := value.(string); ok {
		if !caseSensitive {
			s = strings.ToLower(s)
		}
		return b.bind(st, s)
	}
	if hasString(value) {
		return b.bind(st, fold(models.Stringify(value), caseSensitive))
	}
	return b.bind(st, value)
}

func (b *Builder) buildSearch(st *statement, search SearchClause) (string, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(search.Term))) + "%"
	clauses := make([]string, 0, len(search.Columns))
	for _, key := range search.Columns {
		col, err := b.column(key)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, fmt.Sprintf("LOWER(CAST(%s AS TEXT)) LIKE %s ESCAPE '\\'", col, b.bind(st, pattern)))
	}
	joiner := " OR "
	if search.Mode == models.SearchAll {
		joiner = " AND "
	}
	return "(" + strings.Join(clauses, joiner) + ")", nil
}

// column validates and quotes an identifier
func (b *Builder) column(name string) (string, error) {
	if !b.columns[name] {
		return "", fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	return QuoteIdent(name), nil
}

// QuoteIdent double-quotes an identifier for both Postgres and SQLite
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// hasString reports whether value is a string or a list containing one
func hasString(value any) bool {
	if _, ok := value.(string); ok {
		return true
	}
	for _, item := range toList(value) {
		if _, ok := item.(string); ok {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
