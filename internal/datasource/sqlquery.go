package datasource

import (
	"fmt"
	"strings"

	"github.com/rebeliceyang/lazytable/internal/filter"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/search"
)

// TableConfig names the table a SQL source reads and the columns it may touch
type TableConfig struct {
	Table   string // table or schema.table
	Columns []models.Column
}

// pageQuery holds the statements for one QueryParams
type pageQuery struct {
	count    string
	page     string
	args     []any
	pageArgs []any
}

// qualifiedTable quotes every dotted part of a table name
func qualifiedTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = filter.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

func buildPageQuery(dialect filter.Dialect, cfg TableConfig, params models.QueryParams) (*pageQuery, error) {
	keys := models.ColumnKeys(models.SearchableColumns(cfg.Columns))
	builder := filter.NewBuilder(dialect, keys)

	searchCols := models.ColumnKeys(search.NewMatcher(cfg.Columns).Candidates(params.SearchColumns))
	where, args, err := builder.BuildWhere(params.Filters, filter.SearchClause{
		Term:    params.SearchTerm,
		Columns: searchCols,
		Mode:    params.SearchMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build filter: %w", err)
	}

	orderBy, err := builder.BuildOrderBy(params.Sort)
	if err != nil {
		return nil, fmt.Errorf("failed to build sort: %w", err)
	}

	selectList := make([]string, len(keys))
	for i, k := range keys {
		selectList[i] = filter.QuoteIdent(k)
	}

	table := qualifiedTable(cfg.Table)
	q := &pageQuery{
		count: strings.TrimSpace(fmt.Sprintf("SELECT COUNT(*) AS count FROM %s %s", table, where)),
		args:  args,
	}

	page := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selectList, ", "), table)
	if where != "" {
		page += " " + where
	}
	if orderBy != "" {
		page += " " + orderBy
	}
	q.pageArgs = append([]any{}, args...)
	if params.PageSize > 0 {
		if dialect == filter.Postgres {
			page += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		} else {
			page += " LIMIT ? OFFSET ?"
		}
		q.pageArgs = append(q.pageArgs, params.PageSize, params.Offset())
	}
	q.page = page
	return q, nil
}
