package datasource

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rebeliceyang/lazytable/internal/filter"
	"github.com/rebeliceyang/lazytable/internal/models"
)

// SQLiteSource reads one table of a SQLite database. Each query is answered
// on a stream channel carrying a single payload.
type SQLiteSource struct {
	db    *sql.DB
	table TableConfig
}

// NewSQLiteSource opens the database file at path
func NewSQLiteSource(path string, table TableConfig) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return &SQLiteSource{db: db, table: table}, nil
}

// NewSQLiteSourceDB wraps an already open database
func NewSQLiteSourceDB(db *sql.DB, table TableConfig) *SQLiteSource {
	return &SQLiteSource{db: db, table: table}
}

// Load returns a stream that yields the requested page once
func (s *SQLiteSource) Load(ctx context.Context, params models.QueryParams) (any, error) {
	q, err := buildPageQuery(filter.SQLite, s.table, params)
	if err != nil {
		return nil, err
	}

	out := make(chan Payload, 1)
	go func() {
		defer close(out)
		result, err := s.query(ctx, q)
		out <- Payload{Value: result, Err: err}
	}()
	return (<-chan Payload)(out), nil
}

func (s *SQLiteSource) query(ctx context.Context, q *pageQuery) (models.QueryResult, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, q.count, q.args...).Scan(&total); err != nil {
		return models.QueryResult{}, fmt.Errorf("failed to count rows: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q.page, q.pageArgs...)
	if err != nil {
		return models.QueryResult{}, fmt.Errorf("failed to query table data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return models.QueryResult{}, err
	}

	items := []models.Record{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return models.QueryResult{}, err
		}

		rec := make(models.Record, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = values[i]
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return models.QueryResult{}, fmt.Errorf("failed to read table data: %w", err)
	}

	return models.QueryResult{Items: items, Total: models.IntPtr(total)}, nil
}

// Close closes the database
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
