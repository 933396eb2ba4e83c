package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rebeliceyang/lazytable/internal/filter"
	"github.com/rebeliceyang/lazytable/internal/models"
)

// PostgresSource runs each query as a COUNT plus a LIMIT/OFFSET page query
// against one table through a pgx pool. Answers are deferred.
type PostgresSource struct {
	pool  *pgxpool.Pool
	table TableConfig
}

// NewPostgresSource connects to dsn and checks the connection
func NewPostgresSource(ctx context.Context, dsn string, table TableConfig) (*PostgresSource, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresSource{pool: pool, table: table}, nil
}

// Load returns a *Future settling to the requested page
func (s *PostgresSource) Load(ctx context.Context, params models.QueryParams) (any, error) {
	q, err := buildPageQuery(filter.Postgres, s.table, params)
	if err != nil {
		return nil, err
	}
	return Go(ctx, func(ctx context.Context) (any, error) {
		return s.query(ctx, q)
	}), nil
}

func (s *PostgresSource) query(ctx context.Context, q *pageQuery) (models.QueryResult, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, q.count, q.args...).Scan(&total); err != nil {
		return models.QueryResult{}, fmt.Errorf("failed to count rows: %w", err)
	}

	rows, err := s.pool.Query(ctx, q.page, q.pageArgs...)
	if err != nil {
		return models.QueryResult{}, fmt.Errorf("failed to query table data: %w", err)
	}
	defer rows.Close()

	fieldDescriptions := rows.FieldDescriptions()
	items := []models.Record{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return models.QueryResult{}, err
		}

		rec := make(models.Record, len(fieldDescriptions))
		for i, fd := range fieldDescriptions {
			rec[fd.Name] = pgValue(values[i])
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return models.QueryResult{}, fmt.Errorf("failed to read table data: %w", err)
	}

	return models.QueryResult{Items: items, Total: models.IntPtr(int(total))}, nil
}

// pgValue turns driver types without a natural Go form into plain values
func pgValue(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case []byte:
		return string(x)
	}
	return v
}

// Close closes the connection pool
func (s *PostgresSource) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
