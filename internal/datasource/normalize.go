package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cast"

	"github.com/rebeliceyang/lazytable/internal/models"
)

var (
	// ErrUnsupportedShape is returned when a source yields something that is
	// neither a result, a record list, a future nor a stream
	ErrUnsupportedShape = errors.New("unsupported data source result")
	// ErrEmptyStream is returned when a stream closes without a value
	ErrEmptyStream = errors.New("data source stream closed without a value")
)

// toFuture adapts every accepted source return shape to a *Future.
// Streams are drained for their first payload only.
func toFuture(ctx context.Context, v any) *Future {
	switch s := v.(type) {
	case *Future:
		if s == nil {
			return Rejected(fmt.Errorf("%w: nil future", ErrUnsupportedShape))
		}
		return s
	case <-chan Payload:
		return fromStream(ctx, s)
	case chan Payload:
		return fromStream(ctx, s)
	default:
		return Resolved(v)
	}
}

func fromStream(ctx context.Context, ch <-chan Payload) *Future {
	if ch == nil {
		return Rejected(fmt.Errorf("%w: nil stream", ErrUnsupportedShape))
	}
	return Go(ctx, func(ctx context.Context) (any, error) {
		select {
		case p, ok := <-ch:
			if !ok {
				return nil, ErrEmptyStream
			}
			return p.Value, p.Err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// Normalize converts a settled value into a QueryResult. A bare list becomes
// {items: list}; a result passes through unchanged.
func Normalize(v any) (models.QueryResult, error) {
	switch r := v.(type) {
	case models.QueryResult:
		return r, nil
	case *models.QueryResult:
		if r == nil {
			return models.QueryResult{}, fmt.Errorf("%w: nil result", ErrUnsupportedShape)
		}
		return *r, nil
	case []models.Record:
		return models.QueryResult{Items: r}, nil
	case []map[string]any:
		items := make([]models.Record, len(r))
		for i, m := range r {
			items[i] = models.Record(m)
		}
		return models.QueryResult{Items: items}, nil
	case []any:
		items, err := recordsFrom(r)
		if err != nil {
			return models.QueryResult{}, err
		}
		return models.QueryResult{Items: items}, nil
	case map[string]any:
		return resultFromObject(r)
	}
	return models.QueryResult{}, fmt.Errorf("%w: %T", ErrUnsupportedShape, v)
}

// resultFromObject handles decoded JSON of the form {items: [...], total: n}
func resultFromObject(obj map[string]any) (models.QueryResult, error) {
	raw, ok := obj["items"]
	if !ok {
		return models.QueryResult{}, fmt.Errorf("%w: object without items", ErrUnsupportedShape)
	}
	list, ok := raw.([]any)
	if !ok {
		return models.QueryResult{}, fmt.Errorf("%w: items is %T", ErrUnsupportedShape, raw)
	}
	items, err := recordsFrom(list)
	if err != nil {
		return models.QueryResult{}, err
	}

	result := models.QueryResult{Items: items}
	if t, ok := obj["total"]; ok && t != nil {
		total, err := cast.ToIntE(t)
		if err != nil {
			return models.QueryResult{}, fmt.Errorf("%w: total: %v", ErrUnsupportedShape, err)
		}
		result.Total = models.IntPtr(total)
	}
	return result, nil
}

func recordsFrom(list []any) ([]models.Record, error) {
	items := make([]models.Record, 0, len(list))
	for i, item := range list {
		switch m := item.(type) {
		case map[string]any:
			items = append(items, models.Record(m))
		case models.Record:
			items = append(items, m)
		default:
			return nil, fmt.Errorf("%w: item %d is %T", ErrUnsupportedShape, i, item)
		}
	}
	return items, nil
}
