package datasource

import (
	"context"
	"fmt"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/language"

	"github.com/rebeliceyang/lazytable/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONFileSource reads records from a JSON file (an array of objects or an
// {items, total} object) the first time it is queried and serves every query
// from memory afterwards. Answers are deferred.
type JSONFileSource struct {
	path    string
	columns []models.Column
	locale  language.Tag

	once   sync.Once
	static *StaticSource
	err    error
}

// NewJSONFileSource creates a source backed by the file at path
func NewJSONFileSource(path string, columns []models.Column, locale language.Tag) *JSONFileSource {
	return &JSONFileSource{path: path, columns: columns, locale: locale}
}

// Load returns a *Future settling to the requested page
func (s *JSONFileSource) Load(ctx context.Context, params models.QueryParams) (any, error) {
	return Go(ctx, func(ctx context.Context) (any, error) {
		s.once.Do(s.load)
		if s.err != nil {
			return nil, s.err
		}
		return s.static.Load(ctx, params)
	}), nil
}

// Records returns every record in the file
func (s *JSONFileSource) Records() ([]models.Record, error) {
	s.once.Do(s.load)
	if s.err != nil {
		return nil, s.err
	}
	return s.static.Records(), nil
}

func (s *JSONFileSource) load() {
	records, err := ReadJSONRecords(s.path)
	if err != nil {
		s.err = err
		return
	}
	s.static = NewStaticSource(records, s.columns, s.locale)
}

// ReadJSONRecords decodes a JSON records file
func ReadJSONRecords(path string) ([]models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse records file: %w", err)
	}

	result, err := Normalize(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to read records from %s: %w", path, err)
	}
	return result.Items, nil
}
