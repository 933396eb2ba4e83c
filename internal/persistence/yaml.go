package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlEntry is one saved state in the YAML file
type yamlEntry struct {
	Key       string    `yaml:"key"`
	Value     string    `yaml:"value"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// YAMLStore keeps saved states in a single YAML file
type YAMLStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]yamlEntry
}

// NewYAMLStore creates a store backed by path, loading it if it exists
func NewYAMLStore(path string) (*YAMLStore, error) {
	s := &YAMLStore{
		path:    path,
		entries: make(map[string]yamlEntry),
	}

	// Load existing entries if file exists
	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("failed to load view states: %w", err)
		}
	}

	return s, nil
}

func (s *YAMLStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var list []yamlEntry
	if err := yaml.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}
	for _, e := range list {
		s.entries[e.Key] = e
	}
	return nil
}

// save writes every entry, sorted by key. Caller holds mu.
func (s *YAMLStore) save() error {
	list := make([]yamlEntry, 0, len(s.entries))
	for _, e := range s.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Key < list[j].Key
	})

	data, err := yaml.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal view states: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Get returns the value for key
func (s *YAMLStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return e.Value, nil
}

// Set stores value under key and rewrites the file
func (s *YAMLStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = yamlEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.save()
}

// Delete removes key and rewrites the file
func (s *YAMLStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.save()
}
