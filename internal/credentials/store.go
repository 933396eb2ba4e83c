// Package credentials keeps data source connection strings in the OS keyring
// so config files do not have to carry them.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const serviceName = "lazytable"

// ErrNotFound is returned when no connection string is saved under a name
var ErrNotFound = errors.New("connection string not found in keyring")

// Store reads and writes connection strings for one keyring service
type Store struct {
	service string
}

// NewStore returns a store for the lazytable keyring service
func NewStore() *Store {
	return &Store{service: serviceName}
}

// SaveDSN stores dsn under name. An empty dsn is not saved.
func (s *Store) SaveDSN(name, dsn string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("keyring entry name is required")
	}
	if dsn == "" {
		return nil
	}
	if err := keyring.Set(s.service, name, dsn); err != nil {
		return fmt.Errorf("failed to save connection string to keyring: %w", err)
	}
	return nil
}

// DSN returns the connection string saved under name
func (s *Store) DSN(name string) (string, error) {
	dsn, err := keyring.Get(s.service, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read connection string from keyring: %w", err)
	}
	return dsn, nil
}

// Delete removes the entry saved under name. A missing entry is not an error.
func (s *Store) Delete(name string) error {
	err := keyring.Delete(s.service, strings.TrimSpace(name))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}
	return nil
}
