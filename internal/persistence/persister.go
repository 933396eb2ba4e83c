package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/rebeliceyang/lazytable/internal/logger"
	"github.com/rebeliceyang/lazytable/internal/state"
)

// Mode selects where view state is kept
type Mode string

const (
	ModeNone    Mode = "none"
	ModeStorage Mode = "storage"
	ModeURL     Mode = "url"
)

// IsValid reports whether m is a known mode
func (m Mode) IsValid() bool {
	return m == ModeNone || m == ModeStorage || m == ModeURL
}

// StorageKey returns the store key for a state key
func StorageKey(stateKey string) string {
	return "smartTableState:" + stateKey
}

// URLParam returns the query parameter name for a state key
func URLParam(stateKey string) string {
	return "tableState_" + stateKey
}

// Persister saves and restores one table's view state
type Persister struct {
	mode     Mode
	stateKey string
	store    KeyValueStore
	log      *slog.Logger

	mu    sync.Mutex
	query url.Values
}

// NewPersister creates a persister. store may be nil in none mode; in url
// mode it is the fallback written next to the query parameter.
func NewPersister(mode Mode, stateKey string, store KeyValueStore, log *slog.Logger) (*Persister, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("unknown persistence mode %q", mode)
	}
	if mode != ModeNone && store == nil {
		store = NewMemoryStore()
	}
	return &Persister{
		mode:     mode,
		stateKey: stateKey,
		store:    store,
		log:      logger.Or(log),
		query:    url.Values{},
	}, nil
}

// Mode returns the persistence mode
func (p *Persister) Mode() Mode {
	return p.mode
}

// SetQuery replaces the current location query, e.g. one parsed from a link
func (p *Persister) SetQuery(rawQuery string) error {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return fmt.Errorf("failed to parse location query: %w", err)
	}
	p.mu.Lock()
	p.query = q
	p.mu.Unlock()
	return nil
}

// Query returns the encoded location query after the last save
func (p *Persister) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query.Encode()
}

// Save writes the state. In url mode the query parameter is updated and the
// store gets a copy.
func (p *Persister) Save(ctx context.Context, vs state.ViewState) error {
	if p.mode == ModeNone {
		return nil
	}

	data, err := Encode(vs)
	if err != nil {
		return err
	}

	if p.mode == ModeURL {
		p.mu.Lock()
		p.query.Set(URLParam(p.stateKey), string(data))
		p.mu.Unlock()
	}

	if err := p.store.Set(ctx, StorageKey(p.stateKey), string(data)); err != nil {
		return fmt.Errorf("failed to save view state: %w", err)
	}
	return nil
}

// Load returns the saved state and the fields it holds. found is false when
// nothing usable was saved. Malformed documents are logged and treated as absent.
func (p *Persister) Load(ctx context.Context) (state.ViewState, state.FieldSet, bool) {
	if p.mode == ModeNone {
		return state.ViewState{}, nil, false
	}

	if p.mode == ModeURL {
		if raw, ok := p.urlValue(); ok {
			vs, fields, err := Decode([]byte(raw), p.log)
			if err == nil {
				return vs, fields, true
			}
			p.log.Debug("ignoring saved view state in url", "error", err)
		}
	}

	raw, err := p.store.Get(ctx, StorageKey(p.stateKey))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.log.Debug("failed to read saved view state", "error", err)
		}
		return state.ViewState{}, nil, false
	}
	vs, fields, err := Decode([]byte(raw), p.log)
	if err != nil {
		p.log.Debug("ignoring saved view state", "error", err)
		return state.ViewState{}, nil, false
	}
	return vs, fields, true
}

// Restore loads the saved state into store. It reports whether anything was applied.
func (p *Persister) Restore(ctx context.Context, store *state.Store) bool {
	vs, fields, ok := p.Load(ctx)
	if !ok {
		return false
	}
	store.Restore(vs, fields, p.log)
	return true
}

// Clear removes the saved state
func (p *Persister) Clear(ctx context.Context) error {
	if p.mode == ModeNone {
		return nil
	}
	p.mu.Lock()
	p.query.Del(URLParam(p.stateKey))
	p.mu.Unlock()
	return p.store.Delete(ctx, StorageKey(p.stateKey))
}

// urlValue reads the query parameter. A value that is still percent-encoded
// (encoded twice on the way in) is unescaped once more.
func (p *Persister) urlValue() (string, bool) {
	p.mu.Lock()
	raw := p.query.Get(URLParam(p.stateKey))
	p.mu.Unlock()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.HasPrefix(raw, "{") {
		if unescaped, err := url.QueryUnescape(raw); err == nil {
			raw = unescaped
		}
	}
	return raw, true
}
