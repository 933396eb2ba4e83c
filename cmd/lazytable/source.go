package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rebeliceyang/lazytable/internal/config"
	"github.com/rebeliceyang/lazytable/internal/credentials"
	"github.com/rebeliceyang/lazytable/internal/datasource"
	"github.com/rebeliceyang/lazytable/internal/models"
	"github.com/rebeliceyang/lazytable/internal/persistence"
)

// table is what the query command needs from a configured source
type table struct {
	columns []models.Column
	records []models.Record   // client mode
	source  datasource.Source // server mode
	close   func()
}

func openTable(ctx context.Context, cfg *config.Config) (*table, error) {
	t := &table{columns: cfg.Table.Columns, close: func() {}}
	server := cfg.Table.DataMode == "server"

	switch cfg.Source.Kind {
	case "json":
		if cfg.Source.Path == "" {
			return nil, fmt.Errorf("source.path is required for json sources")
		}
		records, err := datasource.ReadJSONRecords(cfg.Source.Path)
		if err != nil {
			return nil, err
		}
		if len(t.columns) == 0 {
			t.columns = inferColumns(records)
		}
		records = withIDs(records, cfg.Source.IDColumn)
		if server {
			t.source = datasource.NewStaticSource(records, t.columns, locale(cfg))
		} else {
			t.records = records
		}

	case "postgres", "sqlite":
		if len(t.columns) == 0 {
			return nil, fmt.Errorf("table.columns must be configured for %s sources", cfg.Source.Kind)
		}
		if cfg.Source.Table == "" {
			return nil, fmt.Errorf("source.table is required for %s sources", cfg.Source.Kind)
		}
		tc := datasource.TableConfig{Table: cfg.Source.Table, Columns: t.columns}
		dsn, err := sourceDSN(cfg, credentials.NewStore())
		if err != nil {
			return nil, err
		}

		var src datasource.Source
		if cfg.Source.Kind == "postgres" {
			pg, err := datasource.NewPostgresSource(ctx, dsn, tc)
			if err != nil {
				return nil, err
			}
			src, t.close = pg, pg.Close
		} else {
			path := cfg.Source.Path
			if path == "" {
				path = dsn
			}
			lite, err := datasource.NewSQLiteSource(path, tc)
			if err != nil {
				return nil, err
			}
			src, t.close = lite, func() { _ = lite.Close() }
		}

		if server {
			t.source = src
			return t, nil
		}
		// client mode loads the whole table once
		adapter := datasource.NewAdapter(src)
		if _, err := adapter.Load(models.QueryParams{Page: 1}, false); err != nil {
			t.close()
			return nil, err
		}
		adapter.Wait()
		snap := adapter.Snapshot()
		adapter.Close()
		if snap.Error != "" {
			t.close()
			return nil, fmt.Errorf("failed to load table: %s", snap.Error)
		}
		t.records = withIDs(snap.Items, cfg.Source.IDColumn)
	}
	return t, nil
}

// sourceDSN returns the configured DSN, falling back to the keyring entry
// named by source.keyring
func sourceDSN(cfg *config.Config, creds *credentials.Store) (string, error) {
	if cfg.Source.DSN != "" || cfg.Source.Keyring == "" {
		return cfg.Source.DSN, nil
	}
	dsn, err := creds.DSN(cfg.Source.Keyring)
	if err != nil {
		return "", fmt.Errorf("source.keyring %q: %w", cfg.Source.Keyring, err)
	}
	return dsn, nil
}

// inferColumns builds text columns from the keys of the first record
func inferColumns(records []models.Record) []models.Column {
	if len(records) == 0 {
		return nil
	}
	keys := make([]string, 0, len(records[0]))
	for k := range records[0] {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	cols := make([]models.Column, len(keys))
	for i, k := range keys {
		cols[i] = models.Column{Key: k, Header: k, Type: models.ColumnText, Sortable: true}
	}
	return cols
}

// withIDs copies the configured id column into the id field
func withIDs(records []models.Record, idColumn string) []models.Record {
	if idColumn == "" || idColumn == models.IDField {
		return records
	}
	for _, rec := range records {
		if _, ok := rec[models.IDField]; !ok {
			rec[models.IDField] = models.Stringify(models.Value(rec, idColumn))
		}
	}
	return records
}

func openPersister(cfg *config.Config) (*persistence.Persister, func(), error) {
	mode := persistence.Mode(cfg.Persistence.Mode)
	if mode == persistence.ModeNone {
		p, err := persistence.NewPersister(mode, cfg.Persistence.StateKey, nil, nil)
		return p, func() {}, err
	}

	var (
		store   persistence.KeyValueStore
		closeFn = func() {}
	)
	switch strings.ToLower(cfg.Persistence.Backend) {
	case "yaml":
		path, err := cfg.StatePath()
		if err != nil {
			return nil, nil, err
		}
		ys, err := persistence.NewYAMLStore(path)
		if err != nil {
			return nil, nil, err
		}
		store = ys
	case "sqlite":
		path, err := cfg.StatePath()
		if err != nil {
			return nil, nil, err
		}
		ss, err := persistence.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = ss, func() { _ = ss.Close() }
	default:
		store = persistence.NewMemoryStore()
	}

	p, err := persistence.NewPersister(mode, cfg.Persistence.StateKey, store, nil)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return p, closeFn, nil
}
