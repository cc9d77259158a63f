// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package flags

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const definitionsKey = "flags:definitions"

// DefinitionCache keeps the last good definition payload in BadgerDB so
// flags keep evaluating across restarts while the remote source is down.
type DefinitionCache struct {
	db *badger.DB
}

type cachedDefinitions struct {
	Flags    []FlagDefinition `json:"flags"`
	StoredAt time.Time        `json:"stored_at"`
}

// OpenDefinitionCache opens a cache in dir. An empty dir keeps the cache in
// memory only.
func OpenDefinitionCache(dir string) (*DefinitionCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open flag cache: %w", err)
	}
	return &DefinitionCache{db: db}, nil
}

// Store replaces the cached definitions.
func (c *DefinitionCache) Store(defs []FlagDefinition) error {
	data, err := json.Marshal(cachedDefinitions{Flags: defs, StoredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal definitions: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(definitionsKey), data)
	})
}

// Load returns the cached definitions and when they were stored. ok is
// false when nothing has been cached.
func (c *DefinitionCache) Load() (defs []FlagDefinition, storedAt time.Time, ok bool, err error) {
	var cached cachedDefinitions
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(definitionsKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cached)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("load cached definitions: %w", err)
	}
	return cached.Flags, cached.StoredAt, true, nil
}

// Close closes the underlying database.
func (c *DefinitionCache) Close() error {
	return c.db.Close()
}
