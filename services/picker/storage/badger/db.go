// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badger wraps the embedded BadgerDB store used for service-local
// persistence. Precomputed embedding vectors are expensive to rebuild but
// cheap to store; an embedded store keeps them across restarts with no
// network dependency and no availability coupling.
package badger

import (
	"errors"
	"fmt"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// ErrKeyNotFound is returned by Get for absent keys, so callers can treat a
// miss as a normal outcome without importing the driver.
var ErrKeyNotFound = errors.New("key not found")

// Config configures an embedded store.
type Config struct {
	// Path is the on-disk directory. Required.
	Path string

	// SyncWrites trades write latency for durability. Cached vectors are
	// reconstructible, so the default is off.
	SyncWrites bool
}

// DefaultConfig returns the baseline configuration. Path must be set by the
// caller.
func DefaultConfig() Config {
	return Config{SyncWrites: false}
}

// DB is an open embedded store.
//
// Thread Safety: Safe for concurrent use.
type DB struct {
	db *dgbadger.DB
}

// OpenDB opens (creating if needed) the store at cfg.Path.
func OpenDB(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("badger: path is required")
	}
	opts := dgbadger.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)
	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: opening %q: %w", cfg.Path, err)
	}
	return &DB{db: db}, nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (d *DB) Get(key []byte) ([]byte, error) {
	var value []byte
	err := d.db.View(func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger: get: %w", err)
	}
	return value, nil
}

// SetWithTTL stores value under key with an expiry enforced by BadgerDB's
// GC. Expired keys read back as ErrKeyNotFound.
func (d *DB) SetWithTTL(key, value []byte, ttl time.Duration) error {
	err := d.db.Update(func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger: set: %w", err)
	}
	return nil
}

// Close releases the store. Further use is an error.
func (d *DB) Close() error {
	return d.db.Close()
}
