// Copyright (C) 2025 Headwind Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache memoizes class-path bytes across compiler runs.
//
// The store is a badger key-value database keyed by archive path,
// archive modification time, and entry name, so a rebuilt archive
// naturally invalidates its old entries. Caching is strictly an
// optimization: every read path falls back to the underlying archive.
package cache

import (
	"strconv"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// Cache is a badger-backed byte store.
type Cache struct {
	db *badger.DB
}

// Open opens (or creates) a cache at dir.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening cache at %s", dir)
	}
	return &Cache{db: db}, nil
}

// OpenInMemory opens a non-persistent cache, used in tests.
func OpenInMemory() (*Cache, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, errors.Wrap(err, "opening in-memory cache")
	}
	return &Cache{db: db}, nil
}

// Close releases the store.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key builds the cache key for one archive entry.
func Key(archivePath string, modTimeUnix int64, entry string) []byte {
	return []byte(archivePath + "\x00" + strconv.FormatInt(modTimeUnix, 10) + "\x00" + entry)
}

// Get returns the cached bytes for key, reporting a miss as ok=false.
func (c *Cache) Get(key []byte) ([]byte, bool, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "cache read")
	}
	return out, true, nil
}

// Put stores bytes under key.
func (c *Cache) Put(key, value []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	return errors.Wrap(err, "cache write")
}
