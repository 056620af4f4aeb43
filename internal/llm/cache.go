// Copyright (C) 2026 Geogate AI (oss@geogate.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/geogate-ai/geogate/pkg/logging"
)

// CacheConfig controls the on-disk response cache.
type CacheConfig struct {
	// Dir is the badger database directory. Ignored when InMemory is set.
	Dir string
	// InMemory runs badger without disk persistence. Used by tests.
	InMemory bool
}

// Cached wraps a Client with a badger-backed response cache keyed on the
// SHA-256 of the prompt. Re-running a pipeline stage with unchanged
// prompts then costs zero model calls.
type Cached struct {
	inner Client
	db    *badger.DB
	log   *logging.Logger
}

// NewCached opens (or creates) the cache database and returns the
// caching wrapper. Callers own Close.
func NewCached(inner Client, cfg CacheConfig, log *logging.Logger) (*Cached, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open response cache: %w", err)
	}
	return &Cached{inner: inner, db: db, log: log}, nil
}

// Generate returns the cached response for this prompt when one exists,
// otherwise delegates to the inner client and stores the result. Cache
// read and write failures are logged and swallowed: a broken cache must
// never break a run.
func (c *Cached) Generate(ctx context.Context, prompt string) (string, error) {
	key := cacheKey(prompt)

	var hit []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		hit, err = item.ValueCopy(nil)
		return err
	})
	if err == nil {
		return string(hit), nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) && c.log != nil {
		c.log.Warn("response cache read failed", "error", err)
	}

	out, err := c.inner.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte(out))
	}); err != nil && c.log != nil {
		c.log.Warn("response cache write failed", "error", err)
	}
	return out, nil
}

// Close releases the underlying database.
func (c *Cached) Close() error {
	return c.db.Close()
}

func cacheKey(prompt string) []byte {
	sum := sha256.Sum256([]byte(prompt))
	return []byte("llm:" + hex.EncodeToString(sum[:]))
}
