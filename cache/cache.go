// Copyright 2025 Coverdesk
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides a local embedding cache backed by BadgerDB.
// Re-processing a document after a failed run re-embeds mostly identical
// chunks; caching by content hash makes those retries cheap and keeps
// repeated runs off the embedding service.
package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/go-crypt/x/blake2b"
)

const keyPrefix = "emb"

// ErrMiss is returned by Get when no entry exists for the content.
var ErrMiss = errors.New("cache: miss")

// EmbeddingCache stores embedding vectors keyed by model version and a
// BLAKE2b hash of the chunk content.
type EmbeddingCache struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens (or creates) an embedding cache at the given path. An empty
// path opens an in-memory cache, used by tests and one-shot runs.
func Open(filePath string) (*EmbeddingCache, error) {
	var opts badger.Options

	if filePath == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger := slog.Default().With("component", "embedding_cache")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &EmbeddingCache{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

// contentHash produces a deterministic 64-bit digest of the chunk content,
// so identical text always maps to the same cache entry.
func contentHash(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// makeKey builds the cache key for a (version, content) pair. The version
// participates in the key so a model upgrade never serves stale vectors.
func makeKey(version, text string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d", keyPrefix, version, contentHash(text)))
}

// Get returns the cached vector for the content, or ErrMiss.
func (c *EmbeddingCache) Get(version, text string) ([]float32, error) {
	var vector []float32

	err := c.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeKey(version, text))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrMiss
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			vector, err = unmarshalVector(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// Put stores a vector for the content under the given model version.
func (c *EmbeddingCache) Put(version, text string, vector []float32) error {
	return c.db.Update(func(tx *badger.Txn) error {
		return tx.Set(makeKey(version, text), marshalVector(vector))
	})
}
