// Copyright 2025 Poiesic Systems
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


package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/planforge/core"
	"github.com/poiesic/planforge/embedding"
	"github.com/poiesic/planforge/storage"
)

// KnowledgeRepository implements storage.KnowledgeRepository on BadgerDB.
// Collections are versioned: a refresh writes the full new version before
// the current-version pointer moves, so readers never observe an empty or
// half-loaded store.
type KnowledgeRepository struct {
	backend *Backend
	dims    int // 0 disables the dimension check
	logger  *slog.Logger
}

var _ storage.KnowledgeRepository = (*KnowledgeRepository)(nil)

// NewKnowledgeRepository creates a repository over the backend.
// When dims is positive, entries whose vectors differ from it are
// rejected with storage.ErrDimensionMismatch.
func NewKnowledgeRepository(backend *Backend, dims int) (*KnowledgeRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &KnowledgeRepository{
		backend: backend,
		dims:    dims,
		logger:  slog.Default().With("component", "knowledge-repository"),
	}, nil
}

// AddEntries appends entries to the current collection version.
func (r *KnowledgeRepository) AddEntries(ctx context.Context, entries ...*core.KnowledgeEntry) error {
	if err := r.checkEntries(entries); err != nil {
		return err
	}

	version, err := r.currentVersion()
	if err != nil {
		return err
	}
	if version == 0 {
		version = 1
		if err := r.setVersion(version); err != nil {
			return err
		}
	}

	return r.writeEntries(version, entries)
}

// ReplaceAll atomically replaces the collection: the new version is
// written in full, then the current-version pointer is swapped, then the
// old version is cleaned up. A failed load leaves the pointer untouched.
func (r *KnowledgeRepository) ReplaceAll(ctx context.Context, entries []*core.KnowledgeEntry) error {
	if err := r.checkEntries(entries); err != nil {
		return err
	}

	oldVersion, err := r.currentVersion()
	if err != nil {
		return err
	}
	newVersion := oldVersion + 1

	r.logger.Info("loading new knowledge collection version",
		"version", newVersion,
		"entries", len(entries))

	if err := r.writeEntries(newVersion, entries); err != nil {
		return fmt.Errorf("loading version %d: %w", newVersion, err)
	}

	// The swap is the commit point.
	if err := r.setVersion(newVersion); err != nil {
		return fmt.Errorf("swapping to version %d: %w", newVersion, err)
	}

	// Old-version cleanup is best effort; stale entries are unreachable
	// once the pointer has moved.
	if oldVersion > 0 {
		if err := r.dropVersion(oldVersion); err != nil {
			r.logger.Warn("failed to clean up old collection version",
				"version", oldVersion,
				"err", err)
		}
	}

	return nil
}

// FindSimilar scans the current collection version and returns entries
// with similarity >= minSimilarity, highest first, at most limit.
// Similarity is the dot product; vectors are unit-normalized at rest.
func (r *KnowledgeRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if len(vector) == 0 || limit < 1 {
		return nil, storage.ErrInvalidQuery
	}

	version, err := r.currentVersion()
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return []*core.SearchResult{}, nil
	}

	var results []*core.SearchResult
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVersionPrefix(version)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.KnowledgeEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalKnowledgeEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry == nil || len(entry.Vector) == 0 {
				continue
			}

			similarity := embedding.Dot(vector, entry.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.SearchResult{
					Entry: entry,
					Score: similarity,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of entries in the current collection version.
func (r *KnowledgeRepository) Count(ctx context.Context) (int, error) {
	version, err := r.currentVersion()
	if err != nil {
		return 0, err
	}
	if version == 0 {
		return 0, nil
	}

	count := 0
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVersionPrefix(version)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close is a no-op; the shared backend owns the database handle.
func (r *KnowledgeRepository) Close() error {
	return nil
}

func (r *KnowledgeRepository) checkEntries(entries []*core.KnowledgeEntry) error {
	for _, entry := range entries {
		if err := core.ValidateKnowledgeEntry(entry); err != nil {
			return err
		}
		if r.dims > 0 && len(entry.Vector) != r.dims {
			return fmt.Errorf("%w: entry %d has %d dims, store wants %d",
				storage.ErrDimensionMismatch, entry.Chunk.Id, len(entry.Vector), r.dims)
		}
	}
	return nil
}

// writeEntries bulk-writes entries under the version prefix.
// A write batch avoids ErrTxnTooBig on large corpora.
func (r *KnowledgeRepository) writeEntries(version uint64, entries []*core.KnowledgeEntry) error {
	batch := r.backend.NewWriteBatch()
	defer batch.Cancel()

	now := time.Now().UTC()
	for _, entry := range entries {
		if entry.InsertedAt.IsZero() {
			entry.InsertedAt = now
		}
		data, err := storage.MarshalKnowledgeEntry(entry)
		if err != nil {
			return err
		}
		if err := batch.Set(makeEntryKey(version, entry.Chunk.Id), data); err != nil {
			return err
		}
	}

	return batch.Flush()
}

// dropVersion deletes every entry under the version prefix.
func (r *KnowledgeRepository) dropVersion(version uint64) error {
	var keys [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVersionPrefix(version)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	batch := r.backend.NewWriteBatch()
	defer batch.Cancel()
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return err
		}
	}
	return batch.Flush()
}

func (r *KnowledgeRepository) currentVersion() (uint64, error) {
	var version uint64
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(knowledgeVersionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			version = 0
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return storage.ErrSerializationFailed
			}
			version = binary.BigEndian.Uint64(val)
			return nil
		})
	}, false)
	return version, err
}

func (r *KnowledgeRepository) setVersion(version uint64) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], version)
		return tx.Set([]byte(knowledgeVersionKey), buf[:])
	}, true)
}
