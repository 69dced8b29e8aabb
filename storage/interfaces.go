package storage

import (
	"context"

	"github.com/poiesic/planforge/core"
)

// KnowledgeRepository stores and searches knowledge entries.
// Implementations must be thread-safe and support concurrent access.
type KnowledgeRepository interface {
	// AddEntries appends entries to the current knowledge collection.
	// Sets InsertedAt if not already set.
	AddEntries(ctx context.Context, entries ...*core.KnowledgeEntry) error

	// ReplaceAll atomically replaces the entire knowledge collection
	// with entries. Readers see either the old collection or the new
	// one, never an empty or partially loaded store.
	ReplaceAll(ctx context.Context, entries []*core.KnowledgeEntry) error

	// FindSimilar finds entries similar to the given vector.
	// Returns entries with similarity >= minSimilarity, up to limit
	// results, ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// Count returns the number of entries in the current collection.
	Count(ctx context.Context) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
