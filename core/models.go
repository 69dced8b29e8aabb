package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so that identical
// content always maps to the same entity.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Chunk is a bounded slice of source text, the unit that is embedded,
// stored, and retrieved. Chunks are immutable once embedded and are
// destroyed wholesale on a corpus refresh.
type Chunk struct {
	Id             ID
	SourceDocument string
	Ordinal        int // Position within the source document, preserved regardless of processing order
	Text           string
	CharLength     int
	Metadata       map[string]string
}

// NewChunk creates a chunk with a content-derived ID.
// The ID incorporates the source document and ordinal so that the same
// text appearing in two documents yields distinct chunks.
func NewChunk(sourceDocument string, ordinal int, text string, metadata map[string]string) *Chunk {
	return &Chunk{
		Id:             IDFromContent(fmt.Sprintf("%s#%d:%s", sourceDocument, ordinal, text)),
		SourceDocument: sourceDocument,
		Ordinal:        ordinal,
		Text:           text,
		CharLength:     len([]rune(text)),
		Metadata:       metadata,
	}
}

// KnowledgeEntry pairs a chunk with its embedding vector.
// It is the unit of retrieval, owned by the knowledge store and written
// only during ingestion. Every vector at rest has the store's configured
// target dimension.
type KnowledgeEntry struct {
	Chunk      *Chunk
	Vector     []float32
	Degraded   bool // True when the vector is a placeholder rather than a real embedding
	InsertedAt time.Time
}

// SearchResult is a knowledge entry returned from similarity search
// together with its relevance score.
type SearchResult struct {
	Entry *KnowledgeEntry
	Score float32
}
