package mock

import (
	"context"
	"hash/fnv"

	"github.com/poiesic/planforge/embedding"
)

// Embedder is a test double for embedding.Embedder.
// It allows custom behavior injection via a function field.
type Embedder struct {
	// Dims is the vector dimension for default behavior. Default: 8.
	Dims int

	// EmbedFunc is called by Embed if set.
	// If nil, uses default deterministic behavior.
	EmbedFunc func(ctx context.Context, text string) (embedding.Result, error)

	callCount int
}

var _ embedding.Embedder = (*Embedder)(nil)

// NewEmbedder creates a mock embedder with default deterministic behavior.
func NewEmbedder() *Embedder {
	return &Embedder{Dims: 8}
}

// Embed generates a deterministic unit vector based on the text hash.
func (m *Embedder) Embed(ctx context.Context, text string) (embedding.Result, error) {
	m.callCount++

	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}

	dims := m.Dims
	if dims <= 0 {
		dims = 8
	}
	return embedding.Result{Vector: deterministicVector(text, dims)}, nil
}

// CallCount returns the number of Embed calls.
func (m *Embedder) CallCount() int {
	return m.callCount
}

// deterministicVector hashes text into a stable unit vector.
func deterministicVector(text string, dims int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, dims)
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float32(int32(seed>>33))/float32(1<<31) + 0.25
	}
	return embedding.UnitNorm(v)
}
