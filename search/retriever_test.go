package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/planforge/ai/mock"
	"github.com/poiesic/planforge/core"
	"github.com/poiesic/planforge/embedding"
)

// stubRepo is a storage.KnowledgeRepository with canned search results.
type stubRepo struct {
	results []*core.SearchResult
	err     error

	gotVector []float32
	gotMinSim float32
	gotLimit  int
}

func (s *stubRepo) AddEntries(ctx context.Context, entries ...*core.KnowledgeEntry) error {
	return nil
}

func (s *stubRepo) ReplaceAll(ctx context.Context, entries []*core.KnowledgeEntry) error {
	return nil
}

func (s *stubRepo) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	s.gotVector = vector
	s.gotMinSim = minSimilarity
	s.gotLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	out := s.results
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) Count(ctx context.Context) (int, error) {
	return len(s.results), nil
}

func (s *stubRepo) Close() error {
	return nil
}

func resultWithScore(text string, score float32) *core.SearchResult {
	return &core.SearchResult{
		Entry: &core.KnowledgeEntry{
			Chunk:  core.NewChunk("doc.md", 0, text, nil),
			Vector: []float32{1, 0, 0},
		},
		Score: score,
	}
}

func TestRetrieve_ThresholdAndOrder(t *testing.T) {
	// The store gates at minSimilarity, so only the entries above 0.2
	// come back, ranked.
	repo := &stubRepo{results: []*core.SearchResult{
		resultWithScore("high", 0.9),
		resultWithScore("mid", 0.5),
	}}
	retriever, err := NewRetriever(repo, mock.NewEmbedder())
	require.NoError(t, err)

	results := retriever.Retrieve(context.Background(), "what is the deployment flow", 5, 0.2)

	require.Len(t, results, 2)
	assert.Equal(t, "high", results[0].Entry.Chunk.Text)
	assert.Equal(t, "mid", results[1].Entry.Chunk.Text)
	assert.Equal(t, float32(0.2), repo.gotMinSim)
	assert.Equal(t, 5, repo.gotLimit)
}

func TestRetrieve_DefaultsApplied(t *testing.T) {
	repo := &stubRepo{}
	retriever, err := NewRetriever(repo, mock.NewEmbedder())
	require.NoError(t, err)

	retriever.Retrieve(context.Background(), "query", 0, -1)

	assert.Equal(t, DefaultTopK, repo.gotLimit)
	assert.Equal(t, float32(DefaultMinSimilarity), repo.gotMinSim)
}

func TestRetrieve_ZeroThresholdIsUngated(t *testing.T) {
	// Zero is a real threshold, not a request for the default.
	repo := &stubRepo{}
	retriever, err := NewRetriever(repo, mock.NewEmbedder())
	require.NoError(t, err)

	retriever.Retrieve(context.Background(), "query", 5, 0)

	assert.Equal(t, float32(0), repo.gotMinSim)
}

func TestRetrieve_EmbeddingErrorIsSoft(t *testing.T) {
	repo := &stubRepo{results: []*core.SearchResult{resultWithScore("entry", 0.9)}}
	embedder := &mock.Embedder{
		EmbedFunc: func(ctx context.Context, text string) (embedding.Result, error) {
			return embedding.Result{}, errors.New("provider down")
		},
	}
	retriever, err := NewRetriever(repo, embedder)
	require.NoError(t, err)

	results := retriever.Retrieve(context.Background(), "query", 5, 0.2)

	assert.Empty(t, results)
	assert.Nil(t, repo.gotVector, "store must not be searched without a query vector")
}

func TestRetrieve_DegradedEmbeddingIsSoft(t *testing.T) {
	repo := &stubRepo{results: []*core.SearchResult{resultWithScore("entry", 0.9)}}
	embedder := &mock.Embedder{
		EmbedFunc: func(ctx context.Context, text string) (embedding.Result, error) {
			return embedding.Result{Vector: make([]float32, 8), Degraded: true}, nil
		},
	}
	retriever, err := NewRetriever(repo, embedder)
	require.NoError(t, err)

	results := retriever.Retrieve(context.Background(), "query", 5, 0.2)

	assert.Empty(t, results)
	assert.Nil(t, repo.gotVector)
}

func TestRetrieve_StoreErrorIsSoft(t *testing.T) {
	repo := &stubRepo{err: errors.New("store broken")}
	retriever, err := NewRetriever(repo, mock.NewEmbedder())
	require.NoError(t, err)

	results := retriever.Retrieve(context.Background(), "query", 5, 0.2)

	assert.Empty(t, results)
}

func TestRetrieve_BlankQuery(t *testing.T) {
	repo := &stubRepo{results: []*core.SearchResult{resultWithScore("entry", 0.9)}}
	retriever, err := NewRetriever(repo, mock.NewEmbedder())
	require.NoError(t, err)

	results := retriever.Retrieve(context.Background(), "   ", 5, 0.2)

	assert.Empty(t, results)
}

func TestChunks(t *testing.T) {
	results := []*core.SearchResult{
		resultWithScore("first", 0.9),
		resultWithScore("second", 0.5),
	}

	chunks := Chunks(results)

	require.Len(t, chunks, 2)
	assert.Equal(t, "first", chunks[0].Text)
	assert.Equal(t, "second", chunks[1].Text)
}

func TestNewRetriever_Validation(t *testing.T) {
	_, err := NewRetriever(nil, mock.NewEmbedder())
	assert.Error(t, err)

	_, err = NewRetriever(&stubRepo{}, nil)
	assert.Error(t, err)
}
