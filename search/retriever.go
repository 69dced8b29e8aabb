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


package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/planforge/core"
	"github.com/poiesic/planforge/embedding"
	"github.com/poiesic/planforge/storage"
)

// Default retrieval parameters, applied when the caller passes
// non-positive values.
const (
	DefaultTopK          = 5
	DefaultMinSimilarity = 0.2
)

// Retriever performs semantic search over the knowledge store.
type Retriever struct {
	repo     storage.KnowledgeRepository
	embedder embedding.Embedder
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "retriever")
		return nil
	}
}

// NewRetriever creates a retriever over the repository and embedder.
func NewRetriever(repo storage.KnowledgeRepository, embedder embedding.Embedder, opts ...Option) (*Retriever, error) {
	if repo == nil {
		return nil, errors.New("repository required")
	}
	if embedder == nil {
		return nil, errors.New("embedder required")
	}

	r := &Retriever{
		repo:     repo,
		embedder: embedder,
		logger:   slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve returns up to topK entries whose similarity to the query is
// at least minSimilarity, most similar first. A non-positive topK and a
// negative minSimilarity fall back to the defaults; minSimilarity zero
// is a legitimate ungated search. Retrieval never fails the caller:
// embedding errors, degraded query vectors, and store errors all yield
// an empty result set with a warning in the log. A placeholder vector
// has no meaningful neighbors, so a degraded query embedding is treated
// the same as an embedding failure.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, minSimilarity float32) []*core.SearchResult {
	if strings.TrimSpace(query) == "" {
		return []*core.SearchResult{}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minSimilarity < 0 {
		minSimilarity = DefaultMinSimilarity
	}

	result, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed, retrieving nothing",
			"err", err)
		return []*core.SearchResult{}
	}
	if result.Degraded {
		r.logger.Warn("query embedding degraded, retrieving nothing")
		return []*core.SearchResult{}
	}

	results, err := r.repo.FindSimilar(ctx, result.Vector, minSimilarity, topK)
	if err != nil {
		r.logger.Warn("similarity search failed, retrieving nothing",
			"err", err)
		return []*core.SearchResult{}
	}

	r.logger.Debug("retrieved knowledge entries",
		"query", query,
		"results", len(results))

	return results
}

// Chunks extracts the chunk from each search result, preserving order.
func Chunks(results []*core.SearchResult) []*core.Chunk {
	chunks := make([]*core.Chunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, result.Entry.Chunk)
	}
	return chunks
}
