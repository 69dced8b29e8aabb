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


// Package planforge generates grounded development-plan documents.
//
// The service wires provider adapters, the task orchestrator, the
// embedding client, and the BadgerDB knowledge store into three
// operations: ingest a document corpus, search it, and generate a
// schema-validated plan draft grounded in retrieved knowledge.
package planforge

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/planforge/ai"
	"github.com/poiesic/planforge/ai/anthropic"
	"github.com/poiesic/planforge/ai/openai"
	"github.com/poiesic/planforge/chunk"
	"github.com/poiesic/planforge/core"
	"github.com/poiesic/planforge/embedding"
	"github.com/poiesic/planforge/generate"
	"github.com/poiesic/planforge/ingestion"
	"github.com/poiesic/planforge/search"
	"github.com/poiesic/planforge/storage"
	"github.com/poiesic/planforge/storage/badger"
)

// Service is the assembled application: storage, providers, retrieval,
// and generation behind a small operation surface.
type Service struct {
	config      *ai.Config
	backend     *badger.Backend
	repo        storage.KnowledgeRepository
	embedder    *embedding.Client
	retriever   *search.Retriever
	pipeline    *generate.Pipeline
	coordinator *ingestion.Coordinator
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig *ai.Config
	inMemory bool
	progress io.Writer
}

// WithConfig supplies the AI and pipeline configuration.
// Default is ai.ConfigFromEnv().
func WithConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = config
	}
}

// WithInMemoryStore uses an in-memory knowledge store instead of the
// on-disk database. Intended for tests and experiments.
func WithInMemoryStore() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// WithIngestProgress enables corpus-load progress reporting to the
// writer, typically os.Stderr.
func WithIngestProgress(w io.Writer) ServiceOption {
	return func(o *serviceOptions) {
		o.progress = w
	}
}

// NewService assembles a service over the database at filePath.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig: ai.ConfigFromEnv(),
	}
	for _, opt := range opts {
		opt(options)
	}

	config := options.aiConfig
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Providers and task routing. The OpenAI-compatible adapter is
	// always present; Anthropic joins the draft fallback chain when
	// keys are configured.
	registry := ai.NewRegistry()

	openaiAdapter, err := openai.NewAdapter(config)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(openaiAdapter); err != nil {
		return nil, err
	}

	draftRoute := ai.TaskRoute{Task: ai.TaskGenerateDraft, Primary: openai.AdapterName}
	if len(config.AnthropicKeys) > 0 {
		anthropicAdapter, err := anthropic.NewAdapter(config)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(anthropicAdapter); err != nil {
			return nil, err
		}
		draftRoute.Fallbacks = []string{anthropic.AdapterName}
	}

	orchestrator, err := ai.NewOrchestrator(registry,
		ai.WithRoute(draftRoute),
		ai.WithRoute(ai.TaskRoute{Task: ai.TaskEmbedText, Primary: openai.AdapterName}),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewClient(orchestrator, config.EmbeddingDimension)
	if err != nil {
		return nil, err
	}

	// Storage.
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repo, err := badger.NewKnowledgeRepository(backend, config.EmbeddingDimension)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Pipelines.
	retriever, err := search.NewRetriever(repo, embedder)
	if err != nil {
		backend.Close()
		return nil, err
	}

	pipeline, err := generate.NewPipeline(orchestrator)
	if err != nil {
		backend.Close()
		return nil, err
	}

	coordinatorOpts := []ingestion.Option{
		ingestion.WithChunkConfig(chunk.Config{
			MaxSize:   config.ChunkSize,
			Overlap:   config.ChunkOverlap,
			MaxChunks: chunk.DefaultMaxChunks,
			MaxBytes:  chunk.DefaultMaxBytes,
		}),
	}
	if options.progress != nil {
		coordinatorOpts = append(coordinatorOpts, ingestion.WithProgressWriter(options.progress))
	}

	coordinator, err := ingestion.NewCoordinator(repo, embedder, coordinatorOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Service{
		config:      config,
		backend:     backend,
		repo:        repo,
		embedder:    embedder,
		retriever:   retriever,
		pipeline:    pipeline,
		coordinator: coordinator,
		logger:      slog.Default(),
	}, nil
}

// Ingest loads the corpus directory into the knowledge store, replacing
// the current collection.
func (s *Service) Ingest(ctx context.Context, corpusDir string) (*ingestion.Summary, error) {
	return s.coordinator.Ingest(ctx, corpusDir)
}

// Search returns the knowledge entries most similar to the query.
// Non-positive topK and negative minSimilarity fall back to the
// configured defaults; minSimilarity zero searches ungated.
func (s *Service) Search(ctx context.Context, query string, topK int, minSimilarity float32) []*core.SearchResult {
	if topK <= 0 {
		topK = s.config.TopK
	}
	if minSimilarity < 0 {
		minSimilarity = s.config.MinSimilarity
	}
	return s.retriever.Retrieve(ctx, query, topK, minSimilarity)
}

// Generate produces a validated plan draft for the subject, grounded in
// retrieved knowledge when the store has any.
func (s *Service) Generate(ctx context.Context, subject string) (*core.PlanDraft, error) {
	retrieved := s.retriever.Retrieve(ctx, subject, s.config.TopK, s.config.MinSimilarity)
	if len(retrieved) == 0 {
		s.logger.Warn("generating without knowledge base context", "subject", subject)
	}

	return s.pipeline.Generate(ctx, generate.Request{
		Subject:   subject,
		Retrieved: search.Chunks(retrieved),
	})
}

// Count returns the number of entries in the knowledge store.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Close releases the worker pool and closes the store.
func (s *Service) Close() error {
	s.coordinator.Release()

	if err := s.repo.Close(); err != nil {
		s.logger.Error("error closing knowledge repository", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
