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


package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/planforge/chunk"
	"github.com/poiesic/planforge/core"
	"github.com/poiesic/planforge/embedding"
	"github.com/poiesic/planforge/storage"
)

// DefaultMaxFilesPerRun caps the corpus files processed in one load.
const DefaultMaxFilesPerRun = 10000

// progressReportInterval is how many embedded chunks pass between
// progress reports.
const progressReportInterval = 25

// Summary reports the outcome of one corpus load.
type Summary struct {
	Documents int // Documents successfully read and chunked
	Chunks    int // Chunks produced across all documents
	Embedded  int // Chunks embedded by a provider
	Degraded  int // Chunks stored with placeholder vectors
	Failed    int // Documents or chunks skipped due to errors
}

// Coordinator loads a document corpus into the knowledge store.
// Chunks are embedded concurrently on a worker pool; results keep their
// document order through ordinal slots regardless of completion order.
type Coordinator struct {
	repo     storage.KnowledgeRepository
	embedder embedding.Embedder
	pool     *ants.Pool
	chunkCfg chunk.Config
	maxFiles int
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(c *Coordinator) error {
		if size < 1 {
			size = 1
		}

		if c.pool != nil {
			c.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		c.pool = pool
		return nil
	}
}

// WithChunkConfig overrides the default chunking parameters.
func WithChunkConfig(cfg chunk.Config) Option {
	return func(c *Coordinator) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.chunkCfg = cfg
		return nil
	}
}

// WithMaxFilesPerRun caps the number of corpus files per load.
func WithMaxFilesPerRun(limit int) Option {
	return func(c *Coordinator) error {
		if limit < 1 {
			return fmt.Errorf("file cap must be positive, got %d", limit)
		}
		c.maxFiles = limit
		return nil
	}
}

// WithProgressWriter enables progress reporting to the writer,
// typically os.Stderr. Default is no reporting.
func WithProgressWriter(w io.Writer) Option {
	return func(c *Coordinator) error {
		c.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewCoordinator creates an ingestion coordinator.
func NewCoordinator(repo storage.KnowledgeRepository, embedder embedding.Embedder, opts ...Option) (*Coordinator, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		repo:     repo,
		embedder: embedder,
		pool:     pool,
		chunkCfg: chunk.DefaultConfig(),
		maxFiles: DefaultMaxFilesPerRun,
		logger:   slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			c.Release()
			return nil, err
		}
	}

	return c, nil
}

// Ingest loads every JSON document under corpusDir and replaces the
// knowledge collection with the result. Individual documents and chunks
// that fail are logged, counted in the summary, and skipped; an
// unreadable corpus directory or a store failure aborts the load.
func (c *Coordinator) Ingest(ctx context.Context, corpusDir string) (*Summary, error) {
	files, err := c.listCorpusFiles(corpusDir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	var chunks []*core.Chunk

	for _, path := range files {
		doc, err := ReadDocument(path)
		if err != nil {
			c.logger.Warn("skipping unreadable corpus document",
				"path", path,
				"err", err)
			summary.Failed++
			continue
		}

		pieces, err := c.chunkDocument(doc)
		if err != nil {
			c.logger.Warn("skipping unchunkable corpus document",
				"source", doc.Source,
				"err", err)
			summary.Failed++
			continue
		}

		for ordinal, text := range pieces {
			chunks = append(chunks, core.NewChunk(doc.Source, ordinal, text, doc.Metadata))
		}

		summary.Documents++
		summary.Chunks += len(pieces)
	}

	entries := c.embedChunks(ctx, chunks, summary)

	if err := c.repo.ReplaceAll(ctx, entries); err != nil {
		return nil, fmt.Errorf("replacing knowledge collection: %w", err)
	}

	c.logger.Info("corpus load complete",
		"documents", summary.Documents,
		"chunks", summary.Chunks,
		"embedded", summary.Embedded,
		"degraded", summary.Degraded,
		"failed", summary.Failed)

	return summary, nil
}

// Release releases the worker pool.
// The coordinator should not be used after calling Release.
func (c *Coordinator) Release() {
	if c.pool != nil {
		c.pool.Release()
	}
}

// chunkDocument splits a document into fixed windows. Windows over the
// embedding API byte ceiling (multi-byte text with a large configured
// window) are re-split by byte cap.
func (c *Coordinator) chunkDocument(doc *Document) ([]string, error) {
	pieces, err := chunk.FixedWindow(doc.Text, c.chunkCfg.MaxSize, c.chunkCfg.Overlap, c.chunkCfg.MaxChunks)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if len(piece) <= c.chunkCfg.MaxBytes {
			texts = append(texts, piece)
			continue
		}
		sub, err := chunk.ByteCap(piece, c.chunkCfg.MaxBytes, c.chunkCfg.MaxChunks)
		if err != nil {
			return nil, err
		}
		texts = append(texts, sub...)
	}
	return texts, nil
}

func (c *Coordinator) listCorpusFiles(corpusDir string) ([]string, error) {
	dirEntries, err := os.ReadDir(corpusDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorpusDirUnreadable, corpusDir, err)
	}

	// ReadDir returns entries sorted by name, which keeps load order
	// deterministic.
	var files []string
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(corpusDir, entry.Name()))
	}

	if len(files) > c.maxFiles {
		c.logger.Warn("corpus exceeds file cap, truncating",
			"files", len(files),
			"cap", c.maxFiles)
		files = files[:c.maxFiles]
	}

	return files, nil
}

// embedChunks embeds chunks on the worker pool. Each worker writes into
// its own slot, so entry order matches chunk order whatever the
// completion order. Failed chunks leave nil slots that are dropped.
func (c *Coordinator) embedChunks(ctx context.Context, chunks []*core.Chunk, summary *Summary) []*core.KnowledgeEntry {
	slots := make([]*core.KnowledgeEntry, len(chunks))

	var tracker *ProgressTracker
	if c.progress != nil {
		tracker = NewProgressTracker(c.progress, len(chunks), progressReportInterval)
		tracker.Start()
	}

	var wg sync.WaitGroup
	for i, ch := range chunks {
		i, ch := i, ch
		wg.Add(1)
		err := c.pool.Submit(func() {
			defer wg.Done()

			result, err := c.embedder.Embed(ctx, ch.Text)
			if err != nil {
				c.logger.Warn("skipping chunk that failed to embed",
					"source", ch.SourceDocument,
					"ordinal", ch.Ordinal,
					"err", err)
				return
			}

			slots[i] = &core.KnowledgeEntry{
				Chunk:    ch,
				Vector:   result.Vector,
				Degraded: result.Degraded,
			}
			if tracker != nil {
				tracker.Increment(1)
			}
		})
		if err != nil {
			wg.Done()
			c.logger.Warn("failed to submit chunk to worker pool",
				"source", ch.SourceDocument,
				"ordinal", ch.Ordinal,
				"err", err)
		}
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}

	entries := make([]*core.KnowledgeEntry, 0, len(slots))
	for _, entry := range slots {
		if entry == nil {
			summary.Failed++
			continue
		}
		if entry.Degraded {
			summary.Degraded++
		} else {
			summary.Embedded++
		}
		entries = append(entries, entry)
	}

	return entries
}
