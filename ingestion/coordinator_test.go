package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/planforge/ai/mock"
	"github.com/poiesic/planforge/chunk"
	"github.com/poiesic/planforge/core"
	"github.com/poiesic/planforge/embedding"
)

// captureRepo records ReplaceAll batches.
type captureRepo struct {
	replaced [][]*core.KnowledgeEntry
	err      error
}

func (r *captureRepo) AddEntries(ctx context.Context, entries ...*core.KnowledgeEntry) error {
	return nil
}

func (r *captureRepo) ReplaceAll(ctx context.Context, entries []*core.KnowledgeEntry) error {
	if r.err != nil {
		return r.err
	}
	r.replaced = append(r.replaced, entries)
	return nil
}

func (r *captureRepo) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return nil, nil
}

func (r *captureRepo) Count(ctx context.Context) (int, error) {
	return 0, nil
}

func (r *captureRepo) Close() error {
	return nil
}

func writeCorpusFile(t *testing.T, dir, name string, doc Document) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func TestIngest_CorpusLoad(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "a.json", Document{
		Source:   "guide.md",
		Text:     "Setup instructions for the service.",
		Metadata: map[string]string{"kind": "guide"},
	})
	writeCorpusFile(t, dir, "b.json", Document{
		Source: "api.md",
		Text:   "API reference for the query endpoint.",
	})

	repo := &captureRepo{}
	coordinator, err := NewCoordinator(repo, mock.NewEmbedder())
	require.NoError(t, err)
	defer coordinator.Release()

	summary, err := coordinator.Ingest(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Documents)
	assert.Equal(t, 2, summary.Chunks)
	assert.Equal(t, 2, summary.Embedded)
	assert.Equal(t, 0, summary.Degraded)
	assert.Equal(t, 0, summary.Failed)

	require.Len(t, repo.replaced, 1)
	entries := repo.replaced[0]
	require.Len(t, entries, 2)
	assert.Equal(t, "guide.md", entries[0].Chunk.SourceDocument)
	assert.Equal(t, "guide", entries[0].Chunk.Metadata["kind"])
	assert.Equal(t, "api.md", entries[1].Chunk.SourceDocument)
}

func TestIngest_MissingCorpusDir(t *testing.T) {
	coordinator, err := NewCoordinator(&captureRepo{}, mock.NewEmbedder())
	require.NoError(t, err)
	defer coordinator.Release()

	_, err = coordinator.Ingest(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrCorpusDirUnreadable)
}

func TestIngest_BadDocumentIsSkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("not json"), 0644))
	writeCorpusFile(t, dir, "good.json", Document{Source: "ok.md", Text: "usable text"})

	repo := &captureRepo{}
	coordinator, err := NewCoordinator(repo, mock.NewEmbedder())
	require.NoError(t, err)
	defer coordinator.Release()

	summary, err := coordinator.Ingest(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Documents)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, repo.replaced, 1)
	assert.Len(t, repo.replaced[0], 1)
}

func TestIngest_OrdinalsPreservedUnderConcurrency(t *testing.T) {
	// One long document split into many chunks; embedding runs on the
	// pool so completion order is arbitrary.
	dir := t.TempDir()
	writeCorpusFile(t, dir, "long.json", Document{
		Source: "long.md",
		Text:   strings.Repeat("word ", 2500),
	})

	repo := &captureRepo{}
	coordinator, err := NewCoordinator(repo, mock.NewEmbedder(),
		WithPoolSize(8),
		WithChunkConfig(chunk.Config{MaxSize: 500, Overlap: 50, MaxChunks: 500, MaxBytes: chunk.DefaultMaxBytes}),
	)
	require.NoError(t, err)
	defer coordinator.Release()

	summary, err := coordinator.Ingest(context.Background(), dir)
	require.NoError(t, err)
	require.Greater(t, summary.Chunks, 5)

	require.Len(t, repo.replaced, 1)
	entries := repo.replaced[0]
	require.Len(t, entries, summary.Chunks)
	for i, entry := range entries {
		assert.Equal(t, i, entry.Chunk.Ordinal, "entry %d out of order", i)
	}
}

func TestIngest_ByteCeilingResplitsWideText(t *testing.T) {
	// 4000 runes of 3-byte text is one fixed window but 12000 bytes,
	// over the embedding byte ceiling.
	dir := t.TempDir()
	writeCorpusFile(t, dir, "jp.json", Document{
		Source: "jp.md",
		Text:   strings.Repeat("知識を蓄積する。", 500),
	})

	repo := &captureRepo{}
	coordinator, err := NewCoordinator(repo, mock.NewEmbedder(),
		WithChunkConfig(chunk.Config{MaxSize: 4000, Overlap: 0, MaxChunks: 500, MaxBytes: chunk.DefaultMaxBytes}),
	)
	require.NoError(t, err)
	defer coordinator.Release()

	summary, err := coordinator.Ingest(context.Background(), dir)
	require.NoError(t, err)

	require.GreaterOrEqual(t, summary.Chunks, 2)
	require.Len(t, repo.replaced, 1)
	for _, entry := range repo.replaced[0] {
		assert.LessOrEqual(t, len(entry.Chunk.Text), chunk.DefaultMaxBytes)
	}
}

func TestIngest_ConfiguredByteCapHonored(t *testing.T) {
	// A 999-byte window fits the 1000-char default ceiling but not the
	// configured 200-byte one, so it must be re-split.
	dir := t.TempDir()
	writeCorpusFile(t, dir, "wide.json", Document{
		Source: "wide.md",
		Text:   strings.Repeat("lorem ipsum dolor sit amet. ", 36),
	})

	repo := &captureRepo{}
	coordinator, err := NewCoordinator(repo, mock.NewEmbedder(),
		WithChunkConfig(chunk.Config{MaxSize: 1200, Overlap: 100, MaxChunks: 500, MaxBytes: 200}),
	)
	require.NoError(t, err)
	defer coordinator.Release()

	summary, err := coordinator.Ingest(context.Background(), dir)
	require.NoError(t, err)

	require.GreaterOrEqual(t, summary.Chunks, 2)
	require.Len(t, repo.replaced, 1)
	for _, entry := range repo.replaced[0] {
		assert.LessOrEqual(t, len(entry.Chunk.Text), 200,
			"chunk has %d bytes, configured cap is 200", len(entry.Chunk.Text))
	}
}

func TestIngest_DegradedChunksAreStored(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "a.json", Document{Source: "a.md", Text: "some text"})

	embedder := &mock.Embedder{
		EmbedFunc: func(ctx context.Context, text string) (embedding.Result, error) {
			return embedding.Result{Vector: make([]float32, 8), Degraded: true}, nil
		},
	}
	repo := &captureRepo{}
	coordinator, err := NewCoordinator(repo, embedder)
	require.NoError(t, err)
	defer coordinator.Release()

	summary, err := coordinator.Ingest(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Embedded)
	assert.Equal(t, 1, summary.Degraded)
	require.Len(t, repo.replaced, 1)
	require.Len(t, repo.replaced[0], 1)
	assert.True(t, repo.replaced[0][0].Degraded)
}

func TestIngest_EmbedErrorSkipsChunk(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "a.json", Document{Source: "a.md", Text: "first text"})
	writeCorpusFile(t, dir, "b.json", Document{Source: "b.md", Text: "second text"})

	embedder := &mock.Embedder{
		EmbedFunc: func(ctx context.Context, text string) (embedding.Result, error) {
			if strings.Contains(text, "first") {
				return embedding.Result{}, errors.New("context canceled")
			}
			return embedding.Result{Vector: []float32{1, 0}}, nil
		},
	}
	repo := &captureRepo{}
	coordinator, err := NewCoordinator(repo, embedder)
	require.NoError(t, err)
	defer coordinator.Release()

	summary, err := coordinator.Ingest(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Embedded)
	require.Len(t, repo.replaced, 1)
	require.Len(t, repo.replaced[0], 1)
	assert.Equal(t, "b.md", repo.replaced[0][0].Chunk.SourceDocument)
}

func TestIngest_StoreFailureIsHard(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "a.json", Document{Source: "a.md", Text: "some text"})

	sentinel := errors.New("store down")
	coordinator, err := NewCoordinator(&captureRepo{err: sentinel}, mock.NewEmbedder())
	require.NoError(t, err)
	defer coordinator.Release()

	_, err = coordinator.Ingest(context.Background(), dir)
	assert.ErrorIs(t, err, sentinel)
}

func TestIngest_FileCap(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeCorpusFile(t, dir, fmt.Sprintf("doc%d.json", i), Document{
			Source: fmt.Sprintf("doc%d.md", i),
			Text:   "some text",
		})
	}

	repo := &captureRepo{}
	coordinator, err := NewCoordinator(repo, mock.NewEmbedder(), WithMaxFilesPerRun(3))
	require.NoError(t, err)
	defer coordinator.Release()

	summary, err := coordinator.Ingest(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Documents)
}

func TestReadDocument_Validation(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "nosource.json", Document{Text: "text without source"})

	_, err := ReadDocument(filepath.Join(dir, "nosource.json"))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestNewCoordinator_Validation(t *testing.T) {
	_, err := NewCoordinator(nil, mock.NewEmbedder())
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewCoordinator(&captureRepo{}, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}
