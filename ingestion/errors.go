package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when no knowledge repository is provided.
	ErrRepositoryRequired = errors.New("knowledge repository is required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrCorpusDirUnreadable is returned when the corpus directory is
	// missing or cannot be listed.
	ErrCorpusDirUnreadable = errors.New("corpus directory is unreadable")

	// ErrInvalidDocument is returned for corpus files that are not valid
	// extract-stage documents.
	ErrInvalidDocument = errors.New("invalid corpus document")
)
