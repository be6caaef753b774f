package ingestion

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrManifestRepositoryRequired is returned when a manifest repository is not provided.
	ErrManifestRepositoryRequired = errors.New("manifest repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrSourceNotFound is returned when the source directory does not exist.
	ErrSourceNotFound = errors.New("source directory not found")

	// ErrEmbeddingFailed is returned when a batch of chunks could not be embedded.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrEmbeddingMismatch is returned when the embedder returns the wrong
	// number of vectors or vectors of inconsistent dimension.
	ErrEmbeddingMismatch = errors.New("embedding result mismatch")

	// ErrInvalidBatchSize is returned for a non-positive embedding batch size.
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")
)
