package storage

import (
	"context"

	"github.com/poiesic/docqa/core"
)

// VectorSearcher performs nearest-neighbor search over stored vectors.
type VectorSearcher interface {
	// FindSimilar finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first); ties keep
	// insertion order.
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}

// ChunkRepository provides operations for managing embedded chunks.
// Implementations must be thread-safe and support concurrent access.
type ChunkRepository interface {
	VectorSearcher

	// Reset removes every chunk and the manifest, leaving an empty store.
	Reset(ctx context.Context) error

	// AddChunks appends chunks to storage in the given order.
	// Sets InsertedAt if not already set.
	// Returns the chunks with timestamps populated.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// UpdateChunks replaces existing chunks, matched by ID.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// ForEach calls fn with consecutive batches of chunks in insertion order.
	// Iteration stops at the first error returned by fn.
	ForEach(ctx context.Context, batchSize int, fn func([]*core.Chunk) error) error

	// Sync flushes pending writes to disk.
	Sync() error

	// Close releases repository resources. It does not close the backend.
	Close() error
}

// ManifestRepository stores the description of the last index build.
type ManifestRepository interface {
	// SaveManifest persists the manifest, replacing any previous one.
	SaveManifest(ctx context.Context, manifest *core.Manifest) error

	// LoadManifest returns the stored manifest.
	// Returns nil, nil if no build has completed.
	LoadManifest(ctx context.Context) (*core.Manifest, error)
}
