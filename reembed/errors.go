package reembed

import "errors"

var (
	// ErrEmbeddingMismatch is returned when the embedder returns the wrong number of vectors.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrNoChunks is returned when the store holds nothing to re-embed.
	ErrNoChunks = errors.New("no chunks to re-embed")
)
