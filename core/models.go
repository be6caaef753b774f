package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the ID of a chunk from its source, position and text.
// Re-ingesting an unchanged file yields the same IDs.
func ChunkID(source string, index int, text string) ID {
	return IDFromContent(source + "\x00" + strconv.Itoa(index) + "\x00" + text)
}

// Metadata keys attached to langchaingo documents.
const (
	MetadataSource = "source"
	MetadataChunk  = "chunk"
	MetadataID     = "id"
)

// Document is the raw text of one source file.
type Document struct {
	Source   string // Path the document was loaded from
	Contents string
	LoadedAt time.Time
}

// Chunk is a bounded, contiguous slice of a Document.
// Chunks carry the source path of the document they were cut from.
type Chunk struct {
	Id         ID
	Source     string
	Index      int       // Position of the chunk within its document
	Text       string
	Vector     []float32 // Embedding vector (populated by the embedding stage)
	InsertedAt time.Time
}

// SearchResult is a chunk returned by similarity search with its score.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}

// Manifest describes the most recent successful index build.
type Manifest struct {
	BuiltAt        time.Time
	Documents      int
	Chunks         int
	EmbeddingModel string
	Dimensions     int
}

// BuildTimestamp renders BuiltAt the way it is reported to users.
func (m *Manifest) BuildTimestamp() string {
	if m == nil || m.BuiltAt.IsZero() {
		return ""
	}
	return m.BuiltAt.Format(time.RFC3339)
}
