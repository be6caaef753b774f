package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name  string
		chunk *core.Chunk
	}{
		{
			name: "full chunk",
			chunk: &core.Chunk{
				Id:         core.ChunkID("a.txt", 3, "hello world"),
				Source:     "new_articles/a.txt",
				Index:      3,
				Text:       "hello world",
				Vector:     []float32{0.1, -0.2, 0.3},
				InsertedAt: now,
			},
		},
		{
			name:  "no vector or timestamp",
			chunk: &core.Chunk{Id: 7, Source: "b.txt", Text: "unembedded"},
		},
		{
			name:  "multibyte text",
			chunk: &core.Chunk{Id: 8, Source: "c.txt", Text: "日本語テキスト", Vector: []float32{1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalChunk(MarshalChunk(tt.chunk))
			require.NoError(t, err)
			assert.Equal(t, tt.chunk, decoded)
		})
	}
}

func TestUnmarshalChunk_Truncated(t *testing.T) {
	data := MarshalChunk(&core.Chunk{Id: 1, Source: "a.txt", Text: "some text", Vector: []float32{1, 2, 3}})

	for _, n := range []int{0, 1, 5, len(data) - 1} {
		_, err := UnmarshalChunk(data[:n])
		require.Error(t, err, "prefix of %d bytes", n)
		assert.ErrorIs(t, err, ErrTruncatedData)
	}
}

func TestMarshalUnmarshalManifest(t *testing.T) {
	manifest := &core.Manifest{
		BuiltAt:        time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Documents:      12,
		Chunks:         48,
		EmbeddingModel: "text-embedding-ada-002",
		Dimensions:     1536,
	}

	decoded, err := UnmarshalManifest(MarshalManifest(manifest))
	require.NoError(t, err)
	assert.Equal(t, manifest, decoded)

	_, err = UnmarshalManifest(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestUnmarshalChunk_CorruptVectorLength(t *testing.T) {
	data := MarshalChunk(&core.Chunk{Id: 1, Source: "a.txt", Text: "t", Vector: []float32{1}})
	// Id, Source, Index and Text take 1+6+1+2 bytes; the vector length follows.
	data[10] = 0x7f

	_, err := UnmarshalChunk(data)
	assert.ErrorIs(t, err, ErrSerializationFailed)
	assert.ErrorIs(t, err, ErrTruncatedData)
}
