package core

import (
	"testing"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMUS_RoundTripAndSkip(t *testing.T) {
	chunk := Chunk{
		Id:         ChunkID("a.txt", 2, "body"),
		Source:     "a.txt",
		Index:      2,
		Text:       "body",
		Vector:     []float32{0.5, -1.25},
		InsertedAt: time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC),
	}

	bs := make([]byte, ChunkMUS.Size(chunk))
	n := ChunkMUS.Marshal(chunk, bs)
	require.Equal(t, len(bs), n)

	decoded, m, err := ChunkMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, n, m)
	assert.Equal(t, chunk, decoded)

	skipped, err := ChunkMUS.Skip(bs)
	require.NoError(t, err)
	assert.Equal(t, n, skipped)
}

func TestVectorMUS_EmptyDecodesToNil(t *testing.T) {
	bs := make([]byte, VectorMUS.Size(nil))
	VectorMUS.Marshal([]float32{}, bs)

	v, n, err := VectorMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Nil(t, v)
}

func TestVectorMUS_LengthExceedsData(t *testing.T) {
	bs := make([]byte, varint.PositiveInt.Size(1<<40))
	varint.PositiveInt.Marshal(1<<40, bs)
	bs = append(bs, 0, 0, 0, 0)

	_, _, err := VectorMUS.Unmarshal(bs)
	assert.ErrorIs(t, err, mus.ErrTooSmallByteSlice)

	_, err = VectorMUS.Skip(bs)
	assert.ErrorIs(t, err, mus.ErrTooSmallByteSlice)
}

func TestTimeMUS_ZeroTime(t *testing.T) {
	bs := make([]byte, TimeMUS.Size(time.Time{}))
	TimeMUS.Marshal(time.Time{}, bs)
	assert.Equal(t, []byte{0}, bs)

	v, _, err := TimeMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.True(t, v.IsZero())
}

func TestManifestMUS_Skip(t *testing.T) {
	m := Manifest{BuiltAt: time.Unix(1700000000, 0).UTC(), Documents: 3, Chunks: 9, EmbeddingModel: "m", Dimensions: 4}
	bs := make([]byte, ManifestMUS.Size(m))
	ManifestMUS.Marshal(m, bs)

	n, err := ManifestMUS.Skip(bs)
	require.NoError(t, err)
	assert.Equal(t, len(bs), n)

	_, err = ManifestMUS.Skip(bs[:len(bs)-1])
	assert.ErrorIs(t, err, mus.ErrTooSmallByteSlice)
}
