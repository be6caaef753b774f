package badger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChunkRepository(t *testing.T) (*ChunkRepository, *Backend) {
	t.Helper()
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	repo, err := NewChunkRepository(backend)
	require.NoError(t, err)
	return repo, backend
}

func TestChunkRepository_AddAndGet(t *testing.T) {
	repo, _ := newTestChunkRepository(t)
	ctx := context.Background()

	chunk := testChunk("docs/a.txt", 3, "hello world", []float32{0.6, 0.8})
	added, err := repo.AddChunks(ctx, chunk)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.False(t, added[0].InsertedAt.IsZero())

	got, err := repo.GetChunk(ctx, chunk.Id)
	require.NoError(t, err)
	assert.Equal(t, chunk.Source, got.Source)
	assert.Equal(t, 3, got.Index)
	assert.Equal(t, "hello world", got.Text)
	assert.Equal(t, []float32{0.6, 0.8}, got.Vector)
}

func TestChunkRepository_AddPreservesInsertedAt(t *testing.T) {
	repo, _ := newTestChunkRepository(t)
	ctx := context.Background()

	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	chunk := testChunk("a.txt", 0, "x", nil)
	chunk.InsertedAt = when
	_, err := repo.AddChunks(ctx, chunk)
	require.NoError(t, err)

	got, err := repo.GetChunk(ctx, chunk.Id)
	require.NoError(t, err)
	assert.True(t, when.Equal(got.InsertedAt))
}

func TestChunkRepository_AddEmpty(t *testing.T) {
	repo, _ := newTestChunkRepository(t)

	added, err := repo.AddChunks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, added)
}

func TestChunkRepository_GetNotFound(t *testing.T) {
	repo, _ := newTestChunkRepository(t)

	_, err := repo.GetChunk(context.Background(), core.ID(42))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChunkRepository_Update(t *testing.T) {
	repo, _ := newTestChunkRepository(t)
	ctx := context.Background()

	chunk := testChunk("a.txt", 0, "text", []float32{1, 0})
	_, err := repo.AddChunks(ctx, chunk)
	require.NoError(t, err)

	chunk.Vector = []float32{0, 1}
	require.NoError(t, repo.UpdateChunks(ctx, chunk))

	got, err := repo.GetChunk(ctx, chunk.Id)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, got.Vector)

	missing := testChunk("b.txt", 0, "missing", nil)
	err = repo.UpdateChunks(ctx, missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChunkRepository_CountAndReset(t *testing.T) {
	repo, _ := newTestChunkRepository(t)
	ctx := context.Background()

	for i := range 5 {
		_, err := repo.AddChunks(ctx, testChunk("a.txt", i, fmt.Sprintf("chunk %d", i), nil))
		require.NoError(t, err)
	}

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	require.NoError(t, repo.Reset(ctx))
	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = repo.AddChunks(ctx, testChunk("b.txt", 0, "after reset", nil))
	require.NoError(t, err)
	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunkRepository_ResetRemovesManifest(t *testing.T) {
	repo, backend := newTestChunkRepository(t)
	manifests := NewManifestRepository(backend)
	ctx := context.Background()

	require.NoError(t, manifests.SaveManifest(ctx, &core.Manifest{BuiltAt: time.Now().UTC(), Chunks: 1}))
	require.NoError(t, repo.Reset(ctx))

	manifest, err := manifests.LoadManifest(ctx)
	require.NoError(t, err)
	assert.Nil(t, manifest)
}

func TestChunkRepository_ForEachInsertionOrder(t *testing.T) {
	repo, _ := newTestChunkRepository(t)
	ctx := context.Background()

	var chunks []*core.Chunk
	for i := range 7 {
		chunks = append(chunks, testChunk("a.txt", i, fmt.Sprintf("chunk %d", i), nil))
	}
	_, err := repo.AddChunks(ctx, chunks...)
	require.NoError(t, err)

	var sizes []int
	var indexes []int
	err = repo.ForEach(ctx, 3, func(batch []*core.Chunk) error {
		sizes = append(sizes, len(batch))
		for _, c := range batch {
			indexes = append(indexes, c.Index)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 1}, sizes)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, indexes)
}

func TestChunkRepository_ForEachStopsOnError(t *testing.T) {
	repo, _ := newTestChunkRepository(t)
	ctx := context.Background()

	for i := range 4 {
		_, err := repo.AddChunks(ctx, testChunk("a.txt", i, fmt.Sprintf("c%d", i), nil))
		require.NoError(t, err)
	}

	boom := errors.New("boom")
	calls := 0
	err := repo.ForEach(ctx, 1, func([]*core.Chunk) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)

	err = repo.ForEach(ctx, 0, func([]*core.Chunk) error { return nil })
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestChunkRepository_PositionSurvivesReopen(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	repo, err := NewChunkRepository(backend)
	require.NoError(t, err)
	_, err = repo.AddChunks(ctx, testChunk("a.txt", 0, "first", nil), testChunk("a.txt", 1, "second", nil))
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(tmpDir, false)
	require.NoError(t, err)
	defer backend.Close()
	repo, err = NewChunkRepository(backend)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), repo.next)

	_, err = repo.AddChunks(ctx, testChunk("b.txt", 0, "third", nil))
	require.NoError(t, err)

	var texts []string
	err = repo.ForEach(ctx, 10, func(batch []*core.Chunk) error {
		for _, c := range batch {
			texts = append(texts, c.Text)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, texts)
}

func TestManifestRepository_SaveLoad(t *testing.T) {
	_, backend := newTestChunkRepository(t)
	repo := NewManifestRepository(backend)
	ctx := context.Background()

	manifest, err := repo.LoadManifest(ctx)
	require.NoError(t, err)
	assert.Nil(t, manifest)

	built := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.SaveManifest(ctx, &core.Manifest{
		BuiltAt:        built,
		Documents:      2,
		Chunks:         5,
		EmbeddingModel: "mock-embedding",
		Dimensions:     384,
	}))

	manifest, err = repo.LoadManifest(ctx)
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.True(t, built.Equal(manifest.BuiltAt))
	assert.Equal(t, 2, manifest.Documents)
	assert.Equal(t, 5, manifest.Chunks)
	assert.Equal(t, "mock-embedding", manifest.EmbeddingModel)
	assert.Equal(t, 384, manifest.Dimensions)
}
