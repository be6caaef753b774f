package docqa

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/docqa/ai/mock"
	"github.com/poiesic/docqa/qa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArticles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestOpen(t *testing.T) {
	t.Run("create new index", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		idx, err := Open(dir, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, idx)
		defer idx.Close()

		assert.NotNil(t, idx.ChunkRepository())
		assert.NotNil(t, idx.ManifestRepository())
		assert.NotNil(t, idx.logger)

		manifest, err := idx.Manifest(context.Background())
		require.NoError(t, err)
		assert.Nil(t, manifest)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		idx, err := Open(tmpFile, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, idx)
	})

	t.Run("second writer is rejected", func(t *testing.T) {
		dir := t.TempDir()
		idx, err := Open(dir, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		defer idx.Close()

		_, err = Open(dir, WithProvider(mock.NewMockProvider()))
		assert.ErrorIs(t, err, ErrIndexBusy)
	})
}

func TestIndex_FactoryMethods(t *testing.T) {
	idx, err := Open(t.TempDir(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer idx.Close()

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := idx.NewPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create answerer", func(t *testing.T) {
		answerer, err := idx.NewAnswerer()
		require.NoError(t, err)
		require.NotNil(t, answerer)
	})

	t.Run("can create reembedder", func(t *testing.T) {
		assert.NotNil(t, idx.NewReembedder(nil, nil))
	})
}

func TestAsk_BeforeIngestion(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	answer, manifest, err := Ask(context.Background(), dir, "What is X?",
		[]Option{WithProvider(mock.NewMockProvider())})
	assert.ErrorIs(t, err, qa.ErrIndexEmpty)
	assert.Nil(t, answer)
	assert.Nil(t, manifest)
}

func TestAsk_AfterIngestion(t *testing.T) {
	ctx := context.Background()
	provider := mock.NewMockProvider()
	articles := writeArticles(t, map[string]string{
		"a.txt": "The xylophone is a percussion instrument played with mallets.",
		"b.txt": "Central banks adjust interest rates to manage inflation over time.",
	})
	dir := filepath.Join(t.TempDir(), "db")

	idx, err := Open(dir, WithProvider(provider))
	require.NoError(t, err)
	pipeline, err := idx.NewPipeline()
	require.NoError(t, err)
	result, err := pipeline.Run(ctx, articles)
	pipeline.Release()
	require.NoError(t, err)
	assert.Equal(t, 2, result.Chunks)

	t.Run("busy while the writer holds the store", func(t *testing.T) {
		_, _, err := Ask(ctx, dir, "What is xylophone?", []Option{WithProvider(provider)})
		assert.ErrorIs(t, err, ErrIndexBusy)
	})

	require.NoError(t, idx.Close())

	answer, manifest, err := Ask(ctx, dir, "What is xylophone?", []Option{WithProvider(provider)})
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, result.BuildTimestamp(), manifest.BuildTimestamp())
	assert.Equal(t, 2, manifest.Documents)
	assert.Contains(t, answer.Sources, filepath.Join(articles, "a.txt"))
	assert.Equal(t, mock.DefaultAnswer, answer.Result)
}
