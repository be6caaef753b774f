package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docqa/ai/mock"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/progress"
	"github.com/poiesic/docqa/retry"
	"github.com/poiesic/docqa/storage"
	"github.com/poiesic/docqa/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []progress.Event
}

func (l *eventLog) Report(e progress.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofKind(kind progress.Kind) []progress.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []progress.Event
	for _, e := range l.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	chunks    storage.ChunkRepository
	manifests storage.ManifestRepository
	provider  *mock.MockProvider
	events    *eventLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	chunks, manifests, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		chunks.Close()
		backend.Close()
	})
	return &fixture{
		chunks:    chunks,
		manifests: manifests,
		provider:  mock.NewMockProvider(),
		events:    &eventLog{},
	}
}

func (f *fixture) pipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{
		WithReporter(f.events),
		WithRetryPolicy(retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}),
	}, opts...)
	p, err := NewPipeline(f.chunks, f.manifests, f.provider, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644))
	}
}

func TestNewPipeline_RequiredDependencies(t *testing.T) {
	f := newFixture(t)

	_, err := NewPipeline(nil, f.manifests, f.provider)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	_, err = NewPipeline(f.chunks, nil, f.provider)
	assert.ErrorIs(t, err, ErrManifestRepositoryRequired)

	_, err = NewPipeline(f.chunks, f.manifests, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)

	_, err = NewPipeline(f.chunks, f.manifests, f.provider, WithBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = NewPipeline(f.chunks, f.manifests, f.provider, WithRetryPolicy(retry.Policy{}))
	assert.ErrorIs(t, err, retry.ErrInvalidMaxAttempts)
}

func TestRun_BuildsIndex(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.txt":     "Go is a statically typed language designed at Google.",
		"b.txt":     strings.Repeat("x", 2500),
		"notes.md":  "ignored",
		"empty.txt": "",
	})

	built := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	p := f.pipeline(t, WithClock(func() time.Time { return built }), WithPoolSize(2), WithBatchSize(2))

	result, err := p.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Documents)
	assert.Equal(t, 4, result.Chunks) // 1 + 3 + 0
	assert.Equal(t, 3, result.FilesEmbedded)
	for _, stage := range result.Stages() {
		assert.True(t, stage.OK(), stage.String())
	}
	assert.Equal(t, 4, result.Embed.Succeeded)
	assert.Equal(t, 4, result.Store.Succeeded)
	assert.Equal(t, "2025-06-01T09:30:00Z", result.BuildTimestamp())

	count, err := f.chunks.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	manifest, err := f.manifests.LoadManifest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, 4, manifest.Chunks)
	assert.Equal(t, 3, manifest.Documents)
	assert.Equal(t, mock.EmbeddingModelName, manifest.EmbeddingModel)
	assert.Equal(t, mock.DefaultDimensions, manifest.Dimensions)
	assert.Equal(t, result.BuildTimestamp(), manifest.BuildTimestamp())

	var percents []int
	for _, e := range f.events.ofKind(progress.KindProgress) {
		percents = append(percents, e.Percent)
	}
	require.NotEmpty(t, percents)
	assert.Equal(t, 0, percents[0])
	assert.Equal(t, 100, percents[len(percents)-1])
	assert.IsNonDecreasing(t, percents)

	stamps := f.events.ofKind(progress.KindBuildTimestamp)
	require.Len(t, stamps, 1)
	assert.Equal(t, "2025-06-01T09:30:00Z", stamps[0].Timestamp)
	assert.Empty(t, f.events.ofKind(progress.KindError))
}

func TestRun_ChunksOf2500RuneFile(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"long.txt": strings.Repeat("é", 2500)})

	result, err := f.pipeline(t).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Chunks)

	var lengths []int
	err = f.chunks.ForEach(context.Background(), 10, func(batch []*core.Chunk) error {
		for _, c := range batch {
			lengths = append(lengths, len([]rune(c.Text)))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 1000, 900}, lengths)
}

func TestRun_ChunkCountNonDecreasing(t *testing.T) {
	dir := t.TempDir()
	texts := []string{
		strings.Repeat("alpha ", 300),
		"short",
		strings.Repeat("gamma ", 150),
		"",
	}

	previous := 0
	for i, text := range texts {
		writeFiles(t, dir, map[string]string{string(rune('a'+i)) + ".txt": text})

		f := newFixture(t)
		result, err := f.pipeline(t).Run(context.Background(), dir)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Chunks, previous)
		previous = result.Chunks
	}
}

func TestRun_EmptyDirectory(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline(t).Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Chunks)
	assert.NotEmpty(t, result.BuildTimestamp())

	manifest, err := f.manifests.LoadManifest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, 0, manifest.Chunks)
}

func TestRun_MissingDirectory(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline(t).Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrSourceNotFound)
	require.NotNil(t, result)
	assert.Empty(t, result.BuildTimestamp())

	failures := f.events.ofKind(progress.KindError)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "source directory not found")
}

func TestRun_SkipsUnreadableFiles(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"good.txt": "readable text"})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "broken.txt"), 0755))

	result, err := f.pipeline(t).Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Load.Attempted)
	assert.Equal(t, 1, result.Load.Succeeded)
	assert.Equal(t, 1, result.Load.Failed)
	require.Len(t, result.Load.Errors, 1)
	assert.Contains(t, result.Load.Err().Error(), "broken.txt")
	assert.Equal(t, 1, result.Chunks)
	assert.Len(t, f.events.ofKind(progress.KindError), 1)
}

func TestRun_EmbeddingFailureKeepsPreviousIndex(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "first version"})

	_, err := f.pipeline(t).Run(context.Background(), dir)
	require.NoError(t, err)

	writeFiles(t, dir, map[string]string{"b.txt": "poison pill"})
	f.provider.GetMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			if strings.Contains(text, "poison") {
				return nil, errors.New("rate limited")
			}
			vectors[i] = mock.HashVector(text, mock.DefaultDimensions)
		}
		return vectors, nil
	})

	result, err := f.pipeline(t, WithBatchSize(1), WithPoolSize(1)).Run(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "rate limited")

	assert.Equal(t, 2, result.Embed.Attempted)
	assert.Equal(t, 1, result.Embed.Succeeded)
	assert.Equal(t, 1, result.Embed.Failed)
	assert.Equal(t, 1, result.FilesEmbedded)
	assert.Empty(t, result.BuildTimestamp())
	assert.Equal(t, 0, result.Store.Attempted)

	count, err := f.chunks.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count, "previous index must survive a failed run")
	assert.NotEmpty(t, f.events.ofKind(progress.KindError))
}

type failingChunks struct {
	storage.ChunkRepository
	err error
}

func (r failingChunks) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	return nil, r.err
}

func TestRun_StoreFailureAfterReset(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "first version"})

	_, err := f.pipeline(t).Run(context.Background(), dir)
	require.NoError(t, err)

	broken := failingChunks{ChunkRepository: f.chunks, err: errors.New("disk full")}
	p, err := NewPipeline(broken, f.manifests, f.provider, WithReporter(f.events))
	require.NoError(t, err)
	t.Cleanup(p.Release)

	result, err := p.Run(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, result.Store.Attempted)
	assert.Equal(t, 1, result.Store.Failed)
	assert.Empty(t, result.BuildTimestamp())

	count, err := f.chunks.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "store stage resets before writing")

	_, err = f.manifests.LoadManifest(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRun_RetriesEmbedding(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "flaky network"})

	calls := 0
	f.provider.GetMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("temporary")
		}
		return [][]float32{mock.HashVector(texts[0], mock.DefaultDimensions)}, nil
	})

	p := f.pipeline(t, WithPoolSize(1), WithRetryPolicy(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}))
	result, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, result.Embed.Succeeded)
}

func TestRun_EmbeddingMismatch(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "one", "b.txt": "two"})

	f.provider.GetMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	})

	_, err := f.pipeline(t, WithBatchSize(2)).Run(context.Background(), dir)
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestRun_ReplacesPreviousContents(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "alpha", "b.txt": "beta"})

	p := f.pipeline(t)
	_, err := p.Run(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "b.txt")))
	_, err = p.Run(context.Background(), dir)
	require.NoError(t, err)

	count, err := f.chunks.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRun_DeterministicRerun(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.txt": "the river flows into the sea",
		"b.txt": "mountains rise above the clouds",
		"c.txt": "a river delta forms at the coast",
	})

	query := mock.HashVector("river", mock.DefaultDimensions)
	top := func() []string {
		results, err := f.chunks.FindSimilar(context.Background(), query, -1, 2)
		require.NoError(t, err)
		var sources []string
		for _, r := range results {
			sources = append(sources, r.Chunk.Source)
		}
		return sources
	}

	p := f.pipeline(t)
	_, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	first := top()

	_, err = p.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, first, top())
}

func TestRun_Canceled(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "text"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.pipeline(t).Run(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.BuildTimestamp())
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"b.txt": "bee", "a.txt": "ay", "c.md": "sea"})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	writeFiles(t, filepath.Join(dir, "sub"), map[string]string{"d.txt": "nested"})

	docs, stage := LoadDocuments(context.Background(), dir, DefaultPattern)
	assert.True(t, stage.OK())
	require.Len(t, docs, 2)
	assert.Equal(t, filepath.Join(dir, "a.txt"), docs[0].Source)
	assert.Equal(t, "ay", docs[0].Contents)
	assert.Equal(t, filepath.Join(dir, "b.txt"), docs[1].Source)
	assert.False(t, docs[0].LoadedAt.IsZero())

	_, stage = LoadDocuments(context.Background(), dir, "[")
	assert.False(t, stage.OK())
}

func TestResult_Summary(t *testing.T) {
	result := newResult()
	result.Documents = 50
	result.FilesEmbedded = 17
	result.Chunks = 120
	assert.Contains(t, result.Summary(), "17 of 50 files embedded")

	var nilResult *Result
	assert.Empty(t, nilResult.BuildTimestamp())
}
