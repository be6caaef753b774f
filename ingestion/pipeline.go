package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/progress"
	"github.com/poiesic/docqa/retry"
	"github.com/poiesic/docqa/splitter"
	"github.com/poiesic/docqa/storage"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// DefaultBatchSize is the number of chunks sent per embedding request.
const DefaultBatchSize = 16

// Progress bands of the overall 0-100 range, one per stage.
const (
	loadBandEnd  = 10
	splitBandEnd = 20
	embedBandEnd = 90
)

// Pipeline builds a fresh index from a source directory.
type Pipeline struct {
	chunks    storage.ChunkRepository
	manifests storage.ManifestRepository
	provider  ai.AIProvider
	splitter  textsplitter.TextSplitter
	maxChunk  int
	pattern   string
	batchSize int
	retry     retry.Policy
	pool      *ants.Pool
	reporter  progress.Reporter
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithSplitter replaces the default window splitter. maxChunk is the size
// limit chunks are validated against; zero disables the check.
func WithSplitter(ts textsplitter.TextSplitter, maxChunk int) Option {
	return func(p *Pipeline) error {
		if ts == nil {
			return errors.New("splitter required")
		}
		p.splitter = ts
		p.maxChunk = maxChunk
		return nil
	}
}

// WithPattern sets the glob used to select source files.
// Default is DefaultPattern.
func WithPattern(pattern string) Option {
	return func(p *Pipeline) error {
		p.pattern = pattern
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per request.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, size)
		}
		p.batchSize = size
		return nil
	}
}

// WithRetryPolicy sets the retry policy for embedding requests.
// Default is retry.DefaultPolicy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) error {
		if policy.MaxAttempts <= 0 {
			return retry.ErrInvalidMaxAttempts
		}
		p.retry = policy
		return nil
	}
}

// WithReporter sets the receiver of progress events.
// Default is progress.Discard.
func WithReporter(reporter progress.Reporter) Option {
	return func(p *Pipeline) error {
		if reporter == nil {
			reporter = progress.Discard
		}
		p.reporter = reporter
		return nil
	}
}

// WithClock overrides the source of build timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		p.now = now
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	chunks storage.ChunkRepository,
	manifests storage.ManifestRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if manifests == nil {
		return nil, ErrManifestRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		chunks:    chunks,
		manifests: manifests,
		provider:  provider,
		splitter:  splitter.Window{Size: splitter.DefaultChunkSize, Overlap: splitter.DefaultChunkOverlap},
		maxChunk:  splitter.DefaultChunkSize,
		pattern:   DefaultPattern,
		batchSize: DefaultBatchSize,
		retry:     retry.DefaultPolicy,
		pool:      pool,
		reporter:  progress.Discard,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Run loads, splits, embeds and stores every matching file in sourceDir,
// replacing the previous contents of the store.
//
// The returned Result is never nil. On error it describes how far the run got.
// Failures before the store stage leave the store as it was before the run.
// The store stage resets the store before writing, so a failure there leaves
// it empty or holding only the batches written so far. The manifest is saved
// after the last batch.
func (p *Pipeline) Run(ctx context.Context, sourceDir string) (*Result, error) {
	result := newResult()
	p.reporter.Report(progress.Progress(0))

	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		err = fmt.Errorf("%w: %s", ErrSourceNotFound, sourceDir)
		return result, p.abort(err)
	}

	p.logger.Info("loading documents", "source", sourceDir, "pattern", p.pattern)
	docs, load := LoadDocuments(ctx, sourceDir, p.pattern)
	result.Load = load
	result.Documents = len(docs)
	for _, loadErr := range load.Errors {
		p.logger.Warn("skipping document", "err", loadErr)
		p.reporter.Report(progress.Failure(loadErr.Error()))
	}
	if err := ctx.Err(); err != nil {
		return result, p.abort(err)
	}
	p.reporter.Report(progress.Progress(loadBandEnd))

	chunks, owners := p.split(docs, &result.Split)
	result.Chunks = len(chunks)
	p.logger.Info("split documents", "documents", len(docs), "chunks", len(chunks))
	p.reporter.Report(progress.Progress(splitBandEnd))

	if err := p.embed(ctx, chunks, owners, result); err != nil {
		return result, p.abort(err)
	}

	if err := p.store(ctx, chunks, result); err != nil {
		return result, p.abort(err)
	}

	p.logger.Info("index built", "timestamp", result.BuildTimestamp(), "summary", result.Summary())
	p.reporter.Report(progress.Progress(100))
	p.reporter.Report(progress.BuildTimestamp(result.BuildTimestamp()))
	return result, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

func (p *Pipeline) abort(err error) error {
	p.logger.Error("ingestion failed", "err", err)
	p.reporter.Report(progress.Failure(err.Error()))
	return err
}

// split cuts each document into chunks. owners[i] is the index of the
// document chunks[i] came from.
func (p *Pipeline) split(docs []core.Document, stage *StageResult) ([]*core.Chunk, []int) {
	var chunks []*core.Chunk
	var owners []int

	for i, doc := range docs {
		stage.Attempted++
		pieces, err := textsplitter.SplitDocuments(p.splitter, []schema.Document{{
			PageContent: doc.Contents,
			Metadata:    map[string]any{core.MetadataSource: doc.Source},
		}})
		if err != nil {
			stage.fail(1, fmt.Errorf("split %s: %w", doc.Source, err))
			continue
		}

		docChunks := make([]*core.Chunk, 0, len(pieces))
		var invalid error
		for index, piece := range pieces {
			chunk := &core.Chunk{
				Id:     core.ChunkID(doc.Source, index, piece.PageContent),
				Source: doc.Source,
				Index:  index,
				Text:   piece.PageContent,
			}
			if err := core.ValidateChunk(chunk, p.maxChunk); err != nil {
				invalid = fmt.Errorf("split %s: chunk %d: %w", doc.Source, index, err)
				break
			}
			docChunks = append(docChunks, chunk)
		}
		if invalid != nil {
			stage.fail(1, invalid)
			continue
		}

		for range docChunks {
			owners = append(owners, i)
		}
		chunks = append(chunks, docChunks...)
		stage.succeed(1)
	}

	return chunks, owners
}

// embed fills in chunk vectors batch by batch on the worker pool. The first
// failed batch cancels the remaining ones.
func (p *Pipeline) embed(ctx context.Context, chunks []*core.Chunk, owners []int, result *Result) error {
	stage := &result.Embed
	stage.Attempted = len(chunks)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type batch struct{ start, end int }
	var batches []batch
	for start := 0; start < len(chunks); start += p.batchSize {
		batches = append(batches, batch{start, min(start+p.batchSize, len(chunks))})
	}

	tracker := progress.NewTracker(p.reporter, len(chunks), splitBandEnd, embedBandEnd)
	tracker.Start()

	embedder := p.provider.Embedder()
	failed := make([]bool, len(chunks))
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	for _, b := range batches {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()

			texts := make([]string, b.end-b.start)
			for i := range texts {
				texts[i] = chunks[b.start+i].Text
			}

			var vectors [][]float32
			err := p.retry.Do(ctx, func() error {
				var embedErr error
				vectors, embedErr = embedder.EmbedTexts(ctx, texts)
				if embedErr == nil && len(vectors) != len(texts) {
					return retry.Permanent(fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(texts), len(vectors)))
				}
				return embedErr
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				for i := b.start; i < b.end; i++ {
					failed[i] = true
				}
				errs = append(errs, fmt.Errorf("%w: chunks %d-%d: %w", ErrEmbeddingFailed, b.start, b.end-1, err))
				cancel()
				return
			}
			for i, vector := range vectors {
				chunks[b.start+i].Vector = core.NormalizeVector(vector)
			}
			tracker.Increment(len(vectors))
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			for i := b.start; i < b.end; i++ {
				failed[i] = true
			}
			errs = append(errs, submitErr)
			mu.Unlock()
			cancel()
		}
	}
	wg.Wait()

	for i, chunk := range chunks {
		if failed[i] || chunk.Vector == nil {
			stage.Failed++
		} else {
			stage.Succeeded++
		}
	}
	result.FilesEmbedded = countCompleteDocuments(chunks, owners, result.Split)
	stage.Errors = errs

	if len(errs) > 0 {
		p.logger.Error("embedding failed", "embedded", stage.Succeeded, "chunks", len(chunks), "files", result.FilesEmbedded)
		return errors.Join(errs...)
	}

	if err := checkDimensions(chunks); err != nil {
		stage.Errors = append(stage.Errors, err)
		return err
	}

	tracker.Finish()
	p.logger.Info("embedded chunks", "chunks", len(chunks), "elapsed", tracker.Elapsed())
	return nil
}

// store replaces the store contents with chunks and records the manifest.
func (p *Pipeline) store(ctx context.Context, chunks []*core.Chunk, result *Result) error {
	stage := &result.Store
	stage.Attempted = len(chunks)

	if err := p.chunks.Reset(ctx); err != nil {
		stage.fail(len(chunks), fmt.Errorf("reset store: %w", err))
		return stage.Err()
	}

	tracker := progress.NewTracker(p.reporter, len(chunks), embedBandEnd, 99)
	tracker.Start()
	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		if _, err := p.chunks.AddChunks(ctx, chunks[start:end]...); err != nil {
			stage.fail(len(chunks)-start, fmt.Errorf("add chunks: %w", err))
			return stage.Err()
		}
		stage.succeed(end - start)
		tracker.Update(end)
	}
	tracker.Finish()

	builtAt := p.now()
	manifest := &core.Manifest{
		BuiltAt:        builtAt,
		Documents:      result.Documents,
		Chunks:         len(chunks),
		EmbeddingModel: p.provider.EmbeddingModel(),
	}
	if len(chunks) > 0 {
		manifest.Dimensions = len(chunks[0].Vector)
	}
	if err := p.manifests.SaveManifest(ctx, manifest); err != nil {
		stage.Errors = append(stage.Errors, fmt.Errorf("save manifest: %w", err))
		return stage.Err()
	}

	if err := p.chunks.Sync(); err != nil {
		stage.Errors = append(stage.Errors, fmt.Errorf("sync store: %w", err))
		return stage.Err()
	}

	result.BuiltAt = builtAt
	result.Manifest = manifest
	return nil
}

// countCompleteDocuments counts split documents whose chunks all have vectors.
// Documents that produced no chunks count as complete.
func countCompleteDocuments(chunks []*core.Chunk, owners []int, split StageResult) int {
	incomplete := make(map[int]bool)
	seen := make(map[int]bool)
	for i, chunk := range chunks {
		seen[owners[i]] = true
		if chunk.Vector == nil {
			incomplete[owners[i]] = true
		}
	}
	// Split documents with no chunks, e.g. empty files.
	empty := split.Succeeded - len(seen)
	return len(seen) - len(incomplete) + max(empty, 0)
}

func checkDimensions(chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	dim := len(chunks[0].Vector)
	for i, chunk := range chunks {
		if len(chunk.Vector) != dim {
			return fmt.Errorf("%w: chunk %d has dimension %d, expected %d", ErrEmbeddingMismatch, i, len(chunk.Vector), dim)
		}
	}
	return nil
}
