// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/progress"
	"github.com/poiesic/docqa/retry"
	"github.com/poiesic/docqa/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks to process in each batch
	BatchSize int

	// MaxRetries is the maximum number of attempts for each embedding request
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:  100,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// Result summarizes a completed run.
type Result struct {
	Chunks  int
	Elapsed time.Duration
	Model   string
}

// Reembedder orchestrates the reembedding of all chunks in a store.
type Reembedder struct {
	chunks    storage.ChunkRepository
	manifests storage.ManifestRepository
	provider  ai.AIProvider
	config    *Config
	reporter  progress.Reporter
	processor *BatchProcessor
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// reporter receives percentage events; nil discards them.
func NewReembedder(chunks storage.ChunkRepository, manifests storage.ManifestRepository, provider ai.AIProvider, config *Config, reporter progress.Reporter) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	if reporter == nil {
		reporter = progress.Discard
	}

	policy := retry.Policy{MaxAttempts: config.MaxRetries, BaseDelay: config.RetryDelay}

	return &Reembedder{
		chunks:    chunks,
		manifests: manifests,
		provider:  provider,
		config:    config,
		reporter:  reporter,
		processor: NewBatchProcessor(chunks, provider.Embedder(), policy),
		logger:    slog.Default().With("component", "reembed"),
	}
}

// Run executes the reembedding operation.
// All chunks in the store are reembedded with the provider's embedder and
// the manifest is updated to name the new model.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	total, err := r.chunks.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if total == 0 {
		return nil, ErrNoChunks
	}

	model := r.provider.EmbeddingModel()
	r.logger.Info("starting reembedding", "chunks", total, "batch_size", r.config.BatchSize, "model", model)

	tracker := progress.NewTracker(r.reporter, total, 0, 99)
	tracker.Start()

	dimensions := 0
	err = r.chunks.ForEach(ctx, r.config.BatchSize, func(chunks []*core.Chunk) error {
		if err := r.processor.Process(ctx, chunks); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		dimensions = len(chunks[0].Vector)
		tracker.Increment(len(chunks))
		return nil
	})
	if err != nil {
		r.reporter.Report(progress.Failure(err.Error()))
		return nil, err
	}
	tracker.Finish()

	if err := r.updateManifest(ctx, total, model, dimensions); err != nil {
		r.reporter.Report(progress.Failure(err.Error()))
		return nil, err
	}
	if err := r.chunks.Sync(); err != nil {
		return nil, err
	}
	r.reporter.Report(progress.Progress(100))

	result := &Result{
		Chunks:  total,
		Elapsed: tracker.Elapsed(),
		Model:   model,
	}
	r.logger.Info("reembedding complete", "chunks", total, "elapsed", result.Elapsed.Round(time.Millisecond),
		"rate", fmt.Sprintf("%.1f chunks/s", tracker.Rate()))
	return result, nil
}

func (r *Reembedder) updateManifest(ctx context.Context, total int, model string, dimensions int) error {
	manifest, err := r.manifests.LoadManifest(ctx)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	if manifest == nil {
		manifest = &core.Manifest{BuiltAt: time.Now().UTC(), Chunks: total}
	}
	manifest.EmbeddingModel = model
	manifest.Dimensions = dimensions
	if err := r.manifests.SaveManifest(ctx, manifest); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}
