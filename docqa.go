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


package docqa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/ai/openai"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/ingestion"
	"github.com/poiesic/docqa/progress"
	"github.com/poiesic/docqa/qa"
	"github.com/poiesic/docqa/reembed"
	"github.com/poiesic/docqa/storage"
	"github.com/poiesic/docqa/storage/badger"
)

// ErrIndexBusy is returned when another process holds the store for writing.
var ErrIndexBusy = errors.New("index is being rebuilt; try again when ingestion finishes")

type Index struct {
	backend      *badger.Backend
	chunks       *badger.ChunkRepository
	manifests    *badger.ManifestRepository
	provider     ai.AIProvider
	ownsProvider bool
	logger       *slog.Logger
}

// Option configures an Index.
type Option func(*indexOptions)

type indexOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	readOnly bool
	logger   *slog.Logger
}

// WithAIConfig sets the configuration used to create the OpenAI provider.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *indexOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider supplies a ready provider. The Index does not close it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *indexOptions) {
		o.provider = provider
	}
}

// WithReadOnly opens the store with a shared lock. Opening fails with
// storage.ErrNotFound when nothing has been indexed at the path.
func WithReadOnly() Option {
	return func(o *indexOptions) {
		o.readOnly = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *indexOptions) {
		o.logger = logger
	}
}

func Open(dir string, opts ...Option) (*Index, error) {
	options := &indexOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	var (
		backend *badger.Backend
		err     error
	)
	if options.readOnly {
		backend, err = badger.OpenReadOnlyBackend(dir)
	} else {
		backend, err = badger.OpenBackend(dir, false)
	}
	if err != nil {
		if errors.Is(err, storage.ErrStoreLocked) {
			return nil, fmt.Errorf("%w: %w", ErrIndexBusy, err)
		}
		return nil, err
	}

	chunks, err := badger.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	ownsProvider := false
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			chunks.Close()
			backend.Close()
			return nil, err
		}
		ownsProvider = true
	}

	return &Index{
		backend:      backend,
		chunks:       chunks,
		manifests:    badger.NewManifestRepository(backend),
		provider:     provider,
		ownsProvider: ownsProvider,
		logger:       options.logger.With("component", "index"),
	}, nil
}

func (idx *Index) Close() error {
	if idx.ownsProvider {
		if err := idx.provider.Close(); err != nil {
			idx.logger.Error("error closing AI provider", "err", err)
		}
	}

	if err := idx.chunks.Close(); err != nil {
		idx.logger.Error("error closing chunk repository", "err", err)
		return err
	}

	if err := idx.backend.Close(); err != nil {
		idx.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (idx *Index) ChunkRepository() storage.ChunkRepository {
	return idx.chunks
}

func (idx *Index) ManifestRepository() storage.ManifestRepository {
	return idx.manifests
}

// Manifest returns the last successful build, or nil before the first one.
func (idx *Index) Manifest(ctx context.Context) (*core.Manifest, error) {
	return idx.manifests.LoadManifest(ctx)
}

func (idx *Index) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(idx.chunks, idx.manifests, idx.provider, opts...)
}

func (idx *Index) NewAnswerer(opts ...qa.Option) (*qa.Answerer, error) {
	return qa.NewAnswerer(idx.chunks, idx.provider, opts...)
}

func (idx *Index) NewReembedder(config *reembed.Config, reporter progress.Reporter) *reembed.Reembedder {
	return reembed.NewReembedder(idx.chunks, idx.manifests, idx.provider, config, reporter)
}

// Ask answers one query against the store at dir, holding only a shared
// lock for the duration of the call. A store that was never built yields
// qa.ErrIndexEmpty; one being rebuilt yields ErrIndexBusy.
func Ask(ctx context.Context, dir, query string, opts []Option, qaOpts ...qa.Option) (*qa.Answer, *core.Manifest, error) {
	idx, err := Open(dir, append(opts, WithReadOnly())...)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, qa.ErrIndexEmpty
		}
		return nil, nil, err
	}
	defer idx.Close()

	manifest, err := idx.Manifest(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load manifest: %w", err)
	}

	answerer, err := idx.NewAnswerer(qaOpts...)
	if err != nil {
		return nil, manifest, err
	}

	answer, err := answerer.Answer(ctx, query)
	if err != nil {
		return nil, manifest, err
	}
	return answer, manifest, nil
}
