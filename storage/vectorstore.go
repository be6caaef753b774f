package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// ErrInvalidScoreThreshold is returned when a score threshold is outside [0, 1].
var ErrInvalidScoreThreshold = errors.New("score threshold must be between 0 and 1")

// VectorStore exposes a ChunkRepository as a langchaingo vector store so it
// can back retrievers and chains.
type VectorStore struct {
	repo     ChunkRepository
	embedder ai.Embedder
}

var _ vectorstores.VectorStore = (*VectorStore)(nil)

// NewVectorStore wraps repo, embedding documents and queries with embedder.
func NewVectorStore(repo ChunkRepository, embedder ai.Embedder) *VectorStore {
	return &VectorStore{
		repo:     repo,
		embedder: embedder,
	}
}

// AddDocuments embeds docs and appends them as chunks.
// The source and chunk metadata keys are honored when present.
func (s *VectorStore) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	opts := vectorstores.Options{}
	for _, opt := range options {
		opt(&opts)
	}

	kept := make([]schema.Document, 0, len(docs))
	for _, doc := range docs {
		if opts.Deduplicater != nil && opts.Deduplicater(ctx, doc) {
			continue
		}
		kept = append(kept, doc)
	}
	if len(kept) == 0 {
		return []string{}, nil
	}

	texts := make([]string, len(kept))
	for i, doc := range kept {
		texts[i] = doc.PageContent
	}

	vectors, err := s.embedDocuments(ctx, opts, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(kept) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(kept))
	}

	chunks := make([]*core.Chunk, len(kept))
	ids := make([]string, len(kept))
	for i, doc := range kept {
		source, _ := doc.Metadata[core.MetadataSource].(string)
		index, _ := doc.Metadata[core.MetadataChunk].(int)
		chunks[i] = &core.Chunk{
			Id:     core.ChunkID(source, index, doc.PageContent),
			Source: source,
			Index:  index,
			Text:   doc.PageContent,
			Vector: core.NormalizeVector(vectors[i]),
		}
		ids[i] = strconv.FormatUint(uint64(chunks[i].Id), 10)
	}

	if _, err := s.repo.AddChunks(ctx, chunks...); err != nil {
		return nil, err
	}
	return ids, nil
}

// SimilaritySearch returns the numDocuments chunks closest to query.
// A zero score threshold disables filtering. Metadata filters are not supported.
func (s *VectorStore) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts := vectorstores.Options{}
	for _, opt := range options {
		opt(&opts)
	}

	if opts.ScoreThreshold < 0 || opts.ScoreThreshold > 1 {
		return nil, ErrInvalidScoreThreshold
	}
	if opts.Filters != nil {
		return nil, fmt.Errorf("%w: metadata filters are not supported", ErrInvalidQuery)
	}

	minSimilarity := opts.ScoreThreshold
	if minSimilarity == 0 {
		minSimilarity = -1
	}

	vector, err := s.embedQuery(ctx, opts, query)
	if err != nil {
		return nil, err
	}

	results, err := s.repo.FindSimilar(ctx, core.NormalizeVector(vector), minSimilarity, numDocuments)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, 0, len(results))
	for _, result := range results {
		docs = append(docs, schema.Document{
			PageContent: result.Chunk.Text,
			Metadata: map[string]any{
				core.MetadataSource: result.Chunk.Source,
				core.MetadataChunk:  result.Chunk.Index,
				core.MetadataID:     strconv.FormatUint(uint64(result.Chunk.Id), 10),
			},
			Score: result.Score,
		})
	}
	return docs, nil
}

func (s *VectorStore) embedDocuments(ctx context.Context, opts vectorstores.Options, texts []string) ([][]float32, error) {
	if opts.Embedder != nil {
		return opts.Embedder.EmbedDocuments(ctx, texts)
	}
	return s.embedder.EmbedTexts(ctx, texts)
}

func (s *VectorStore) embedQuery(ctx context.Context, opts vectorstores.Options, query string) ([]float32, error) {
	if opts.Embedder != nil {
		return opts.Embedder.EmbedQuery(ctx, query)
	}
	return s.embedder.EmbedText(ctx, query)
}
