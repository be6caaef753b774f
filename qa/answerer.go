package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/storage"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 2

const (
	queryKey  = "query"
	answerKey = "text"
	sourceKey = "source_documents"
)

// Answer is the response to a question.
type Answer struct {
	Result string
	// Sources lists distinct source paths in retrieval order.
	Sources []string
	// Documents are the retrieved chunks.
	Documents []schema.Document
}

// Answerer answers questions from the indexed chunks.
type Answerer struct {
	chunks   storage.ChunkRepository
	provider ai.AIProvider
	topK     int
	template string
	monitor  Monitor
	logger   *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithTopK sets how many chunks are retrieved.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(a *Answerer) error {
		if k < 1 {
			return fmt.Errorf("%w: top-k must be positive, got %d", storage.ErrInvalidQuery, k)
		}
		a.topK = k
		return nil
	}
}

// WithPromptTemplate replaces the question-answering prompt. The template
// is a Go template using {{.context}} and {{.question}}.
func WithPromptTemplate(template string) Option {
	return func(a *Answerer) error {
		a.template = template
		return nil
	}
}

// WithMonitor sets the monitor used by Answer.
func WithMonitor(monitor Monitor) Option {
	return func(a *Answerer) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		a.monitor = monitor
		return nil
	}
}

// NewAnswerer creates a new answerer.
func NewAnswerer(chunks storage.ChunkRepository, provider ai.AIProvider, opts ...Option) (*Answerer, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	a := &Answerer{
		chunks:   chunks,
		provider: provider,
		topK:     DefaultTopK,
		monitor:  &noopMonitor{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.logger = a.logger.With("component", "qa")

	return a, nil
}

// Answer retrieves the chunks closest to query and asks the completion model
// to answer from them. It returns ErrIndexEmpty if nothing has been indexed.
func (a *Answerer) Answer(ctx context.Context, query string) (*Answer, error) {
	return a.AnswerWithMonitor(ctx, query, a.monitor)
}

// AnswerWithMonitor is Answer with an explicit monitor.
func (a *Answerer) AnswerWithMonitor(ctx context.Context, query string, monitor Monitor) (answer *Answer, err error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)
	defer func() { monitor.Finish(answer, err) }()

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	count, err := a.chunks.Count(ctx)
	if err != nil {
		a.logger.Error("error counting chunks", "err", err)
		return nil, err
	}
	if count == 0 {
		return nil, ErrIndexEmpty
	}

	retriever := &monitoredRetriever{
		inner:   vectorstores.ToRetriever(storage.NewVectorStore(a.chunks, a.provider.Embedder()), a.topK),
		monitor: monitor,
	}
	chain := chains.NewRetrievalQA(combineChain(a.provider.Model(), a.template), retriever)
	chain.ReturnSourceDocuments = true

	output, err := chains.Call(ctx, chain, map[string]any{queryKey: query})
	if err != nil {
		a.logger.Error("error answering query", "query", query, "err", err)
		return nil, err
	}

	text, ok := output[answerKey].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrUnexpectedOutput, answerKey)
	}
	docs, _ := output[sourceKey].([]schema.Document)

	answer = &Answer{
		Result:    text,
		Sources:   DistinctSources(docs),
		Documents: docs,
	}
	a.logger.Info("answered query", "query", query, "sources", answer.Sources)
	return answer, nil
}

// monitoredRetriever reports retrieved documents to a Monitor.
type monitoredRetriever struct {
	inner   schema.Retriever
	monitor Monitor
}

var _ schema.Retriever = (*monitoredRetriever)(nil)

func (r *monitoredRetriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	docs, err := r.inner.GetRelevantDocuments(ctx, query)
	if err != nil {
		return nil, err
	}
	r.monitor.AfterRetrieval(docs)
	return docs, nil
}
