package qa

import (
	"log/slog"

	"github.com/poiesic/docqa/core"
	"github.com/tmc/langchaingo/schema"
)

// Monitor provides hooks to observe answering.
// Implement this interface to inspect retrieved context and the final answer.
type Monitor interface {
	Start(query string)
	AfterRetrieval(docs []schema.Document)
	Finish(answer *Answer, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                     {}
func (n *noopMonitor) AfterRetrieval(_ []schema.Document) {}
func (n *noopMonitor) Finish(_ *Answer, _ error)          {}

// LogMonitor writes every hook to a logger at debug level.
type LogMonitor struct {
	logger *slog.Logger
}

var _ Monitor = (*LogMonitor)(nil)

// NewLogMonitor creates a monitor logging to logger, or slog.Default() if nil.
func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger.With("component", "qa-monitor")}
}

func (m *LogMonitor) Start(query string) {
	m.logger.Debug("answering", "query", query)
}

func (m *LogMonitor) AfterRetrieval(docs []schema.Document) {
	for i, doc := range docs {
		m.logger.Debug("retrieved chunk",
			"rank", i+1,
			"source", doc.Metadata[core.MetadataSource],
			"chunk", doc.Metadata[core.MetadataChunk],
			"score", doc.Score,
			"length", len(doc.PageContent))
	}
}

func (m *LogMonitor) Finish(answer *Answer, err error) {
	if err != nil {
		m.logger.Debug("answer failed", "err", err)
		return
	}
	m.logger.Debug("answered", "sources", answer.Sources, "length", len(answer.Result))
}
