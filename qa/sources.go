package qa

import (
	"github.com/poiesic/docqa/core"
	"github.com/tmc/langchaingo/schema"
)

// DistinctSources returns the source path of each document, first occurrence
// first, without repeats. Documents without a source are skipped.
func DistinctSources(docs []schema.Document) []string {
	seen := make(map[string]bool, len(docs))
	sources := make([]string, 0, len(docs))
	for _, doc := range docs {
		source, _ := doc.Metadata[core.MetadataSource].(string)
		if source == "" || seen[source] {
			continue
		}
		seen[source] = true
		sources = append(sources, source)
	}
	return sources
}
