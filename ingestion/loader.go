package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/tmc/langchaingo/documentloaders"
)

// DefaultPattern selects the files loaded from the source directory.
const DefaultPattern = "*.txt"

// LoadDocuments loads every regular file in dir matching pattern, in lexical
// order. Files that cannot be read are recorded in the stage result and
// skipped. Subdirectories are not searched.
func LoadDocuments(ctx context.Context, dir, pattern string) ([]core.Document, StageResult) {
	stage := StageResult{Stage: StageLoad}

	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		stage.fail(0, fmt.Errorf("bad pattern %q: %w", pattern, err))
		return nil, stage
	}

	docs := make([]core.Document, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			stage.fail(0, err)
			break
		}

		stage.Attempted++
		doc, err := loadDocument(ctx, path)
		if err != nil {
			stage.fail(1, fmt.Errorf("load %s: %w", path, err))
			continue
		}
		docs = append(docs, doc)
		stage.succeed(1)
	}

	return docs, stage
}

func loadDocument(ctx context.Context, path string) (core.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Document{}, err
	}
	defer f.Close()

	loaded, err := documentloaders.NewText(f).Load(ctx)
	if err != nil {
		return core.Document{}, err
	}

	var contents strings.Builder
	for _, d := range loaded {
		contents.WriteString(d.PageContent)
	}

	doc := core.Document{
		Source:   path,
		Contents: contents.String(),
		LoadedAt: time.Now().UTC(),
	}
	if err := core.ValidateDocument(&doc); err != nil {
		return core.Document{}, err
	}
	return doc, nil
}
