package ingestion

import (
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/docqa/core"
)

// Stage names a step of an ingestion run.
type Stage string

const (
	StageLoad  Stage = "load"
	StageSplit Stage = "split"
	StageEmbed Stage = "embed"
	StageStore Stage = "store"
)

// StageResult counts what one stage attempted and what came of it.
type StageResult struct {
	Stage     Stage
	Attempted int
	Succeeded int
	Failed    int
	Errors    []error
}

func (s *StageResult) succeed(n int) {
	s.Succeeded += n
}

func (s *StageResult) fail(n int, err error) {
	s.Failed += n
	if err != nil {
		s.Errors = append(s.Errors, err)
	}
}

// OK reports whether the stage recorded no failures.
func (s StageResult) OK() bool {
	return s.Failed == 0 && len(s.Errors) == 0
}

// Err joins the recorded errors, or returns nil.
func (s StageResult) Err() error {
	return errors.Join(s.Errors...)
}

func (s StageResult) String() string {
	return fmt.Sprintf("%s: %d of %d succeeded, %d failed", s.Stage, s.Succeeded, s.Attempted, s.Failed)
}

// Result describes one ingestion run.
type Result struct {
	// BuiltAt is set only when the run completed and the store was flushed.
	BuiltAt time.Time

	// Manifest is the record written to the store on success.
	Manifest *core.Manifest

	Load  StageResult
	Split StageResult
	Embed StageResult
	Store StageResult

	// Documents is the number of documents loaded.
	Documents int
	// Chunks is the number of chunks produced by the split stage.
	Chunks int
	// FilesEmbedded counts documents whose every chunk was embedded.
	FilesEmbedded int
}

func newResult() *Result {
	return &Result{
		Load:  StageResult{Stage: StageLoad},
		Split: StageResult{Stage: StageSplit},
		Embed: StageResult{Stage: StageEmbed},
		Store: StageResult{Stage: StageStore},
	}
}

// BuildTimestamp returns the build time in RFC 3339 form, or "" if the run
// did not complete.
func (r *Result) BuildTimestamp() string {
	if r == nil || r.BuiltAt.IsZero() {
		return ""
	}
	return r.BuiltAt.Format(time.RFC3339)
}

// Stages returns the stage results in execution order.
func (r *Result) Stages() []StageResult {
	return []StageResult{r.Load, r.Split, r.Embed, r.Store}
}

// Summary is a one-line human readable account of the run.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d files loaded (%d failed), %d chunks, %d of %d files embedded, %d chunks stored",
		r.Documents, r.Load.Failed, r.Chunks, r.FilesEmbedded, r.Documents, r.Store.Succeeded)
}
