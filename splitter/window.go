package splitter

import (
	"github.com/poiesic/docqa/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of runes shared by consecutive chunks.
	DefaultChunkOverlap = 200
)

// Window splits text into fixed-size rune windows. Consecutive windows
// share exactly Overlap runes; only the last window may be shorter than Size.
type Window struct {
	Size    int
	Overlap int
}

var _ textsplitter.TextSplitter = Window{}

// NewWindow returns a Window splitter after validating the policy.
func NewWindow(size, overlap int) (Window, error) {
	if err := core.ValidateChunkPolicy(size, overlap); err != nil {
		return Window{}, err
	}
	return Window{Size: size, Overlap: overlap}, nil
}

// SplitText implements textsplitter.TextSplitter.
// Empty text produces no chunks.
func (w Window) SplitText(text string) ([]string, error) {
	if err := core.ValidateChunkPolicy(w.Size, w.Overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}, nil
	}

	stride := w.Size - w.Overlap
	chunks := make([]string, 0, len(runes)/stride+1)
	for start := 0; ; start += stride {
		end := min(start+w.Size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
