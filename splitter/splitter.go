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


// Package splitter cuts documents into overlapping chunks.
//
// Two strategies are available, both exposed as langchaingo
// textsplitter.TextSplitter values so they plug into
// textsplitter.SplitDocuments:
//
//   - ModeWindow: fixed rune windows with an exact overlap (default)
//   - ModeRecursive: langchaingo's separator-aware RecursiveCharacter
//     splitter, which prefers paragraph and line boundaries and treats the
//     overlap as an upper bound
package splitter

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/poiesic/docqa/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// Mode selects a splitting strategy.
type Mode string

const (
	ModeWindow    Mode = "window"
	ModeRecursive Mode = "recursive"
)

// ErrUnknownMode is returned by New for an unrecognized Mode.
var ErrUnknownMode = errors.New("unknown splitter mode")

// New returns a splitter for the given mode and chunk policy.
// An empty mode selects ModeWindow.
func New(mode Mode, size, overlap int) (textsplitter.TextSplitter, error) {
	if err := core.ValidateChunkPolicy(size, overlap); err != nil {
		return nil, err
	}

	switch mode {
	case "", ModeWindow:
		return Window{Size: size, Overlap: overlap}, nil
	case ModeRecursive:
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
