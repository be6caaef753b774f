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


package qa

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrIndexEmpty is returned when a question is asked before any
	// successful ingestion.
	ErrIndexEmpty = errors.New("index is empty; run ingestion first")

	// ErrEmptyQuery is returned for a blank question.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrUnexpectedOutput is returned when the chain output lacks an answer.
	ErrUnexpectedOutput = errors.New("unexpected chain output")
)
