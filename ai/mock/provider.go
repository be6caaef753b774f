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


package mock

import (
	"github.com/poiesic/docqa/ai"
	"github.com/tmc/langchaingo/llms"
)

// EmbeddingModelName is reported by MockProvider.EmbeddingModel.
const EmbeddingModelName = "mock-embedding"

type MockProvider struct {
	embedder *MockEmbedder
	model    *MockModel
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
		model:    NewMockModel(),
	}
}

func NewMockProviderWithServices(embedder *MockEmbedder, model *MockModel) *MockProvider {
	return &MockProvider{
		embedder: embedder,
		model:    model,
	}
}

var _ ai.AIProvider = (*MockProvider)(nil)

func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *MockProvider) Model() llms.Model {
	return p.model
}

func (p *MockProvider) EmbeddingModel() string {
	return EmbeddingModelName
}

func (p *MockProvider) Close() error {
	return nil
}

func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

func (p *MockProvider) GetMockModel() *MockModel {
	return p.model
}
