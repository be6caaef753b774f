package openai

import (
	"github.com/poiesic/docqa/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// newModel creates the completion model used for answering questions.
func newModel(config *ai.Config) (*openai.LLM, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	opts := append(clientOptions(config, config.CompletionHost), openai.WithModel(config.CompletionModel))
	return openai.New(opts...)
}

// NewModel creates a langchaingo completion model for the configured host and model.
func NewModel(config *ai.Config) (llms.Model, error) {
	return newModel(config)
}
