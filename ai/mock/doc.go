// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, llms.Model and
// ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider()
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	model := mock.NewMockModel().
//	    WithGenerateFunc(func(ctx context.Context, prompt string) (string, error) {
//	        return "X is a letter.", nil
//	    })
//
//	// Inspect what the model saw
//	prompts := model.Prompts()
//
// # Default Behavior
//
//   - MockEmbedder: normalized bag-of-words vectors from hashed tokens
//   - MockModel: returns DefaultAnswer and records every prompt
//   - MockProvider: aggregates mock embedder and model
package mock
