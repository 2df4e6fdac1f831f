// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Generator,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vec, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Exact similarity rankings
//	emb := mock.NewKeywordEmbedder("alpha", "beta", "gamma")
//
//	// Inspect what the model was asked
//	gen := mock.NewMockGenerator("42")
//	call := gen.LastCall()
//
// # Default Behavior
//
//   - MockEmbedder: Returns unit vectors derived from a text hash
//   - KeywordEmbedder: Returns keyword-count vectors over a fixed vocabulary
//   - MockGenerator: Returns a fixed reply and records calls
//   - MockProvider: Aggregates an embedder and a generator
package mock
