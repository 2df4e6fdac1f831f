package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text completions from a hosted language model.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate sends the conversation to the model and returns its reply.
	// An empty opts.Model selects the provider's default generation model.
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (*Generation, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Generator instances,
// ensuring they share configuration and credentials.
type AIProvider interface {
	// Name returns the registry key the provider was created under.
	Name() string

	// Embedder returns the text embedding service.
	// Providers without an embedding capability return an Embedder whose
	// methods fail with ErrCapabilityUnsupported.
	Embedder() Embedder

	// Generator returns the text generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
