package langchain

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/core"
	"github.com/tmc/langchaingo/embeddings"
)

// Embedder implements ai.Embedder over a langchaingo embedding client.
type Embedder struct {
	provider string
	embedder embeddings.Embedder
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder wraps client. Newlines are stripped before embedding.
func NewEmbedder(provider string, client embeddings.EmbedderClient, logger *slog.Logger) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("embedding client required")
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		provider: provider,
		embedder: embedder,
		logger:   logger.With("component", provider+"-embedder"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, &core.EmbeddingError{Provider: e.provider, Index: -1, Err: err}
	}
	return vec, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, &core.EmbeddingError{Provider: e.provider, Index: 0, Err: err}
	}
	return vecs, nil
}

// Unsupported is an ai.Embedder for providers without an embedding capability.
type Unsupported struct {
	Provider string
}

var _ ai.Embedder = Unsupported{}

// EmbedText always fails with ai.ErrCapabilityUnsupported.
func (u Unsupported) EmbedText(context.Context, string) ([]float32, error) {
	return nil, &core.EmbeddingError{Provider: u.Provider, Index: -1, Err: ai.ErrCapabilityUnsupported}
}

// EmbedTexts always fails with ai.ErrCapabilityUnsupported.
func (u Unsupported) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, &core.EmbeddingError{Provider: u.Provider, Index: 0, Err: ai.ErrCapabilityUnsupported}
}
