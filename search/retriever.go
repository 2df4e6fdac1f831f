package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/pdfqa/vectorindex"
)

// DefaultK is the number of passages retrieved when the caller asks for k <= 0.
const DefaultK = 4

// Retriever finds the chunk texts most similar to a question.
type Retriever struct {
	k      int
	logger *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever) error

// WithDefaultK sets the passage count used for k <= 0.
// Default is DefaultK.
func WithDefaultK(k int) RetrieverOption {
	return func(r *Retriever) error {
		if k < 1 {
			k = DefaultK
		}
		r.k = k
		return nil
	}
}

// WithRetrieverLogger sets a custom logger.
// Default is slog.Default().
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(opts ...RetrieverOption) (*Retriever, error) {
	r := &Retriever{
		k:      DefaultK,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")
	return r, nil
}

// Retrieve returns at most k passages from idx ranked by similarity to
// question. k <= 0 selects the configured default. The index must have been
// loaded with an embedder for the model it was built with.
func (r *Retriever) Retrieve(ctx context.Context, idx *vectorindex.Index, question string, k int) ([]string, error) {
	hits, err := r.hits(ctx, idx, question, k)
	if err != nil {
		return nil, err
	}
	return texts(hits), nil
}

func (r *Retriever) hits(ctx context.Context, idx *vectorindex.Index, question string, k int) ([]vectorindex.Hit, error) {
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if strings.TrimSpace(question) == "" {
		return nil, ErrQuestionRequired
	}
	if k <= 0 {
		k = r.k
	}

	hits, err := idx.SimilaritySearch(ctx, question, k)
	if err != nil {
		r.logger.Error("error searching index", "err", err)
		return nil, err
	}
	r.logger.Debug("retrieved passages", "requested", k, "found", len(hits))
	return hits, nil
}

func texts(hits []vectorindex.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Text
	}
	return out
}
