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

package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/pdfqa/core"
)

// DefaultBatchSize is the number of texts sent per provider request.
const DefaultBatchSize = 32

// BatchEmbedder splits large batches into provider-sized requests and runs them
// on a bounded worker pool. Every call waits for all of its requests to finish.
type BatchEmbedder struct {
	embedder  Embedder
	provider  string
	batchSize int
	workers   int
	logger    *slog.Logger
}

var _ Embedder = (*BatchEmbedder)(nil)

// BatchOption configures a BatchEmbedder.
type BatchOption func(*BatchEmbedder) error

// WithBatchSize sets the number of texts per provider request.
func WithBatchSize(size int) BatchOption {
	return func(b *BatchEmbedder) error {
		if size < 1 {
			return fmt.Errorf("%w: batch size must be positive", core.ErrValidation)
		}
		b.batchSize = size
		return nil
	}
}

// WithWorkers sets the maximum number of concurrent provider requests.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(n int) BatchOption {
	return func(b *BatchEmbedder) error {
		if n < 1 {
			n = 1
		}
		b.workers = n
		return nil
	}
}

// WithProviderName sets the provider name reported in embedding errors.
func WithProviderName(name string) BatchOption {
	return func(b *BatchEmbedder) error {
		if name != "" {
			b.provider = name
		}
		return nil
	}
}

// WithBatchLogger sets a custom logger.
// Default is slog.Default().
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchEmbedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBatchEmbedder wraps embedder.
func NewBatchEmbedder(embedder Embedder, opts ...BatchOption) (*BatchEmbedder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	b := &BatchEmbedder{
		embedder:  embedder,
		provider:  "embedder",
		batchSize: DefaultBatchSize,
		workers:   workers,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "batch-embedder")
	return b, nil
}

// EmbedText delegates to the wrapped embedder.
func (b *BatchEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := b.embedder.EmbedText(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, b.wrap(-1, err)
	}
	return vec, nil
}

// EmbedTexts embeds texts in sub-batches and returns vectors in input order.
// On failure the error carries the index of the first text of the lowest failing sub-batch.
func (b *BatchEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if len(texts) <= b.batchSize {
		vecs, err := b.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, b.wrap(0, err)
		}
		if len(vecs) != len(texts) {
			return nil, b.wrap(0, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(texts), len(vecs)))
		}
		return vecs, nil
	}

	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]float32, len(texts))
	batches := (len(texts) + b.batchSize - 1) / b.batchSize
	errs := make([]error, batches)

	b.logger.Debug("embedding texts", "texts", len(texts), "batches", batches, "workers", b.workers)

	var wg sync.WaitGroup
	for n := 0; n < batches; n++ {
		start := n * b.batchSize
		end := min(start+b.batchSize, len(texts))
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			// Skipped batches are reported through the failure that cancelled them.
			if ctx.Err() != nil {
				return
			}
			vecs, err := b.embedder.EmbedTexts(ctx, texts[start:end])
			if err == nil && len(vecs) != end-start {
				err = fmt.Errorf("embedding result mismatch. expected %d, received %d", end-start, len(vecs))
			}
			if err != nil {
				errs[n] = b.wrap(start, err)
				cancel()
				return
			}
			copy(results[start:end], vecs)
		})
		if submitErr != nil {
			wg.Done()
			errs[n] = submitErr
			cancel()
		}
	}
	wg.Wait()

	// A cancelled caller is reported as such, even when workers saw it as a
	// provider failure first.
	if err := parent.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			b.logger.Error("batch embedding failed", "err", err)
			return nil, err
		}
	}
	return results, nil
}

// wrap annotates err with the batch offset unless it already carries one.
func (b *BatchEmbedder) wrap(index int, err error) error {
	var embedErr *core.EmbeddingError
	if errors.As(err, &embedErr) {
		if embedErr.Index < 0 || index < 0 {
			return err
		}
		return &core.EmbeddingError{Provider: embedErr.Provider, Index: index + embedErr.Index, Err: embedErr.Err}
	}
	return &core.EmbeddingError{Provider: b.provider, Index: index, Err: err}
}
