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

package vectorindex

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/core"
)

// Metadata keys written by the ingestion pipeline.
const (
	MetaDocumentID        = "document_id"
	MetaSourceFile        = "source_file"
	MetaPageCount         = "page_count"
	MetaEmbeddingProvider = "embedding_provider"
	MetaEmbeddingModel    = "embedding_model"
)

type entry struct {
	text   string
	vector []float32
	norm   float64
}

// Index is an ordered set of (text, vector) pairs with a fixed dimension.
// Once built it is read-only and safe for concurrent searches.
type Index struct {
	dimension int
	entries   []entry
	metadata  map[string]string
	embedder  ai.Embedder
}

// Hit is a search result.
type Hit struct {
	Position int // Original chunk order
	Text     string
	Score    float32 // Cosine similarity
}

// BuildOption configures Build.
type BuildOption func(*Index)

// WithMetadata attaches key/value pairs persisted alongside the vectors.
func WithMetadata(meta map[string]string) BuildOption {
	return func(idx *Index) {
		maps.Copy(idx.metadata, meta)
	}
}

// Build embeds every chunk in order and returns the resulting index.
// Zero chunks fail with ErrEmptyDocument without calling the embedder.
func Build(ctx context.Context, chunks []core.Chunk, embedder ai.Embedder, opts ...BuildOption) (*Index, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(texts), len(vectors))
	}

	idx, err := newIndex(texts, vectors)
	if err != nil {
		return nil, err
	}
	idx.embedder = embedder
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

func newIndex(texts []string, vectors [][]float32) (*Index, error) {
	idx := &Index{
		entries:  make([]entry, len(texts)),
		metadata: make(map[string]string),
	}
	for i, vec := range vectors {
		if i == 0 {
			idx.dimension = len(vec)
		}
		if len(vec) != idx.dimension || len(vec) == 0 {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(vec), idx.dimension)
		}
		idx.entries[i] = entry{text: texts[i], vector: vec, norm: norm(vec)}
	}
	return idx, nil
}

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Dimension returns the vector length.
func (idx *Index) Dimension() int { return idx.dimension }

// Metadata returns a copy of the index metadata.
func (idx *Index) Metadata() map[string]string { return maps.Clone(idx.metadata) }

// Texts returns the entry texts in chunk order.
func (idx *Index) Texts() []string {
	out := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		out[i] = e.text
	}
	return out
}

// Search ranks entries by cosine similarity to query, highest first.
// Equal scores keep chunk order. At most k hits are returned; k <= 0 yields none.
func (idx *Index) Search(query []float32, k int) []Hit {
	if k <= 0 || len(idx.entries) == 0 {
		return nil
	}

	qnorm := norm(query)
	hits := make([]Hit, len(idx.entries))
	for i, e := range idx.entries {
		hits[i] = Hit{Position: i, Text: e.text, Score: cosine(query, qnorm, e.vector, e.norm)}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return hits[:min(k, len(hits))]
}

// SimilaritySearch embeds query with the index's embedder and searches.
func (idx *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]Hit, error) {
	if idx.embedder == nil {
		return nil, ErrEmbedderRequired
	}
	vec, err := idx.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	return idx.Search(vec, k), nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero length.
func cosine(a []float32, anorm float64, b []float32, bnorm float64) float32 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	n := min(len(a), len(b))
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (anorm * bnorm))
}
