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

// Package chunker splits document text into bounded, overlapping chunks sized
// for embedding.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/poiesic/pdfqa/core"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 200

// PageSeparator joins page texts before splitting.
const PageSeparator = "\n"

// Chunker splits text into overlapping windows.
// It is stateless and safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.size = size
	}
}

// WithChunkOverlap sets the overlap between consecutive chunks in runes.
func WithChunkOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a Chunker. An overlap not smaller than the size, a non-positive
// size, or a negative overlap is a validation error.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.size <= 0:
		return nil, core.Invalid("chunkSize", fmt.Sprintf("must be positive, got %d", c.size))
	case c.overlap < 0:
		return nil, core.Invalid("chunkOverlap", fmt.Sprintf("cannot be negative, got %d", c.overlap))
	case c.overlap >= c.size:
		return nil, core.Invalid("chunkOverlap", fmt.Sprintf("%d must be smaller than chunkSize %d", c.overlap, c.size))
	}
	return c, nil
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split joins pages with PageSeparator and splits the result.
func (c *Chunker) Split(pages []string) ([]core.Chunk, error) {
	return c.SplitText(strings.Join(pages, PageSeparator)), nil
}

// SplitText splits text into chunks. Chunk i starts at rune i*(size-overlap).
// When a window does not reach the end of the text its end is pulled back to
// the last natural boundary that still reaches the next chunk's start.
// Chunks consisting only of whitespace are dropped.
func (c *Chunker) SplitText(text string) []core.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	step := c.size - c.overlap
	chunks := make([]core.Chunk, 0, len(runes)/step+1)

	for start := 0; ; start += step {
		end := start + c.size
		last := end >= len(runes)
		if last {
			end = len(runes)
		} else {
			end = boundary(runes, start+step, end)
		}

		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, core.Chunk{
				Sequence: len(chunks),
				Text:     piece,
				Start:    start,
				End:      end,
			})
		}
		if last {
			break
		}
	}
	return chunks
}

// boundary returns the best cut position in [lo, hi]: after a paragraph
// break, then after a sentence end, then after any whitespace, else hi.
func boundary(runes []rune, lo, hi int) int {
	for p := hi; p >= lo; p-- {
		if p >= 2 && runes[p-1] == '\n' && runes[p-2] == '\n' {
			return p
		}
	}
	for p := hi; p >= lo; p-- {
		if p >= 1 && sentenceEnd(runes, p) {
			return p
		}
	}
	for p := hi; p >= lo; p-- {
		if p >= 1 && unicode.IsSpace(runes[p-1]) {
			return p
		}
	}
	return hi
}

// sentenceEnd reports whether a sentence terminator sits just before p and is
// followed by whitespace.
func sentenceEnd(runes []rune, p int) bool {
	switch runes[p-1] {
	case '.', '!', '?':
		return p < len(runes) && unicode.IsSpace(runes[p])
	}
	return false
}
