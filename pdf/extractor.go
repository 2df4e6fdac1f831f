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

package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/poiesic/pdfqa/core"
	"github.com/tmc/langchaingo/documentloaders"
)

var (
	// ErrNotPDF indicates the input does not begin with a PDF header.
	ErrNotPDF = errors.New("missing %PDF- header")

	// ErrNoContent indicates the parser produced no pages.
	ErrNoContent = errors.New("failed to extract content")
)

var header = []byte("%PDF-")

// Extractor reads page text from PDFs.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "pdf-extractor")
	return e
}

// Extract returns the text of each page in order. Any failure is a
// *core.ParseError and no partial result is returned.
func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (pages []string, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, len(header))
	if size < int64(len(header)) {
		return nil, &core.ParseError{Err: ErrNotPDF}
	}
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, &core.ParseError{Err: err}
	}
	if !bytes.Equal(buf, header) {
		return nil, &core.ParseError{Err: ErrNotPDF}
	}

	// The underlying parser panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("pdf parser panicked", "panic", rec)
			pages = nil
			err = &core.ParseError{Err: fmt.Errorf("malformed PDF: %v", rec)}
		}
	}()

	docs, err := documentloaders.NewPDF(r, size).Load(ctx)
	if err != nil {
		return nil, &core.ParseError{Err: err}
	}
	if len(docs) == 0 {
		return nil, &core.ParseError{Err: ErrNoContent}
	}

	pages = make([]string, len(docs))
	for i, doc := range docs {
		pages[i] = doc.PageContent
	}
	e.logger.Debug("extracted pages", "pages", len(pages), "bytes", size)
	return pages, nil
}

// ExtractFile opens path and extracts its pages.
func (e *Extractor) ExtractFile(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.StorageError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &core.StorageError{Op: "stat", Path: path, Err: err}
	}
	return e.Extract(ctx, f, info.Size())
}
