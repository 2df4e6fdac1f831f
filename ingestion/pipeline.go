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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/chunker"
	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/vectorindex"
)

// Extractor reads the page texts of a PDF on disk.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) ([]string, error)
}

// Registrar records ingested documents.
type Registrar interface {
	Register(ctx context.Context, doc *core.Document) error
}

// Result describes a completed ingestion.
type Result struct {
	Document   *core.Document
	PageCount  int
	ChunkCount int
}

// Pipeline orchestrates extraction, chunking, indexing and registration of PDFs.
// It is safe for concurrent use.
type Pipeline struct {
	uploadDir string
	extractor Extractor
	chunker   *chunker.Chunker
	embedder  ai.Embedder
	registry  Registrar
	poolSize  int
	batchSize int
	indexMeta map[string]string
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of concurrent embedding requests per ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.poolSize = size
		return nil
	}
}

// WithBatchSize sets the number of chunks sent per embedding request.
// Default is ai.DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: batch size must be positive", core.ErrValidation)
		}
		p.batchSize = size
		return nil
	}
}

// WithChunker replaces the default 1000/200 chunker.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c == nil {
			return errors.New("chunker cannot be nil")
		}
		p.chunker = c
		return nil
	}
}

// WithIndexMetadata adds key/value pairs to every index artifact, such as the
// embedding provider and model.
func WithIndexMetadata(meta map[string]string) Option {
	return func(p *Pipeline) error {
		maps.Copy(p.indexMeta, meta)
		return nil
	}
}

// WithClock overrides the time source used for stored file names and upload times.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline storing uploads in uploadDir.
func NewPipeline(
	uploadDir string,
	extractor Extractor,
	embedder ai.Embedder,
	registry Registrar,
	opts ...Option,
) (*Pipeline, error) {
	if uploadDir == "" {
		return nil, ErrUploadDirRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	defaultChunker, err := chunker.New()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		uploadDir: uploadDir,
		extractor: extractor,
		chunker:   defaultChunker,
		registry:  registry,
		poolSize:  poolSize,
		batchSize: ai.DefaultBatchSize,
		indexMeta: make(map[string]string),
		now:       time.Now,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	// Wrap after options are applied so the pool gets the final config
	batch, err := ai.NewBatchEmbedder(embedder,
		ai.WithBatchSize(p.batchSize),
		ai.WithWorkers(p.poolSize),
		ai.WithProviderName(p.indexMeta[vectorindex.MetaEmbeddingProvider]),
		ai.WithBatchLogger(p.logger),
	)
	if err != nil {
		return nil, err
	}
	p.embedder = batch

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, &core.StorageError{Op: "mkdir", Path: uploadDir, Err: err}
	}
	return p, nil
}

// UploadDir returns the directory uploads are stored in.
func (p *Pipeline) UploadDir() string { return p.uploadDir }

// Ingest stores the content of r in the upload directory as
// "<unix-millis>-<filename>" and ingests it. The stored file is removed if
// ingestion fails.
func (p *Pipeline) Ingest(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := strconv.FormatInt(p.now().UnixMilli(), 10) + "-" + name
	path := filepath.Join(p.uploadDir, stored)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, &core.StorageError{Op: "create", Path: path, Err: err}
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		p.removeFile(path)
		return nil, &core.StorageError{Op: "write", Path: path, Err: errors.Join(copyErr, closeErr)}
	}

	return p.process(ctx, path, stored, true)
}

// IngestFile ingests a PDF already on disk. The file is left in place on failure.
// A file whose index location is already taken fails with ErrAlreadyIndexed.
func (p *Pipeline) IngestFile(ctx context.Context, path, filename string) (*Result, error) {
	if path == "" {
		return nil, core.Invalid("path", "is required")
	}
	if filename == "" {
		filename = filepath.Base(path)
	}
	return p.process(ctx, path, filename, false)
}

func (p *Pipeline) process(ctx context.Context, path, filename string, ownsSource bool) (result *Result, err error) {
	start := time.Now()
	location := vectorindex.LocationFor(path)
	indexWritten := false

	defer func() {
		if err == nil {
			return
		}
		p.logger.Error("ingestion failed", "file", filename, "err", err)
		if indexWritten {
			if rmErr := vectorindex.Remove(location); rmErr != nil {
				p.logger.Warn("failed to remove index after error", "location", location, "err", rmErr)
			}
		}
		if ownsSource {
			p.removeFile(path)
		}
	}()

	// The index location is derived from the source path, so a second
	// ingestion of the same file would overwrite, and on failure delete,
	// an index another entry may still reference.
	if existing, found := vectorindex.Resolve(location); found {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyIndexed, existing)
	}

	id := core.NewDocumentID()
	idx, pageCount, err := p.build(ctx, path, filename, id)
	if err != nil {
		return nil, err
	}

	indexWritten = true
	if err := vectorindex.Save(idx, location); err != nil {
		return nil, err
	}

	doc := &core.Document{
		ID:         id,
		SourcePath: path,
		IndexPath:  location,
		Filename:   filename,
		UploadedAt: p.now().UTC(),
		PageCount:  pageCount,
	}
	if err := p.registry.Register(ctx, doc); err != nil {
		return nil, err
	}

	p.logger.Info("ingested document",
		"id", id,
		"file", filename,
		"pages", pageCount,
		"chunks", idx.Len(),
		"duration", time.Since(start))

	return &Result{Document: doc, PageCount: pageCount, ChunkCount: idx.Len()}, nil
}

// Rebuild regenerates the index of an already registered document from its
// source PDF with the pipeline's current embedder. The document keeps its id
// and upload time; the previous index stays in place if the rebuild fails.
func (p *Pipeline) Rebuild(ctx context.Context, doc *core.Document) (*Result, error) {
	if doc == nil {
		return nil, core.Invalid("document", "is required")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	idx, pageCount, err := p.build(ctx, doc.SourcePath, doc.Filename, doc.ID)
	if err != nil {
		return nil, err
	}
	if err := vectorindex.Save(idx, doc.IndexPath); err != nil {
		return nil, err
	}

	rebuilt := *doc
	rebuilt.PageCount = pageCount
	if err := p.registry.Register(ctx, &rebuilt); err != nil {
		return nil, err
	}

	p.logger.Info("rebuilt index",
		"id", doc.ID,
		"file", doc.Filename,
		"chunks", idx.Len(),
		"duration", time.Since(start))
	return &Result{Document: &rebuilt, PageCount: pageCount, ChunkCount: idx.Len()}, nil
}

// build extracts, chunks and embeds the PDF at path into an index tagged with id.
func (p *Pipeline) build(ctx context.Context, path, filename, id string) (*vectorindex.Index, int, error) {
	pages, err := p.extractor.ExtractFile(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	p.logger.Debug("extracted text", "file", filename, "pages", len(pages))

	chunks, err := p.chunker.Split(pages)
	if err != nil {
		return nil, 0, err
	}
	if len(chunks) == 0 {
		return nil, 0, vectorindex.ErrEmptyDocument
	}
	for i := range chunks {
		chunks[i].DocumentID = id
	}

	meta := maps.Clone(p.indexMeta)
	meta[vectorindex.MetaDocumentID] = id
	meta[vectorindex.MetaSourceFile] = filename
	meta[vectorindex.MetaPageCount] = strconv.Itoa(len(pages))

	idx, err := vectorindex.Build(ctx, chunks, p.embedder, vectorindex.WithMetadata(meta))
	if err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return idx, len(pages), nil
}

func (p *Pipeline) removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("failed to remove upload after error", "path", path, "err", err)
	}
}

// SanitizeFilename reduces an uploaded file name to a safe base name with a
// .pdf extension.
func SanitizeFilename(filename string) (string, error) {
	name := strings.ReplaceAll(filename, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`<>:"|?*`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", core.Invalid("filename", "is required")
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name, nil
}
