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

package registry

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/poiesic/pdfqa/core"
)

// MetadataFile is the mapping file name inside the upload directory.
const MetadataFile = "pdf_metadata.json"

var json = sonic.ConfigStd

// record is the on-disk form of a Document.
type record struct {
	FilePath   string    `json:"filePath"`
	IndexPath  string    `json:"indexPath"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploadedAt"`
	PageCount  int       `json:"pageCount"`
}

func toRecord(doc *core.Document) record {
	return record{
		FilePath:   doc.SourcePath,
		IndexPath:  doc.IndexPath,
		Filename:   doc.Filename,
		UploadedAt: doc.UploadedAt.UTC(),
		PageCount:  doc.PageCount,
	}
}

func (r record) document(id string) *core.Document {
	return &core.Document{
		ID:         id,
		SourcePath: r.FilePath,
		IndexPath:  r.IndexPath,
		Filename:   r.Filename,
		UploadedAt: r.UploadedAt,
		PageCount:  r.PageCount,
	}
}

// Registry is the durable id to Document mapping.
// It is safe for concurrent use within one process.
type Registry struct {
	dir    string
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// New opens the registry stored in uploadDir, creating the directory if needed.
func New(uploadDir string, opts ...Option) (*Registry, error) {
	if uploadDir == "" {
		return nil, ErrUploadDirRequired
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, &core.StorageError{Op: "mkdir", Path: uploadDir, Err: err}
	}

	r := &Registry{
		dir:    uploadDir,
		path:   filepath.Join(uploadDir, MetadataFile),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "registry")
	return r, nil
}

// Dir returns the upload directory.
func (r *Registry) Dir() string { return r.dir }

// Register stores doc under doc.ID, replacing any previous entry.
func (r *Registry) Register(ctx context.Context, doc *core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return core.Invalid("document", "is required")
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.read()
	if err != nil {
		return err
	}
	records[doc.ID] = toRecord(doc)
	if err := r.write(records); err != nil {
		return err
	}
	r.logger.Info("registered document", "id", doc.ID, "file", doc.Filename, "documents", len(records))
	return nil
}

// Get returns the Document registered under id. A missing id fails with
// *core.DocumentNotFoundError listing the known ids.
func (r *Registry) Get(ctx context.Context, id string) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.read()
	if err != nil {
		return nil, err
	}
	rec, ok := records[id]
	if !ok {
		return nil, &core.DocumentNotFoundError{ID: id, KnownIDs: sortedIDs(records)}
	}
	return rec.document(id), nil
}

// List returns every Document, newest upload first.
func (r *Registry) List(ctx context.Context) ([]*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	records, err := r.read()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	docs := make([]*core.Document, 0, len(records))
	for id, rec := range records {
		docs = append(docs, rec.document(id))
	}
	slices.SortFunc(docs, func(a, b *core.Document) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return docs, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.read()
	if err != nil {
		return nil, err
	}
	return sortedIDs(records), nil
}

// Lookup returns the Document for id, recovering it by scan when the
// mapping has no entry.
func (r *Registry) Lookup(ctx context.Context, id string) (*core.Document, error) {
	doc, err := r.Get(ctx, id)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	return r.RecoverByScan(ctx, id)
}

// read loads the mapping. A missing file is an empty mapping.
// Callers must hold r.mu.
func (r *Registry) read() (map[string]record, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]record), nil
	}
	if err != nil {
		return nil, &core.StorageError{Op: "read", Path: r.path, Err: err}
	}

	records := make(map[string]record)
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &core.StorageError{Op: "decode", Path: r.path, Err: err}
	}
	return records, nil
}

// write replaces the mapping file atomically.
// Callers must hold r.mu.
func (r *Registry) write(records map[string]record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &core.StorageError{Op: "encode", Path: r.path, Err: err}
	}

	tmp, err := os.CreateTemp(r.dir, ".pdf_metadata-*.tmp")
	if err != nil {
		return &core.StorageError{Op: "create", Path: r.dir, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &core.StorageError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &core.StorageError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return &core.StorageError{Op: "rename", Path: r.path, Err: err}
	}
	return nil
}

func sortedIDs(records map[string]record) []string {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
