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
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/vectorindex"
)

type candidate struct {
	name     string
	path     string
	location string
	info     os.FileInfo
	meta     map[string]string
}

// RecoverByScan looks for exactly one PDF in the upload directory that has a
// valid index artifact and is not referenced by any entry. When found, it is
// registered under id and returned. Zero or several candidates fail with
// *core.DocumentNotFoundError; the registry never guesses.
func (r *Registry) RecoverByScan(ctx context.Context, id string) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, core.Invalid("pdfId", "is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.read()
	if err != nil {
		return nil, err
	}
	if rec, ok := records[id]; ok {
		return rec.document(id), nil
	}

	candidates, err := r.orphans(records)
	if err != nil {
		return nil, err
	}
	if len(candidates) != 1 {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.name
		}
		r.logger.Warn("recovery found no unique candidate", "id", id, "candidates", len(candidates), "files", names)
		return nil, &core.DocumentNotFoundError{ID: id, KnownIDs: sortedIDs(records)}
	}

	c := candidates[0]
	pageCount, _ := strconv.Atoi(c.meta[vectorindex.MetaPageCount])
	doc := &core.Document{
		ID:         id,
		SourcePath: c.path,
		IndexPath:  c.location,
		Filename:   c.name,
		UploadedAt: c.info.ModTime().UTC(),
		PageCount:  pageCount,
	}
	records[id] = toRecord(doc)
	if err := r.write(records); err != nil {
		return nil, err
	}

	r.logger.Info("recovered document by scan", "id", id, "file", c.name)
	return doc, nil
}

// orphans lists PDFs with a readable index that no record references.
// Callers must hold r.mu.
func (r *Registry) orphans(records map[string]record) ([]candidate, error) {
	referenced := make(map[string]struct{}, len(records)*2)
	for _, rec := range records {
		referenced[filepath.Clean(rec.FilePath)] = struct{}{}
		referenced[filepath.Clean(rec.IndexPath)] = struct{}{}
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, &core.StorageError{Op: "scan", Path: r.dir, Err: err}
	}

	var out []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(r.dir, e.Name())
		location := vectorindex.LocationFor(path)
		if _, ok := referenced[filepath.Clean(path)]; ok {
			continue
		}
		if _, ok := referenced[filepath.Clean(location)]; ok {
			continue
		}
		meta, err := vectorindex.ReadMetadata(location)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, candidate{name: e.Name(), path: path, location: location, info: info, meta: meta})
	}
	return out, nil
}
