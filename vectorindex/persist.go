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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/pdfqa/ai"
	"github.com/poiesic/pdfqa/core"
)

// FileName is the artifact name inside an index location directory.
const FileName = "index.faiss"

// LocationFor derives an index location from a source file path by
// stripping its extension.
func LocationFor(sourcePath string) string {
	return strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath))
}

// Probes lists the paths Load tries for location, in order.
func Probes(location string) []string {
	return []string{
		location,
		location + ".faiss",
		filepath.Join(location, FileName),
	}
}

// Resolve returns the first probe that exists as a regular file.
func Resolve(location string) (string, bool) {
	for _, p := range Probes(location) {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

// Save writes idx to <location>/index.faiss. The artifact is written to a
// temporary file in the same directory and renamed into place, so readers see
// either the previous artifact or the complete new one.
func Save(idx *Index, location string) error {
	if idx == nil || idx.Len() == 0 {
		return ErrEmptyDocument
	}
	if err := os.MkdirAll(location, 0o755); err != nil {
		return &core.StorageError{Op: "mkdir", Path: location, Err: err}
	}

	target := filepath.Join(location, FileName)
	tmp, err := os.CreateTemp(location, ".index-*.tmp")
	if err != nil {
		return &core.StorageError{Op: "create", Path: location, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(encode(idx)); err != nil {
		tmp.Close()
		cleanup()
		return &core.StorageError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return &core.StorageError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &core.StorageError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return &core.StorageError{Op: "rename", Path: target, Err: err}
	}
	return nil
}

// Load reads the first valid artifact among Probes(location) and attaches
// embedder for text queries. The embedder is never called. When no probe
// holds a valid artifact Load fails with ErrIndexNotFound.
func Load(location string, embedder ai.Embedder) (*Index, error) {
	idx, _, err := load(location)
	if err != nil {
		return nil, err
	}
	idx.embedder = embedder
	return idx, nil
}

// ReadMetadata returns the metadata of the artifact Load would pick.
func ReadMetadata(location string) (map[string]string, error) {
	idx, _, err := load(location)
	if err != nil {
		return nil, err
	}
	return idx.Metadata(), nil
}

func load(location string) (*Index, string, error) {
	logger := slog.Default().With("component", "vectorindex")
	var invalid []string
	for _, p := range Probes(location) {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Warn("unreadable index artifact", "path", p, "err", err)
			invalid = append(invalid, p)
			continue
		}
		idx, err := decode(data)
		if err != nil {
			logger.Warn("invalid index artifact", "path", p, "err", err)
			invalid = append(invalid, p)
			continue
		}
		return idx, p, nil
	}
	if len(invalid) > 0 {
		return nil, "", fmt.Errorf("%w at %s (invalid: %s)", ErrIndexNotFound, location, strings.Join(invalid, ", "))
	}
	return nil, "", fmt.Errorf("%w at %s", ErrIndexNotFound, location)
}

// Remove deletes the artifact directory written by Save for location.
// A missing directory is not an error.
func Remove(location string) error {
	err := os.RemoveAll(location)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &core.StorageError{Op: "remove", Path: location, Err: err}
	}
	return nil
}
