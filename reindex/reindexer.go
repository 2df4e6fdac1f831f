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

package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/pdfqa/core"
	"github.com/poiesic/pdfqa/ingestion"
)

// Documents lists registered documents.
type Documents interface {
	List(ctx context.Context) ([]*core.Document, error)
}

// Rebuilder regenerates the index of one document.
type Rebuilder interface {
	Rebuild(ctx context.Context, doc *core.Document) (*ingestion.Result, error)
}

// Config holds configuration for a reindex run.
type Config struct {
	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per document
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReportInterval: 1,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Validate checks the config values.
func (c *Config) Validate() error {
	switch {
	case c.ReportInterval <= 0:
		return core.Invalid("report-interval", "must be greater than 0")
	case c.MaxRetries <= 0:
		return core.Invalid("max-retries", "must be greater than 0")
	case c.RetryDelay < 0:
		return core.Invalid("retry-delay", "cannot be negative")
	}
	return nil
}

// Summary is the outcome of a run.
type Summary struct {
	Total    int
	Rebuilt  int
	Failed   map[string]error // Keyed by document id
	Duration time.Duration
}

// Reindexer orchestrates rebuilding the indexes of registered documents.
type Reindexer struct {
	documents Documents
	rebuilder Rebuilder
	config    *Config
	progress  io.Writer
	logger    *slog.Logger
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(documents Documents, rebuilder Rebuilder, config *Config, progress io.Writer) (*Reindexer, error) {
	if documents == nil {
		return nil, ErrDocumentsRequired
	}
	if rebuilder == nil {
		return nil, ErrRebuilderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reindexer{
		documents: documents,
		rebuilder: rebuilder,
		config:    config,
		progress:  progress,
		logger:    slog.Default().With("component", "reindex"),
	}, nil
}

// Run rebuilds the documents named by ids, or every registered document when
// ids is empty. Provider failures are retried; other failures are recorded in
// the summary and the run moves on. Only listing failures and cancellation
// abort the run.
func (r *Reindexer) Run(ctx context.Context, ids ...string) (*Summary, error) {
	docs, err := r.selectDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(docs), Failed: make(map[string]error)}
	if len(docs) == 0 {
		fmt.Fprintf(r.progress, "No documents found (0 documents)\n")
		return summary, nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d documents\n", len(docs))

	tracker := NewProgressTracker(r.progress, len(docs), r.config.ReportInterval)
	tracker.Start()

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			summary.Duration = tracker.Elapsed()
			return summary, err
		}

		err := RetryWithBackoff(ctx, func() error {
			_, err := r.rebuilder.Rebuild(ctx, doc)
			if err != nil && !errors.Is(err, core.ErrProvider) {
				return Permanent(err)
			}
			return err
		}, r.config.MaxRetries, r.config.RetryDelay)

		switch {
		case err == nil:
			summary.Rebuilt++
		case ctx.Err() != nil:
			summary.Duration = tracker.Elapsed()
			return summary, ctx.Err()
		default:
			r.logger.Error("failed to rebuild index", "id", doc.ID, "file", doc.Filename, "err", err)
			summary.Failed[doc.ID] = err
		}
		tracker.Increment(1)
	}

	tracker.Finish()
	summary.Duration = tracker.Elapsed()

	fmt.Fprintf(r.progress, "Reindex complete. Rebuilt %d of %d documents in %v\n",
		summary.Rebuilt, summary.Total, summary.Duration.Round(time.Millisecond))
	return summary, nil
}

func (r *Reindexer) selectDocuments(ctx context.Context, ids []string) ([]*core.Document, error) {
	docs, err := r.documents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(ids) == 0 {
		return docs, nil
	}

	byID := make(map[string]*core.Document, len(docs))
	known := make([]string, 0, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
		known = append(known, doc.ID)
	}
	slices.Sort(known)

	selected := make([]*core.Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := byID[id]
		if !ok {
			return nil, &core.DocumentNotFoundError{ID: id, KnownIDs: known}
		}
		selected = append(selected, doc)
	}
	return selected, nil
}
