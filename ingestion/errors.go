package ingestion

import (
	"errors"
	"fmt"

	"github.com/poiesic/pdfqa/core"
)

var (
	// ErrUploadDirRequired is returned when an upload directory is not provided.
	ErrUploadDirRequired = errors.New("upload directory required")

	// ErrExtractorRequired is returned when a text extractor is not provided.
	ErrExtractorRequired = errors.New("text extractor required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRegistryRequired is returned when a document registry is not provided.
	ErrRegistryRequired = errors.New("document registry required")

	// ErrAlreadyIndexed is returned when the source file already has an index
	// on disk. Registered documents are rebuilt with Rebuild instead.
	ErrAlreadyIndexed = fmt.Errorf("%w: source already has an index", core.ErrValidation)
)
