package vectorindex

import (
	"errors"
	"fmt"

	"github.com/poiesic/pdfqa/core"
)

var (
	// ErrEmptyDocument indicates an index was requested for zero chunks.
	ErrEmptyDocument = fmt.Errorf("%w: document produced no chunks", core.ErrValidation)

	// ErrIndexNotFound indicates no probe location held a valid index artifact.
	ErrIndexNotFound = fmt.Errorf("%w: vector index", core.ErrNotFound)

	// ErrDimensionMismatch indicates vectors of differing lengths.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCorruptIndex indicates an artifact that failed to decode or verify.
	ErrCorruptIndex = errors.New("corrupt index artifact")

	// ErrEmbedderRequired indicates a text query against an index loaded without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)
