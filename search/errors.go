package search

import (
	"errors"

	"github.com/poiesic/pdfqa/core"
)

var (
	// ErrIndexRequired is returned when no vector index is provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrProvidersRequired is returned when no provider source is provided.
	ErrProvidersRequired = errors.New("provider source required")

	// ErrQuestionRequired is returned for an empty question.
	ErrQuestionRequired = core.Invalid("question", "is required")
)
