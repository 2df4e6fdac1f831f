package reindex

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrDocumentsRequired is returned when no document source is provided.
	ErrDocumentsRequired = errors.New("document source required")

	// ErrRebuilderRequired is returned when no rebuilder is provided.
	ErrRebuilderRequired = errors.New("rebuilder required")
)
