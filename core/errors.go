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

package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds. Every error produced by the pipeline matches exactly one of these
// through errors.Is, so the request boundary can choose a status without
// knowing which component failed.
var (
	// ErrValidation indicates a missing or malformed input the caller can fix.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates an unknown document id or a missing index.
	ErrNotFound = errors.New("not found")

	// ErrProvider indicates an embedding or generation backend failure.
	ErrProvider = errors.New("provider error")

	// ErrParse indicates an unreadable PDF.
	ErrParse = errors.New("parse error")

	// ErrStorage indicates a disk read or write failure.
	ErrStorage = errors.New("storage error")

	// ErrConfig indicates a server-side misconfiguration, such as a missing
	// provider credential. Callers cannot fix it by changing the request.
	ErrConfig = errors.New("configuration error")
)

// Domain validation errors
var (
	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = fmt.Errorf("%w: invalid message", ErrValidation)

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = fmt.Errorf("%w: invalid document", ErrValidation)

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidSpeakerType indicates an invalid SpeakerType value.
	ErrInvalidSpeakerType = errors.New("invalid speaker type")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid returns a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DocumentNotFoundError reports an unknown document id.
// KnownIDs lists the ids the registry currently holds to aid debugging.
type DocumentNotFoundError struct {
	ID       string
	KnownIDs []string
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("PDF not found for ID: %s (known: %s)", e.ID, strings.Join(e.KnownIDs, ", "))
}

func (e *DocumentNotFoundError) Unwrap() error { return ErrNotFound }

// EmbeddingError reports a failed embedding call. Index is the position of the
// first text of the failing request within the caller's batch, or -1 for
// single-text calls.
type EmbeddingError struct {
	Provider string
	Index    int
	Err      error
}

func (e *EmbeddingError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: embedding text %d: %v", e.Provider, e.Index, e.Err)
	}
	return fmt.Sprintf("%s: embedding: %v", e.Provider, e.Err)
}

// Is matches ErrProvider.
func (e *EmbeddingError) Is(target error) bool { return target == ErrProvider }

func (e *EmbeddingError) Unwrap() error { return e.Err }

// GenerationError reports a failed generative model call.
type GenerationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: generation with model %q: %v", e.Provider, e.Model, e.Err)
}

// Is matches ErrProvider.
func (e *GenerationError) Is(target error) bool { return target == ErrProvider }

func (e *GenerationError) Unwrap() error { return e.Err }

// ParseError reports a PDF that could not be read.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "failed to parse PDF: " + e.Err.Error() }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError reports a failed disk operation on an upload, index or mapping file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Is matches ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func (e *StorageError) Unwrap() error { return e.Err }

// HTTPStatus maps an error to the status code the request boundary should use.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, ErrConfig):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
