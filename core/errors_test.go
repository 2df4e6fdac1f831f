package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name   string
		err    error
		kind   error
		status int
	}{
		{"validation", Invalid("question", "is required"), ErrValidation, http.StatusBadRequest},
		{"not found", &DocumentNotFoundError{ID: "x"}, ErrNotFound, http.StatusNotFound},
		{"embedding", &EmbeddingError{Provider: "gemini", Index: 3, Err: cause}, ErrProvider, http.StatusBadGateway},
		{"generation", &GenerationError{Provider: "gemini", Model: "gemini-pro", Err: cause}, ErrProvider, http.StatusBadGateway},
		{"parse", &ParseError{Err: cause}, ErrParse, http.StatusBadRequest},
		{"storage", &StorageError{Op: "write", Path: "/tmp/x", Err: cause}, ErrStorage, http.StatusInternalServerError},
		{"config", fmt.Errorf("%w: APIKey is required", ErrConfig), ErrConfig, http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("ingest: %w", &ParseError{Err: cause}), ErrParse, http.StatusBadRequest},
		{"plain", cause, nil, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.kind != nil {
				assert.ErrorIs(t, tt.err, tt.kind)
			}
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}

	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
}

func TestTypedErrorsUnwrapCause(t *testing.T) {
	cause := errors.New("disk full")

	assert.ErrorIs(t, &StorageError{Op: "write", Path: "p", Err: cause}, cause)
	assert.ErrorIs(t, &EmbeddingError{Provider: "p", Index: -1, Err: cause}, cause)
	assert.ErrorIs(t, &GenerationError{Provider: "p", Err: cause}, cause)
	assert.ErrorIs(t, &ParseError{Err: cause}, cause)
}

func TestErrorMessages(t *testing.T) {
	err := &DocumentNotFoundError{ID: "abc", KnownIDs: []string{"one", "two"}}
	assert.Equal(t, "PDF not found for ID: abc (known: one, two)", err.Error())

	assert.Equal(t, "gemini: embedding text 4: boom", (&EmbeddingError{Provider: "gemini", Index: 4, Err: errors.New("boom")}).Error())
	assert.Equal(t, "gemini: embedding: boom", (&EmbeddingError{Provider: "gemini", Index: -1, Err: errors.New("boom")}).Error())
	assert.Equal(t, "question: is required", Invalid("question", "is required").Error())
	assert.Equal(t, "bad input", (&ValidationError{Reason: "bad input"}).Error())
}
