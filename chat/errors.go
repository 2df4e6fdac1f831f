package chat

import (
	"errors"
	"fmt"

	"github.com/poiesic/pdfqa/core"
)

var (
	// ErrProvidersRequired is returned when no provider source is provided.
	ErrProvidersRequired = errors.New("provider source required")

	// ErrRepositoryRequired is returned when no conversation repository is provided.
	ErrRepositoryRequired = errors.New("conversation repository required")

	// ErrPromptRequired is returned for an empty user prompt.
	ErrPromptRequired = core.Invalid("userPrompt", "is required")

	// ErrUnknownScenario is returned for a scenario name with no template.
	ErrUnknownScenario = fmt.Errorf("%w: scenario", core.ErrNotFound)
)
