package core

import (
	"fmt"
	"strings"
	"time"
)

// clockSkew tolerates small differences between the caller's clock and ours.
const clockSkew = time.Minute

// Validate checks that a Message is ready to be stored.
func (m *Message) Validate() error {
	if strings.TrimSpace(m.ConversationID) == "" {
		return fmt.Errorf("%w: conversation id is required", ErrInvalidMessage)
	}
	if m.Speaker != SpeakerTypeHuman && m.Speaker != SpeakerTypeAI {
		return fmt.Errorf("%w: %w: %d", ErrInvalidMessage, ErrInvalidSpeakerType, m.Speaker)
	}
	if m.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyContent)
	}
	if m.Timestamp.After(time.Now().Add(clockSkew)) {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidTimestamp)
	}
	return nil
}

// Validate checks that a Document is complete enough to register.
func (d *Document) Validate() error {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidDocument)
	case d.SourcePath == "":
		return fmt.Errorf("%w: source path is required", ErrInvalidDocument)
	case d.IndexPath == "":
		return fmt.Errorf("%w: index path is required", ErrInvalidDocument)
	case d.PageCount < 0:
		return fmt.Errorf("%w: page count cannot be negative", ErrInvalidDocument)
	}
	return nil
}
