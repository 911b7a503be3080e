package ingress

import (
	"time"

	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	TypeUserInput EventType = "user_input"
	TypeDecision  EventType = "decision"
)

// Event is one unit of work for a session.
type Event struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"` // "cli", "bus"
	SessionID string    `json:"session_id"`
	Type      EventType `json:"type"`

	// TypeUserInput
	Content string `json:"content,omitempty"`

	// TypeDecision
	ConfirmationID string                  `json:"confirmation_id,omitempty"`
	Decision       chat.ConfirmationStatus `json:"decision,omitempty"`
	ModifiedInput  string                  `json:"modified_input,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewInput wraps a line of operator input.
func NewInput(source, sessionID, content string) Event {
	return Event{
		ID:        ulid.Make().String(),
		Source:    source,
		SessionID: sessionID,
		Type:      TypeUserInput,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewDecision wraps a confirmation decision made outside the command line.
func NewDecision(source, sessionID, confirmationID string, decision chat.ConfirmationStatus, modifiedInput string) Event {
	return Event{
		ID:             ulid.Make().String(),
		Source:         source,
		SessionID:      sessionID,
		Type:           TypeDecision,
		ConfirmationID: confirmationID,
		Decision:       decision,
		ModifiedInput:  modifiedInput,
		CreatedAt:      time.Now(),
	}
}
