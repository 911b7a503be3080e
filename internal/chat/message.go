// Package chat holds the conversation transcript: message values, the
// factory that mints them, and the bounded in-memory list they live in.
package chat

import (
	"time"

	"github.com/harunnryd/sabaki/internal/action"

	"github.com/oklog/ulid/v2"
)

type MessageType string

const (
	TypeUser         MessageType = "user"
	TypeAssistant    MessageType = "assistant"
	TypeExecution    MessageType = "execution"
	TypeConfirmation MessageType = "confirmation"
	TypeError        MessageType = "error"
)

// ConfirmationStatus is pending until a decision arrives; the other values
// are terminal for that confirmation id.
type ConfirmationStatus string

const (
	StatusNone      ConfirmationStatus = ""
	StatusPending   ConfirmationStatus = "pending"
	StatusApproved  ConfirmationStatus = "approved"
	StatusModified  ConfirmationStatus = "modified"
	StatusCancelled ConfirmationStatus = "cancelled"
)

// ParseDecision accepts the three terminal statuses.
func ParseDecision(s string) (ConfirmationStatus, bool) {
	switch ConfirmationStatus(s) {
	case StatusApproved, StatusModified, StatusCancelled:
		return ConfirmationStatus(s), true
	}
	return StatusNone, false
}

func (s ConfirmationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusModified || s == StatusCancelled
}

type Message struct {
	ID              string             `json:"id"`
	Type            MessageType        `json:"type"`
	Content         string             `json:"content"`
	Timestamp       time.Time          `json:"timestamp"`
	ProposedActions []action.Proposed  `json:"proposed_actions,omitempty"`
	Results         []action.Result    `json:"results,omitempty"`
	Thought         string             `json:"thought,omitempty"`
	ConfirmationID  string             `json:"confirmation_id,omitempty"`
	Status          ConfirmationStatus `json:"status,omitempty"`
}

// Pending reports whether m is a confirmation still awaiting a decision.
func (m Message) Pending() bool {
	return m.Type == TypeConfirmation && m.Status == StatusPending
}

// Factory is the only place messages are created.
type Factory struct {
	now func() time.Time
}

func NewFactory() *Factory {
	return &Factory{now: time.Now}
}

// NewID returns a fresh, lexically sortable identifier.
func NewID() string {
	return ulid.Make().String()
}

func (f *Factory) New(t MessageType, content string) Message {
	now := time.Now
	if f != nil && f.now != nil {
		now = f.now
	}
	return Message{
		ID:        NewID(),
		Type:      t,
		Content:   content,
		Timestamp: now(),
	}
}

func (f *Factory) Confirmation(confirmationID, content string, actions []action.Proposed, thought string) Message {
	msg := f.New(TypeConfirmation, content)
	msg.ConfirmationID = confirmationID
	msg.Status = StatusPending
	msg.ProposedActions = append([]action.Proposed(nil), actions...)
	msg.Thought = thought
	return msg
}

func (f *Factory) Execution(content string, results []action.Result) Message {
	msg := f.New(TypeExecution, content)
	msg.Results = append([]action.Result(nil), results...)
	return msg
}
