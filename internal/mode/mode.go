// Package mode owns the interaction mode state machine: which execution
// policy is active, which handlers implement each policy, and the journal of
// switches between them.
package mode

import (
	"context"
	"strings"
	"time"

	"github.com/harunnryd/sabaki/internal/action"
	"github.com/harunnryd/sabaki/internal/chat"
)

// Mode names an execution policy. The set is open; these are the baseline.
type Mode string

const (
	Ask   Mode = "ask"
	Edit  Mode = "edit"
	Agent Mode = "agent"
)

func Parse(s string) Mode {
	return Mode(strings.ToLower(strings.TrimSpace(s)))
}

func (m Mode) String() string { return string(m) }

// Capabilities describes a handler's policy. Display only.
type Capabilities struct {
	UsesTools            bool `json:"uses_tools" yaml:"uses_tools"`
	RequiresConfirmation bool `json:"requires_confirmation" yaml:"requires_confirmation"`
	Autonomous           bool `json:"autonomous" yaml:"autonomous"`
	UsesRouterModel      bool `json:"uses_router_model" yaml:"uses_router_model"`
	UsesReasoningAgent   bool `json:"uses_reasoning_agent" yaml:"uses_reasoning_agent"`
}

// SwitchEvent is appended to the history on every successful switch.
type SwitchEvent struct {
	From      Mode      `json:"from_mode"`
	To        Mode      `json:"to_mode"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Info is the read-only view of a registered handler.
type Info struct {
	Mode         Mode         `json:"mode" yaml:"mode"`
	Name         string       `json:"name" yaml:"name"`
	Description  string       `json:"description" yaml:"description"`
	Capabilities Capabilities `json:"capabilities" yaml:"capabilities"`
	Active       bool         `json:"active" yaml:"active"`
}

// TurnContext is what a handler gets to know about the conversation.
type TurnContext struct {
	Mode    Mode
	History []chat.Message
}

// Host is the callback surface a handler uses during a turn. The
// orchestrator implements it; handlers never keep transcript or ledger state.
type Host interface {
	// Emit appends msg to the transcript and notifies subscribers.
	Emit(ctx context.Context, msg chat.Message)
	NewMessage(t chat.MessageType, content string) chat.Message
	// RequestConfirmation stores actions in the ledger under a fresh id and
	// emits a pending confirmation message. It returns the id.
	RequestConfirmation(ctx context.Context, actions []action.Proposed, aux action.Auxiliary, content, thought string) string
	ExecuteActions(ctx context.Context, actions []action.Proposed) []action.Result
	// ResolveConfirmation applies the shared decision semantics: execute and
	// summarize, ask to restate, or acknowledge. The ledger entry is removed.
	ResolveConfirmation(ctx context.Context, id string, decision chat.ConfirmationStatus, modifiedInput string)
	History(limit int) []chat.Message
}

// Handler implements one mode's policy.
type Handler interface {
	Mode() Mode
	Name() string
	Description() string
	Capabilities() Capabilities
	CanHandleInput(text string) bool
	HandleNaturalLanguage(ctx context.Context, host Host, text string, turn TurnContext) error
	HandleConfirmation(ctx context.Context, host Host, id string, decision chat.ConfirmationStatus, modifiedInput string) error
}

// Summary renders a handler's capabilities as one human-readable line.
func Summary(info Info) string {
	c := info.Capabilities
	var parts []string
	if c.UsesTools {
		parts = append(parts, "proposes actions")
	} else {
		parts = append(parts, "conversation only")
	}
	if c.RequiresConfirmation {
		parts = append(parts, "every action needs your approval")
	}
	if c.Autonomous {
		parts = append(parts, "runs actions on its own within safety limits")
	}
	return info.Name + ": " + strings.Join(parts, ", ")
}
