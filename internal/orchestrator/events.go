package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/eventbus"
)

// MessageRemoved is the payload of chat:message:removed.
type MessageRemoved struct {
	ID string `json:"id"`
}

// ConfirmationRequested is the payload of chat:confirmation:requested.
type ConfirmationRequested struct {
	ConfirmationID string       `json:"confirmation_id"`
	Message        chat.Message `json:"message"`
}

// SwitchModeRequest is the payload accepted on command:mode:switch. A plain
// string naming the mode is accepted too.
type SwitchModeRequest struct {
	Mode   string `json:"mode"`
	Reason string `json:"reason,omitempty"`
}

// Start subscribes to inbound command topics. Calling it twice is a no-op.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.unsubscribe != nil || o.bus == nil {
		return
	}

	o.unsubscribe = []func(){
		o.bus.Subscribe(eventbus.TopicCommandModeSwitch, o.onModeSwitch),
		o.bus.Subscribe(eventbus.TopicCommandModeShow, func(eventbus.Event) {
			o.ShowMode(context.Background())
		}),
	}
}

// Stop removes the subscriptions made by Start.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	subs := o.unsubscribe
	o.unsubscribe = nil
	o.mu.Unlock()

	for _, unsubscribe := range subs {
		unsubscribe()
	}
}

func (o *Orchestrator) onModeSwitch(evt eventbus.Event) {
	var req SwitchModeRequest
	switch p := evt.Payload.(type) {
	case SwitchModeRequest:
		req = p
	case *SwitchModeRequest:
		if p != nil {
			req = *p
		}
	case string:
		req.Mode = p
	default:
		slog.Warn("Ignoring mode switch event with unexpected payload", "payload_type", fmt.Sprintf("%T", evt.Payload))
		return
	}
	if req.Mode == "" {
		slog.Warn("Ignoring mode switch event without a mode")
		return
	}
	if req.Reason == "" {
		req.Reason = "event"
	}
	o.SwitchMode(context.Background(), req.Mode, req.Reason)
}
