package orchestrator

import (
	"context"
	"log/slog"

	"github.com/harunnryd/sabaki/internal/action"
	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/eventbus"
	"github.com/harunnryd/sabaki/internal/logger"
	"github.com/harunnryd/sabaki/internal/mode"
)

// turnHost is the mode.Host handed to a handler for one call. It remembers
// the mode the call started in so late results can be fenced off.
type turnHost struct {
	o       *Orchestrator
	started mode.Mode
}

func (o *Orchestrator) hostFor(started mode.Mode) *turnHost {
	return &turnHost{o: o, started: started}
}

// stale reports whether the mode changed since the call started and the
// orchestrator is configured to drop such results.
func (h *turnHost) stale(ctx context.Context, what string) bool {
	if !h.o.opts.DiscardStaleResults {
		return false
	}
	current := h.o.modes.CurrentMode()
	if current == h.started {
		return false
	}
	slog.Warn("Discarding result from a previous mode", append(logger.Attrs(ctx), "what", what, "started", h.started, "current", current)...)
	return true
}

func (h *turnHost) Emit(ctx context.Context, msg chat.Message) {
	if h.stale(ctx, "message") {
		return
	}
	h.o.emit(ctx, msg)
}

func (h *turnHost) NewMessage(t chat.MessageType, content string) chat.Message {
	return h.o.factory.New(t, content)
}

func (h *turnHost) RequestConfirmation(ctx context.Context, actions []action.Proposed, aux action.Auxiliary, content, thought string) string {
	if h.stale(ctx, "confirmation") {
		return ""
	}
	return h.o.requestConfirmation(ctx, actions, aux, content, thought)
}

func (h *turnHost) ExecuteActions(ctx context.Context, actions []action.Proposed) []action.Result {
	if h.stale(ctx, "execution") {
		return nil
	}
	return h.o.executeActions(ctx, actions)
}

func (h *turnHost) ResolveConfirmation(ctx context.Context, id string, decision chat.ConfirmationStatus, modifiedInput string) {
	h.o.resolveConfirmation(ctx, id, decision, modifiedInput)
}

func (h *turnHost) History(limit int) []chat.Message {
	if limit <= 0 {
		limit = h.o.opts.ContextMessages
	}
	return h.o.transcript.Recent(limit)
}

// requestConfirmation records actions in the ledger before the pending
// message becomes visible.
func (o *Orchestrator) requestConfirmation(ctx context.Context, actions []action.Proposed, aux action.Auxiliary, content, thought string) string {
	id := chat.NewID()
	o.ledger.Add(id, actions, aux)

	msg := o.factory.Confirmation(id, content, actions, thought)
	o.emit(ctx, msg)
	o.bus.Publish(eventbus.TopicConfirmationRequested, ConfirmationRequested{ConfirmationID: id, Message: msg})

	slog.Info("Confirmation requested", append(logger.Attrs(ctx), "confirmation_id", id, "actions", len(actions), "aux", aux.Kind)...)
	return id
}

var _ mode.Host = (*turnHost)(nil)
