package orchestrator

import (
	"context"
	"log/slog"

	"github.com/harunnryd/sabaki/internal/action"
	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/eventbus"
	"github.com/harunnryd/sabaki/internal/logger"
)

const (
	modifiedReply  = "The proposed actions were discarded. Tell me what you would like instead."
	cancelledReply = "Cancelled. None of the proposed actions were run."
)

// HandleConfirmation applies a human decision to a pending confirmation.
// Decisions for ids that are not pending are logged and dropped. The ledger
// entry is always gone once this returns.
func (o *Orchestrator) HandleConfirmation(ctx context.Context, id string, decision chat.ConfirmationStatus, modifiedInput string) {
	ctx = logger.WithConfirmationID(ctx, id)
	if logger.GetTraceID(ctx) == "" {
		ctx = logger.WithTraceID(ctx, chat.NewID())
	}

	if !decision.Terminal() {
		slog.Warn("Ignoring non-terminal confirmation decision", append(logger.Attrs(ctx), "decision", decision)...)
		return
	}
	if !o.ledger.Has(id) {
		slog.Info("Dropping decision for unknown confirmation", append(logger.Attrs(ctx), "decision", decision)...)
		return
	}
	defer o.ledger.Remove(id)

	if updated, ok := o.transcript.SetStatus(id, decision); ok {
		o.bus.Publish(eventbus.TopicChatMessageUpdated, updated)
	}
	slog.Info("Confirmation decided", append(logger.Attrs(ctx), "decision", decision)...)

	current := o.modes.CurrentMode()
	handler, ok := o.modes.CurrentHandler()
	if !ok {
		o.resolveConfirmation(ctx, id, decision, modifiedInput)
		return
	}

	host := o.hostFor(current)
	o.invoke(ctx, "confirmation", func() error {
		return handler.HandleConfirmation(ctx, host, id, decision, modifiedInput)
	})
}

// resolveConfirmation is the shared decision semantics handlers delegate to.
func (o *Orchestrator) resolveConfirmation(ctx context.Context, id string, decision chat.ConfirmationStatus, modifiedInput string) {
	entry, ok := o.ledger.Get(id)
	if !ok {
		slog.Info("Confirmation already resolved", append(logger.Attrs(ctx), "decision", decision)...)
		return
	}
	defer o.ledger.Remove(id)

	switch decision {
	case chat.StatusApproved:
		results := o.executeActions(ctx, entry.Actions)
		msg := o.factory.Execution(action.Summarize(results).Text(), results)
		msg.ProposedActions = entry.Actions
		msg.ConfirmationID = id
		o.emit(ctx, msg)

	case chat.StatusModified:
		o.emitAssistant(ctx, modifiedReply)

	case chat.StatusCancelled:
		o.emitAssistant(ctx, cancelledReply)
	}
}
