package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harunnryd/sabaki/internal/action"
	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/mode"
	"github.com/harunnryd/sabaki/internal/reasoning"
)

// Edit proposes actions and waits for a human decision before any of them
// run. A modification with new text is planned again under a fresh id.
type Edit struct {
	reasoner reasoning.Proposer
}

func NewEdit(reasoner reasoning.Proposer) *Edit {
	return &Edit{reasoner: reasoner}
}

func (h *Edit) Mode() mode.Mode { return mode.Edit }

func (h *Edit) Name() string { return "Edit" }

func (h *Edit) Description() string {
	return "Plans changes to the workspace and asks before running anything."
}

func (h *Edit) Capabilities() mode.Capabilities {
	return mode.Capabilities{UsesTools: true, RequiresConfirmation: true, UsesReasoningAgent: true}
}

func (h *Edit) CanHandleInput(text string) bool {
	return strings.TrimSpace(text) != ""
}

func (h *Edit) HandleNaturalLanguage(ctx context.Context, host mode.Host, text string, turn mode.TurnContext) error {
	proposal, err := h.reasoner.Propose(ctx, text, turn.History)
	if err != nil {
		return err
	}
	if len(proposal.Actions) == 0 {
		host.Emit(ctx, host.NewMessage(chat.TypeAssistant, nothingToRun(proposal.Thought)))
		return nil
	}

	content := fmt.Sprintf("Proposed %s:\n%s", pluralActions(len(proposal.Actions)), action.Describe(proposal.Actions))
	host.RequestConfirmation(ctx, proposal.Actions, action.PlanContext(text, proposal.Thought), content, proposal.Thought)
	return nil
}

func (h *Edit) HandleConfirmation(ctx context.Context, host mode.Host, id string, decision chat.ConfirmationStatus, modifiedInput string) error {
	revised := strings.TrimSpace(modifiedInput)
	if decision != chat.StatusModified || revised == "" {
		host.ResolveConfirmation(ctx, id, decision, modifiedInput)
		return nil
	}

	host.Emit(ctx, host.NewMessage(chat.TypeAssistant, "Discarded the previous plan. Planning again with your changes."))
	return h.HandleNaturalLanguage(ctx, host, revised, mode.TurnContext{
		Mode:    mode.Edit,
		History: host.History(0),
	})
}

func nothingToRun(thought string) string {
	if strings.TrimSpace(thought) == "" {
		return "Nothing needs to run for that request."
	}
	return thought
}

func pluralActions(n int) string {
	if n == 1 {
		return "1 action"
	}
	return fmt.Sprintf("%d actions", n)
}
