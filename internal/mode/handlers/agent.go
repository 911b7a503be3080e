package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/sabaki/internal/action"
	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/logger"
	"github.com/harunnryd/sabaki/internal/mode"
	"github.com/harunnryd/sabaki/internal/reasoning"
)

// Agent runs proposals on its own when the safety policy allows it and
// falls back to the confirmation protocol when it does not.
type Agent struct {
	reasoner reasoning.Proposer
	policy   SafetyPolicy
}

func NewAgent(reasoner reasoning.Proposer, policy SafetyPolicy) *Agent {
	return &Agent{reasoner: reasoner, policy: policy}
}

func (h *Agent) Mode() mode.Mode { return mode.Agent }

func (h *Agent) Name() string { return "Agent" }

func (h *Agent) Description() string {
	return "Plans and runs actions without asking, within the configured safety limits."
}

func (h *Agent) Capabilities() mode.Capabilities {
	return mode.Capabilities{UsesTools: true, Autonomous: true, UsesReasoningAgent: true}
}

func (h *Agent) CanHandleInput(text string) bool {
	return strings.TrimSpace(text) != ""
}

func (h *Agent) HandleNaturalLanguage(ctx context.Context, host mode.Host, text string, turn mode.TurnContext) error {
	proposal, err := h.reasoner.Propose(ctx, text, turn.History)
	if err != nil {
		return err
	}
	if len(proposal.Actions) == 0 {
		host.Emit(ctx, host.NewMessage(chat.TypeAssistant, nothingToRun(proposal.Thought)))
		return nil
	}

	verdict := h.policy.Evaluate(proposal.Actions)
	switch verdict.Decision {
	case DecisionBlock:
		slog.Warn("Agent plan blocked", append(logger.Attrs(ctx), "error", verdict.Err())...)
		host.Emit(ctx, host.NewMessage(chat.TypeError, "Not running this plan: "+verdict.Reason+"."))
		return nil

	case DecisionEscalate:
		content := fmt.Sprintf("Approval needed (%s). Proposed %s:\n%s",
			verdict.Reason, pluralActions(len(proposal.Actions)), action.Describe(proposal.Actions))
		host.RequestConfirmation(ctx, proposal.Actions, action.EscalationContext(text, verdict.Reason), content, proposal.Thought)
		return nil
	}

	results := host.ExecuteActions(ctx, proposal.Actions)
	msg := host.NewMessage(chat.TypeExecution, action.Summarize(results).Text())
	msg.ProposedActions = proposal.Actions
	msg.Results = results
	msg.Thought = proposal.Thought
	host.Emit(ctx, msg)
	return nil
}

func (h *Agent) HandleConfirmation(ctx context.Context, host mode.Host, id string, decision chat.ConfirmationStatus, modifiedInput string) error {
	host.ResolveConfirmation(ctx, id, decision, modifiedInput)
	return nil
}
