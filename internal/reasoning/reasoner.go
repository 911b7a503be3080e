// Package reasoning turns a natural-language request into proposed actions
// by asking a language model for a structured plan.
package reasoning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/sabaki/internal/action"
	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/config"
	sabakiErrors "github.com/harunnryd/sabaki/internal/errors"
	"github.com/harunnryd/sabaki/internal/logger"
	"github.com/harunnryd/sabaki/internal/model"
	"github.com/harunnryd/sabaki/internal/model/contract"
)

// Proposal is the reasoner's answer for one request. Actions may be empty
// when the model decided nothing needs to run.
type Proposal struct {
	Thought string
	Actions []action.Proposed
}

// Proposer is what the edit and agent handlers depend on.
type Proposer interface {
	Propose(ctx context.Context, text string, history []chat.Message) (Proposal, error)
}

type Catalog interface {
	Catalog() []action.CatalogEntry
}

type PromptConfig struct {
	System string
	Output string
}

type Reasoner struct {
	llm     model.ChatCompleter
	catalog Catalog
	prompts PromptConfig
}

func NewReasoner(llm model.ChatCompleter, catalog Catalog, prompts PromptConfig) *Reasoner {
	if strings.TrimSpace(prompts.System) == "" {
		prompts.System = config.DefaultReasonerSystemPrompt
	}
	if strings.TrimSpace(prompts.Output) == "" {
		prompts.Output = config.DefaultReasonerOutputPrompt
	}
	return &Reasoner{llm: llm, catalog: catalog, prompts: prompts}
}

func (r *Reasoner) Propose(ctx context.Context, text string, history []chat.Message) (Proposal, error) {
	messages := make([]contract.Message, 0, len(history)+2)
	messages = append(messages, contract.Message{Role: contract.RoleSystem, Content: r.systemPrompt()})
	messages = append(messages, chat.ToContract(history)...)
	messages = append(messages, contract.Message{Role: contract.RoleUser, Content: text})

	reply, err := r.llm.Complete(ctx, messages)
	if err != nil {
		return Proposal{}, fmt.Errorf("reasoning failed: %w", err)
	}

	thought, actions, mode, ok := parseProposal(reply)
	if !ok {
		slog.Warn("Reasoner reply could not be parsed", append(logger.Attrs(ctx), "reply_len", len(reply))...)
		return Proposal{}, sabakiErrors.InvalidModelOutput("reasoner reply is not a valid proposal")
	}
	if mode != parseModeJSONObject {
		slog.Debug("Reasoner fallback parser used", "mode", mode, "actions", len(actions))
	}

	for i := range actions {
		actions[i].ID = chat.NewID()
	}
	return Proposal{Thought: thought, Actions: actions}, nil
}

func (r *Reasoner) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString(r.prompts.System)
	sb.WriteString("\n\nAvailable action kinds:\n")
	if r.catalog != nil {
		for _, entry := range r.catalog.Catalog() {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", entry.Kind, entry.Description))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(r.prompts.Output)
	return sb.String()
}
