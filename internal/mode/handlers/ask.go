// Package handlers implements the baseline interaction modes.
package handlers

import (
	"context"
	"strings"

	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/config"
	"github.com/harunnryd/sabaki/internal/mode"
	"github.com/harunnryd/sabaki/internal/model"
	"github.com/harunnryd/sabaki/internal/model/contract"
)

// Ask only talks. It never proposes or runs actions.
type Ask struct {
	llm    model.ChatCompleter
	system string
}

func NewAsk(llm model.ChatCompleter, systemPrompt string) *Ask {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = config.DefaultAskSystemPrompt
	}
	return &Ask{llm: llm, system: systemPrompt}
}

func (h *Ask) Mode() mode.Mode { return mode.Ask }

func (h *Ask) Name() string { return "Ask" }

func (h *Ask) Description() string {
	return "Conversation only. Answers questions without touching the workspace."
}

func (h *Ask) Capabilities() mode.Capabilities {
	return mode.Capabilities{UsesRouterModel: true}
}

func (h *Ask) CanHandleInput(text string) bool { return true }

func (h *Ask) HandleNaturalLanguage(ctx context.Context, host mode.Host, text string, turn mode.TurnContext) error {
	messages := make([]contract.Message, 0, len(turn.History)+2)
	messages = append(messages, contract.Message{Role: contract.RoleSystem, Content: h.system})
	messages = append(messages, chat.ToContract(turn.History)...)
	messages = append(messages, contract.Message{Role: contract.RoleUser, Content: text})

	reply, err := h.llm.Complete(ctx, messages)
	if err != nil {
		return err
	}
	host.Emit(ctx, host.NewMessage(chat.TypeAssistant, strings.TrimSpace(reply)))
	return nil
}

func (h *Ask) HandleConfirmation(ctx context.Context, host mode.Host, id string, decision chat.ConfirmationStatus, modifiedInput string) error {
	host.ResolveConfirmation(ctx, id, decision, modifiedInput)
	return nil
}

var (
	_ mode.Handler = (*Ask)(nil)
	_ mode.Handler = (*Edit)(nil)
	_ mode.Handler = (*Agent)(nil)
)
