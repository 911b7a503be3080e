package model

import (
	"context"

	"github.com/harunnryd/sabaki/internal/model/contract"
)

type ModelRouter interface {
	Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	ListModels() []string
	Health(ctx context.Context) error
}

type Provider interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Name() string
	Type() string
}

// ChatCompleter is the single chat-completion call handlers depend on.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []contract.Message) (string, error)
}
