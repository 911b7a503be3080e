package model

import (
	"context"

	"github.com/harunnryd/sabaki/internal/model/contract"
)

type generator interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

// ProviderAdapter attaches a registry name and provider type to a
// provider-specific client so it satisfies Provider.
type ProviderAdapter struct {
	provider     generator
	name         string
	providerType string
}

func NewProviderAdapter(name, providerType string, provider generator) *ProviderAdapter {
	return &ProviderAdapter{provider: provider, name: name, providerType: providerType}
}

func (a *ProviderAdapter) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	if req.Model == "" {
		req.Model = a.name
	}
	return a.provider.Generate(ctx, req)
}

func (a *ProviderAdapter) Name() string {
	return a.name
}

func (a *ProviderAdapter) Type() string {
	return a.providerType
}
