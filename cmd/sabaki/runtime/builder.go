package runtime

import (
	"context"
	"fmt"

	"github.com/harunnryd/sabaki/internal/config"

	"github.com/oklog/ulid/v2"
)

type RuntimeBuilder interface {
	WithContext(ctx context.Context) RuntimeBuilder
	WithConfig(cfg *config.Config) RuntimeBuilder
	WithSession(sessionID string) RuntimeBuilder
	WithCollaborators(collab Collaborators) RuntimeBuilder
	Build() (*RuntimeComponents, error)
}

type DefaultRuntimeBuilder struct {
	ctx       context.Context
	cfg       *config.Config
	sessionID string
	collab    *Collaborators
}

func NewRuntimeBuilder() RuntimeBuilder {
	return &DefaultRuntimeBuilder{}
}

func (b *DefaultRuntimeBuilder) WithContext(ctx context.Context) RuntimeBuilder {
	b.ctx = ctx
	return b
}

func (b *DefaultRuntimeBuilder) WithConfig(cfg *config.Config) RuntimeBuilder {
	b.cfg = cfg
	return b
}

func (b *DefaultRuntimeBuilder) WithSession(sessionID string) RuntimeBuilder {
	b.sessionID = sessionID
	return b
}

// WithCollaborators replaces the router and action runners built from config.
func (b *DefaultRuntimeBuilder) WithCollaborators(collab Collaborators) RuntimeBuilder {
	b.collab = &collab
	return b
}

func (b *DefaultRuntimeBuilder) Build() (*RuntimeComponents, error) {
	if b.ctx == nil {
		b.ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if b.sessionID == "" {
		b.sessionID = NewSessionID()
	}

	if b.collab == nil {
		return NewRuntimeComponents(b.ctx, b.cfg, b.sessionID)
	}

	ctx, cancel := context.WithCancel(b.ctx)
	components, err := assemble(ctx, b.cfg, b.sessionID, *b.collab)
	if err != nil {
		cancel()
		return nil, err
	}
	components.Cancel = cancel
	return components, nil
}

func NewSessionID() string {
	return "cli-" + ulid.Make().String()
}
