package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/sabaki/internal/action"
	_ "github.com/harunnryd/sabaki/internal/action/builtin"
	"github.com/harunnryd/sabaki/internal/config"
	"github.com/harunnryd/sabaki/internal/eventbus"
	"github.com/harunnryd/sabaki/internal/ingress"
	"github.com/harunnryd/sabaki/internal/mode"
	"github.com/harunnryd/sabaki/internal/mode/handlers"
	"github.com/harunnryd/sabaki/internal/model"
	"github.com/harunnryd/sabaki/internal/orchestrator"
	"github.com/harunnryd/sabaki/internal/reasoning"
)

type RuntimeComponents struct {
	Ctx    context.Context
	Cancel context.CancelFunc

	Config    *config.Config
	SessionID string

	Bus          *eventbus.Bus
	Router       model.ModelRouter
	Actions      *action.Registry
	Modes        *mode.Manager
	Orchestrator *orchestrator.Orchestrator
	Ingress      *ingress.Queue
}

// Collaborators are the optional pieces handlers are built from. A nil field
// leaves the handlers that need it unregistered.
type Collaborators struct {
	Router   model.ModelRouter
	Actions  *action.Registry
	Executor orchestrator.Executor
}

func NewRuntimeComponents(ctx context.Context, cfg *config.Config, sessionID string) (*RuntimeComponents, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	collab, err := defaultCollaborators(cfg)
	if err != nil {
		cancel()
		return nil, err
	}

	c, err := assemble(ctx, cfg, sessionID, collab)
	if err != nil {
		cancel()
		return nil, err
	}
	c.Cancel = cancel
	return c, nil
}

func defaultCollaborators(cfg *config.Config) (Collaborators, error) {
	var collab Collaborators

	router, err := model.NewModelRouter(cfg.Models)
	if err != nil {
		slog.Warn("Model router unavailable, model-backed modes are disabled", "error", err)
	} else if len(router.ListModels()) > 0 {
		collab.Router = router
	}

	timeout, err := cfg.Actions.ShellTimeoutDuration()
	if err != nil {
		return collab, err
	}
	registry := action.NewRegistry()
	if err := registry.LoadBuiltins(action.BuiltinOptions{
		Workdir:        cfg.Actions.Workdir,
		ShellTimeout:   timeout,
		MaxOutputBytes: cfg.Actions.MaxOutputBytes,
	}); err != nil {
		return collab, fmt.Errorf("load action runners: %w", err)
	}
	collab.Actions = registry
	collab.Executor = action.NewExecutor(registry)
	return collab, nil
}

func assemble(ctx context.Context, cfg *config.Config, sessionID string, collab Collaborators) (*RuntimeComponents, error) {
	bus := eventbus.New()

	modes := mode.NewManager(mode.Parse(cfg.Modes.Default), bus, mode.WithLogging(cfg.Modes.LogSwitches))
	for _, h := range BuildHandlers(cfg, collab) {
		modes.RegisterHandler(h)
	}
	if !modes.IsModeAvailable(modes.CurrentMode()) {
		slog.Warn("Default mode has no handler", "mode", modes.CurrentMode(), "available", modes.AvailableModes())
	}

	queueCfg, err := ingress.RuntimeConfigFrom(cfg.Ingress)
	if err != nil {
		return nil, err
	}
	queue := ingress.NewQueue(queueCfg)

	deps := orchestrator.Deps{
		Modes:    modes,
		Executor: collab.Executor,
		Bus:      bus,
		Checks:   map[string]orchestrator.HealthChecker{"ingress": queue},
	}
	if collab.Router != nil {
		deps.Models = collab.Router
		deps.Checks["models"] = collab.Router
	}
	orch, err := orchestrator.New(deps, orchestrator.OptionsFromConfig(cfg))
	if err != nil {
		_ = queue.Close()
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	return &RuntimeComponents{
		Ctx:          ctx,
		Config:       cfg,
		SessionID:    sessionID,
		Bus:          bus,
		Router:       collab.Router,
		Actions:      collab.Actions,
		Modes:        modes,
		Orchestrator: orch,
		Ingress:      queue,
	}, nil
}

// BuildHandlers returns handlers for every enabled mode whose collaborators
// are present.
func BuildHandlers(cfg *config.Config, collab Collaborators) []mode.Handler {
	var out []mode.Handler

	var chatLLM, jsonLLM model.ChatCompleter
	if collab.Router != nil {
		client := model.NewChatClient(collab.Router, cfg.Models.Default)
		chatLLM = client
		jsonLLM = client.JSON()
	}

	var proposer reasoning.Proposer
	if jsonLLM != nil && collab.Actions != nil {
		proposer = reasoning.NewReasoner(jsonLLM, collab.Actions, reasoning.PromptConfig{
			System: cfg.Prompts.Reasoner.System,
			Output: cfg.Prompts.Reasoner.Output,
		})
	}

	for _, name := range cfg.Modes.Enabled {
		switch m := mode.Parse(name); m {
		case mode.Ask:
			if chatLLM == nil {
				slog.Warn("Skipping mode without a model", "mode", m)
				continue
			}
			out = append(out, handlers.NewAsk(chatLLM, cfg.Prompts.Ask.System))
		case mode.Edit:
			if proposer == nil {
				slog.Warn("Skipping mode without a reasoner", "mode", m)
				continue
			}
			out = append(out, handlers.NewEdit(proposer))
		case mode.Agent:
			if proposer == nil || collab.Executor == nil {
				slog.Warn("Skipping mode without a reasoner and executor", "mode", m)
				continue
			}
			out = append(out, handlers.NewAgent(proposer, handlers.PolicyFromConfig(cfg.Agent)))
		default:
			slog.Warn("Unknown mode in modes.enabled", "mode", name)
		}
	}
	return out
}

// Start attaches the session to the ingress queue and subscribes the
// orchestrator to inbound bus commands.
func (c *RuntimeComponents) Start() error {
	if err := c.Ingress.Attach(c.SessionID, c.Orchestrator); err != nil {
		return fmt.Errorf("attach session: %w", err)
	}
	c.Orchestrator.Start()
	slog.Debug("Runtime started", "session", c.SessionID, "mode", c.Modes.CurrentMode())
	return nil
}

func (c *RuntimeComponents) Stop() {
	if c.Ingress != nil {
		_ = c.Ingress.Close()
	}
	if c.Orchestrator != nil {
		c.Orchestrator.Stop()
	}
	if c.Cancel != nil {
		c.Cancel()
	}
}
