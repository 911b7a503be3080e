// Package orchestrator routes operator input to commands or to the active
// mode's handler, owns the transcript and the proposal ledger, and runs the
// confirmation protocol.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/harunnryd/sabaki/internal/action"
	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/command"
	"github.com/harunnryd/sabaki/internal/config"
	sabakiErrors "github.com/harunnryd/sabaki/internal/errors"
	"github.com/harunnryd/sabaki/internal/eventbus"
	"github.com/harunnryd/sabaki/internal/ledger"
	"github.com/harunnryd/sabaki/internal/logger"
	"github.com/harunnryd/sabaki/internal/mode"
	"github.com/harunnryd/sabaki/internal/mode/formatter"
)

// Executor runs approved actions.
type Executor interface {
	Execute(ctx context.Context, actions []action.Proposed) []action.Result
}

// ModelLister reports configured model names.
type ModelLister interface {
	ListModels() []string
}

// HealthChecker reports whether a collaborator can serve requests.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type Options struct {
	CommandPrefix       string
	HelpCommand         string
	TranscriptLimit     int
	ContextMessages     int
	DiscardStaleResults bool
	DefaultModel        string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CommandPrefix:       cfg.Chat.CommandPrefix,
		HelpCommand:         cfg.Chat.HelpCommand,
		TranscriptLimit:     cfg.Chat.TranscriptLimit,
		ContextMessages:     cfg.Chat.ContextMessages,
		DiscardStaleResults: cfg.Chat.DiscardStaleResults,
		DefaultModel:        cfg.Models.Default,
	}
}

func (o Options) withDefaults() Options {
	if o.CommandPrefix == "" {
		o.CommandPrefix = config.DefaultChatCommandPrefix
	}
	if o.HelpCommand == "" {
		o.HelpCommand = config.DefaultChatHelpCommand
	}
	if o.TranscriptLimit <= 0 {
		o.TranscriptLimit = config.DefaultChatTranscriptLimit
	}
	if o.ContextMessages <= 0 {
		o.ContextMessages = config.DefaultChatContextMessages
	}
	return o
}

// Deps are the collaborators an Orchestrator needs. Models may be nil.
// Checks are reported by name in the status command.
type Deps struct {
	Modes    *mode.Manager
	Commands *command.Registry
	Executor Executor
	Models   ModelLister
	Bus      *eventbus.Bus
	Checks   map[string]HealthChecker
}

type Orchestrator struct {
	modes      *mode.Manager
	commands   *command.Registry
	executor   Executor
	models     ModelLister
	bus        *eventbus.Bus
	checks     map[string]HealthChecker
	opts       Options
	ledger     *ledger.Ledger[action.Auxiliary]
	transcript *chat.Transcript
	factory    *chat.Factory
	table      formatter.ModeFormatter

	mu          sync.Mutex
	unsubscribe []func()
}

func New(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Modes == nil {
		return nil, sabakiErrors.InvalidInput("orchestrator requires a mode manager")
	}
	if deps.Commands == nil {
		deps.Commands = command.NewRegistry()
	}
	opts = opts.withDefaults()

	o := &Orchestrator{
		modes:      deps.Modes,
		commands:   deps.Commands,
		executor:   deps.Executor,
		models:     deps.Models,
		bus:        deps.Bus,
		checks:     deps.Checks,
		opts:       opts,
		ledger:     ledger.New[action.Auxiliary](),
		transcript: chat.NewTranscript(opts.TranscriptLimit),
		factory:    chat.NewFactory(),
		table:      formatter.NewPlainTableFormatter(),
	}
	if err := o.registerBuiltins(); err != nil {
		return nil, fmt.Errorf("register builtin commands: %w", err)
	}
	return o, nil
}

// ProcessUserInput handles one line of operator input. Every outcome,
// including failures, ends up as transcript messages.
func (o *Orchestrator) ProcessUserInput(ctx context.Context, input string) {
	text := strings.TrimSpace(input)
	if text == "" {
		return
	}
	if logger.GetTraceID(ctx) == "" {
		ctx = logger.WithTraceID(ctx, chat.NewID())
	}

	if strings.HasPrefix(text, o.opts.CommandPrefix) {
		o.emit(ctx, o.factory.New(chat.TypeUser, text))
		o.handleCommand(ctx, text)
		return
	}
	o.handleNaturalLanguage(ctx, text)
}

func (o *Orchestrator) handleNaturalLanguage(ctx context.Context, text string) {
	history := o.transcript.Recent(o.opts.ContextMessages)
	o.emit(ctx, o.factory.New(chat.TypeUser, text))

	current := o.modes.CurrentMode()
	handler, ok := o.modes.CurrentHandler()
	if !ok {
		slog.Error("No handler for current mode", append(logger.Attrs(ctx), "mode", current, "error", sabakiErrors.ErrModeUnavailable)...)
		o.emitError(ctx, fmt.Sprintf(
			"The %s mode is unavailable. Use %s%s to see commands, switch modes with %smode, or restart sabaki.",
			current, o.opts.CommandPrefix, o.opts.HelpCommand, o.opts.CommandPrefix))
		return
	}
	if !handler.CanHandleInput(text) {
		slog.Info("Input rejected by mode", append(logger.Attrs(ctx), "mode", current, "error", sabakiErrors.ErrUnhandledInput)...)
		o.emitError(ctx, fmt.Sprintf("%s mode cannot handle that input.", handler.Name()))
		return
	}

	host := o.hostFor(current)
	turn := mode.TurnContext{Mode: current, History: history}
	o.invoke(ctx, "natural language", func() error {
		return handler.HandleNaturalLanguage(ctx, host, text, turn)
	})
}

// invoke runs fn and turns an error or panic into one sanitized message.
func (o *Orchestrator) invoke(ctx context.Context, what string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Handler panicked", append(logger.Attrs(ctx), "during", what, "panic", r, "stack", string(debug.Stack()))...)
			o.emitError(ctx, sabakiErrors.Sanitize(sabakiErrors.Internal("handler panic")))
		}
	}()

	if err := fn(); err != nil {
		slog.Error("Handler failed", append(logger.Attrs(ctx), "during", what, "error", sabakiErrors.Redact(err.Error()))...)
		o.emitError(ctx, sabakiErrors.Sanitize(err))
	}
}

// emit appends msg to the transcript and publishes it with any evictions.
func (o *Orchestrator) emit(ctx context.Context, msg chat.Message) {
	evicted := o.transcript.Append(msg)
	o.bus.Publish(eventbus.TopicChatMessage, msg)
	for _, id := range evicted {
		o.bus.Publish(eventbus.TopicChatMessageRemoved, MessageRemoved{ID: id})
	}
}

func (o *Orchestrator) emitError(ctx context.Context, content string) {
	o.emit(ctx, o.factory.New(chat.TypeError, content))
}

func (o *Orchestrator) emitAssistant(ctx context.Context, content string) {
	o.emit(ctx, o.factory.New(chat.TypeAssistant, content))
}

func (o *Orchestrator) executeActions(ctx context.Context, actions []action.Proposed) []action.Result {
	if o.executor == nil {
		results := make([]action.Result, 0, len(actions))
		for _, a := range actions {
			results = append(results, action.Result{ActionID: a.ID, Kind: a.Kind, Error: "no action executor configured"})
		}
		return results
	}
	return o.executor.Execute(ctx, actions)
}

// Messages returns a copy of the transcript.
func (o *Orchestrator) Messages() []chat.Message {
	return o.transcript.Messages()
}

// PendingConfirmations lists ledger ids in creation order.
func (o *Orchestrator) PendingConfirmations() []string {
	return o.ledger.IDs()
}

// Health runs every named check. A nil error means the check passed.
func (o *Orchestrator) Health(ctx context.Context) map[string]error {
	out := make(map[string]error, len(o.checks))
	for name, check := range o.checks {
		out[name] = check.Health(ctx)
	}
	return out
}

func sortedNames(checks map[string]error) []string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (o *Orchestrator) Options() Options {
	return o.opts
}
