package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/command"
	sabakiErrors "github.com/harunnryd/sabaki/internal/errors"
	"github.com/harunnryd/sabaki/internal/eventbus"
	"github.com/harunnryd/sabaki/internal/logger"
)

// commandError carries text meant for the operator as-is.
type commandError struct {
	msg   string
	cause error
}

func (e *commandError) Error() string { return e.msg }

func (e *commandError) Unwrap() error { return e.cause }

func fail(format string, args ...any) error {
	return &commandError{msg: fmt.Sprintf(format, args...), cause: sabakiErrors.ErrInvalidInput}
}

func failUnknownConfirmation(format string, args ...any) error {
	return &commandError{msg: fmt.Sprintf(format, args...), cause: sabakiErrors.ErrUnknownConfirmation}
}

func (o *Orchestrator) handleCommand(ctx context.Context, text string) {
	line := command.ParseLine(text, o.opts.CommandPrefix)
	cmd, args, ok := o.commands.Resolve(line.Tokens)
	if !ok {
		slog.Info("Command not resolved", append(logger.Attrs(ctx), "input", text, "error", sabakiErrors.ErrUnknownCommand)...)
		o.emitError(ctx, fmt.Sprintf("Unknown command: %s. Type %s%s to see available commands.",
			text, o.opts.CommandPrefix, o.opts.HelpCommand))
		return
	}

	slog.Debug("Executing command", append(logger.Attrs(ctx), "command", cmd.ID, "args", len(args))...)

	var out string
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Command panicked", append(logger.Attrs(ctx), "command", cmd.ID, "panic", r)...)
				err = sabakiErrors.Internal("command panic")
			}
		}()
		out, err = o.commands.Execute(ctx, cmd, line, args)
	}()

	if err != nil {
		o.emitError(ctx, o.commandErrorText(ctx, cmd.ID, err))
		return
	}
	if strings.TrimSpace(out) != "" {
		o.emitAssistant(ctx, out)
	}
}

func (o *Orchestrator) commandErrorText(ctx context.Context, id string, err error) string {
	var usage *command.UsageError
	var direct *commandError
	switch {
	case errors.As(err, &usage):
		return fmt.Sprintf("%v. Usage: %s%s", usage.Err, o.opts.CommandPrefix, usage.Usage)
	case errors.As(err, &direct):
		return direct.msg
	default:
		slog.Error("Command failed", append(logger.Attrs(ctx), "command", id, "error", sabakiErrors.Redact(err.Error()))...)
		return sabakiErrors.Sanitize(err)
	}
}

func (o *Orchestrator) registerBuiltins() error {
	builtins := []command.Command{
		{
			ID:          o.opts.HelpCommand,
			Description: "List available commands",
			Run:         o.cmdHelp,
		},
		{
			ID:          "mode",
			Description: "Show the current mode, or switch to another one",
			Params:      []command.Param{{Name: "name", Type: command.ParamString}},
			Run:         o.cmdMode,
		},
		{
			ID:          "mode.list",
			Description: "List registered modes",
			Run: func(ctx context.Context, inv command.Invocation) (string, error) {
				return o.table.FormatModes(o.modes.AllModesInfo())
			},
		},
		{
			ID:          "mode.history",
			Description: "Show recent mode switches",
			Params:      []command.Param{{Name: "limit", Type: command.ParamNumber}},
			Run:         o.cmdModeHistory,
		},
		{
			ID:          "model.list",
			Description: "List configured models",
			Run:         o.cmdModelList,
		},
		{
			ID:          "approve",
			Description: "Approve a pending confirmation",
			Params:      []command.Param{{Name: "id", Type: command.ParamString}},
			Run:         o.decisionCommand(chat.StatusApproved),
		},
		{
			ID:          "cancel",
			Description: "Cancel a pending confirmation",
			Params:      []command.Param{{Name: "id", Type: command.ParamString}},
			Run:         o.decisionCommand(chat.StatusCancelled),
		},
		{
			ID:          "modify",
			Description: "Reject a pending confirmation and describe what to do instead",
			Params: []command.Param{
				{Name: "id", Type: command.ParamString, Required: true},
				{Name: "text", Type: command.ParamString, Rest: true},
			},
			Run: o.decisionCommand(chat.StatusModified),
		},
		{
			ID:          "pending",
			Description: "List confirmations waiting for a decision",
			Run:         o.cmdPending,
		},
		{
			ID:          "status",
			Description: "Show the current mode, pending confirmations and component health",
			Run:         o.cmdStatus,
		},
		{
			ID:          "clear",
			Description: "Cancel pending confirmations and clear the conversation",
			Run:         o.cmdClear,
		},
	}

	for _, cmd := range builtins {
		if err := o.commands.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) cmdHelp(ctx context.Context, inv command.Invocation) (string, error) {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, cmd := range o.commands.List() {
		sb.WriteString(fmt.Sprintf("  %s%-28s %s\n", o.opts.CommandPrefix, cmd.Usage(), cmd.Description))
	}
	sb.WriteString("\nAnything else is sent to the current mode.")
	return sb.String(), nil
}

func (o *Orchestrator) cmdStatus(ctx context.Context, inv command.Invocation) (string, error) {
	var sb strings.Builder
	sb.WriteString("Status:\n")
	sb.WriteString(fmt.Sprintf("  %-10s %s\n", "mode", strings.ToUpper(o.modes.CurrentMode().String())))
	sb.WriteString(fmt.Sprintf("  %-10s %d\n", "pending", o.ledger.Len()))

	health := o.Health(ctx)
	for _, name := range sortedNames(health) {
		state := "ok"
		if err := health[name]; err != nil {
			slog.Warn("Health check failed", append(logger.Attrs(ctx), "check", name, "error", sabakiErrors.Redact(err.Error()))...)
			state = "unavailable: " + sabakiErrors.Redact(err.Error())
		}
		sb.WriteString(fmt.Sprintf("  %-10s %s\n", name, state))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (o *Orchestrator) cmdMode(ctx context.Context, inv command.Invocation) (string, error) {
	name := inv.String("name")
	if name == "" {
		o.ShowMode(ctx)
		return "", nil
	}
	o.SwitchMode(ctx, name, "command")
	return "", nil
}

func (o *Orchestrator) cmdModeHistory(ctx context.Context, inv command.Invocation) (string, error) {
	limit := 0
	if n, ok := inv.Number("limit"); ok {
		if n < 1 {
			return "", fail("limit must be at least 1")
		}
		limit = int(n)
	}
	return o.table.FormatHistory(o.modes.History(limit))
}

func (o *Orchestrator) cmdModelList(ctx context.Context, inv command.Invocation) (string, error) {
	if o.models == nil {
		return "No model router configured.", nil
	}
	models := o.models.ListModels()
	if len(models) == 0 {
		return "No models are available. Check models.registry and provider API keys.", nil
	}

	var sb strings.Builder
	sb.WriteString("Models:\n")
	for _, name := range models {
		marker := " "
		if name == o.opts.DefaultModel {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("  %s %s\n", marker, name))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (o *Orchestrator) decisionCommand(decision chat.ConfirmationStatus) command.RunFunc {
	return func(ctx context.Context, inv command.Invocation) (string, error) {
		id, err := o.matchPending(inv.String("id"))
		if err != nil {
			return "", err
		}
		o.HandleConfirmation(ctx, id, decision, inv.String("text"))
		return "", nil
	}
}

// matchPending resolves a full id, a unique prefix, or nothing at all when
// exactly one confirmation is pending.
func (o *Orchestrator) matchPending(ref string) (string, error) {
	ids := o.ledger.IDs()
	ref = strings.ToUpper(strings.TrimSpace(ref))

	if ref == "" {
		switch len(ids) {
		case 0:
			return "", failUnknownConfirmation("Nothing is waiting for confirmation.")
		case 1:
			return ids[0], nil
		default:
			return "", fail("%d confirmations are pending. Say which one, see %spending.", len(ids), o.opts.CommandPrefix)
		}
	}

	var matches []string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", failUnknownConfirmation("No pending confirmation matches %q.", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fail("%q matches %d pending confirmations. Use more characters.", ref, len(matches))
	}
}

func (o *Orchestrator) cmdPending(ctx context.Context, inv command.Invocation) (string, error) {
	ids := o.ledger.IDs()
	if len(ids) == 0 {
		return "Nothing is waiting for confirmation.", nil
	}

	var sb strings.Builder
	sb.WriteString("Pending confirmations:\n")
	for _, id := range ids {
		entry, ok := o.ledger.Get(id)
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s  %d action(s)", id, len(entry.Actions)))
		if entry.Aux.Reason != "" {
			sb.WriteString("  (" + entry.Aux.Reason + ")")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (o *Orchestrator) cmdClear(ctx context.Context, inv command.Invocation) (string, error) {
	o.Clear(ctx)
	return "", nil
}

// Clear cancels every pending confirmation through the normal decision path
// and then empties the transcript.
func (o *Orchestrator) Clear(ctx context.Context) {
	for _, id := range o.ledger.IDs() {
		o.HandleConfirmation(ctx, id, chat.StatusCancelled, "")
	}
	o.transcript.Clear()
	o.bus.Publish(eventbus.TopicChatCleared, nil)
	slog.Info("Conversation cleared", logger.Attrs(ctx)...)
}
