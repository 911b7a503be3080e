package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/harunnryd/sabaki/internal/mode"
)

// SwitchMode asks the mode manager to switch and reports the outcome in the
// transcript.
func (o *Orchestrator) SwitchMode(ctx context.Context, target, reason string) bool {
	m := mode.Parse(target)
	before := o.modes.CurrentMode()

	if !o.modes.SwitchMode(m, reason) {
		o.emitError(ctx, fmt.Sprintf("Mode %q is not available. Available modes: %s.", target, o.availableModes()))
		return false
	}

	info, _ := o.modes.ModeInfo(m)
	if before == m {
		o.emitAssistant(ctx, "Already in "+mode.Summary(info))
		return true
	}
	o.emitAssistant(ctx, "Switched to "+mode.Summary(info))
	return true
}

// ShowMode describes the current mode and lists all modes.
func (o *Orchestrator) ShowMode(ctx context.Context) {
	o.emitAssistant(ctx, o.describeModes())
}

func (o *Orchestrator) describeModes() string {
	var sb strings.Builder
	if info, ok := o.modes.ModeInfo(""); ok {
		sb.WriteString(fmt.Sprintf("Current mode: %s. %s\n\n", info.Name, info.Description))
	} else {
		sb.WriteString(fmt.Sprintf("Current mode: %s (unavailable).\n\n", o.modes.CurrentMode()))
	}
	table, err := o.table.FormatModes(o.modes.AllModesInfo())
	if err != nil {
		table = "Mode table unavailable."
	}
	sb.WriteString(table)
	return sb.String()
}

func (o *Orchestrator) availableModes() string {
	modes := o.modes.AvailableModes()
	names := make([]string, 0, len(modes))
	for _, m := range modes {
		names = append(names, string(m))
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
