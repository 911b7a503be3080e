package handlers

import (
	"fmt"
	"strings"

	"github.com/harunnryd/sabaki/internal/action"
	"github.com/harunnryd/sabaki/internal/config"
	sabakiErrors "github.com/harunnryd/sabaki/internal/errors"
)

type Decision int

const (
	DecisionAllow Decision = iota
	DecisionEscalate
	DecisionBlock
)

type Verdict struct {
	Decision Decision
	Reason   string
}

// Err is a blocked verdict as an ErrActionBlocked error, nil otherwise.
func (v Verdict) Err() error {
	if v.Decision != DecisionBlock {
		return nil
	}
	return sabakiErrors.Blocked(v.Reason)
}

// SafetyPolicy bounds what the agent may run without a human.
// MaxActions <= 0 means no limit.
type SafetyPolicy struct {
	MaxActions   int
	ConfirmKinds []string
	BlockedKinds []string
}

func PolicyFromConfig(cfg config.AgentConfig) SafetyPolicy {
	return SafetyPolicy{
		MaxActions:   cfg.MaxActionsPerTurn,
		ConfirmKinds: cfg.ConfirmKinds,
		BlockedKinds: cfg.BlockedKinds,
	}
}

// Evaluate checks blocked kinds first, then the size limit, then kinds that
// always need a human.
func (p SafetyPolicy) Evaluate(actions []action.Proposed) Verdict {
	blocked := kindSet(p.BlockedKinds)
	confirm := kindSet(p.ConfirmKinds)

	for _, a := range actions {
		if _, ok := blocked[action.NormalizeKind(a.Kind)]; ok {
			return Verdict{Decision: DecisionBlock, Reason: fmt.Sprintf("%q actions are not allowed", a.Kind)}
		}
	}

	if p.MaxActions > 0 && len(actions) > p.MaxActions {
		return Verdict{
			Decision: DecisionEscalate,
			Reason:   fmt.Sprintf("%d actions exceed the limit of %d", len(actions), p.MaxActions),
		}
	}

	var needs []string
	seen := map[string]bool{}
	for _, a := range actions {
		kind := action.NormalizeKind(a.Kind)
		if _, ok := confirm[kind]; ok && !seen[kind] {
			seen[kind] = true
			needs = append(needs, kind)
		}
	}
	if len(needs) > 0 {
		return Verdict{
			Decision: DecisionEscalate,
			Reason:   strings.Join(needs, ", ") + " always needs confirmation",
		}
	}

	return Verdict{Decision: DecisionAllow}
}

func kindSet(kinds []string) map[string]struct{} {
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		if k = action.NormalizeKind(k); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
