package action

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Proposed is a unit of work suggested by the reasoner. The orchestrator
// counts and forwards these without looking inside.
type Proposed struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Args        json.RawMessage `json:"args,omitempty"`
}

func (p Proposed) String() string {
	if p.Description != "" {
		return fmt.Sprintf("[%s] %s", p.Kind, p.Description)
	}
	return fmt.Sprintf("[%s]", p.Kind)
}

// Result is the outcome of running one proposed action.
type Result struct {
	ActionID string `json:"action_id"`
	Kind     string `json:"kind"`
	Success  bool   `json:"success"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AuxKind tags the Auxiliary union.
type AuxKind string

const (
	AuxNone       AuxKind = ""
	AuxPlan       AuxKind = "plan"
	AuxEscalation AuxKind = "escalation"
)

// Auxiliary is extra context stored with a pending confirmation.
// Exactly one of the payload fields is meaningful for a given Kind.
type Auxiliary struct {
	Kind AuxKind `json:"kind,omitempty"`

	// AuxPlan
	Thought string `json:"thought,omitempty"`
	Request string `json:"request,omitempty"`

	// AuxEscalation
	Reason string `json:"reason,omitempty"`
}

func PlanContext(request, thought string) Auxiliary {
	return Auxiliary{Kind: AuxPlan, Request: request, Thought: thought}
}

func EscalationContext(request, reason string) Auxiliary {
	return Auxiliary{Kind: AuxEscalation, Request: request, Reason: reason}
}

// Summary tallies a batch of results.
type Summary struct {
	Succeeded int
	Failed    int
}

func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// Text renders the one-line execution summary shown in the transcript.
func (s Summary) Text() string {
	switch {
	case s.Failed == 0:
		return "All successful"
	case s.Succeeded == 0:
		return "All failed"
	default:
		return fmt.Sprintf("%d successful, %d failed", s.Succeeded, s.Failed)
	}
}

// Describe lists actions one per line.
func Describe(actions []Proposed) string {
	lines := make([]string, 0, len(actions))
	for i, a := range actions {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, a.String()))
	}
	return strings.Join(lines, "\n")
}
