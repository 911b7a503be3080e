package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/harunnryd/sabaki/internal/action"
	"github.com/harunnryd/sabaki/internal/chat"
	sabakiErrors "github.com/harunnryd/sabaki/internal/errors"
	"github.com/harunnryd/sabaki/internal/mode"
	"github.com/harunnryd/sabaki/internal/model/contract"
	"github.com/harunnryd/sabaki/internal/reasoning"
)

type confirmationRequest struct {
	actions []action.Proposed
	aux     action.Auxiliary
	content string
}

type resolution struct {
	id       string
	decision chat.ConfirmationStatus
	modified string
}

type fakeHost struct {
	factory   *chat.Factory
	emitted   []chat.Message
	requests  []confirmationRequest
	executed  [][]action.Proposed
	resolved  []resolution
	results   []action.Result
	historyOf []chat.Message
}

func newFakeHost() *fakeHost {
	return &fakeHost{factory: chat.NewFactory()}
}

func (h *fakeHost) Emit(ctx context.Context, msg chat.Message) { h.emitted = append(h.emitted, msg) }

func (h *fakeHost) NewMessage(t chat.MessageType, content string) chat.Message {
	return h.factory.New(t, content)
}

func (h *fakeHost) RequestConfirmation(ctx context.Context, actions []action.Proposed, aux action.Auxiliary, content, thought string) string {
	h.requests = append(h.requests, confirmationRequest{actions: actions, aux: aux, content: content})
	return "conf-" + string(rune('0'+len(h.requests)))
}

func (h *fakeHost) ExecuteActions(ctx context.Context, actions []action.Proposed) []action.Result {
	h.executed = append(h.executed, actions)
	return h.results
}

func (h *fakeHost) ResolveConfirmation(ctx context.Context, id string, decision chat.ConfirmationStatus, modifiedInput string) {
	h.resolved = append(h.resolved, resolution{id: id, decision: decision, modified: modifiedInput})
}

func (h *fakeHost) History(limit int) []chat.Message { return h.historyOf }

type stubLLM struct {
	reply string
	err   error
	got   []contract.Message
}

func (s *stubLLM) Complete(ctx context.Context, messages []contract.Message) (string, error) {
	s.got = messages
	return s.reply, s.err
}

type stubReasoner struct {
	proposal reasoning.Proposal
	err      error
	texts    []string
}

func (s *stubReasoner) Propose(ctx context.Context, text string, history []chat.Message) (reasoning.Proposal, error) {
	s.texts = append(s.texts, text)
	return s.proposal, s.err
}

func twoActions() []action.Proposed {
	return []action.Proposed{
		{ID: "a1", Kind: "write_file", Description: "create notes"},
		{ID: "a2", Kind: "read_file", Description: "check notes"},
	}
}

func TestAsk_RepliesWithHistory(t *testing.T) {
	llm := &stubLLM{reply: " hello there \n"}
	host := newFakeHost()
	history := []chat.Message{host.factory.New(chat.TypeUser, "earlier question")}

	err := NewAsk(llm, "").HandleNaturalLanguage(context.Background(), host, "hi", mode.TurnContext{Mode: mode.Ask, History: history})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(host.emitted) != 1 || host.emitted[0].Type != chat.TypeAssistant || host.emitted[0].Content != "hello there" {
		t.Fatalf("unexpected emitted messages %+v", host.emitted)
	}
	if len(llm.got) != 3 || llm.got[0].Role != contract.RoleSystem || llm.got[2].Content != "hi" {
		t.Fatalf("unexpected prompt %+v", llm.got)
	}
	if len(host.requests) != 0 || len(host.executed) != 0 {
		t.Fatal("ask must never propose or execute")
	}
}

func TestAsk_PropagatesCollaboratorError(t *testing.T) {
	cause := errors.New("timeout")
	err := NewAsk(&stubLLM{err: cause}, "").HandleNaturalLanguage(context.Background(), newFakeHost(), "hi", mode.TurnContext{})
	if !errors.Is(err, cause) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
}

func TestEdit_RequestsConfirmation(t *testing.T) {
	reasoner := &stubReasoner{proposal: reasoning.Proposal{Thought: "write then verify", Actions: twoActions()}}
	host := newFakeHost()

	if err := NewEdit(reasoner).HandleNaturalLanguage(context.Background(), host, "make notes", mode.TurnContext{}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(host.requests) != 1 {
		t.Fatalf("expected one confirmation request, got %d", len(host.requests))
	}
	req := host.requests[0]
	if len(req.actions) != 2 || req.aux.Kind != action.AuxPlan || req.aux.Request != "make notes" {
		t.Fatalf("unexpected request %+v", req)
	}
	if len(host.executed) != 0 {
		t.Fatal("edit must not execute before approval")
	}
}

func TestEdit_NoActionsRepliesWithThought(t *testing.T) {
	host := newFakeHost()
	reasoner := &stubReasoner{proposal: reasoning.Proposal{Thought: "Already done."}}

	if err := NewEdit(reasoner).HandleNaturalLanguage(context.Background(), host, "x", mode.TurnContext{}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(host.requests) != 0 || len(host.emitted) != 1 || host.emitted[0].Content != "Already done." {
		t.Fatalf("unexpected outcome %+v %+v", host.requests, host.emitted)
	}
}

func TestEdit_ModifiedWithTextReplans(t *testing.T) {
	reasoner := &stubReasoner{proposal: reasoning.Proposal{Actions: twoActions()}}
	host := newFakeHost()

	err := NewEdit(reasoner).HandleConfirmation(context.Background(), host, "conf-old", chat.StatusModified, "only create the notes")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(host.resolved) != 0 {
		t.Fatalf("replanning should not use the shared resolution, got %+v", host.resolved)
	}
	if len(reasoner.texts) != 1 || reasoner.texts[0] != "only create the notes" {
		t.Fatalf("expected replan with revised text, got %v", reasoner.texts)
	}
	if len(host.requests) != 1 {
		t.Fatalf("expected a fresh confirmation request, got %d", len(host.requests))
	}
}

func TestEdit_OtherDecisionsUseSharedResolution(t *testing.T) {
	host := newFakeHost()
	edit := NewEdit(&stubReasoner{})

	_ = edit.HandleConfirmation(context.Background(), host, "c1", chat.StatusApproved, "")
	_ = edit.HandleConfirmation(context.Background(), host, "c2", chat.StatusModified, "   ")

	if len(host.resolved) != 2 || host.resolved[0].decision != chat.StatusApproved || host.resolved[1].decision != chat.StatusModified {
		t.Fatalf("unexpected resolutions %+v", host.resolved)
	}
}

func TestAgent_SelfApprovesWithinPolicy(t *testing.T) {
	reasoner := &stubReasoner{proposal: reasoning.Proposal{Thought: "go", Actions: twoActions()}}
	host := newFakeHost()
	host.results = []action.Result{{ActionID: "a1", Success: true}, {ActionID: "a2", Success: false}}

	agent := NewAgent(reasoner, SafetyPolicy{MaxActions: 5, ConfirmKinds: []string{"shell"}})
	if err := agent.HandleNaturalLanguage(context.Background(), host, "do it", mode.TurnContext{}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(host.executed) != 1 || len(host.requests) != 0 {
		t.Fatalf("expected direct execution, executed=%d requests=%d", len(host.executed), len(host.requests))
	}
	if len(host.emitted) != 1 || host.emitted[0].Type != chat.TypeExecution || host.emitted[0].Content != "1 successful, 1 failed" {
		t.Fatalf("unexpected summary %+v", host.emitted)
	}
	if len(host.emitted[0].Results) != 2 {
		t.Fatal("execution message should carry per-action results")
	}
}

func TestAgent_EscalatesConfirmKinds(t *testing.T) {
	actions := []action.Proposed{{ID: "a1", Kind: "shell", Description: "rm -rf build"}}
	host := newFakeHost()

	agent := NewAgent(&stubReasoner{proposal: reasoning.Proposal{Actions: actions}}, SafetyPolicy{ConfirmKinds: []string{"SHELL"}})
	if err := agent.HandleNaturalLanguage(context.Background(), host, "clean", mode.TurnContext{}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(host.executed) != 0 || len(host.requests) != 1 {
		t.Fatalf("expected escalation, executed=%d requests=%d", len(host.executed), len(host.requests))
	}
	if host.requests[0].aux.Kind != action.AuxEscalation || host.requests[0].aux.Reason == "" {
		t.Fatalf("unexpected auxiliary %+v", host.requests[0].aux)
	}
}

func TestAgent_BlockedKindsNeverRun(t *testing.T) {
	host := newFakeHost()
	agent := NewAgent(&stubReasoner{proposal: reasoning.Proposal{Actions: twoActions()}}, SafetyPolicy{BlockedKinds: []string{"write_file"}})

	if err := agent.HandleNaturalLanguage(context.Background(), host, "x", mode.TurnContext{}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(host.executed) != 0 || len(host.requests) != 0 {
		t.Fatal("blocked plan must not run or escalate")
	}
	if len(host.emitted) != 1 || host.emitted[0].Type != chat.TypeError {
		t.Fatalf("expected one error message, got %+v", host.emitted)
	}
}

func TestSafetyPolicy(t *testing.T) {
	p := SafetyPolicy{MaxActions: 1, BlockedKinds: []string{"shell"}}

	if v := p.Evaluate(twoActions()); v.Decision != DecisionEscalate {
		t.Fatalf("expected escalation for too many actions, got %+v", v)
	}
	if v := p.Evaluate([]action.Proposed{{Kind: "read_file"}, {Kind: "Shell"}}); v.Decision != DecisionBlock {
		t.Fatalf("blocked kinds win over the size limit, got %+v", v)
	}
	if v := (SafetyPolicy{}).Evaluate(twoActions()); v.Decision != DecisionAllow {
		t.Fatalf("empty policy should allow, got %+v", v)
	}
}

func TestVerdictErr(t *testing.T) {
	blocked := SafetyPolicy{BlockedKinds: []string{"shell"}}.Evaluate([]action.Proposed{{Kind: "shell"}})
	err := blocked.Err()
	if !errors.Is(err, sabakiErrors.ErrActionBlocked) {
		t.Fatalf("expected ErrActionBlocked, got %v", err)
	}
	if !strings.Contains(err.Error(), `"shell" actions are not allowed`) {
		t.Fatalf("reason missing from %q", err.Error())
	}

	if err := (Verdict{Decision: DecisionEscalate, Reason: "too many"}).Err(); err != nil {
		t.Fatalf("escalation is not an error, got %v", err)
	}
	if err := (Verdict{}).Err(); err != nil {
		t.Fatalf("allow is not an error, got %v", err)
	}
}

func TestCapabilities(t *testing.T) {
	edit := NewEdit(nil).Capabilities()
	if !edit.RequiresConfirmation || edit.Autonomous {
		t.Fatalf("unexpected edit capabilities %+v", edit)
	}
	agent := NewAgent(nil, SafetyPolicy{}).Capabilities()
	if agent.RequiresConfirmation || !agent.Autonomous {
		t.Fatalf("unexpected agent capabilities %+v", agent)
	}
	ask := NewAsk(nil, "").Capabilities()
	if ask.UsesTools || !ask.UsesRouterModel {
		t.Fatalf("unexpected ask capabilities %+v", ask)
	}
}
