package mode

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/eventbus"
)

type stubHandler struct {
	mode Mode
	caps Capabilities
}

func (s stubHandler) Mode() Mode                      { return s.mode }
func (s stubHandler) Name() string                    { return string(s.mode) + " mode" }
func (s stubHandler) Description() string             { return "stub " + string(s.mode) }
func (s stubHandler) Capabilities() Capabilities      { return s.caps }
func (s stubHandler) CanHandleInput(text string) bool { return true }
func (s stubHandler) HandleNaturalLanguage(context.Context, Host, string, TurnContext) error {
	return nil
}
func (s stubHandler) HandleConfirmation(context.Context, Host, string, chat.ConfirmationStatus, string) error {
	return nil
}

func newTestManager(t *testing.T) (*Manager, *eventbus.Bus, *[]SwitchEvent) {
	t.Helper()
	bus := eventbus.New()
	var events []SwitchEvent
	bus.Subscribe(eventbus.TopicModeSwitched, func(e eventbus.Event) {
		events = append(events, e.Payload.(SwitchEvent))
	})

	m := NewManager(Ask, bus, WithLogging(false))
	m.RegisterHandler(stubHandler{mode: Ask})
	m.RegisterHandler(stubHandler{mode: Edit, caps: Capabilities{UsesTools: true, RequiresConfirmation: true, UsesReasoningAgent: true}})
	return m, bus, &events
}

func TestSwitchMode_SameModeIsNoop(t *testing.T) {
	m, _, events := newTestManager(t)

	if !m.SwitchMode(Ask, "again") {
		t.Fatal("switching to the current mode should succeed")
	}
	if len(m.History(0)) != 0 {
		t.Fatalf("expected no history, got %+v", m.History(0))
	}
	if len(*events) != 0 {
		t.Fatalf("expected no notification, got %+v", *events)
	}
}

func TestSwitchMode_UnknownModeLeavesStateUntouched(t *testing.T) {
	m, _, events := newTestManager(t)
	m.SwitchMode(Edit, "setup")

	if m.SwitchMode(Agent, "not registered") {
		t.Fatal("switching to an unregistered mode should fail")
	}
	if m.CurrentMode() != Edit {
		t.Fatalf("current mode changed to %s", m.CurrentMode())
	}
	if n := len(m.History(0)); n != 1 {
		t.Fatalf("history changed, len=%d", n)
	}
	if len(*events) != 1 {
		t.Fatalf("unexpected notifications %+v", *events)
	}
}

func TestSwitchMode_RecordsAndNotifies(t *testing.T) {
	m, _, events := newTestManager(t)

	if !m.SwitchMode(Edit, "user asked") {
		t.Fatal("switch to edit should succeed")
	}
	history := m.History(0)
	if len(history) != 1 || history[0].From != Ask || history[0].To != Edit || history[0].Reason != "user asked" {
		t.Fatalf("unexpected history %+v", history)
	}
	if len(*events) != 1 || (*events)[0].To != Edit {
		t.Fatalf("unexpected notifications %+v", *events)
	}
	if h, ok := m.CurrentHandler(); !ok || h.Mode() != Edit {
		t.Fatalf("current handler not edit: %v %v", h, ok)
	}
}

func TestSwitchMode_ConcurrentNotificationsFollowHistory(t *testing.T) {
	m, _, events := newTestManager(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				target := Ask
				if (g+i)%2 == 0 {
					target = Edit
				}
				m.SwitchMode(target, fmt.Sprintf("g%d-%d", g, i))
			}
		}(g)
	}
	wg.Wait()

	history := m.History(0)
	if len(history) == 0 || len(*events) != len(history) {
		t.Fatalf("expected one notification per switch, history=%d events=%d", len(history), len(*events))
	}
	for i, evt := range *events {
		if evt.Reason != history[i].Reason || evt.From != history[i].From || evt.To != history[i].To {
			t.Fatalf("notification %d is %+v, history has %+v", i, evt, history[i])
		}
	}
}

func TestSwitchMode_SubscriberMaySwitch(t *testing.T) {
	m, bus, events := newTestManager(t)
	bus.Subscribe(eventbus.TopicModeSwitched, func(e eventbus.Event) {
		if e.Payload.(SwitchEvent).To == Edit {
			m.SwitchMode(Ask, "bounce")
		}
	})

	m.SwitchMode(Edit, "user")

	if m.CurrentMode() != Ask {
		t.Fatalf("expected the subscriber's switch to apply, got %s", m.CurrentMode())
	}
	if len(*events) != 2 || (*events)[0].Reason != "user" || (*events)[1].Reason != "bounce" {
		t.Fatalf("unexpected notifications %+v", *events)
	}
}

func TestHistory_IsDefensiveCopy(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.SwitchMode(Edit, "")
	m.SwitchMode(Ask, "")
	m.SwitchMode(Edit, "")

	last := m.History(2)
	if len(last) != 2 || last[0].To != Ask || last[1].To != Edit {
		t.Fatalf("unexpected history window %+v", last)
	}
	last[0].Reason = "tampered"
	if m.History(0)[1].Reason == "tampered" {
		t.Fatal("History must return a copy")
	}

	m.ClearHistory()
	if len(m.History(0)) != 0 {
		t.Fatal("history should be empty after clear")
	}
}

func TestModeInfo(t *testing.T) {
	m, _, _ := newTestManager(t)

	info, ok := m.ModeInfo(Edit)
	if !ok {
		t.Fatal("edit info should be available")
	}
	if !info.Capabilities.RequiresConfirmation || info.Capabilities.Autonomous {
		t.Fatalf("unexpected edit capabilities %+v", info.Capabilities)
	}
	if info.Active {
		t.Fatal("edit is not the active mode")
	}

	current, ok := m.ModeInfo("")
	if !ok || current.Mode != Ask || !current.Active {
		t.Fatalf("expected current ask info, got %+v", current)
	}

	if _, ok := m.ModeInfo(Agent); ok {
		t.Fatal("agent is not registered")
	}
}

func TestRegisterHandler_LastWins(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.RegisterHandler(stubHandler{mode: Ask, caps: Capabilities{UsesRouterModel: true}})

	modes := m.AvailableModes()
	if len(modes) != 2 || modes[0] != Ask || modes[1] != Edit {
		t.Fatalf("unexpected modes %v", modes)
	}
	info, _ := m.ModeInfo(Ask)
	if !info.Capabilities.UsesRouterModel {
		t.Fatal("second registration should replace the first")
	}
	if !m.IsModeAvailable(Edit) || m.IsModeAvailable(Agent) {
		t.Fatal("availability mismatch")
	}
	if len(m.AllModesInfo()) != 2 {
		t.Fatal("expected info for every registered mode")
	}
}

func TestSummary(t *testing.T) {
	got := Summary(Info{Name: "Edit", Capabilities: Capabilities{UsesTools: true, RequiresConfirmation: true}})
	if got != "Edit: proposes actions, every action needs your approval" {
		t.Fatalf("unexpected summary %q", got)
	}
}
