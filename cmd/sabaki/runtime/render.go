package runtime

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/harunnryd/sabaki/internal/chat"
	"github.com/harunnryd/sabaki/internal/eventbus"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
)

// Renderer prints transcript events for a terminal.
type Renderer struct {
	mu       sync.Mutex
	out      io.Writer
	markdown *glamour.TermRenderer

	assistant    lipgloss.Style
	errorStyle   lipgloss.Style
	success      lipgloss.Style
	failure      lipgloss.Style
	confirmation lipgloss.Style
	muted        lipgloss.Style
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{
		out:          out,
		markdown:     newMarkdown(glamour.WithAutoStyle(), glamour.WithWordWrap(100)),
		assistant:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		success:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failure:      lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		confirmation: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("214")).Padding(0, 1),
		muted:        lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// newMarkdown returns nil when glamour cannot be set up; assistant text is
// then printed as-is.
func newMarkdown(opts ...glamour.TermRendererOption) *glamour.TermRenderer {
	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		slog.Debug("Markdown rendering disabled, using plain output", "error", err)
		return nil
	}
	return md
}

// NewPlainRenderer prints without styling.
func NewPlainRenderer(out io.Writer) *Renderer {
	plain := lipgloss.NewStyle()
	return &Renderer{
		out:          out,
		assistant:    plain,
		errorStyle:   plain,
		success:      plain,
		failure:      plain,
		confirmation: plain,
		muted:        plain,
	}
}

// Attach subscribes to the transcript topics and returns the unsubscribe func.
func (r *Renderer) Attach(bus *eventbus.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(eventbus.TopicChatMessage, r.onMessage),
		bus.Subscribe(eventbus.TopicChatMessageUpdated, r.onUpdated),
		bus.Subscribe(eventbus.TopicChatCleared, func(eventbus.Event) { r.println(r.muted.Render("Conversation cleared.")) }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (r *Renderer) onMessage(evt eventbus.Event) {
	msg, ok := evt.Payload.(chat.Message)
	if !ok {
		return
	}
	if text := r.Render(msg); text != "" {
		r.println(text)
	}
}

func (r *Renderer) onUpdated(evt eventbus.Event) {
	msg, ok := evt.Payload.(chat.Message)
	if !ok || msg.Status == chat.StatusPending {
		return
	}
	r.println(r.muted.Render(fmt.Sprintf("Confirmation %s %s.", shortID(msg.ConfirmationID), msg.Status)))
}

// Render formats one message. User messages render empty since the operator
// typed them.
func (r *Renderer) Render(msg chat.Message) string {
	switch msg.Type {
	case chat.TypeUser:
		return ""
	case chat.TypeError:
		return r.errorStyle.Render("! " + msg.Content)
	case chat.TypeConfirmation:
		body := msg.Content
		if msg.Thought != "" {
			body = msg.Thought + "\n\n" + body
		}
		body += fmt.Sprintf("\n\nid %s: /approve, /cancel, or /modify %s <what to do instead>",
			shortID(msg.ConfirmationID), shortID(msg.ConfirmationID))
		return r.confirmation.Render(body)
	case chat.TypeExecution:
		var sb strings.Builder
		sb.WriteString(msg.Content)
		for _, res := range msg.Results {
			sb.WriteString("\n")
			if res.Success {
				line := "  ok   [" + res.Kind + "]"
				if out := strings.TrimSpace(res.Output); out != "" {
					line += " " + firstLine(out)
				}
				sb.WriteString(r.success.Render(line))
			} else {
				sb.WriteString(r.failure.Render("  fail [" + res.Kind + "] " + res.Error))
			}
		}
		return sb.String()
	default:
		return r.renderAssistant(msg.Content)
	}
}

// renderAssistant formats model replies as markdown when a terminal
// renderer is available.
func (r *Renderer) renderAssistant(content string) string {
	if r.markdown != nil {
		if out, err := r.markdown.Render(content); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return r.assistant.Render(content)
}

func (r *Renderer) println(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, s)
}

// shortID keeps the ULID timestamp plus a few random characters.
func shortID(id string) string {
	if len(id) <= 14 {
		return id
	}
	return id[:14]
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
