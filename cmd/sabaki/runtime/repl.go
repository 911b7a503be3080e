package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/harunnryd/sabaki/internal/ingress"
)

type REPL struct {
	components *RuntimeComponents
	in         *bufio.Reader
	out        io.Writer
	renderer   *Renderer
}

func NewREPL(components *RuntimeComponents, in io.Reader, out io.Writer, renderer *Renderer) *REPL {
	if renderer == nil {
		renderer = NewRenderer(out)
	}
	return &REPL{
		components: components,
		in:         bufio.NewReader(in),
		out:        out,
		renderer:   renderer,
	}
}

func (r *REPL) Start() error {
	detach := r.renderer.Attach(r.components.Bus)
	defer detach()

	prefix := r.components.Orchestrator.Options().CommandPrefix
	fmt.Fprintf(r.out, "Sabaki session %s\n", r.components.SessionID)
	fmt.Fprintf(r.out, "Type %shelp for commands, %sexit to quit.\n", prefix, prefix)

	for {
		select {
		case <-r.components.Ctx.Done():
			return nil
		default:
		}

		fmt.Fprintf(r.out, "[%s]> ", r.components.Modes.CurrentMode())
		line, err := r.in.ReadString('\n')
		text := strings.TrimSpace(line)
		if text == prefix+"exit" || text == prefix+"quit" {
			return nil
		}
		if text != "" {
			r.submit(text)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (r *REPL) submit(text string) {
	ctx := r.components.Ctx
	ticket, err := r.components.Ingress.Submit(ctx, ingress.NewInput("cli", r.components.SessionID, text))
	if err != nil {
		slog.Warn("Input rejected", "session", r.components.SessionID, "error", err)
		fmt.Fprintln(r.out, "Busy, try again in a moment.")
		return
	}
	if err := ticket.Wait(ctx); err != nil && err != context.Canceled {
		slog.Debug("Stopped waiting for input", "error", err)
	}
}
