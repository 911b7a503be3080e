// Package command is the registry of prefixed commands: declaration, typed
// parameters, tokenizing and resolution of raw input to a command id.
package command

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	sabakiErrors "github.com/harunnryd/sabaki/internal/errors"

	"github.com/google/shlex"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
)

// Param declares one positional parameter. A Rest parameter takes the
// remaining input exactly as typed and must come last.
type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Rest        bool
	Description string
}

// Invocation is a resolved command call with parsed arguments.
type Invocation struct {
	ID   string
	Raw  string
	Args map[string]any
}

func (inv Invocation) String(name string) string {
	s, _ := inv.Args[name].(string)
	return s
}

func (inv Invocation) Number(name string) (float64, bool) {
	n, ok := inv.Args[name].(float64)
	return n, ok
}

func (inv Invocation) Bool(name string) (bool, bool) {
	b, ok := inv.Args[name].(bool)
	return b, ok
}

type RunFunc func(ctx context.Context, inv Invocation) (string, error)

type Command struct {
	ID          string
	Description string
	Params      []Param
	Run         RunFunc
}

// Usage renders the call shape, e.g. "mode.history [limit]".
func (c Command) Usage() string {
	parts := []string{c.ID}
	for _, p := range c.Params {
		name := p.Name
		if p.Rest {
			name += "..."
		}
		if p.Required {
			parts = append(parts, "<"+name+">")
		} else {
			parts = append(parts, "["+name+"]")
		}
	}
	return strings.Join(parts, " ")
}

type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Register adds cmd, replacing any command with the same id.
func (r *Registry) Register(cmd Command) error {
	cmd.ID = normalizeID(cmd.ID)
	if cmd.ID == "" {
		return sabakiErrors.InvalidInput("command id cannot be empty")
	}
	if cmd.Run == nil {
		return sabakiErrors.InvalidInput(fmt.Sprintf("command %s has no run function", cmd.ID))
	}
	for i, p := range cmd.Params {
		if p.Rest && i != len(cmd.Params)-1 {
			return sabakiErrors.InvalidInput(fmt.Sprintf("command %s: rest parameter %s must be last", cmd.ID, p.Name))
		}
	}

	r.mu.Lock()
	r.commands[cmd.ID] = cmd
	r.mu.Unlock()
	return nil
}

func (r *Registry) Get(id string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[normalizeID(id)]
	return cmd, ok
}

// List returns every command sorted by id.
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		cmds = append(cmds, c)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].ID < cmds[j].ID })
	return cmds
}

// Line is command input split with shell quoting rules. The untouched body
// is kept so free text can be recovered verbatim.
type Line struct {
	Raw    string
	Tokens []string
	body   string
}

// ParseLine strips prefix and tokenizes the rest, falling back to whitespace
// splitting on unbalanced quotes.
func ParseLine(input, prefix string) Line {
	body := strings.TrimPrefix(strings.TrimSpace(input), prefix)
	tokens, err := shlex.Split(body)
	if err != nil {
		tokens = strings.Fields(body)
	}
	return Line{Raw: input, Tokens: tokens, body: body}
}

func Tokenize(input, prefix string) []string {
	return ParseLine(input, prefix).Tokens
}

// After returns the body following the first n tokens as typed, with quotes,
// backslashes and '#' left intact.
func (l Line) After(n int) string {
	if n <= 0 {
		return strings.TrimSpace(l.body)
	}
	for i := 1; i < len(l.body); i++ {
		if !isSpace(l.body[i-1]) || isSpace(l.body[i]) {
			continue
		}
		head, err := shlex.Split(l.body[:i])
		if err == nil && len(head) == n {
			return strings.TrimSpace(l.body[i:])
		}
		if err == nil && len(head) > n {
			break
		}
	}
	if n >= len(l.Tokens) {
		return ""
	}
	return strings.Join(l.Tokens[n:], " ")
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Resolve matches tokens to a command. The first two tokens joined by a dot
// are tried first, then the first token alone.
func (r *Registry) Resolve(tokens []string) (Command, []string, bool) {
	if len(tokens) == 0 {
		return Command{}, nil, false
	}
	if len(tokens) >= 2 {
		if cmd, ok := r.Get(tokens[0] + "." + tokens[1]); ok {
			return cmd, tokens[2:], true
		}
	}
	if cmd, ok := r.Get(tokens[0]); ok {
		return cmd, tokens[1:], true
	}
	return Command{}, nil, false
}

// UsageError reports arguments that do not fit a command's parameters.
// It matches ErrInvalidInput.
type UsageError struct {
	Usage string
	Err   error
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%v (usage: %s)", e.Err, e.Usage)
}

func (e *UsageError) Unwrap() []error {
	return []error{e.Err, sabakiErrors.ErrInvalidInput}
}

// Execute parses args, the trailing tokens of line, against the command's
// parameters and runs it.
func (r *Registry) Execute(ctx context.Context, cmd Command, line Line, args []string) (string, error) {
	skipped := len(line.Tokens) - len(args)
	parsed, err := parseArgs(cmd.Params, args, func(i int) string {
		return line.After(skipped + i)
	})
	if err != nil {
		return "", &UsageError{Usage: cmd.Usage(), Err: err}
	}
	return cmd.Run(ctx, Invocation{ID: cmd.ID, Raw: line.Raw, Args: parsed})
}

// ParseArgs parses tokens with no source text; a Rest parameter gets its
// tokens joined by spaces.
func ParseArgs(params []Param, args []string) (map[string]any, error) {
	return parseArgs(params, args, func(i int) string {
		return strings.Join(args[i:], " ")
	})
}

func parseArgs(params []Param, args []string, rest func(i int) string) (map[string]any, error) {
	out := make(map[string]any, len(params))
	i := 0
	for _, p := range params {
		if p.Rest {
			if i < len(args) {
				out[p.Name] = rest(i)
				i = len(args)
			} else if p.Required {
				return nil, fmt.Errorf("missing argument %s", p.Name)
			}
			continue
		}
		if i >= len(args) {
			if p.Required {
				return nil, fmt.Errorf("missing argument %s", p.Name)
			}
			continue
		}

		v, err := parseValue(p, args[i])
		if err != nil {
			return nil, err
		}
		out[p.Name] = v
		i++
	}
	if i < len(args) {
		return nil, fmt.Errorf("unexpected argument %q", args[i])
	}
	return out, nil
}

func parseValue(p Param, raw string) (any, error) {
	switch p.Type {
	case ParamNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%s must be a number, got %q", p.Name, raw)
		}
		return n, nil
	case ParamBoolean:
		switch strings.ToLower(raw) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
		return nil, fmt.Errorf("%s must be true or false, got %q", p.Name, raw)
	default:
		return raw, nil
	}
}
