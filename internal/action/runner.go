package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	sabakiErrors "github.com/harunnryd/sabaki/internal/errors"
	"github.com/harunnryd/sabaki/internal/logger"
)

// Runner executes one kind of proposed action.
type Runner interface {
	Kind() string
	Description() string
	Run(ctx context.Context, args json.RawMessage) (string, error)
}

// Registry maps action kinds to runners.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
}

func NewRegistry() *Registry {
	return &Registry{
		runners: make(map[string]Runner),
	}
}

func NormalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

func (r *Registry) Register(runner Runner) {
	kind := NormalizeKind(runner.Kind())
	if kind == "" {
		panic("action: empty runner kind")
	}

	r.mu.Lock()
	r.runners[kind] = runner
	r.mu.Unlock()
}

func (r *Registry) Get(kind string) (Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.runners[NormalizeKind(kind)]
	return runner, ok
}

// Catalog describes every registered kind, sorted by kind.
func (r *Registry) Catalog() []CatalogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]CatalogEntry, 0, len(r.runners))
	for kind, runner := range r.runners {
		entries = append(entries, CatalogEntry{Kind: kind, Description: runner.Description()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Kind < entries[j].Kind })
	return entries
}

type CatalogEntry struct {
	Kind        string
	Description string
}

// Executor runs proposed actions through a Registry, one at a time, in order.
// A failing action does not stop the ones after it.
type Executor struct {
	registry *Registry
}

func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

func (e *Executor) Execute(ctx context.Context, actions []Proposed) []Result {
	results := make([]Result, 0, len(actions))
	for _, a := range actions {
		results = append(results, e.executeOne(ctx, a))
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, a Proposed) (result Result) {
	result = Result{ActionID: a.ID, Kind: a.Kind}

	if err := ctx.Err(); err != nil {
		result.Error = sabakiErrors.Sanitize(err)
		return result
	}

	runner, ok := e.registry.Get(a.Kind)
	if !ok {
		result.Error = fmt.Sprintf("no runner for action kind %q", a.Kind)
		slog.Warn("Action kind not registered", append(logger.Attrs(ctx), "kind", a.Kind, "action_id", a.ID)...)
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Action runner panicked", append(logger.Attrs(ctx), "kind", a.Kind, "panic", r)...)
			result.Success = false
			result.Output = ""
			result.Error = "action failed unexpectedly"
		}
	}()

	start := time.Now()
	output, err := runner.Run(ctx, a.Args)
	duration := time.Since(start)
	if err != nil {
		slog.Error("Action failed", append(logger.Attrs(ctx), "kind", a.Kind, "action_id", a.ID, "error", sabakiErrors.Redact(err.Error()), "duration", duration)...)
		result.Error = sabakiErrors.Redact(err.Error())
		return result
	}

	slog.Info("Action succeeded", append(logger.Attrs(ctx), "kind", a.Kind, "action_id", a.ID, "duration", duration)...)
	result.Success = true
	result.Output = output
	return result
}
