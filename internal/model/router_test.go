package model

import (
	"context"
	"errors"
	"testing"

	"github.com/harunnryd/sabaki/internal/config"
	sabakiErrors "github.com/harunnryd/sabaki/internal/errors"
	"github.com/harunnryd/sabaki/internal/model/contract"
)

type stubGenerator struct {
	reply  string
	err    error
	models []string
}

func (s *stubGenerator) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	s.models = append(s.models, req.Model)
	if s.err != nil {
		return nil, s.err
	}
	return &contract.CompletionResponse{Content: s.reply}, nil
}

func newStubRouter(cfg config.ModelsConfig, providers map[string]*stubGenerator) *DefaultModelRouter {
	r := &DefaultModelRouter{cfg: cfg, providers: make(map[string]Provider)}
	for name, g := range providers {
		r.Register(NewProviderAdapter(name, "stub", g))
	}
	return r
}

func TestRoute_UsesRequestedModel(t *testing.T) {
	primary := &stubGenerator{reply: "hello"}
	r := newStubRouter(config.ModelsConfig{Default: "primary"}, map[string]*stubGenerator{"primary": primary})

	resp, err := r.Route(context.Background(), "", contract.CompletionRequest{})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if resp.Content != "hello" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if len(primary.models) != 1 || primary.models[0] != "primary" {
		t.Fatalf("expected model name to be filled in, got %v", primary.models)
	}
}

func TestRoute_FallsBackOnFailure(t *testing.T) {
	primary := &stubGenerator{err: errors.New("connection reset")}
	backup := &stubGenerator{reply: "from backup"}
	r := newStubRouter(
		config.ModelsConfig{Default: "primary", Fallback: "backup", MaxFallbackAttempts: 2},
		map[string]*stubGenerator{"primary": primary, "backup": backup},
	)

	resp, err := r.Route(context.Background(), "primary", contract.CompletionRequest{Model: "primary"})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if resp.Content != "from backup" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if len(backup.models) != 1 || backup.models[0] != "backup" {
		t.Fatalf("fallback should be called with its own model name, got %v", backup.models)
	}
}

func TestRoute_FailureWithoutFallbackIsCategorized(t *testing.T) {
	r := newStubRouter(config.ModelsConfig{}, map[string]*stubGenerator{
		"primary": {err: errors.New("429 too many requests")},
	})

	_, err := r.Route(context.Background(), "primary", contract.CompletionRequest{})
	if !errors.Is(err, sabakiErrors.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestRoute_UnknownModel(t *testing.T) {
	r := newStubRouter(config.ModelsConfig{}, nil)

	_, err := r.Route(context.Background(), "ghost", contract.CompletionRequest{})
	if !errors.Is(err, sabakiErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListModelsSorted(t *testing.T) {
	r := newStubRouter(config.ModelsConfig{}, map[string]*stubGenerator{"zeta": {}, "alpha": {}})

	models := r.ListModels()
	if len(models) != 2 || models[0] != "alpha" || models[1] != "zeta" {
		t.Fatalf("unexpected models %v", models)
	}
}

func TestNewModelRouter_SkipsProvidersWithoutKeys(t *testing.T) {
	r, err := NewModelRouter(config.ModelsConfig{Registry: []config.ModelRegistry{
		{Name: "gpt", Provider: "openai"},
		{Name: "llama", Provider: "ollama"},
	}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	models := r.ListModels()
	if len(models) != 1 || models[0] != "llama" {
		t.Fatalf("expected only the keyless ollama model, got %v", models)
	}
}

func TestChatClient_EmptyReplyIsInvalidOutput(t *testing.T) {
	r := newStubRouter(config.ModelsConfig{}, map[string]*stubGenerator{"m": {reply: "  "}})

	_, err := NewChatClient(r, "m").Complete(context.Background(), []contract.Message{{Role: contract.RoleUser, Content: "hi"}})
	if !errors.Is(err, sabakiErrors.ErrInvalidModelOutput) {
		t.Fatalf("expected invalid model output, got %v", err)
	}
}

func TestChatClient_JSONSetsFlag(t *testing.T) {
	var seen contract.CompletionRequest
	r := &DefaultModelRouter{cfg: config.ModelsConfig{}, providers: map[string]Provider{}}
	r.Register(NewProviderAdapter("m", "stub", generatorFunc(func(req contract.CompletionRequest) {
		seen = req
	})))

	client := NewChatClient(r, "m")
	if _, err := client.JSON().Complete(context.Background(), nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !seen.JSONOutput {
		t.Fatal("expected JSON output to be requested")
	}
	if client.jsonOutput {
		t.Fatal("JSON must not modify the original client")
	}
}

type generatorFunc func(req contract.CompletionRequest)

func (f generatorFunc) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	f(req)
	return &contract.CompletionResponse{Content: "{}"}, nil
}

func TestHealth(t *testing.T) {
	ctx := context.Background()

	empty := newStubRouter(config.ModelsConfig{}, nil)
	if err := empty.Health(ctx); !errors.Is(err, sabakiErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no models, got %v", err)
	}

	healthy := newStubRouter(config.ModelsConfig{Default: "primary"}, map[string]*stubGenerator{"primary": {}})
	if err := healthy.Health(ctx); err != nil {
		t.Fatalf("expected healthy router, got %v", err)
	}

	viaFallback := newStubRouter(config.ModelsConfig{Default: "gone", Fallback: "backup"}, map[string]*stubGenerator{"backup": {}})
	if err := viaFallback.Health(ctx); err != nil {
		t.Fatalf("fallback should keep the router routable, got %v", err)
	}

	missing := newStubRouter(config.ModelsConfig{Default: "gone"}, map[string]*stubGenerator{"other": {}})
	if err := missing.Health(ctx); !errors.Is(err, sabakiErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unregistered default, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := healthy.Health(cancelled); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
