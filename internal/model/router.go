package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/harunnryd/sabaki/internal/config"
	sabakiErrors "github.com/harunnryd/sabaki/internal/errors"
	"github.com/harunnryd/sabaki/internal/logger"
	"github.com/harunnryd/sabaki/internal/model/contract"
	anthropicProvider "github.com/harunnryd/sabaki/internal/model/providers/anthropic"
	geminiProvider "github.com/harunnryd/sabaki/internal/model/providers/gemini"
	openaiProvider "github.com/harunnryd/sabaki/internal/model/providers/openai"
)

// DefaultModelRouter implements ModelRouter interface
type DefaultModelRouter struct {
	cfg       config.ModelsConfig
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewModelRouter creates a new model router
func NewModelRouter(cfg config.ModelsConfig) (*DefaultModelRouter, error) {
	router := &DefaultModelRouter{
		cfg:       cfg,
		providers: make(map[string]Provider),
	}

	if err := router.initProviders(); err != nil {
		return nil, err
	}

	return router, nil
}

// Register adds or replaces a provider under its name.
func (r *DefaultModelRouter) Register(p Provider) {
	r.mu.Lock()
	r.providers[p.Name()] = p
	r.mu.Unlock()
}

// Route routes a completion request to the appropriate provider
func (r *DefaultModelRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	if model == "" {
		model = r.cfg.Default
	}
	slog.Debug("Routing completion request", append(logger.Attrs(ctx), "model", model)...)

	resolved, provider, err := r.resolveProvider(ctx, model)
	if err != nil {
		return nil, err
	}

	return r.executeWithFallback(ctx, resolved, provider, req)
}

// ListModels returns all registered model names, sorted.
func (r *DefaultModelRouter) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.providers))
	for name := range r.providers {
		models = append(models, name)
	}
	sort.Strings(models)

	return models
}

// Health reports whether any model can be routed to.
func (r *DefaultModelRouter) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return sabakiErrors.Wrap(err, "health check cancelled")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.providers) == 0 {
		return sabakiErrors.NotFound("no models registered")
	}
	if r.cfg.Default == "" {
		return nil
	}
	if _, ok := r.providers[r.cfg.Default]; ok {
		return nil
	}
	if _, ok := r.providers[r.cfg.Fallback]; ok {
		return nil
	}
	return sabakiErrors.NotFound(fmt.Sprintf("default model %s is not registered", r.cfg.Default))
}

// initProviders initializes all providers from configuration
func (r *DefaultModelRouter) initProviders() error {
	for _, entry := range r.cfg.Registry {
		provider, err := createProvider(entry)
		if err != nil {
			slog.Warn("Failed to create provider", "provider", entry.Provider, "model", entry.Name, "error", err)
			continue
		}

		r.Register(provider)
		slog.Debug("Provider initialized", "name", entry.Name, "type", entry.Provider)
	}

	if len(r.providers) == 0 && len(r.cfg.Registry) > 0 {
		return sabakiErrors.Internal("no providers initialized")
	}

	return nil
}

// resolveProvider resolves a provider by model name with fallback
func (r *DefaultModelRouter) resolveProvider(ctx context.Context, model string) (string, Provider, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, sabakiErrors.Wrap(err, "provider resolution cancelled")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, ok := r.providers[model]; ok {
		return model, provider, nil
	}

	slog.Warn("Model not found", "model", model)
	if r.cfg.Fallback != "" && model != r.cfg.Fallback {
		if fallback, ok := r.providers[r.cfg.Fallback]; ok {
			slog.Info("Using fallback model", "model", model, "fallback", r.cfg.Fallback)
			return r.cfg.Fallback, fallback, nil
		}
	}

	return "", nil, sabakiErrors.NotFound(fmt.Sprintf("model %s not found", model))
}

// executeWithFallback executes a request with fallback logic
func (r *DefaultModelRouter) executeWithFallback(ctx context.Context, model string, provider Provider, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	maxAttempts := r.cfg.MaxFallbackAttempts
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultModelMaxFallbackAttempts
	}

	currentModel := model
	currentProvider := provider

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, sabakiErrors.Wrap(err, "request execution cancelled")
		}

		req.Model = currentModel
		resp, err := currentProvider.Generate(ctx, req)
		if err == nil {
			slog.Debug("Request completed", append(logger.Attrs(ctx), "model", currentModel, "attempt", attempt+1)...)
			return resp, nil
		}

		slog.Error("Provider request failed", append(logger.Attrs(ctx), "model", currentModel, "attempt", attempt+1, "retryable", sabakiErrors.IsRetryable(err), "error", sabakiErrors.Redact(err.Error()))...)

		if r.cfg.Fallback == "" || currentModel == r.cfg.Fallback {
			return nil, sabakiErrors.NewDefaultErrorMapper().MapError(err)
		}

		r.mu.RLock()
		fallbackProvider, exists := r.providers[r.cfg.Fallback]
		r.mu.RUnlock()
		if !exists {
			return nil, sabakiErrors.NotFound(fmt.Sprintf("fallback model %s not found", r.cfg.Fallback))
		}

		slog.Info("Attempting fallback", "from", currentModel, "to", r.cfg.Fallback)
		currentModel = r.cfg.Fallback
		currentProvider = fallbackProvider
	}

	return nil, sabakiErrors.Internal("fallback exhausted")
}

// createProvider creates a provider instance based on registry entry
func createProvider(entry config.ModelRegistry) (Provider, error) {
	switch entry.Provider {
	case "openai":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOpenAIBaseURL
		}

		if entry.APIKey == "" {
			return nil, sabakiErrors.InvalidInput("API key required for OpenAI provider")
		}

		return NewProviderAdapter(entry.Name, "openai", openaiProvider.New(entry.APIKey, baseURL)), nil

	case "ollama":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOllamaBaseURL
		}

		apiKey := entry.APIKey
		if apiKey == "" {
			apiKey = config.DefaultOllamaAPIKey
		}

		return NewProviderAdapter(entry.Name, "ollama", openaiProvider.New(apiKey, baseURL)), nil

	case "anthropic":
		if entry.APIKey == "" {
			return nil, sabakiErrors.InvalidInput("API key required for Anthropic provider")
		}

		return NewProviderAdapter(entry.Name, "anthropic", anthropicProvider.New(entry.APIKey, entry.BaseURL)), nil

	case "gemini":
		if entry.APIKey == "" {
			return nil, sabakiErrors.InvalidInput("API key required for Gemini provider")
		}

		provider, err := geminiProvider.New(entry.APIKey)
		if err != nil {
			return nil, sabakiErrors.WrapWithCategory(err, "failed to create Gemini provider", sabakiErrors.ErrInternal)
		}

		return NewProviderAdapter(entry.Name, "gemini", provider), nil

	default:
		return nil, sabakiErrors.InvalidInput(fmt.Sprintf("unknown provider type: %s", entry.Provider))
	}
}
