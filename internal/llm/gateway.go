package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikhilbhutani/mediadesk/internal/config"
)

// gateway makes exactly one attempt per call against one provider. There is
// no retry and no fallback provider.
type gateway struct {
	providers       map[string]Provider
	defaultProvider string
	defaultModel    string
	logger          *slog.Logger
}

func NewGateway(cfg config.TranslateConfig) Gateway {
	g := &gateway{
		providers:       make(map[string]Provider),
		defaultProvider: cfg.Provider,
		defaultModel:    cfg.Model,
		logger:          slog.With("component", "llm_gateway"),
	}

	switch {
	case cfg.OpenAIBaseURL != "":
		g.providers["openai"] = NewOpenAIProviderWithBaseURL(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	case cfg.OpenAIKey != "":
		g.providers["openai"] = NewOpenAIProvider(cfg.OpenAIKey)
	}
	if cfg.AnthropicKey != "" {
		g.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}
	if cfg.OllamaURL != "" {
		g.providers["ollama"] = NewOllamaProvider(cfg.OllamaURL)
	}

	return g
}

// NewGatewayWithProviders is used by tests and by callers that build their
// own providers.
func NewGatewayWithProviders(defaultProvider string, providers ...Provider) Gateway {
	g := &gateway{
		providers:       make(map[string]Provider, len(providers)),
		defaultProvider: defaultProvider,
		logger:          slog.With("component", "llm_gateway"),
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}
	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

// Ready reports whether the default provider is configured.
func (g *gateway) Ready() bool {
	_, ok := g.providers[g.defaultProvider]
	return ok
}

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}

	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}

	if req.Model == "" {
		req.Model = g.defaultModel
	}
	if req.Model == "" {
		req.Model = p.DefaultModel()
	}

	resp, err := p.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("chat completed",
		"provider", resp.Provider,
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"latency_ms", resp.LatencyMs,
	)
	return resp, nil
}
