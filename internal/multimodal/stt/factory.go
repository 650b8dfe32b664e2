package stt

import (
	"fmt"

	"github.com/nikhilbhutani/mediadesk/internal/config"
)

// New builds the provider selected by cfg.Backend.
func New(cfg config.STTConfig) (STTProvider, error) {
	switch cfg.Backend {
	case "openai":
		if cfg.OpenAIKey == "" && cfg.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("stt backend openai requires OPENAI_API_KEY")
		}
		return NewOpenAISTT(OpenAISTTConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}), nil
	case "local":
		return NewLocalSTT(LocalSTTConfig{BaseURL: cfg.LocalBaseURL, Model: cfg.LocalModel}), nil
	default:
		return nil, fmt.Errorf("unknown stt backend %q", cfg.Backend)
	}
}
