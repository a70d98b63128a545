// Package llm provides the optional narrative generation capability. When
// no API key is configured the pipeline falls back to the template
// narrative without error.
package llm

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sherlockintel/sherlock/internal/config"
)

// Client completes a prompt against a hosted model.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Close() error
}

// NewFromConfig builds the configured provider, wrapped in a rate limiter.
// Returns (nil, nil) when narrative generation is disabled.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (Client, error) {
	if cfg.LLM.APIKey == "" || cfg.LLM.Provider == "" {
		logger.Info("No LLM key configured, narrative generation disabled")
		return nil, nil
	}

	var (
		client Client
		err    error
	)
	switch cfg.LLM.Provider {
	case "openai":
		client = NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature)
	case "gemini":
		client, err = NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewRateLimitedClient(client, cfg.LLM.RatePerMin), nil
}
