// Package backend builds the grading backend selected by configuration.
package backend

import (
	"fmt"

	"github.com/recallgrade/recallgrade/internal/grader"
	"github.com/recallgrade/recallgrade/internal/infrastructure/config"
)

// New returns the backend named by cfg.Backend.
func New(cfg *config.Config) (grader.Backend, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		return grader.NewGeminiBackend(grader.GeminiConfig{
			APIKey:          cfg.GeminiAPIKey,
			APIKeyEnv:       cfg.GeminiAPIKeyEnv,
			URL:             cfg.GeminiURL,
			Model:           cfg.GeminiModel,
			DualInstruction: cfg.GeminiDualInstruction,
			RequestsPerMin:  cfg.GeminiRPM,
			Timeout:         cfg.GraderTimeout,
		}), nil
	case config.BackendOllama:
		return grader.NewOllamaBackend(grader.OllamaConfig{
			URL:     cfg.OllamaURL,
			Model:   cfg.OllamaModel,
			Timeout: cfg.GraderTimeout,
		}), nil
	case config.BackendOpenAI:
		return grader.NewOpenAIBackend(grader.OpenAIConfig{
			BaseURL: cfg.LLMURL,
			Model:   cfg.LLMModel,
			APIKey:  cfg.LLMAPIKey,
			Timeout: cfg.GraderTimeout,
		}), nil
	case config.BackendAnthropic:
		return grader.NewAnthropicBackend(grader.AnthropicConfig{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
			Timeout: cfg.GraderTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown grader backend %q", cfg.Backend)
	}
}
