// Package completion is the boundary to the external text-completion
// backend: text in, text out.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrEmptyCompletion is returned when the backend answers without any text.
var ErrEmptyCompletion = errors.New("no completion returned")

// Completer sends a single prompt to a completion backend and returns the
// generated text. Implementations must not retry.
type Completer interface {
	Complete(ctx context.Context, prompt string, params Params) (string, error)
}

// Params are the sampling parameters sent with every request.
type Params struct {
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// DefaultParams bound the output length and keep randomness moderate.
var DefaultParams = Params{
	MaxTokens:        1024,
	Temperature:      0.7,
	TopP:             1,
	FrequencyPenalty: 0,
	PresencePenalty:  0,
}

// Config selects and configures a backend.
type Config struct {
	Backend string // "openai" or "gemini"
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// New creates the Completer named by cfg.Backend.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (Completer, error) {
	switch cfg.Backend {
	case "openai", "":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, logger)
	default:
		return nil, fmt.Errorf("unsupported completion backend %q", cfg.Backend)
	}
}
