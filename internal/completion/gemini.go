package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient generates completions with Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGeminiClient creates a Gemini-backed Completer.
func NewGeminiClient(ctx context.Context, apiKey, model string, logger zerolog.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		log:    logger.With().Str("component", "gemini").Logger(),
	}, nil
}

// Complete implements Completer.
func (g *GeminiClient) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	start := time.Now()

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), generateConfig(params))
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", ErrEmptyCompletion
	}

	g.log.Debug().
		Str("model", g.model).
		Dur("duration", time.Since(start)).
		Int("response_len", len(text)).
		Msg("completion finished")

	return text, nil
}

// generateConfig asks for a bare JSON response so the output is not wrapped
// in a markdown fence.
func generateConfig(params Params) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  int32(params.MaxTokens),
		Temperature:      genai.Ptr(float32(params.Temperature)),
		TopP:             genai.Ptr(float32(params.TopP)),
		FrequencyPenalty: genai.Ptr(float32(params.FrequencyPenalty)),
		PresencePenalty:  genai.Ptr(float32(params.PresencePenalty)),
	}
}
