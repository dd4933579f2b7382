package sentiment

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

const defaultTemperature = 0.2

// GeminiGenerator generates text with the Google Gemini API
type GeminiGenerator struct {
	client     *genai.Client
	model      string
	maxRetries int
	logger     arbor.ILogger
}

// NewGeminiGenerator creates a Gemini-backed generator
func NewGeminiGenerator(ctx context.Context, apiKey, model string, logger arbor.ILogger) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:     client,
		model:      model,
		maxRetries: 2,
		logger:     logger,
	}, nil
}

func (g *GeminiGenerator) Name() string {
	return "gemini"
}

// Generate sends a single-turn prompt and returns the text of the first candidate
func (g *GeminiGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(defaultTemperature)),
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err != nil {
			lastErr = err
			g.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Gemini generation failed")
			continue
		}
		if resp == nil || len(resp.Candidates) == 0 {
			lastErr = fmt.Errorf("no candidates in Gemini response")
			continue
		}
		return resp.Text(), nil
	}

	return "", fmt.Errorf("gemini generation failed after %d attempts: %w", g.maxRetries+1, lastErr)
}

// backoff waits a linearly growing interval before a retry
func backoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(attempt) * 2 * time.Second):
		return nil
	}
}
