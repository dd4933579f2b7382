package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
)

const claudeMaxTokens = 1024

// ClaudeGenerator generates text with the Anthropic Messages API
type ClaudeGenerator struct {
	client     anthropic.Client
	model      string
	maxRetries int
	logger     arbor.ILogger
}

// NewClaudeGenerator creates a Claude-backed generator
func NewClaudeGenerator(apiKey, model string, logger arbor.ILogger) (*ClaudeGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("claude API key is required")
	}

	return &ClaudeGenerator{
		client:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		maxRetries: 2,
		logger:     logger,
	}, nil
}

func (c *ClaudeGenerator) Name() string {
	return "claude"
}

// Generate sends a single-turn message and concatenates the text blocks of the reply
func (c *ClaudeGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(claudeMaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(defaultTemperature),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			lastErr = err
			c.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Claude generation failed")
			continue
		}

		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() == 0 {
			lastErr = fmt.Errorf("no text content in Claude response")
			continue
		}
		return sb.String(), nil
	}

	return "", fmt.Errorf("claude generation failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
