package sentiment

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/interfaces"
)

// NewGeneratorFromConfig builds the generator selected by cfg.Provider.
// Returns nil with no error when sentiment is disabled.
func NewGeneratorFromConfig(ctx context.Context, cfg common.SentimentConfig, logger arbor.ILogger) (interfaces.TextGenerator, error) {
	switch cfg.Provider {
	case common.SentimentProviderNone:
		return nil, nil
	case common.SentimentProviderGemini:
		return NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	case common.SentimentProviderClaude:
		return NewClaudeGenerator(cfg.ClaudeAPIKey, cfg.ClaudeModel, logger)
	default:
		return nil, &common.ConfigurationError{Field: "sentiment.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
}
