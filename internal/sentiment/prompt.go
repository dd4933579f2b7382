package sentiment

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/hotstocks/internal/models"
)

const maxTextRunes = 600

// SystemPrompt instructs the model to answer in the CSV shape ParseCSV expects
const SystemPrompt = `You are a financial sentiment analyst reading retail investor posts.
For every ticker in the request, judge the sentiment the posts express about it.
Respond ONLY with CSV text, one row per ticker, using this exact header:
ticker,sentiment,sentiment_score
sentiment is one of positive, negative, neutral.
sentiment_score is a number from -1 (very bearish) to 1 (very bullish).
Do not add commentary.`

type promptPost struct {
	Channel    string `yaml:"channel"`
	Text       string `yaml:"text"`
	Engagement int    `yaml:"engagement"`
}

type promptPayload struct {
	Tickers []string     `yaml:"tickers"`
	Posts   []promptPost `yaml:"posts"`
}

// BuildPrompt serializes the ranked tickers and up to maxItems item texts as YAML.
// Only items mentioning at least one of the tickers are included, in the given order.
func BuildPrompt(tickers []string, items []models.Item, maxItems int) (string, error) {
	payload := promptPayload{Tickers: tickers, Posts: []promptPost{}}

	for _, item := range items {
		if maxItems > 0 && len(payload.Posts) >= maxItems {
			break
		}
		if !mentionsAny(item.Text, tickers) {
			continue
		}
		payload.Posts = append(payload.Posts, promptPost{
			Channel:    item.Channel,
			Text:       truncateRunes(strings.TrimSpace(item.Text), maxTextRunes),
			Engagement: item.EngagementScore,
		})
	}

	data, err := yaml.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal prompt payload: %w", err)
	}

	return "Analyze the sentiment of these posts for each ticker.\n\n" + string(data), nil
}

func mentionsAny(text string, tickers []string) bool {
	upper := strings.ToUpper(text)
	for _, t := range tickers {
		if strings.Contains(upper, t) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
