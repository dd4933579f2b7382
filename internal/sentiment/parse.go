package sentiment

import (
	"math"
	"strconv"
	"strings"

	"github.com/ternarybob/hotstocks/internal/models"
	"github.com/ternarybob/hotstocks/internal/tickers"
)

// ParseCSV scrapes (ticker, label, score) rows from loosely structured model output.
// Every line is tried on its own; lines that do not split into exactly three fields,
// whose ticker is not a symbol, or whose score is not a number in [-1, 1] are dropped.
// Header rows, code fences and '#' comments fail those checks and disappear with them.
func ParseCSV(raw string) []models.SentimentRecord {
	records := []models.SentimentRecord{}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			continue
		}

		ticker := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(parts[0]), "$"))
		if !tickers.IsSymbol(ticker) {
			continue
		}

		score, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || math.IsNaN(score) || score < -1 || score > 1 {
			continue
		}

		records = append(records, models.SentimentRecord{
			Ticker: ticker,
			Label:  strings.ToLower(strings.TrimSpace(parts[1])),
			Score:  score,
		})
	}

	return records
}

// Average folds records into one mean score per ticker, in first-seen order
func Average(records []models.SentimentRecord) []models.TickerSentiment {
	var order []string
	sums := map[string]float64{}
	counts := map[string]int{}

	for _, r := range records {
		if _, ok := counts[r.Ticker]; !ok {
			order = append(order, r.Ticker)
		}
		sums[r.Ticker] += r.Score
		counts[r.Ticker]++
	}

	out := make([]models.TickerSentiment, 0, len(order))
	for _, t := range order {
		avg := sums[t] / float64(counts[t])
		out = append(out, models.TickerSentiment{
			Ticker:  t,
			Score:   avg,
			Label:   Label(avg),
			Samples: counts[t],
		})
	}
	return out
}

// Label buckets a score into positive, negative or neutral
func Label(score float64) string {
	switch {
	case score > 0.3:
		return "positive"
	case score < -0.3:
		return "negative"
	default:
		return "neutral"
	}
}
