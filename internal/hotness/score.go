package hotness

import (
	"math"
	"sort"

	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/models"
)

// Weights are the coefficients of the linear hotness score. Negative values are accepted.
type Weights struct {
	Mentions   float64
	Engagement float64
	Replies    float64
}

// WeightsFromConfig converts the [pipeline.weights] section
func WeightsFromConfig(cfg common.WeightsConfig) Weights {
	return Weights{
		Mentions:   cfg.Mentions,
		Engagement: cfg.Engagement,
		Replies:    cfg.Replies,
	}
}

// Hotness is the plain weighted sum of the accumulator's totals. No normalization, no decay.
func Hotness(acc *Accumulator, w Weights) float64 {
	return w.Mentions*float64(acc.Mentions) +
		w.Engagement*float64(acc.EngagementTotal) +
		w.Replies*float64(acc.ReplyTotal)
}

// Score ranks accumulators by hotness, descending. Tickers below threshold or without a
// single mention are dropped. Equal scores keep discovery order.
func Score(accs *Accumulators, w Weights, threshold float64) []models.ScoredTicker {
	type scored struct {
		acc     *Accumulator
		hotness float64
	}

	var kept []scored
	for _, acc := range accs.All() {
		if acc.Mentions < 1 {
			continue
		}
		h := Hotness(acc, w)
		if h < threshold {
			continue
		}
		kept = append(kept, scored{acc: acc, hotness: h})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].hotness > kept[j].hotness
	})

	out := make([]models.ScoredTicker, 0, len(kept))
	for _, s := range kept {
		links := make([]string, len(s.acc.TopLinks))
		copy(links, s.acc.TopLinks)
		out = append(out, models.ScoredTicker{
			Ticker:          s.acc.Ticker,
			Hotness:         round6(s.hotness),
			Mentions:        s.acc.Mentions,
			EngagementTotal: s.acc.EngagementTotal,
			ReplyTotal:      s.acc.ReplyTotal,
			TopLinks:        links,
		})
	}
	return out
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
