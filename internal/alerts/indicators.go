package alerts

import (
	"math"

	"github.com/ternarybob/hotstocks/internal/models"
)

const neutralRSI = 50.0

// RSI computes the relative strength index over the last period price changes
// using simple means of gains and losses.
// Returns 50 when fewer than period+1 closes are available or the price never moved,
// and 100 when the window holds gains but no losses.
func RSI(closes []float64, period int) float64 {
	if period < 1 || len(closes) < period+1 {
		return neutralRSI
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	switch {
	case loss == 0 && gain == 0:
		return neutralRSI
	case loss == 0:
		return 100
	}

	rs := gain / loss
	return 100 - 100/(1+rs)
}

// VolumeZScore measures how far the latest volume sits from the mean of the
// preceding window bars, in population standard deviations.
// Returns NaN when fewer than window prior bars exist or the window has no variance.
func VolumeZScore(volumes []int64, window int) float64 {
	if window < 2 || len(volumes) < window+1 {
		return math.NaN()
	}

	prior := volumes[len(volumes)-1-window : len(volumes)-1]
	mean := meanInt(prior)

	var variance float64
	for _, v := range prior {
		d := float64(v) - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(prior)))
	if std == 0 {
		return math.NaN()
	}

	return (float64(volumes[len(volumes)-1]) - mean) / std
}

// VolumeRatio is the latest volume over the mean of all prior volumes.
// Returns 1 when there is no history or the history averages zero.
func VolumeRatio(volumes []int64) float64 {
	if len(volumes) < 2 {
		return 1
	}
	mean := meanInt(volumes[:len(volumes)-1])
	if mean == 0 {
		return 1
	}
	return float64(volumes[len(volumes)-1]) / mean
}

// PriceChangePct is the percentage move of the latest close against the previous one
func PriceChangePct(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	prev := closes[len(closes)-2]
	if prev == 0 {
		return 0
	}
	return (closes[len(closes)-1] - prev) / prev * 100
}

// ClassifyAlert maps a volume z-score onto an alert level
func ClassifyAlert(zscore float64) models.AlertLevel {
	switch {
	case math.IsNaN(zscore):
		return models.AlertLevelNoData
	case zscore >= 4:
		return models.AlertLevelHigh
	case zscore >= 2.5:
		return models.AlertLevelMedium
	case zscore >= 1.5:
		return models.AlertLevelLow
	default:
		return models.AlertLevelNormal
	}
}

func meanInt(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

func closesOf(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func volumesOf(bars []models.PriceBar) []int64 {
	out := make([]int64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
