package alerts

import (
	"fmt"
	"math"
	"strings"

	"github.com/ternarybob/hotstocks/internal/models"
)

// Advice renders the rule-based commentary attached to an alert snapshot.
// Volume wording follows the latest bar's ratio to its trailing mean; the level follows the z-score.
func Advice(volumeRatio, sentiment, priceChangePct float64, level models.AlertLevel) string {
	if level == models.AlertLevelNoData || math.IsNaN(volumeRatio) {
		return "Not enough market data to assess volume activity."
	}

	var volume string
	switch {
	case volumeRatio > 3:
		volume = "extremely high"
	case volumeRatio > 2:
		volume = "elevated"
	default:
		volume = "moderate"
	}

	var mood string
	switch {
	case sentiment > 0.3:
		mood = "positive"
	case sentiment < -0.3:
		mood = "negative"
	default:
		mood = "neutral"
	}

	move := math.Abs(priceChangePct)
	direction := "up"
	if priceChangePct < 0 {
		direction = "down"
	}

	var price string
	switch {
	case move > 5:
		price = fmt.Sprintf("a sharp price move %s %.1f%%", direction, move)
	case move > 2:
		price = fmt.Sprintf("a notable price move %s %.1f%%", direction, move)
	default:
		price = fmt.Sprintf("a modest price move (%+.1f%%)", priceChangePct)
	}

	var recommendation string
	switch {
	case volumeRatio > 3 && move > 3:
		recommendation = "High volume with significant price movement suggests heightened volatility. Consider waiting for stabilization before entering positions."
	case volumeRatio > 3:
		recommendation = "The unusual volume spike warrants close monitoring for a breakout or breakdown."
	case volumeRatio > 2:
		recommendation = "Watch for confirmation of trend direction before taking positions."
	default:
		recommendation = "Monitor for volume confirmation before acting."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s alert: %s trading volume at %.1fx the average with %s. ", level, volume, volumeRatio, price)
	fmt.Fprintf(&sb, "Social sentiment is %s (%+.2f). ", mood, sentiment)
	sb.WriteString(recommendation)
	return sb.String()
}
