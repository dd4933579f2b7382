package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/hotstocks/internal/models"
)

// PriceSeriesProvider is the market-data collaborator consumed by alert analysis.
// Given symbols and a window it returns per-symbol bars in ascending date order.
// Symbols with no data are omitted from the map.
type PriceSeriesProvider interface {
	GetPriceVolumeSeries(ctx context.Context, symbols []string, from, to time.Time) (map[string][]models.PriceBar, error)
}
