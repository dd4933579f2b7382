package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/hotstocks/internal/models"
)

// SourceFetcher retrieves raw items and replies from one paginated, time-ordered feed.
type SourceFetcher interface {
	// FetchRecentItems returns items newest first, bounded by the lookback window or limit,
	// whichever is hit first. Exhausted retries surface as *common.SourceUnavailableError.
	FetchRecentItems(ctx context.Context, channel string, lookback time.Duration, limit int) ([]models.Item, error)

	// FetchReplies returns up to limit nested reply bodies for one item, top-ranked first.
	// It is best-effort: failures yield an empty slice and are never returned.
	FetchReplies(ctx context.Context, permalink string, limit int) []string
}
