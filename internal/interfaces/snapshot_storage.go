package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/hotstocks/internal/models"
)

// SnapshotStorage persists alert snapshots written by the alert stage
type SnapshotStorage interface {
	SaveSnapshots(ctx context.Context, snapshots []models.AlertSnapshot) error
	ListByTicker(ctx context.Context, ticker string, limit int) ([]models.AlertSnapshot, error)
	ListByRun(ctx context.Context, runID string) ([]models.AlertSnapshot, error)
	Latest(ctx context.Context, ticker string) (*models.AlertSnapshot, error)
}

// ErrSnapshotNotFound is returned by Latest when a ticker has no stored snapshots
var ErrSnapshotNotFound = errors.New("snapshot not found")
