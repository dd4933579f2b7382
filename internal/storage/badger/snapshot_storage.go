package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/hotstocks/internal/interfaces"
	"github.com/ternarybob/hotstocks/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SnapshotStorage implements the SnapshotStorage interface for Badger
type SnapshotStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewSnapshotStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SnapshotStorage {
	return &SnapshotStorage{
		db:     db,
		logger: logger,
	}
}

// SaveSnapshots upserts every snapshot keyed by its ID
func (s *SnapshotStorage) SaveSnapshots(ctx context.Context, snapshots []models.AlertSnapshot) error {
	for i := range snapshots {
		snap := snapshots[i]
		if snap.ID == "" {
			return fmt.Errorf("snapshot for %s has no ID", snap.Ticker)
		}
		if err := s.db.Store().Upsert(snap.ID, &snap); err != nil {
			return fmt.Errorf("failed to save snapshot %s: %w", snap.ID, err)
		}
	}

	s.logger.Debug().Int("count", len(snapshots)).Msg("Alert snapshots saved")
	return nil
}

// ListByTicker returns a ticker's snapshots newest first; limit <= 0 returns all
func (s *SnapshotStorage) ListByTicker(ctx context.Context, ticker string, limit int) ([]models.AlertSnapshot, error) {
	query := badgerhold.Where("Ticker").Eq(ticker).SortBy("Timestamp").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var snapshots []models.AlertSnapshot
	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to list snapshots for %s: %w", ticker, err)
	}
	return snapshots, nil
}

// ListByRun returns every snapshot written by a run, in ticker order
func (s *SnapshotStorage) ListByRun(ctx context.Context, runID string) ([]models.AlertSnapshot, error) {
	var snapshots []models.AlertSnapshot
	if err := s.db.Store().Find(&snapshots, badgerhold.Where("RunID").Eq(runID).SortBy("Ticker")); err != nil {
		return nil, fmt.Errorf("failed to list snapshots for run %s: %w", runID, err)
	}
	return snapshots, nil
}

// Latest returns the newest snapshot for ticker or ErrSnapshotNotFound
func (s *SnapshotStorage) Latest(ctx context.Context, ticker string) (*models.AlertSnapshot, error) {
	snapshots, err := s.ListByTicker(ctx, ticker, 1)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, interfaces.ErrSnapshotNotFound
	}
	return &snapshots[0], nil
}
