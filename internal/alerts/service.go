package alerts

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/interfaces"
	"github.com/ternarybob/hotstocks/internal/models"
)

// Service derives one alert snapshot per ranked ticker and persists them
type Service struct {
	store        interfaces.SnapshotStorage
	zscoreWindow int
	rsiPeriod    int
	logger       arbor.ILogger
	now          func() time.Time
}

// NewService creates an alert service. store may be nil, in which case snapshots are only returned.
func NewService(store interfaces.SnapshotStorage, cfg common.AlertsConfig, logger arbor.ILogger) *Service {
	return &Service{
		store:        store,
		zscoreWindow: cfg.ZScoreWindow,
		rsiPeriod:    cfg.RSIPeriod,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock overrides the time source used for snapshot timestamps and the price window
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Snapshot builds alert rows for every ticker in result, in ranking order.
// A nil prices provider, a provider error, or a ticker without bars yields
// zeroed market fields with level "No data". sentiment may be nil.
func (s *Service) Snapshot(ctx context.Context, result *models.RunResult, prices interfaces.PriceSeriesProvider, sentiment map[string]float64) ([]models.AlertSnapshot, error) {
	symbols := result.Tickers()
	if len(symbols) == 0 {
		return []models.AlertSnapshot{}, nil
	}

	now := s.now().UTC()
	series := map[string][]models.PriceBar{}
	if prices != nil {
		// Daily bars with weekends and holidays need roughly 1.5 calendar days per bar
		days := (s.zscoreWindow + s.rsiPeriod + 2) * 3 / 2
		fetched, err := prices.GetPriceVolumeSeries(ctx, symbols, now.AddDate(0, 0, -days), now)
		if err != nil {
			s.logger.Warn().Err(err).Strs("tickers", symbols).Msg("Price series unavailable, alerts will carry no market data")
		} else {
			series = fetched
		}
	}

	snapshots := make([]models.AlertSnapshot, 0, len(symbols))
	for _, item := range result.Items {
		snap := s.snapshotFor(item, series[item.Ticker], sentiment[item.Ticker], now)
		snap.RunID = result.RunID
		snapshots = append(snapshots, snap)
	}

	if s.store != nil {
		if err := s.store.SaveSnapshots(ctx, snapshots); err != nil {
			return snapshots, fmt.Errorf("failed to persist alert snapshots: %w", err)
		}
	}

	s.logger.Info().
		Str("run_id", result.RunID).
		Int("snapshots", len(snapshots)).
		Msg("Alert snapshots generated")

	return snapshots, nil
}

func (s *Service) snapshotFor(item models.ScoredTicker, bars []models.PriceBar, sentiment float64, now time.Time) models.AlertSnapshot {
	snap := models.AlertSnapshot{
		ID:             "alert_" + uuid.New().String(),
		Ticker:         item.Ticker,
		AlertLevel:     models.AlertLevelNoData,
		SentimentScore: sentiment,
		MentionCount:   item.Mentions,
		Timestamp:      now,
	}

	if len(bars) == 0 {
		snap.Advice = Advice(0, sentiment, 0, snap.AlertLevel)
		return snap
	}

	closes := closesOf(bars)
	volumes := volumesOf(bars)
	latest := bars[len(bars)-1]
	z := VolumeZScore(volumes, s.zscoreWindow)

	snap.Close = latest.Close
	snap.Volume = latest.Volume
	snap.VolumeRatio = VolumeRatio(volumes)
	snap.AlertLevel = ClassifyAlert(z)
	snap.RSI = RSI(closes, s.rsiPeriod)
	snap.PriceChangePct = PriceChangePct(closes)
	// NaN has no JSON encoding; the level already records the missing z-score
	if !math.IsNaN(z) {
		snap.VolumeZScore = z
	}
	snap.Advice = Advice(snap.VolumeRatio, sentiment, snap.PriceChangePct, snap.AlertLevel)

	return snap
}
