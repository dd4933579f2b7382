// Package pipeline orchestrates one hotness run: fetch every channel, extract tickers,
// aggregate per-ticker totals, score and assemble the run artifact.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/hotness"
	"github.com/ternarybob/hotstocks/internal/interfaces"
	"github.com/ternarybob/hotstocks/internal/models"
	"github.com/ternarybob/hotstocks/internal/tickers"
)

// Stage is one state of a run
type Stage string

const (
	StageInit        Stage = "INIT"
	StageFetching    Stage = "FETCHING"
	StageExtracting  Stage = "EXTRACTING"
	StageAggregating Stage = "AGGREGATING"
	StageScoring     Stage = "SCORING"
	StageDone        Stage = "DONE"
)

const (
	// MessageNoItems is reported when every reachable channel returned nothing in the window
	MessageNoItems = "No items were retrieved from any channel within the lookback window."
	// MessageNoCandidates is reported when items were found but no ticker met the threshold
	MessageNoCandidates = "No hot tickers met the threshold within the lookback window."
	// MessageAllChannelsFailed is reported when no channel could be reached
	MessageAllChannelsFailed = "No channel could be reached; the result is empty."
)

// Service runs the hotness pipeline. Each Run owns its own accumulators;
// nothing is shared between runs.
type Service struct {
	fetcher interfaces.SourceFetcher
	logger  arbor.ILogger
	now     func() time.Time
	onItems ItemsObserver
}

// ItemsObserver receives the items a run scanned from successful channels, in channel order.
// Called once per run before scoring.
type ItemsObserver func(runID string, items []models.Item)

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for generated_at.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithItemsObserver registers a callback for the scanned items of every run.
func WithItemsObserver(fn ItemsObserver) ServiceOption {
	return func(s *Service) {
		s.onItems = fn
	}
}

// NewService creates a pipeline service over a source fetcher
func NewService(fetcher interfaces.SourceFetcher, logger arbor.ILogger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	s := &Service{
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one pipeline invocation. Only configuration errors are returned;
// unreachable channels are skipped and recorded in FailedChannels.
func (s *Service) Run(ctx context.Context, p Params) (*models.RunResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	runID := common.NewRunID()
	logger := s.logger.WithCorrelationId(runID)
	started := s.now()

	logger.Info().
		Str("stage", string(StageInit)).
		Str("run_id", runID).
		Strs("channels", p.Channels).
		Int("lookback_hours", p.LookbackHours).
		Float64("threshold", p.Threshold).
		Msg("Starting hotness run")

	if p.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Deadline)
		defer cancel()
	}

	// FETCHING
	batches := s.fetchChannels(ctx, logger, p, true)

	var failed []string
	succeeded := make([]channelBatch, 0, len(batches))
	for _, b := range batches {
		if b.err != nil {
			failed = append(failed, b.channel)
			logger.Warn().
				Err(b.err).
				Str("channel", b.channel).
				Bool("source_unavailable", common.IsSourceUnavailable(b.err)).
				Msg("Channel skipped")
			continue
		}
		succeeded = append(succeeded, b)
	}

	// EXTRACTING
	logger.Info().
		Str("stage", string(StageExtracting)).
		Int("channels_ok", len(succeeded)).
		Int("channels_failed", len(failed)).
		Msg("Extracting tickers")

	extractor := tickers.NewExtractor(tickers.WithWhitelist(p.Whitelist), tickers.WithBlacklist(p.Blacklist))
	items, perItem, mentions := extract(extractor, succeeded)
	if s.onItems != nil {
		s.onItems(runID, items)
	}

	// AGGREGATING
	logger.Info().
		Str("stage", string(StageAggregating)).
		Int("items", len(items)).
		Int("items_with_tickers", len(perItem)).
		Int("distinct_tickers", mentions.Len()).
		Msg("Aggregating per-ticker totals")

	accs := hotness.Aggregate(items, perItem, mentions, p.TopKLinks)

	// SCORING
	logger.Info().
		Str("stage", string(StageScoring)).
		Int("candidates", accs.Len()).
		Msg("Scoring candidates")

	scored := hotness.Score(accs, p.Weights, p.Threshold)

	result := &models.RunResult{
		RunID:               runID,
		WindowHours:         p.LookbackHours,
		Threshold:           p.Threshold,
		GeneratedAt:         s.now().UTC(),
		Items:               scored,
		TotalCandidateCount: accs.Len(),
		FailedChannels:      failed,
	}
	result.Message = emptyMessage(result, len(items), len(succeeded))

	logger.Info().
		Str("stage", string(StageDone)).
		Int("ranked", len(result.Items)).
		Int("candidates", result.TotalCandidateCount).
		Int64("duration_ms", s.now().Sub(started).Milliseconds()).
		Msg("Hotness run complete")

	return result, nil
}

// extract scans item text for presence and occurrences, then scans replies for occurrences.
// Batches are consumed in channel order by a single goroutine so the result is deterministic.
func extract(extractor *tickers.Extractor, batches []channelBatch) ([]models.Item, map[string]*tickers.Set, *tickers.Counts) {
	var items []models.Item
	perItem := make(map[string]*tickers.Set)
	mentions := tickers.NewCounts()

	for _, b := range batches {
		for _, item := range b.items {
			items = append(items, item)
			if set := extractor.Presence(item.Text); set.Len() > 0 {
				perItem[item.ID] = set
			}
			mentions.Merge(extractor.Occurrences(item.Text))
		}
	}

	for _, b := range batches {
		for _, item := range b.items {
			for _, body := range b.replies[item.ID] {
				mentions.Merge(extractor.Occurrences(body))
			}
		}
	}

	return items, perItem, mentions
}

func emptyMessage(result *models.RunResult, itemCount, okChannels int) string {
	if len(result.Items) > 0 {
		return ""
	}
	switch {
	case okChannels == 0:
		return MessageAllChannelsFailed
	case itemCount == 0:
		return MessageNoItems
	default:
		return MessageNoCandidates
	}
}

// ArtifactWriter persists a run result and, on failure, a minimal failure artifact
type ArtifactWriter interface {
	Write(result *models.RunResult) error
	WriteFailure(cause error, windowHours int, threshold float64) error
}

// RunAndWrite runs the pipeline and writes the artifact. When the artifact cannot be
// written, a failure artifact is attempted before the SerializationError is returned.
func (s *Service) RunAndWrite(ctx context.Context, p Params, writer ArtifactWriter) (*models.RunResult, error) {
	result, err := s.Run(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := writer.Write(result); err != nil {
		if failErr := writer.WriteFailure(err, p.LookbackHours, p.Threshold); failErr != nil {
			s.logger.Error().Err(failErr).Msg("Failed to write failure artifact")
		}
		return result, fmt.Errorf("failed to write run artifact: %w", err)
	}

	return result, nil
}
