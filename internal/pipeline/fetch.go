package pipeline

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/models"
)

// channelBatch is everything fetched from one channel. Replies are keyed by item ID.
type channelBatch struct {
	channel string
	items   []models.Item
	replies map[string][]string
	err     error
}

// fetchChannels fans out one task per channel, bounded by concurrency.
// A failing or panicking channel never cancels its siblings. Channels still pending
// when ctx ends are reported as failed. Batches are returned in channel order.
func (s *Service) fetchChannels(ctx context.Context, logger arbor.ILogger, p Params, withReplies bool) []channelBatch {
	concurrency := max(p.Concurrency, 1)
	sem := make(chan struct{}, concurrency)
	done := make(chan int, len(p.Channels))
	batches := make([]channelBatch, len(p.Channels))
	// Each worker writes only to its own slot before signalling done
	slots := make([]channelBatch, len(p.Channels))

	for i, channel := range p.Channels {
		go func(i int, channel string) {
			batch := channelBatch{channel: channel}
			batch.err = common.SafeCall(logger, "channel:"+channel, func() error {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					return ctx.Err()
				}
				return s.fetchChannel(ctx, logger, p, withReplies, &batch)
			})
			slots[i] = batch
			done <- i
		}(i, channel)
	}

	received := make([]bool, len(p.Channels))
	for remaining := len(p.Channels); remaining > 0; remaining-- {
		select {
		case i := <-done:
			batches[i] = slots[i]
			received[i] = true
		case <-ctx.Done():
			for i, channel := range p.Channels {
				if !received[i] {
					batches[i] = channelBatch{channel: channel, err: fmt.Errorf("channel still pending at deadline: %w", ctx.Err())}
				}
			}
			return batches
		}
	}
	return batches
}

func (s *Service) fetchChannel(ctx context.Context, logger arbor.ILogger, p Params, withReplies bool, batch *channelBatch) error {
	logger.Info().
		Str("stage", string(StageFetching)).
		Str("channel", batch.channel).
		Int("limit", p.ItemsPerChannel).
		Int("lookback_hours", p.LookbackHours).
		Msg("Fetching channel")

	items, err := s.fetcher.FetchRecentItems(ctx, batch.channel, p.lookback(), p.ItemsPerChannel)
	if err != nil {
		return err
	}
	batch.items = items

	if withReplies && p.RepliesPerItem > 0 {
		batch.replies = make(map[string][]string, len(items))
		for _, item := range items {
			if ctx.Err() != nil {
				break
			}
			batch.replies[item.ID] = s.fetcher.FetchReplies(ctx, item.Permalink, p.RepliesPerItem)
		}
	}

	// A channel that ran past the deadline is skipped, not half-counted
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("channel exceeded deadline: %w", err)
	}

	logger.Debug().
		Str("channel", batch.channel).
		Int("items", len(items)).
		Msg("Channel fetched")
	return nil
}
