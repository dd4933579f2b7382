package pipeline

import (
	"context"
	"strings"

	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/models"
	"github.com/ternarybob/hotstocks/internal/tickers"
)

// ItemMatch is a recent item whose own text mentions at least one requested ticker
type ItemMatch struct {
	Channel         string   `json:"channel"`
	Title           string   `json:"title"`
	TickersFound    []string `json:"tickers_found"`
	EngagementScore int      `json:"engagement_score"`
	ReplyCount      int      `json:"reply_count"`
	Permalink       string   `json:"permalink,omitempty"`
}

// FindItemsWithTickers returns recent items, in channel order, that mention any of symbols.
// Replies are not fetched. Unreachable channels are skipped like in Run.
func (s *Service) FindItemsWithTickers(ctx context.Context, p Params, symbols []string) ([]ItemMatch, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, &common.ConfigurationError{Field: "tickers", Reason: "at least one ticker is required"}
	}

	logger := s.logger.WithCorrelationId(common.NewRunID())
	if p.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Deadline)
		defer cancel()
	}

	extractor := tickers.NewExtractor(tickers.WithWhitelist(symbols), tickers.WithBlacklist(p.Blacklist))

	matches := []ItemMatch{}
	for _, b := range s.fetchChannels(ctx, logger, p, false) {
		if b.err != nil {
			logger.Warn().Err(b.err).Str("channel", b.channel).Msg("Channel skipped")
			continue
		}
		for _, item := range b.items {
			found := extractor.Presence(item.Text)
			if found.Len() == 0 {
				continue
			}
			matches = append(matches, newItemMatch(item, found.Items()))
		}
	}

	logger.Info().
		Strs("tickers", symbols).
		Int("matches", len(matches)).
		Msg("Item search complete")

	return matches, nil
}

func newItemMatch(item models.Item, found []string) ItemMatch {
	return ItemMatch{
		Channel:         item.Channel,
		Title:           strings.TrimSpace(item.Title),
		TickersFound:    found,
		EngagementScore: item.EngagementScore,
		ReplyCount:      item.ReplyCount,
		Permalink:       item.Permalink,
	}
}
