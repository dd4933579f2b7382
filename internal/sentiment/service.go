package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/interfaces"
	"github.com/ternarybob/hotstocks/internal/models"
)

const (
	cacheKeyPrefix   = "sentiment:"
	summaryKeyPrefix = "summary:"
)

// SummarySystemPrompt frames the one-paragraph market summary
const SummarySystemPrompt = `You are an AI financial analyst. Given ranked tickers with their hotness
scores, mention counts and sentiment, name the tickers showing the strongest meme-like momentum
(high volume of discussion plus positive sentiment). Answer in under 50 words.`

// Service enriches a run result with LLM-derived sentiment, caching responses in a key/value store
type Service struct {
	generator interfaces.TextGenerator
	kv        interfaces.KeyValueStorage
	ttl       time.Duration
	maxItems  int
	logger    arbor.ILogger
	now       func() time.Time
}

// NewService creates a sentiment service. kv may be nil, which disables caching.
func NewService(generator interfaces.TextGenerator, kv interfaces.KeyValueStorage, ttl time.Duration, maxItems int, logger arbor.ILogger) *Service {
	return &Service{
		generator: generator,
		kv:        kv,
		ttl:       ttl,
		maxItems:  maxItems,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source used for cache freshness
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Analyze returns one averaged sentiment per ranked ticker the model scored.
// Tickers the model skipped are absent. A fresh cached answer for the same ticker set
// is reused without calling the generator.
func (s *Service) Analyze(ctx context.Context, result *models.RunResult, items []models.Item) ([]models.TickerSentiment, error) {
	symbols := result.Tickers()
	if len(symbols) == 0 {
		return []models.TickerSentiment{}, nil
	}

	key := cacheKeyPrefix + cacheKey(symbols)
	var cached models.CacheEntry[[]models.TickerSentiment]
	if s.loadCache(ctx, key, &cached) {
		s.logger.Debug().Str("key", key).Msg("Using cached sentiment")
		return cached.Data, nil
	}

	prompt, err := BuildPrompt(symbols, items, s.maxItems)
	if err != nil {
		return nil, err
	}

	raw, err := s.generator.Generate(ctx, SystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("sentiment generation via %s failed: %w", s.generator.Name(), err)
	}

	records := ParseCSV(raw)
	wanted := make(map[string]bool, len(symbols))
	for _, t := range symbols {
		wanted[t] = true
	}
	filtered := records[:0]
	for _, r := range records {
		if wanted[r.Ticker] {
			filtered = append(filtered, r)
		}
	}

	sentiments := Average(filtered)
	s.logger.Info().
		Str("provider", s.generator.Name()).
		Int("tickers", len(symbols)).
		Int("records", len(filtered)).
		Msg("Sentiment analysis complete")

	s.storeCache(ctx, key, models.CacheEntry[[]models.TickerSentiment]{Data: sentiments, FetchedAt: s.now()})
	return sentiments, nil
}

// Summarize asks the model for a short narrative naming the strongest momentum tickers
func (s *Service) Summarize(ctx context.Context, result *models.RunResult, sentiments []models.TickerSentiment) (string, error) {
	if len(result.Items) == 0 {
		return "", nil
	}

	key := summaryKeyPrefix + cacheKey(result.Tickers())
	var cached models.CacheEntry[string]
	if s.loadCache(ctx, key, &cached) {
		return cached.Data, nil
	}

	byTicker := make(map[string]models.TickerSentiment, len(sentiments))
	for _, ts := range sentiments {
		byTicker[ts.Ticker] = ts
	}

	var sb strings.Builder
	sb.WriteString("ticker,hotness,mentions,sentiment_score\n")
	for _, item := range result.Items {
		score := "n/a"
		if ts, ok := byTicker[item.Ticker]; ok {
			score = fmt.Sprintf("%.2f", ts.Score)
		}
		fmt.Fprintf(&sb, "%s,%.2f,%d,%s\n", item.Ticker, item.Hotness, item.Mentions, score)
	}

	text, err := s.generator.Generate(ctx, SummarySystemPrompt, sb.String())
	if err != nil {
		return "", fmt.Errorf("summary generation via %s failed: %w", s.generator.Name(), err)
	}
	text = strings.TrimSpace(text)

	s.storeCache(ctx, key, models.CacheEntry[string]{Data: text, FetchedAt: s.now()})
	return text, nil
}

// ByTicker indexes sentiments by symbol
func ByTicker(sentiments []models.TickerSentiment) map[string]float64 {
	out := make(map[string]float64, len(sentiments))
	for _, ts := range sentiments {
		out[ts.Ticker] = ts.Score
	}
	return out
}

func (s *Service) loadCache(ctx context.Context, key string, dest any) bool {
	if s.kv == nil {
		return false
	}

	value, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to read sentiment cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cache entry")
		return false
	}

	var fetchedAt time.Time
	switch entry := dest.(type) {
	case *models.CacheEntry[[]models.TickerSentiment]:
		fetchedAt = entry.FetchedAt
	case *models.CacheEntry[string]:
		fetchedAt = entry.FetchedAt
	}
	return common.IsFresh(s.now(), fetchedAt, s.ttl)
}

func (s *Service) storeCache(ctx context.Context, key string, entry any) {
	if s.kv == nil || s.ttl <= 0 {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to encode cache entry")
		return
	}
	if err := s.kv.Set(ctx, key, string(data), "sentiment cache"); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to write sentiment cache")
	}
}

// cacheKey is order-independent over the ticker set
func cacheKey(symbols []string) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
