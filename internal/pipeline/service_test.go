package pipeline

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/hotness"
	"github.com/ternarybob/hotstocks/internal/models"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeFetcher serves canned items per channel
type fakeFetcher struct {
	items   map[string][]models.Item
	errs    map[string]error
	replies map[string][]string
	panics  map[string]bool
	blocks  map[string]bool

	mu           sync.Mutex
	replyCalls   int
	itemRequests []string
}

func (f *fakeFetcher) FetchRecentItems(ctx context.Context, channel string, lookback time.Duration, limit int) ([]models.Item, error) {
	f.mu.Lock()
	f.itemRequests = append(f.itemRequests, channel)
	f.mu.Unlock()

	if f.panics[channel] {
		panic("fetcher exploded")
	}
	if f.blocks[channel] {
		<-ctx.Done()
		return nil, &common.SourceUnavailableError{Channel: channel, Attempts: 1, Err: ctx.Err()}
	}
	if err := f.errs[channel]; err != nil {
		return nil, err
	}
	items := f.items[channel]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeFetcher) FetchReplies(ctx context.Context, permalink string, limit int) []string {
	f.mu.Lock()
	f.replyCalls++
	f.mu.Unlock()

	bodies := f.replies[permalink]
	if len(bodies) > limit {
		bodies = bodies[:limit]
	}
	return append([]string{}, bodies...)
}

func post(id, text string, score, replies int) models.Item {
	return models.Item{
		ID:              id,
		Text:            text,
		Title:           text,
		EngagementScore: score,
		ReplyCount:      replies,
		Permalink:       "/r/test/comments/" + id + "/",
		CreatedAt:       fixedNow.Add(-time.Hour),
	}
}

func defaultParams(channels ...string) Params {
	return Params{
		Channels:        channels,
		LookbackHours:   24,
		ItemsPerChannel: 100,
		RepliesPerItem:  50,
		Weights:         hotness.Weights{Mentions: 10, Engagement: 0.1, Replies: 0.5},
		Threshold:       0,
		TopKLinks:       3,
		Concurrency:     4,
	}
}

func newTestService(f *fakeFetcher) *Service {
	return NewService(f, arbor.NewLogger(), WithClock(func() time.Time { return fixedNow }))
}

func TestRun_EmptyChannelsIsConfigurationError(t *testing.T) {
	svc := newTestService(&fakeFetcher{})

	result, err := svc.Run(context.Background(), defaultParams())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, common.IsConfigurationError(err))
}

func TestRun_NoItemsYieldsWellFormedEmptyResult(t *testing.T) {
	svc := newTestService(&fakeFetcher{})

	result, err := svc.Run(context.Background(), defaultParams("stocks", "wallstreetbets"))
	require.NoError(t, err)

	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Items)
	assert.Equal(t, MessageNoItems, result.Message)
	assert.Equal(t, 24, result.WindowHours)
	assert.Equal(t, fixedNow, result.GeneratedAt)
	assert.Equal(t, 0, result.TotalCandidateCount)
	assert.NotEmpty(t, result.RunID)
	assert.Empty(t, result.FailedChannels)
}

func TestRun_PartialFailureKeepsSuccessfulChannel(t *testing.T) {
	f := &fakeFetcher{
		items: map[string][]models.Item{
			"good": {post("g1", "Loading up on $GME", 100, 10)},
			"bad":  {post("b1", "AMC AMC AMC", 1000, 100)},
		},
		errs: map[string]error{
			"bad": &common.SourceUnavailableError{Channel: "bad", Attempts: 3, Err: errors.New("503")},
		},
	}
	svc := newTestService(f)

	result, err := svc.Run(context.Background(), defaultParams("bad", "good"))
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "GME", result.Items[0].Ticker)
	assert.Equal(t, []string{"bad"}, result.FailedChannels)
	assert.Empty(t, result.Message)
}

func TestRun_ItemsObserverSeesScannedItems(t *testing.T) {
	f := &fakeFetcher{
		items: map[string][]models.Item{
			"a": {post("a1", "$GME", 10, 0)},
			"b": {post("b1", "nothing here", 5, 0), post("b2", "AMC", 1, 0)},
		},
		errs: map[string]error{"c": errors.New("down")},
	}

	var seenRun string
	var seen []string
	svc := NewService(f, arbor.NewLogger(),
		WithClock(func() time.Time { return fixedNow }),
		WithItemsObserver(func(runID string, items []models.Item) {
			seenRun = runID
			for _, it := range items {
				seen = append(seen, it.ID)
			}
		}),
	)

	result, err := svc.Run(context.Background(), defaultParams("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, result.RunID, seenRun)
	assert.Equal(t, []string{"a1", "b1", "b2"}, seen)
}

func TestRun_AllChannelsFailStillSucceeds(t *testing.T) {
	f := &fakeFetcher{
		errs: map[string]error{
			"a": &common.SourceUnavailableError{Channel: "a", Attempts: 3, Err: errors.New("down")},
			"b": &common.SourceUnavailableError{Channel: "b", Attempts: 3, Err: errors.New("down")},
		},
	}

	result, err := newTestService(f).Run(context.Background(), defaultParams("a", "b"))
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, MessageAllChannelsFailed, result.Message)
	assert.Equal(t, []string{"a", "b"}, result.FailedChannels)
}

func TestRun_PanickingChannelIsIsolated(t *testing.T) {
	f := &fakeFetcher{
		items:  map[string][]models.Item{"ok": {post("p1", "TSLA", 5, 0)}},
		panics: map[string]bool{"boom": true},
	}

	result, err := newTestService(f).Run(context.Background(), defaultParams("boom", "ok"))
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "TSLA", result.Items[0].Ticker)
	assert.Equal(t, []string{"boom"}, result.FailedChannels)
}

func TestRun_DeadlineSkipsPendingChannels(t *testing.T) {
	f := &fakeFetcher{
		items:  map[string][]models.Item{"fast": {post("p1", "NVDA", 5, 0)}},
		blocks: map[string]bool{"slow": true},
	}
	p := defaultParams("fast", "slow")
	p.Deadline = 50 * time.Millisecond

	result, err := newTestService(f).Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"slow"}, result.FailedChannels)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "NVDA", result.Items[0].Ticker)
}

func TestRun_RepliesAddMentionsButNotEngagement(t *testing.T) {
	p1 := post("p1", "Thoughts on $GME?", 100, 20)
	f := &fakeFetcher{
		items: map[string][]models.Item{"stocks": {p1}},
		replies: map[string][]string{
			p1.Permalink: {"GME to the moon", "AMC is better", "AMC AMC"},
		},
	}
	p := defaultParams("stocks")
	p.Weights = hotness.Weights{Mentions: 1, Engagement: 1, Replies: 1}

	result, err := newTestService(f).Run(context.Background(), p)
	require.NoError(t, err)

	gme, ok := result.Lookup("GME")
	require.True(t, ok)
	assert.Equal(t, 2, gme.Mentions)
	assert.Equal(t, 100, gme.EngagementTotal)
	assert.Equal(t, 20, gme.ReplyTotal)
	assert.Equal(t, []string{p1.Permalink}, gme.TopLinks)

	amc, ok := result.Lookup("AMC")
	require.True(t, ok)
	assert.Equal(t, 3, amc.Mentions)
	assert.Equal(t, 0, amc.EngagementTotal)
	assert.Equal(t, 0, amc.ReplyTotal)
	assert.Empty(t, amc.TopLinks)

	assert.Equal(t, []string{"GME", "AMC"}, result.Tickers())
	assert.Equal(t, 2, result.TotalCandidateCount)
}

func TestRun_ZeroReplyLimitSkipsReplyFetch(t *testing.T) {
	f := &fakeFetcher{items: map[string][]models.Item{"stocks": {post("p1", "GME", 1, 1)}}}
	p := defaultParams("stocks")
	p.RepliesPerItem = 0

	_, err := newTestService(f).Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 0, f.replyCalls)
}

func TestRun_ThresholdFiltersEverything(t *testing.T) {
	f := &fakeFetcher{items: map[string][]models.Item{"stocks": {post("p1", "GME", 1, 1)}}}
	p := defaultParams("stocks")
	p.Threshold = 1e9

	result, err := newTestService(f).Run(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, MessageNoCandidates, result.Message)
	assert.Equal(t, 1, result.TotalCandidateCount)
}

func TestRun_WhitelistAndBlacklist(t *testing.T) {
	f := &fakeFetcher{items: map[string][]models.Item{"stocks": {post("p1", "GME AMC TSLA", 1, 1)}}}
	p := defaultParams("stocks")
	p.Whitelist = []string{"GME", "AMC"}
	p.Blacklist = []string{"AMC"}

	result, err := newTestService(f).Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"GME"}, result.Tickers())
}

func TestRun_DeterministicAcrossConcurrency(t *testing.T) {
	f := &fakeFetcher{
		items: map[string][]models.Item{
			"a": {post("a1", "GME AMC", 10, 1), post("a2", "TSLA", 10, 1)},
			"b": {post("b1", "AMC GME", 10, 1), post("b2", "NVDA PLTR", 10, 1)},
			"c": {post("c1", "PLTR", 10, 1)},
		},
	}

	sequential := defaultParams("a", "b", "c")
	sequential.Concurrency = 1
	first, err := newTestService(f).Run(context.Background(), sequential)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		concurrent := defaultParams("a", "b", "c")
		concurrent.Concurrency = 3
		got, err := newTestService(f).Run(context.Background(), concurrent)
		require.NoError(t, err)
		assert.Equal(t, first.Items, got.Items)
	}
	// Equal hotness keeps first-discovery order
	assert.Equal(t, []string{"GME", "AMC", "PLTR", "TSLA", "NVDA"}, first.Tickers())
}

// MockArtifactWriter is a mock implementation of ArtifactWriter
type MockArtifactWriter struct {
	mock.Mock
}

func (m *MockArtifactWriter) Write(result *models.RunResult) error {
	args := m.Called(result)
	return args.Error(0)
}

func (m *MockArtifactWriter) WriteFailure(cause error, windowHours int, threshold float64) error {
	args := m.Called(cause, windowHours, threshold)
	return args.Error(0)
}

func TestRunAndWrite_Success(t *testing.T) {
	f := &fakeFetcher{items: map[string][]models.Item{"stocks": {post("p1", "GME", 1, 1)}}}
	writer := new(MockArtifactWriter)
	writer.On("Write", mock.AnythingOfType("*models.RunResult")).Return(nil)

	result, err := newTestService(f).RunAndWrite(context.Background(), defaultParams("stocks"), writer)
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	writer.AssertExpectations(t)
	writer.AssertNotCalled(t, "WriteFailure", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunAndWrite_SerializationFailureWritesFailureArtifact(t *testing.T) {
	f := &fakeFetcher{}
	writeErr := &common.SerializationError{Path: "/nope/out.json", Err: errors.New("read-only")}

	writer := new(MockArtifactWriter)
	writer.On("Write", mock.Anything).Return(writeErr)
	writer.On("WriteFailure", writeErr, 24, 0.0).Return(nil)

	_, err := newTestService(f).RunAndWrite(context.Background(), defaultParams("stocks"), writer)
	require.Error(t, err)

	var serErr *common.SerializationError
	assert.ErrorAs(t, err, &serErr)
	writer.AssertExpectations(t)
}

func TestRunAndWrite_ConfigurationErrorSkipsWrite(t *testing.T) {
	writer := new(MockArtifactWriter)

	_, err := newTestService(&fakeFetcher{}).RunAndWrite(context.Background(), defaultParams(), writer)
	require.Error(t, err)
	assert.True(t, common.IsConfigurationError(err))
	writer.AssertNotCalled(t, "Write", mock.Anything)
}

func TestRunAndWrite_NonFiniteParamsAreConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"nan threshold", func(p *Params) { p.Threshold = math.NaN() }},
		{"inf threshold", func(p *Params) { p.Threshold = math.Inf(1) }},
		{"nan mentions weight", func(p *Params) { p.Weights.Mentions = math.NaN() }},
		{"inf replies weight", func(p *Params) { p.Weights.Replies = math.Inf(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{items: map[string][]models.Item{"stocks": {post("p1", "GME", 1, 0)}}}
			writer := new(MockArtifactWriter)
			p := defaultParams("stocks")
			tt.mutate(&p)

			result, err := newTestService(f).RunAndWrite(context.Background(), p, writer)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, common.IsConfigurationError(err))
			writer.AssertNotCalled(t, "Write", mock.Anything)
		})
	}
}

func TestFindItemsWithTickers(t *testing.T) {
	f := &fakeFetcher{
		items: map[string][]models.Item{
			"a": {post("a1", "GME and AMC", 5, 1), post("a2", "nothing here", 9, 9)},
			"b": {post("b1", "$tsla calls", 7, 2)},
		},
	}

	matches, err := newTestService(f).FindItemsWithTickers(context.Background(), defaultParams("a", "b"), []string{"gme", "TSLA"})
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, []string{"GME"}, matches[0].TickersFound)
	assert.Equal(t, 5, matches[0].EngagementScore)
	assert.Equal(t, []string{"TSLA"}, matches[1].TickersFound)
	assert.Equal(t, 0, f.replyCalls)
}

func TestFindItemsWithTickers_RequiresTickers(t *testing.T) {
	_, err := newTestService(&fakeFetcher{}).FindItemsWithTickers(context.Background(), defaultParams("a"), nil)
	require.Error(t, err)
	assert.True(t, common.IsConfigurationError(err))
}

func TestParamsFromConfig(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Pipeline.Deadline = "2m"

	p := ParamsFromConfig(cfg.Pipeline)
	assert.Equal(t, cfg.Pipeline.Channels, p.Channels)
	assert.Equal(t, 100, p.ItemsPerChannel)
	assert.Equal(t, 200, p.RepliesPerItem)
	assert.Equal(t, 10.0, p.Weights.Mentions)
	assert.Equal(t, 2*time.Minute, p.Deadline)
	assert.Equal(t, 240*time.Hour, p.lookback())
}
