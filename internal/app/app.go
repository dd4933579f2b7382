package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hotstocks/internal/alerts"
	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/interfaces"
	"github.com/ternarybob/hotstocks/internal/models"
	"github.com/ternarybob/hotstocks/internal/output"
	"github.com/ternarybob/hotstocks/internal/pipeline"
	"github.com/ternarybob/hotstocks/internal/reddit"
	"github.com/ternarybob/hotstocks/internal/sentiment"
	"github.com/ternarybob/hotstocks/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Source          interfaces.SourceFetcher
	PipelineService *pipeline.Service
	Writer          *output.Writer

	// Satellites, nil when disabled
	StorageManager   *badger.Manager
	SentimentService *sentiment.Service
	AlertService     *alerts.Service
	Prices           interfaces.PriceSeriesProvider

	mu    sync.Mutex
	items map[string][]models.Item
}

// Outcome is everything one invocation produced
type Outcome struct {
	Result    *models.RunResult
	Sentiment []models.TickerSentiment
	Summary   string
	Alerts    []models.AlertSnapshot
}

// Option customises collaborators before the App is wired
type Option func(*options)

type options struct {
	source    interfaces.SourceFetcher
	generator interfaces.TextGenerator
	prices    interfaces.PriceSeriesProvider
	clock     func() time.Time
}

// WithSourceFetcher replaces the Reddit client
func WithSourceFetcher(f interfaces.SourceFetcher) Option {
	return func(o *options) { o.source = f }
}

// WithTextGenerator replaces the configured LLM provider
func WithTextGenerator(g interfaces.TextGenerator) Option {
	return func(o *options) { o.generator = g }
}

// WithPriceProvider supplies the market-data collaborator used by alerts
func WithPriceProvider(p interfaces.PriceSeriesProvider) Option {
	return func(o *options) { o.prices = p }
}

// WithClock overrides the time source of every time-aware service
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New initializes the application with all dependencies.
// Badger is only opened when sentiment or alerts are enabled.
func New(ctx context.Context, config *common.Config, logger arbor.ILogger, opts ...Option) (*App, error) {
	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{
		Config: config,
		Logger: logger,
		Prices: o.prices,
		items:  make(map[string][]models.Item),
	}

	a.Source = o.source
	if a.Source == nil {
		a.Source = reddit.NewClientFromConfig(config.Reddit, logger)
	}

	a.PipelineService = pipeline.NewService(a.Source, logger,
		pipeline.WithClock(o.clock),
		pipeline.WithItemsObserver(a.captureItems),
	)
	a.Writer = output.NewWriter(config.Output.Path, config.Output.FailurePathOrDefault(), logger)

	if err := a.initSatellites(ctx, o); err != nil {
		a.Close()
		return nil, err
	}

	if a.AlertsLackMarketData() {
		logger.Warn().Msg("Alerts enabled without a price provider: snapshots will report No data")
	}

	logger.Debug().
		Bool("sentiment", a.SentimentService != nil).
		Bool("alerts", a.AlertService != nil).
		Bool("market_data", a.Prices != nil).
		Msg("Application initialized")

	return a, nil
}

func (a *App) initSatellites(ctx context.Context, o *options) error {
	generator := o.generator
	if generator == nil {
		g, err := sentiment.NewGeneratorFromConfig(ctx, a.Config.Sentiment, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize sentiment provider: %w", err)
		}
		generator = g
	}

	if generator == nil && !a.Config.Alerts.Enabled {
		return nil
	}

	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = manager

	if generator != nil {
		ttl := common.ParseDurationOr(a.Config.Sentiment.TTL, 5*time.Minute)
		a.SentimentService = sentiment.NewService(generator, manager.KeyValueStorage(), ttl, a.Config.Sentiment.MaxItems, a.Logger).
			WithClock(o.clock)
	}

	if a.Config.Alerts.Enabled {
		a.AlertService = alerts.NewService(manager.SnapshotStorage(), a.Config.Alerts, a.Logger).
			WithClock(o.clock)
	}

	return nil
}

// AlertsLackMarketData reports whether alert snapshots will be written without price data
func (a *App) AlertsLackMarketData() bool {
	return a.AlertService != nil && a.Prices == nil
}

func (a *App) captureItems(runID string, items []models.Item) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items[runID] = items
}

func (a *App) takeItems(runID string) []models.Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	items := a.items[runID]
	delete(a.items, runID)
	return items
}

// Run executes the pipeline, writes the artifact, then runs the enabled satellites
// and the optional report. Satellite failures are logged and never fail the run.
func (a *App) Run(ctx context.Context) (*Outcome, error) {
	params := pipeline.ParamsFromConfig(a.Config.Pipeline)

	result, err := a.PipelineService.RunAndWrite(ctx, params, a.Writer)
	if err != nil {
		if result != nil {
			a.takeItems(result.RunID)
		}
		var serr *common.SerializationError
		if !errors.As(err, &serr) {
			// RunAndWrite already attempted the failure artifact for write errors
			if failErr := a.Writer.WriteFailure(err, params.LookbackHours, params.Threshold); failErr != nil {
				a.Logger.Error().Err(failErr).Msg("Failed to write failure artifact")
			}
		}
		return nil, err
	}

	outcome := &Outcome{Result: result}
	items := a.takeItems(result.RunID)

	if a.SentimentService != nil && len(result.Items) > 0 {
		a.runSentiment(ctx, outcome, items)
	}

	if a.AlertService != nil && len(result.Items) > 0 {
		snaps, err := a.AlertService.Snapshot(ctx, result, a.Prices, sentiment.ByTicker(outcome.Sentiment))
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Alert snapshots incomplete")
		}
		outcome.Alerts = snaps
	}

	if path := a.Config.Output.ReportPath; path != "" {
		extras := output.ReportExtras{
			Summary:   outcome.Summary,
			Sentiment: outcome.Sentiment,
			Alerts:    outcome.Alerts,
		}
		if err := output.WriteReport(path, result, extras); err != nil {
			a.Logger.Warn().Err(err).Str("path", path).Msg("Failed to write report")
		} else {
			a.Logger.Info().Str("path", path).Msg("Report written")
		}
	}

	return outcome, nil
}

func (a *App) runSentiment(ctx context.Context, outcome *Outcome, items []models.Item) {
	timeout := common.ParseDurationOr(a.Config.Sentiment.Timeout, 60*time.Second)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sentiments, err := a.SentimentService.Analyze(ctx, outcome.Result, items)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Sentiment analysis skipped")
		return
	}
	outcome.Sentiment = sentiments

	summary, err := a.SentimentService.Summarize(ctx, outcome.Result, sentiments)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Market summary skipped")
		return
	}
	outcome.Summary = summary
}

// FindItems lists recent items mentioning any of symbols, without scoring or writing an artifact
func (a *App) FindItems(ctx context.Context, symbols []string) ([]pipeline.ItemMatch, error) {
	return a.PipelineService.FindItemsWithTickers(ctx, pipeline.ParamsFromConfig(a.Config.Pipeline), symbols)
}

// Close releases the storage connection
func (a *App) Close() error {
	if a.StorageManager != nil {
		return a.StorageManager.Close()
	}
	return nil
}
