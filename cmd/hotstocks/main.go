package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/hotstocks/internal/app"
	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/output"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	outputPath   = flag.String("output", "", "Output artifact path (overrides config)")
	reportPath   = flag.String("report", "", "Report path, .md or .html (overrides config)")
	channels     = flag.String("channels", "", "Comma-separated channels (overrides config)")
	lookback     = flag.Int("lookback", 0, "Lookback window in hours (overrides config)")
	findTickers  = flag.String("find", "", "Comma-separated tickers: print matching recent items as JSON instead of running the pipeline")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("HotStocks version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("hotstocks.toml"); err == nil {
			configFiles = append(configFiles, "hotstocks.toml")
		} else if _, err := os.Stat("deployments/hotstocks.toml"); err == nil {
			configFiles = append(configFiles, "deployments/hotstocks.toml")
		}
	}

	// Startup sequence: config (defaults -> files -> env) -> flags -> validate -> logger -> banner
	overrides := common.FlagOverrides{
		OutputPath:    *outputPath,
		ReportPath:    *reportPath,
		Channels:      *channels,
		LookbackHours: *lookback,
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		logger := arbor.NewLogger()
		logger.Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		writeFailure(fallbackConfig(overrides), err, logger)
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, overrides)

	logger := common.InitLogger(config)

	if err := config.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		writeFailure(config, err, logger)
		os.Exit(1)
	}

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Strs("channels", config.Pipeline.Channels).
		Int("lookback_hours", config.Pipeline.LookbackHours).
		Str("output", config.Output.Path).
		Str("sentiment_provider", string(config.Sentiment.Provider)).
		Bool("alerts", config.Alerts.Enabled).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		writeFailure(config, err, logger)
		os.Exit(1)
	}

	if *findTickers != "" {
		err := findItems(ctx, application, strings.Split(*findTickers, ","))
		application.Close()
		if err != nil {
			logger.Error().Err(err).Msg("Item search failed")
			os.Exit(1)
		}
		return
	}

	outcome, err := application.Run(ctx)
	application.Close()
	if err != nil {
		logger.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}

	logger.Info().
		Str("run_id", outcome.Result.RunID).
		Strs("tickers", outcome.Result.Tickers()).
		Int("alerts", len(outcome.Alerts)).
		Str("output", config.Output.Path).
		Msg("Run complete")
}

func findItems(ctx context.Context, application *app.App, symbols []string) error {
	matches, err := application.FindItems(ctx, symbols)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(matches)
}

// fallbackConfig locates the failure artifact when the configuration itself could not be loaded
func fallbackConfig(overrides common.FlagOverrides) *common.Config {
	config := common.NewDefaultConfig()
	if path := os.Getenv("HOTSTOCKS_OUTPUT_PATH"); path != "" {
		config.Output.Path = path
	}
	common.ApplyFlagOverrides(config, overrides)
	return config
}

// writeFailure records a failure artifact for errors raised before the pipeline could run
func writeFailure(config *common.Config, cause error, logger arbor.ILogger) {
	w := output.NewWriter(config.Output.Path, config.Output.FailurePathOrDefault(), logger)
	if err := w.WriteFailure(cause, config.Pipeline.LookbackHours, config.Pipeline.Threshold); err != nil {
		logger.Error().Err(err).Msg("Failed to write failure artifact")
	}
}
