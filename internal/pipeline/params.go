package pipeline

import (
	"math"
	"time"

	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/hotness"
)

// Params is the validated input of one pipeline run
type Params struct {
	Channels        []string
	LookbackHours   int
	ItemsPerChannel int
	RepliesPerItem  int
	Weights         hotness.Weights
	Threshold       float64
	TopKLinks       int
	Whitelist       []string
	Blacklist       []string
	Concurrency     int           // Channel fan-out width, 1 = sequential
	Deadline        time.Duration // Zero means no overall deadline
}

// ParamsFromConfig maps the [pipeline] section onto run parameters
func ParamsFromConfig(cfg common.PipelineConfig) Params {
	return Params{
		Channels:        cfg.Channels,
		LookbackHours:   cfg.LookbackHours,
		ItemsPerChannel: cfg.Limits.ItemsPerChannel,
		RepliesPerItem:  cfg.Limits.RepliesPerItem,
		Weights:         hotness.WeightsFromConfig(cfg.Weights),
		Threshold:       cfg.Threshold,
		TopKLinks:       cfg.TopKLinks,
		Whitelist:       cfg.TickerWhitelist,
		Blacklist:       cfg.TickerBlacklist,
		Concurrency:     cfg.Concurrency,
		Deadline:        common.ParseDurationOr(cfg.Deadline, 0),
	}
}

func (p Params) lookback() time.Duration {
	return time.Duration(p.LookbackHours) * time.Hour
}

func (p Params) validate() error {
	if len(p.Channels) == 0 {
		return &common.ConfigurationError{Field: "channels", Reason: "at least one channel is required"}
	}
	if p.LookbackHours <= 0 {
		return &common.ConfigurationError{Field: "lookback_hours", Reason: "must be positive"}
	}
	if p.ItemsPerChannel <= 0 {
		return &common.ConfigurationError{Field: "limits.items_per_channel", Reason: "must be positive"}
	}
	for field, v := range map[string]float64{
		"threshold":          p.Threshold,
		"weights.mentions":   p.Weights.Mentions,
		"weights.engagement": p.Weights.Engagement,
		"weights.replies":    p.Weights.Replies,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &common.ConfigurationError{Field: field, Reason: "must be a finite number"}
		}
	}
	return nil
}
