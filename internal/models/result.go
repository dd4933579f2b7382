package models

import "time"

// ScoredTicker is the ranked, read-only view of one ticker produced by a run
type ScoredTicker struct {
	Ticker          string   `json:"ticker"`
	Hotness         float64  `json:"hotness"`
	Mentions        int      `json:"mentions"`
	EngagementTotal int      `json:"engagement_total"`
	ReplyTotal      int      `json:"reply_total"`
	TopLinks        []string `json:"top_links"`
}

// RunResult is the single externally visible artifact of one pipeline run.
// Items are ordered by descending hotness. Message is always set when Items is empty.
type RunResult struct {
	RunID               string         `json:"run_id,omitempty"`
	WindowHours         int            `json:"window_hours"`
	Threshold           float64        `json:"threshold"`
	GeneratedAt         time.Time      `json:"generated_at"`
	Items               []ScoredTicker `json:"items"`
	TotalCandidateCount int            `json:"total_candidate_count"`
	Message             string         `json:"message,omitempty"`
	FailedChannels      []string       `json:"failed_channels,omitempty"`
}

// Tickers returns the ranked ticker symbols, in result order
func (r *RunResult) Tickers() []string {
	tickers := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		tickers = append(tickers, item.Ticker)
	}
	return tickers
}

// Lookup returns the scored entry for a ticker, if present
func (r *RunResult) Lookup(ticker string) (ScoredTicker, bool) {
	for _, item := range r.Items {
		if item.Ticker == ticker {
			return item, true
		}
	}
	return ScoredTicker{}, false
}
