package models

import "time"

// SentimentRecord is one parsed (ticker, label, score) tuple from an LLM response
type SentimentRecord struct {
	Ticker string  `json:"ticker"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"` // Always within [-1, 1]
}

// TickerSentiment is the per-ticker average of all parsed records
type TickerSentiment struct {
	Ticker  string  `json:"ticker"`
	Score   float64 `json:"score"`
	Label   string  `json:"label"`
	Samples int     `json:"samples"`
}

// CacheEntry is a cached value with the time it was fetched.
// Validity is evaluated by the owner against a ttl, never stored here.
type CacheEntry[T any] struct {
	Data      T         `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
}
