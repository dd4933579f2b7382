package models

import "time"

// AlertLevel classifies unusual volume activity for a ticker
type AlertLevel string

const (
	AlertLevelNormal AlertLevel = "Normal"
	AlertLevelLow    AlertLevel = "Low"
	AlertLevelMedium AlertLevel = "Medium"
	AlertLevelHigh   AlertLevel = "High"
	AlertLevelNoData AlertLevel = "No data"
)

// PriceBar is one time-indexed OHLCV record returned by a market-data collaborator
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// AlertSnapshot is one persisted row of satellite alert analysis for a ticker
type AlertSnapshot struct {
	ID             string     `json:"id" badgerhold:"key"`
	RunID          string     `json:"run_id" badgerhold:"index"`
	Ticker         string     `json:"ticker" badgerhold:"index"`
	Close          float64    `json:"close"`
	Volume         int64      `json:"volume"`
	VolumeZScore   float64    `json:"volume_zscore"`
	VolumeRatio    float64    `json:"volume_ratio"`
	AlertLevel     AlertLevel `json:"alert_level"`
	RSI            float64    `json:"rsi"`
	PriceChangePct float64    `json:"price_change_pct"`
	SentimentScore float64    `json:"sentiment_score"`
	MentionCount   int        `json:"mention_count"`
	Advice         string     `json:"advice,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}
