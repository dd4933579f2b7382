package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/hotstocks/internal/models"
)

func TestRenderMarkdown(t *testing.T) {
	result := sampleResult()
	result.FailedChannels = []string{"pennystocks"}

	md := RenderMarkdown(result, ReportExtras{})

	assert.Contains(t, md, "# Hot tickers")
	assert.Contains(t, md, "over the last 240 hours")
	assert.Contains(t, md, "Skipped channels: pennystocks")
	assert.Contains(t, md, "| 1 | GME | 56.50 | 5 | 40 | 5 |")
	assert.Contains(t, md, "| 2 | AMC | 12.00 | 1 | 2 | 0 |")
	assert.Contains(t, md, "2 of 7 candidates ranked.")
	assert.Contains(t, md, "### GME")
	assert.Contains(t, md, "- /r/a/1/")
	assert.NotContains(t, md, "### AMC")
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(&models.RunResult{WindowHours: 24, Message: "Nothing trending."}, ReportExtras{Summary: "ignored"})
	assert.Contains(t, md, "_Nothing trending._")
	assert.NotContains(t, md, "| Ticker |")
	assert.NotContains(t, md, "ignored")
}

func TestRenderMarkdown_Extras(t *testing.T) {
	md := RenderMarkdown(sampleResult(), ReportExtras{
		Summary:   "GME leads\non momentum.",
		Sentiment: []models.TickerSentiment{{Ticker: "GME", Score: 0.7, Label: "positive", Samples: 2}},
		Alerts: []models.AlertSnapshot{
			{Ticker: "GME", AlertLevel: models.AlertLevelHigh, Close: 25.5, VolumeZScore: 4.2, VolumeRatio: 3.1, RSI: 71.3, PriceChangePct: 6.5, Advice: "Watch closely."},
			{Ticker: "AMC", AlertLevel: models.AlertLevelNoData, Advice: "Not enough market data."},
		},
	})

	assert.Contains(t, md, "> GME leads on momentum.")
	assert.Contains(t, md, "## Sentiment")
	assert.Contains(t, md, "| GME | +0.70 | positive | 2 |")
	assert.Contains(t, md, "## Volume alerts")
	assert.Contains(t, md, "| GME | High | 25.50 | 4.20 | 3.10 | 71.3 | +6.50 |")
	assert.Contains(t, md, "**GME**: Watch closely.")
	assert.NotContains(t, md, "Not enough market data")
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()

	mdPath := filepath.Join(dir, "report.md")
	require.NoError(t, WriteReport(mdPath, sampleResult(), ReportExtras{}))
	mdData, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(mdData), "| 1 | GME |")

	htmlPath := filepath.Join(dir, "report.html")
	require.NoError(t, WriteReport(htmlPath, sampleResult(), ReportExtras{}))
	htmlData, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	html := string(htmlData)
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "GME")
}
