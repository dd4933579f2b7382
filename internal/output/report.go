package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/models"
)

// ReportExtras carries the optional satellite sections appended to a report
type ReportExtras struct {
	Summary   string
	Sentiment []models.TickerSentiment
	Alerts    []models.AlertSnapshot
}

// RenderMarkdown renders a human-readable ranking of a run
func RenderMarkdown(result *models.RunResult, extras ReportExtras) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Hot tickers\n\n")
	fmt.Fprintf(&b, "Generated %s over the last %d hours (threshold %g).\n\n",
		result.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), result.WindowHours, result.Threshold)

	if len(result.FailedChannels) > 0 {
		fmt.Fprintf(&b, "Skipped channels: %s\n\n", strings.Join(result.FailedChannels, ", "))
	}

	if len(result.Items) == 0 {
		msg := result.Message
		if msg == "" {
			msg = DefaultEmptyMessage
		}
		fmt.Fprintf(&b, "_%s_\n", msg)
		return b.String()
	}

	if extras.Summary != "" {
		fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(strings.TrimSpace(extras.Summary), "\n", " "))
	}

	b.WriteString("| # | Ticker | Hotness | Mentions | Engagement | Replies |\n")
	b.WriteString("|---|--------|--------:|---------:|-----------:|--------:|\n")
	for i, item := range result.Items {
		fmt.Fprintf(&b, "| %d | %s | %.2f | %d | %d | %d |\n",
			i+1, item.Ticker, item.Hotness, item.Mentions, item.EngagementTotal, item.ReplyTotal)
	}

	fmt.Fprintf(&b, "\n%d of %d candidates ranked.\n", len(result.Items), result.TotalCandidateCount)

	b.WriteString("\n## Top links\n")
	for _, item := range result.Items {
		if len(item.TopLinks) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n\n", item.Ticker)
		for _, link := range item.TopLinks {
			fmt.Fprintf(&b, "- %s\n", link)
		}
	}

	if len(extras.Sentiment) > 0 {
		b.WriteString("\n## Sentiment\n\n")
		b.WriteString("| Ticker | Score | Label | Samples |\n")
		b.WriteString("|--------|------:|-------|--------:|\n")
		for _, ts := range extras.Sentiment {
			fmt.Fprintf(&b, "| %s | %+.2f | %s | %d |\n", ts.Ticker, ts.Score, ts.Label, ts.Samples)
		}
	}

	if len(extras.Alerts) > 0 {
		b.WriteString("\n## Volume alerts\n\n")
		b.WriteString("| Ticker | Level | Close | Volume z | Volume ratio | RSI | Change % |\n")
		b.WriteString("|--------|-------|------:|---------:|-------------:|----:|---------:|\n")
		for _, a := range extras.Alerts {
			fmt.Fprintf(&b, "| %s | %s | %.2f | %.2f | %.2f | %.1f | %+.2f |\n",
				a.Ticker, a.AlertLevel, a.Close, a.VolumeZScore, a.VolumeRatio, a.RSI, a.PriceChangePct)
		}
		for _, a := range extras.Alerts {
			if a.Advice == "" || a.AlertLevel == models.AlertLevelNoData {
				continue
			}
			fmt.Fprintf(&b, "\n**%s**: %s\n", a.Ticker, a.Advice)
		}
	}

	return b.String()
}

// RenderHTML converts the Markdown report to HTML with GitHub Flavored Markdown tables
func RenderHTML(result *models.RunResult, extras ReportExtras) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(RenderMarkdown(result, extras)), &buf); err != nil {
		return "", fmt.Errorf("failed to convert report to HTML: %w", err)
	}

	return "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"/><title>Hot tickers</title></head><body>\n" +
		buf.String() +
		"</body></html>\n", nil
}

// WriteReport writes the run report to path, as HTML when path ends in .html or .htm
func WriteReport(path string, result *models.RunResult, extras ReportExtras) error {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm") {
		doc, err := RenderHTML(result, extras)
		if err != nil {
			return &common.SerializationError{Path: path, Err: err}
		}
		return writeFileAtomic(path, []byte(doc))
	}
	return writeFileAtomic(path, []byte(RenderMarkdown(result, extras)))
}
