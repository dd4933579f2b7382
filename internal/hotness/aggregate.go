// Package hotness folds per-item ticker extractions into per-ticker totals and ranks them.
package hotness

import (
	"sort"

	"github.com/ternarybob/hotstocks/internal/models"
	"github.com/ternarybob/hotstocks/internal/tickers"
)

// Accumulator is the running per-ticker total for one run.
// It is owned by a single goroutine and is not safe for concurrent mutation.
type Accumulator struct {
	Ticker          string
	Mentions        int
	EngagementTotal int
	ReplyTotal      int
	TopLinks        []string

	candidates []candidateLink
}

type candidateLink struct {
	score int
	link  string
}

// Accumulators holds one Accumulator per ticker in first-discovery order.
type Accumulators struct {
	order    []string
	byTicker map[string]*Accumulator
}

func newAccumulators() *Accumulators {
	return &Accumulators{byTicker: make(map[string]*Accumulator)}
}

// Get returns the accumulator for ticker, if discovered
func (a *Accumulators) Get(ticker string) (*Accumulator, bool) {
	acc, ok := a.byTicker[ticker]
	return acc, ok
}

func (a *Accumulators) Len() int {
	return len(a.order)
}

// All returns the accumulators in discovery order
func (a *Accumulators) All() []*Accumulator {
	out := make([]*Accumulator, 0, len(a.order))
	for _, t := range a.order {
		out = append(out, a.byTicker[t])
	}
	return out
}

func (a *Accumulators) getOrCreate(ticker string) *Accumulator {
	if acc, ok := a.byTicker[ticker]; ok {
		return acc
	}
	acc := &Accumulator{Ticker: ticker}
	a.byTicker[ticker] = acc
	a.order = append(a.order, ticker)
	return acc
}

// Aggregate builds per-ticker accumulators.
//
// Mentions are seeded from mentionCounts, which covers item text and replies.
// Engagement, replies and candidate links are credited once per item whose own
// text mentions the ticker (perItem, keyed by item ID); reply text never adds engagement.
// Each ticker keeps its topK links ranked by item engagement, descending, ties in item order.
func Aggregate(items []models.Item, perItem map[string]*tickers.Set, mentionCounts *tickers.Counts, topK int) *Accumulators {
	accs := newAccumulators()

	if mentionCounts != nil {
		for _, t := range mentionCounts.Keys() {
			accs.getOrCreate(t).Mentions = mentionCounts.Get(t)
		}
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		set, ok := perItem[item.ID]
		if !ok || set == nil || set.Len() == 0 {
			continue
		}

		for _, t := range set.Items() {
			acc := accs.getOrCreate(t)
			acc.EngagementTotal += item.EngagementScore
			acc.ReplyTotal += item.ReplyCount
			if item.HasPermalink() {
				acc.candidates = append(acc.candidates, candidateLink{score: item.EngagementScore, link: item.Permalink})
			}
		}
	}

	for _, acc := range accs.All() {
		acc.finalizeLinks(topK)
	}

	return accs
}

func (acc *Accumulator) finalizeLinks(topK int) {
	sort.SliceStable(acc.candidates, func(i, j int) bool {
		return acc.candidates[i].score > acc.candidates[j].score
	})

	n := min(max(topK, 0), len(acc.candidates))
	acc.TopLinks = make([]string, 0, n)
	for _, c := range acc.candidates[:n] {
		acc.TopLinks = append(acc.TopLinks, c.link)
	}
	acc.candidates = nil
}
