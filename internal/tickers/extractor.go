// Package tickers parses free text into candidate ticker symbols.
package tickers

import (
	"regexp"
	"strings"
)

var (
	dollarPattern = regexp.MustCompile(`\$([A-Za-z]{1,5})\b`)
	barePattern   = regexp.MustCompile(`\b([A-Z]{1,5})\b`)
)

// Extractor finds ticker symbols in text. It holds no mutable state after construction
// and is safe for concurrent use.
type Extractor struct {
	stopwords map[string]struct{}
	whitelist map[string]struct{} // nil when no whitelist is supplied
	blacklist map[string]struct{}
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStopwords replaces the default stopword table
func WithStopwords(words []string) Option {
	return func(e *Extractor) {
		e.stopwords = toSet(words)
	}
}

// WithWhitelist restricts accepted symbols. An empty list means no restriction.
func WithWhitelist(symbols []string) Option {
	return func(e *Extractor) {
		if len(symbols) == 0 {
			e.whitelist = nil
			return
		}
		e.whitelist = toSet(symbols)
	}
}

// WithBlacklist rejects the given symbols. The blacklist wins over the whitelist.
func WithBlacklist(symbols []string) Option {
	return func(e *Extractor) {
		e.blacklist = toSet(symbols)
	}
}

// NewExtractor creates an Extractor using DefaultStopwords unless overridden.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		stopwords: toSet(DefaultStopwords),
		blacklist: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Presence returns the deduplicated set of accepted symbols in text.
func (e *Extractor) Presence(text string) *Set {
	set := NewSet()
	for _, symbol := range e.accepted(text) {
		set.Add(symbol)
	}
	return set
}

// Occurrences returns the count of every accepted symbol occurrence in text.
func (e *Extractor) Occurrences(text string) *Counts {
	counts := NewCounts()
	for _, symbol := range e.accepted(text) {
		counts.Add(symbol, 1)
	}
	return counts
}

// Accept normalizes a raw candidate and reports whether it survives the filters.
func (e *Extractor) Accept(raw string) (string, bool) {
	symbol := strings.ToUpper(raw)
	if !IsSymbol(symbol) {
		return "", false
	}
	if _, stop := e.stopwords[symbol]; stop {
		return "", false
	}
	if _, banned := e.blacklist[symbol]; banned {
		return "", false
	}
	if e.whitelist != nil {
		if _, ok := e.whitelist[symbol]; !ok {
			return "", false
		}
	}
	return symbol, true
}

// accepted returns every accepted match: $-prefixed matches first, then bare matches.
// A bare match directly preceded by '$' belongs to the dollar family and is skipped,
// so "$GME" is one occurrence, not two.
func (e *Extractor) accepted(text string) []string {
	if text == "" {
		return nil
	}

	var out []string
	for _, m := range dollarPattern.FindAllStringSubmatch(text, -1) {
		if symbol, ok := e.Accept(m[1]); ok {
			out = append(out, symbol)
		}
	}
	for _, loc := range barePattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if start > 0 && text[start-1] == '$' {
			continue
		}
		if symbol, ok := e.Accept(text[start:end]); ok {
			out = append(out, symbol)
		}
	}
	return out
}

// IsSymbol reports whether s has ticker shape: 1-5 uppercase ASCII letters.
func IsSymbol(s string) bool {
	if len(s) < 1 || len(s) > 5 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}
