package tickers

// Set is a deduplicated collection of symbols that remembers first-seen order
type Set struct {
	order []string
	seen  map[string]struct{}
}

// NewSet creates an empty Set
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add inserts a symbol and reports whether it was new
func (s *Set) Add(symbol string) bool {
	if _, ok := s.seen[symbol]; ok {
		return false
	}
	s.seen[symbol] = struct{}{}
	s.order = append(s.order, symbol)
	return true
}

func (s *Set) Contains(symbol string) bool {
	_, ok := s.seen[symbol]
	return ok
}

func (s *Set) Len() int {
	return len(s.order)
}

// Items returns the symbols in first-seen order
func (s *Set) Items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Counts maps symbols to occurrence counts and remembers first-seen order
type Counts struct {
	order  []string
	counts map[string]int
}

// NewCounts creates an empty Counts
func NewCounts() *Counts {
	return &Counts{counts: make(map[string]int)}
}

// Add increments symbol by n
func (c *Counts) Add(symbol string, n int) {
	if _, ok := c.counts[symbol]; !ok {
		c.order = append(c.order, symbol)
	}
	c.counts[symbol] += n
}

// Get returns the count for symbol, zero when absent
func (c *Counts) Get(symbol string) int {
	return c.counts[symbol]
}

func (c *Counts) Len() int {
	return len(c.order)
}

// Keys returns the symbols in first-seen order
func (c *Counts) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Merge adds every count from other, keeping this collection's order for known symbols
func (c *Counts) Merge(other *Counts) {
	if other == nil {
		return
	}
	for _, symbol := range other.order {
		c.Add(symbol, other.counts[symbol])
	}
}

// Map returns a copy of the counts as a plain map
func (c *Counts) Map() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
