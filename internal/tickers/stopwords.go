package tickers

// DefaultStopwords are common English words and finance jargon that collide with
// valid ticker shapes. Callers may replace them with WithStopwords.
var DefaultStopwords = []string{
	"I", "A", "AN", "AND", "OR", "THE", "TO", "OF", "ALL", "ARE", "WITH", "VERY", "BUT",
	"S", "U", "P", "D", "US", "USA", "USD",
	"YOLO", "WSB", "DD", "EDIT", "IIRC", "RIP", "AMA", "FAKE", "TRADE",
	"SEC", "CEO", "CFO", "ETF", "EPS", "EPG", "GDP", "CPI", "FOMC", "AI", "RFK", "CNBC",
}
