package filters

import "strings"

// sectorMap is a coarse symbol-to-sector lookup used only by the
// supplemented correlation filter (SPEC_FULL.md §5), kept from the
// teacher's pkg/scanner/correlation.go.
var sectorMap = map[string]string{
	"AAPL": "Technology", "MSFT": "Technology", "GOOGL": "Technology", "GOOG": "Technology",
	"AMZN": "Technology", "NVDA": "Technology", "META": "Technology", "AMD": "Technology",
	"INTC": "Technology", "NFLX": "Technology", "TSLA": "Technology",

	"JPM": "Finance", "BAC": "Finance", "WFC": "Finance", "GS": "Finance", "MS": "Finance",

	"JNJ": "Healthcare", "PFE": "Healthcare", "UNH": "Healthcare", "ABBV": "Healthcare",

	"WMT": "Consumer", "HD": "Consumer", "MCD": "Consumer", "NKE": "Consumer", "DIS": "Consumer",

	"XOM": "Energy", "CVX": "Energy", "COP": "Energy",

	"SPY": "ETF", "QQQ": "ETF", "IWM": "ETF", "DIA": "ETF",
}

// Sector returns the coarse sector for a symbol, or "Other" if unknown.
func Sector(symbol string) string {
	if s, ok := sectorMap[strings.ToUpper(symbol)]; ok {
		return s
	}
	return "Other"
}
