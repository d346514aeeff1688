package scheduler

// Config holds the session-level knobs the event loop itself owns:
// the market window and the risk-halt limits, which sit above any one
// component's configuration (spec.md §6.5 trading.session namespace).
type Config struct {
	MarketOpen  string // "HH:MM" exchange time, default 09:30
	MarketClose string // default 16:00

	InitialAccountEquity float64
	MaxDailyLossPct      float64 // default 0.02, feeds pkg/risk.RiskLimitsManager
	HardStopLossPct      float64
}

// DefaultConfig returns spec.md's stated session defaults.
func DefaultConfig() Config {
	return Config{
		MarketOpen:           "09:30",
		MarketClose:          "16:00",
		InitialAccountEquity: 100000,
		MaxDailyLossPct:      0.02,
		HardStopLossPct:      0.01,
	}
}
