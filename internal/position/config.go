package position

// Config holds every threshold named in spec.md §6.5's trading.exits /
// execution namespaces that the position manager itself consumes.
// Sizing and filter-facing knobs (max_positions, risk_per_trade) live
// here too since C5 owns sizing.
type Config struct {
	AccountEquity float64
	RiskPerTrade  float64 // fraction of equity, default 0.01
	MinShares     int
	MaxShares     int
	MaxPositions  int

	StopBufferPct float64 // distance beyond the pivot for the initial stop, default small

	// Ladder: either the traditional 1R/2R/target1/target2 ladder or the
	// SMA-crossing alternative (spec.md §4.5). Fractions apply in order.
	UseSMALadder bool
	LadderFractions []float64 // default {0.5, 0.25, 0.25} or {0.25,0.25,0.25,0.25}

	BreakevenAfterPartial bool
	StopMoveBufferPct     float64 // default 0.5%, applied beyond the hit ladder level

	TrailPct      float64 // default 0.5%
	TightTrailPct float64 // default 0.1%, used once stall fires

	EntrySlippageBps float64
	ExitSlippageBps  float64
	StopSlippageBps  float64
	CommissionPerShare float64
}

// DefaultConfig returns spec.md's stated sizing/execution defaults.
func DefaultConfig() Config {
	return Config{
		RiskPerTrade:          0.01,
		MinShares:             1,
		MaxShares:             2500,
		MaxPositions:          5,
		StopBufferPct:         0.01,
		LadderFractions:       []float64{0.5, 0.25, 0.25},
		BreakevenAfterPartial: true,
		StopMoveBufferPct:     0.5,
		TrailPct:              0.5,
		TightTrailPct:         0.1,
		EntrySlippageBps:      10, // mid +/- 0.1%
		ExitSlippageBps:       10,
		StopSlippageBps:       120, // stop-outs at stop +/- 1.2%
		CommissionPerShare:    0.005,
	}
}
