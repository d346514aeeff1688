package filters

import (
	"strings"
	"time"

	"github.com/pivotbreak/engine/internal/breakout"
)

// EntryTimeWindow blocks events outside [MinEntryTime, MaxEntryTime]
// exchange time.
func EntryTimeWindow(cfg Config, ctx Context) Result {
	min, err1 := time.Parse("15:04", cfg.MinEntryTime)
	max, err2 := time.Parse("15:04", cfg.MaxEntryTime)
	if err1 != nil || err2 != nil {
		return pass()
	}
	t := ctx.EventTime
	cur := time.Date(0, 1, 1, t.Hour(), t.Minute(), 0, 0, time.UTC)
	if cur.Before(min) || cur.After(max) {
		return block("entry_time_window", nil)
	}
	return pass()
}

// SymbolPolicy blocks blocklisted symbols, and short attempts on index
// proxies when configured.
func SymbolPolicy(cfg Config, ctx Context) Result {
	sym := strings.ToUpper(ctx.Symbol)
	if cfg.Blocklist[sym] {
		return block("symbol_blocklist", nil)
	}
	if ctx.Side == breakout.Short && cfg.AvoidIndexShorts && cfg.IndexProxies[sym] {
		return block("avoid_index_shorts", nil)
	}
	return pass()
}

// AttemptCap blocks once a pivot has exhausted its attempts.
func AttemptCap(cfg Config, ctx Context) Result {
	if ctx.Attempt > cfg.MaxAttemptsPerPivot {
		return block("attempt_cap", map[string]float64{"attempt": float64(ctx.Attempt)})
	}
	return pass()
}

// Choppy blocks low-range consolidation: the last 5 minutes' range
// must be at least choppy_atr_multiplier * ATR(20).
func Choppy(cfg Config, ctx Context) Result {
	if !cfg.EnableChoppy {
		return pass()
	}
	if !ctx.Snapshot.ATRReady {
		return pass() // null passes per component design
	}
	floor := ctx.Snapshot.ATR * cfg.ChoppyATRMultiplier
	fiveMinRange := ctx.Snapshot.FiveMinuteRange
	if fiveMinRange < floor {
		return block("choppy", map[string]float64{"range": fiveMinRange, "floor": floor})
	}
	return pass()
}

// RoomToRun picks the furthest viable target ahead of price and blocks
// if the remaining room is too small.
func RoomToRun(cfg Config, ctx Context) Result {
	if !cfg.EnableRoomToRun {
		return pass()
	}
	target, ok := dynamicTarget(ctx.Pivot, ctx.Side, ctx.CurrentPrice)
	if !ok {
		return pass()
	}

	var roomPct float64
	if ctx.Side == breakout.Long {
		roomPct = (target - ctx.CurrentPrice) / ctx.CurrentPrice * 100.0
	} else {
		roomPct = (ctx.CurrentPrice - target) / ctx.CurrentPrice * 100.0
	}

	if roomPct < cfg.MinRoomToTargetPct {
		return block("room_to_run", map[string]float64{"room_to_target_pct": roomPct})
	}
	return pass()
}

// dynamicTarget prefers target3, then target2, then target1, among
// those that are still ahead of current price.
func dynamicTarget(p breakout.Pivot, side breakout.Side, price float64) (float64, bool) {
	ahead := func(level float64) bool {
		if side == breakout.Long {
			return level > price
		}
		return level < price
	}

	if side == breakout.Long {
		if p.HasTarget3 && ahead(p.Target3) {
			return p.Target3, true
		}
		if p.HasTarget2 && ahead(p.Target2) {
			return p.Target2, true
		}
		if p.HasTarget1 && ahead(p.Target1) {
			return p.Target1, true
		}
		return 0, false
	}

	if p.HasDownside2 && ahead(p.Downside2) {
		return p.Downside2, true
	}
	if p.HasDownside1 && ahead(p.Downside1) {
		return p.Downside1, true
	}
	return 0, false
}

// StochasticRegime blocks entries whose hourly %K sits outside the
// regime band for the side; null %K passes.
func StochasticRegime(cfg Config, ctx Context) Result {
	if !cfg.EnableStochastic {
		return pass()
	}
	if !ctx.Snapshot.StochK.Ready {
		return pass()
	}
	k := ctx.Snapshot.StochK.Value
	if ctx.Side == breakout.Long {
		if k < 60 || k > 80 {
			return block("stochastic_regime", map[string]float64{"stoch_k": k})
		}
		return pass()
	}
	if k < 20 || k > 50 {
		return block("stochastic_regime", map[string]float64{"stoch_k": k})
	}
	return pass()
}

// QualityScore blocks setups below the configured score/risk-reward
// floor. The optional ML score (SPEC_FULL.md §5) rides along in the
// observed set for the journal but never blocks by itself: a low
// secondary score on an otherwise-qualifying setup still enters.
func QualityScore(cfg Config, ctx Context) Result {
	if cfg.MinScore > 0 && ctx.Score < cfg.MinScore {
		return block("quality_score", mlObserved(ctx, map[string]float64{"score": float64(ctx.Score)}))
	}
	if cfg.MinRiskReward > 0 && ctx.RiskReward < cfg.MinRiskReward {
		return block("quality_score", mlObserved(ctx, map[string]float64{"risk_reward": ctx.RiskReward}))
	}
	return pass()
}

func mlObserved(ctx Context, observed map[string]float64) map[string]float64 {
	if ctx.MLScore != nil {
		observed["ml_score"] = *ctx.MLScore
	}
	return observed
}

// Correlation blocks a new position when it would push the same
// sector beyond MaxPerSector open positions, or duplicate an existing
// symbol. Disabled by default (see DefaultConfig); a genuine teacher
// feature the distilled spec dropped (SPEC_FULL.md §5).
func Correlation(cfg Config, ctx Context) Result {
	if !cfg.EnableCorrelation || ctx.SectorOf == nil {
		return pass()
	}

	sector := ctx.SectorOf(ctx.Symbol)
	count := 0
	for _, sym := range ctx.OpenPositionSymbols {
		if strings.EqualFold(sym, ctx.Symbol) {
			return block("correlation", nil)
		}
		if ctx.SectorOf(sym) == sector {
			count++
		}
	}
	if count >= cfg.MaxPerSector {
		return block("correlation", map[string]float64{"sector_count": float64(count)})
	}
	return pass()
}
