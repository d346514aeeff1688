package filters

import "github.com/pivotbreak/engine/internal/breakout"

// GapFilter runs once per symbol-day at market open, comparing the
// opening price to the pivot (spec.md §4.4 step 3, evaluated ahead of
// the per-event pipeline). It returns (remainOnWatchlist, gapPct).
func GapFilter(cfg GapConfig, pivot breakout.Pivot, openPrice float64) (bool, float64) {
	level := pivot.Level()
	if level == 0 {
		return true, 0
	}

	var gapThroughPct float64
	if pivot.Side == breakout.Long {
		gapThroughPct = (openPrice - level) / level * 100.0
	} else {
		gapThroughPct = (level - openPrice) / level * 100.0
	}
	if gapThroughPct <= 0 {
		return true, gapThroughPct // hasn't gapped through the pivot at all
	}
	if gapThroughPct <= cfg.SmallGapMaxPct {
		return true, gapThroughPct
	}

	target, ok := dynamicTarget(pivot, pivot.Side, openPrice)
	if !ok {
		return false, gapThroughPct
	}
	var roomPct float64
	if pivot.Side == breakout.Long {
		roomPct = (target - openPrice) / openPrice * 100.0
	} else {
		roomPct = (openPrice - target) / openPrice * 100.0
	}
	return roomPct >= cfg.GapRoomMinPct, gapThroughPct
}
