package scanner

import (
	"strings"

	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/internal/filters"
)

// Watchlist is the day's setups keyed by upper-cased symbol, built
// once at session start and read-only for the rest of the session
// (spec.md §3 "The Setup is read-only for the engine's lifetime").
type Watchlist struct {
	bySymbol map[string]Setup
}

// NewWatchlist indexes setups by symbol.
func NewWatchlist(setups []Setup) *Watchlist {
	w := &Watchlist{bySymbol: make(map[string]Setup, len(setups))}
	for _, s := range setups {
		w.bySymbol[strings.ToUpper(s.Symbol)] = s
	}
	return w
}

// Get returns the setup for symbol, if present.
func (w *Watchlist) Get(symbol string) (Setup, bool) {
	s, ok := w.bySymbol[strings.ToUpper(symbol)]
	return s, ok
}

// Symbols returns every symbol still on the watchlist.
func (w *Watchlist) Symbols() []string {
	out := make([]string, 0, len(w.bySymbol))
	for s := range w.bySymbol {
		out = append(out, s)
	}
	return out
}

// Remove drops a symbol from the watchlist for the remainder of the
// session (spec.md §4.4 gap filter: "remove from watchlist for the
// day").
func (w *Watchlist) Remove(symbol string) {
	delete(w.bySymbol, strings.ToUpper(symbol))
}

// ApplyGapFilter runs the once-per-open gap filter (spec.md §4.4 step
// 3) against every setup, given each symbol's opening price, and
// removes the ones it rejects. It returns the gap percentage recorded
// for symbols that remain, for the decision journal's observed field.
func (w *Watchlist) ApplyGapFilter(cfg filters.GapConfig, openPrices map[string]float64) map[string]float64 {
	gapPct := make(map[string]float64, len(w.bySymbol))
	for sym, setup := range w.bySymbol {
		open, ok := openPrices[sym]
		if !ok {
			continue
		}
		side := setup.Side()
		pivot := setup.ToPivot(side)
		remain, pct := filters.GapFilter(cfg, pivot, open)
		if !remain {
			delete(w.bySymbol, sym)
			continue
		}
		gapPct[sym] = pct
	}
	return gapPct
}

// PivotFor returns the setup's Pivot for the given side (via ToPivot).
// The scanner watchlist's setup_type names the primary side (see
// Side); the engine tracks only that side.
func (s Setup) PivotFor(side breakout.Side) breakout.Pivot {
	return s.ToPivot(side)
}
