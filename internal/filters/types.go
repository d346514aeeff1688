package filters

import (
	"time"

	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/internal/indicators"
)

// Context is everything one filter evaluation needs. It is built once
// per READY_TO_ENTER decision and handed through the ordered pipeline;
// no filter reaches outside it (DESIGN NOTES: no global mutable state).
type Context struct {
	Symbol       string
	Side         breakout.Side
	EventTime    time.Time
	CurrentPrice float64
	Pivot        breakout.Pivot
	BreakoutType breakout.BreakoutType

	Attempt      int
	Snapshot     indicators.Snapshot
	Score        int
	RiskReward   float64

	// OpenPositionSymbols, SymbolSector and SectorOf back the
	// supplemented correlation filter. The scheduler fills them on
	// every evaluation; Correlation ignores them when it is disabled.
	OpenPositionSymbols []string
	SymbolSector        string
	SectorOf            func(symbol string) string

	// MLScore, when non-nil, is the teacher's secondary ML scorer's
	// 0-1 probability for this decision (SPEC_FULL.md §5). It is
	// always observational: QualityScore folds it into the journal's
	// observed set but never gates on it alone.
	MLScore *float64
}

// Result is a filter's verdict: pass, or block with a reason and the
// observed scalar(s) that drove the decision (for the journal's
// `observed` field), per the DESIGN NOTES ban on error-as-signal.
type Result struct {
	Blocked  bool
	Name     string
	Observed map[string]float64
}

func pass() Result { return Result{} }

func block(name string, observed map[string]float64) Result {
	return Result{Blocked: true, Name: name, Observed: observed}
}

// Filter is one tagged pipeline stage. Each concrete filter in
// filters.go is a function of this shape, closed over its own
// configuration view.
type Filter func(cfg Config, ctx Context) Result
