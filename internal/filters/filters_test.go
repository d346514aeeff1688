package filters

import (
	"testing"
	"time"

	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/internal/indicators"
	"github.com/stretchr/testify/require"
)

func TestEntryTimeWindowBlocksOutsideRange(t *testing.T) {
	cfg := DefaultConfig()
	early := Context{EventTime: time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)}
	require.True(t, EntryTimeWindow(cfg, early).Blocked)

	ok := Context{EventTime: time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)}
	require.False(t, EntryTimeWindow(cfg, ok).Blocked)
}

func TestSymbolPolicyBlocksBlocklistAndIndexShorts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Blocklist["BADCO"] = true

	require.True(t, SymbolPolicy(cfg, Context{Symbol: "BADCO"}).Blocked)
	require.True(t, SymbolPolicy(cfg, Context{Symbol: "SPY", Side: breakout.Short}).Blocked)
	require.False(t, SymbolPolicy(cfg, Context{Symbol: "SPY", Side: breakout.Long}).Blocked)
}

func TestAttemptCapBlocksBeyondMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttemptsPerPivot = 2
	require.False(t, AttemptCap(cfg, Context{Attempt: 2}).Blocked)
	require.True(t, AttemptCap(cfg, Context{Attempt: 3}).Blocked)
}

func TestChoppyPassesOnNullATR(t *testing.T) {
	cfg := DefaultConfig()
	r := Choppy(cfg, Context{Snapshot: indicators.Snapshot{ATRReady: false}})
	require.False(t, r.Blocked)
}

func TestChoppyBlocksTightRange(t *testing.T) {
	cfg := DefaultConfig()
	snap := indicators.Snapshot{ATRReady: true, ATR: 1.0, FiveMinuteRange: 0.1}
	require.True(t, Choppy(cfg, Context{Snapshot: snap}).Blocked)
}

func TestRoomToRunPrefersTarget3ThenBlocksWhenTooClose(t *testing.T) {
	cfg := DefaultConfig()
	pivot := breakout.Pivot{
		Side: breakout.Long, Resistance: 183.00,
		Target1: 184.00, HasTarget1: true,
		Target2: 184.50, HasTarget2: true,
		Target3: 184.80, HasTarget3: true,
	}
	ctx := Context{Side: breakout.Long, Pivot: pivot, CurrentPrice: 184.20}
	r := RoomToRun(cfg, ctx)
	require.True(t, r.Blocked)
	require.InDelta(t, 0.33, r.Observed["room_to_target_pct"], 0.05)
}

func TestStochasticRegimeNullPasses(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, StochasticRegime(cfg, Context{Side: breakout.Long}).Blocked)
}

func TestStochasticRegimeBlocksOutOfBand(t *testing.T) {
	cfg := DefaultConfig()
	snap := indicators.Snapshot{StochK: indicators.Level{Value: 55, Ready: true}}
	require.True(t, StochasticRegime(cfg, Context{Side: breakout.Long, Snapshot: snap}).Blocked)
}

func TestQualityScoreBlocksBelowFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinScore = 50
	require.True(t, QualityScore(cfg, Context{Score: 40}).Blocked)
	require.False(t, QualityScore(cfg, Context{Score: 60}).Blocked)
}

func TestCorrelationDisabledByDefaultPasses(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, Correlation(cfg, Context{Symbol: "AAPL", SectorOf: Sector, OpenPositionSymbols: []string{"MSFT", "NVDA"}}).Blocked)
}

func TestCorrelationBlocksThirdSameSectorPosition(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableCorrelation = true
	ctx := Context{Symbol: "AAPL", SectorOf: Sector, OpenPositionSymbols: []string{"MSFT", "NVDA"}}
	require.True(t, Correlation(cfg, ctx).Blocked)
}

func TestGapFilterSmallGapPasses(t *testing.T) {
	cfg := DefaultGapConfig()
	pivot := breakout.Pivot{Side: breakout.Long, Resistance: 100.0}
	pass, gapPct := GapFilter(cfg, pivot, 100.5)
	require.True(t, pass)
	require.InDelta(t, 0.5, gapPct, 0.01)
}

func TestGapFilterBoundaryExactlyAtMaxPasses(t *testing.T) {
	cfg := DefaultGapConfig()
	pivot := breakout.Pivot{Side: breakout.Long, Resistance: 100.0}
	pass, _ := GapFilter(cfg, pivot, 101.0) // exactly 1.0% through
	require.True(t, pass)
}

func TestGapFilterLargeGapWithoutRoomRemovesFromWatchlist(t *testing.T) {
	cfg := DefaultGapConfig()
	pivot := breakout.Pivot{Side: breakout.Long, Resistance: 100.0, Target1: 102.0, HasTarget1: true}
	pass, _ := GapFilter(cfg, pivot, 101.9) // gapped 1.9% through, target only 0.1% away
	require.False(t, pass)
}

func TestPipelineFirstBlockWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Blocklist["BADCO"] = true
	ctx := Context{Symbol: "BADCO", EventTime: time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)}
	r := Run(cfg, ctx)
	require.True(t, r.Blocked)
	require.Equal(t, "symbol_blocklist", r.Name)
}
