package exits

import (
	"testing"
	"time"

	"github.com/pivotbreak/engine/internal/indicators"
	"github.com/pivotbreak/engine/internal/position"
	"github.com/stretchr/testify/require"
)

// S6 from spec.md §8: no partial fired, favorable excursion under the
// floor after the configured window closes the position at TIME_RULE.
func TestNoProgressRuleClosesAfterWindow(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewTracker(cfg)

	entry := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)
	pos := &position.Position{
		Symbol: "T", Side: position.Long, EntryPrice: 50.00, EntryTime: entry,
		PeakFavorable: 50.04, StopPrice: 49.50,
	}

	act := tr.OnEvent(pos, indicators.Snapshot{}, entry.Add(8*time.Minute), 50.04, false)
	require.True(t, act.Close)
	require.Equal(t, position.ReasonTimeRule, act.Reason)
}

func TestNoProgressRuleNeverFiresAfterAPartial(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewTracker(cfg)

	entry := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)
	pos := &position.Position{
		Symbol: "T", Side: position.Long, EntryPrice: 50.00, EntryTime: entry,
		PeakFavorable: 50.04, StopPrice: 50.00,
		Partials: []position.Partial{{Price: 50.50, Shares: 100, Reason: position.ReasonPartial}},
	}

	act := tr.OnEvent(pos, indicators.Snapshot{}, entry.Add(30*time.Minute), 50.04, false)
	require.False(t, act.Close)
}

func TestCheckEODFlushesAtOrAfterCutoff(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewTracker(cfg)

	require.False(t, tr.CheckEOD(time.Date(2026, 7, 31, 15, 54, 0, 0, time.UTC)))
	require.True(t, tr.CheckEOD(time.Date(2026, 7, 31, 15, 55, 0, 0, time.UTC)))
	require.True(t, tr.CheckEOD(time.Date(2026, 7, 31, 16, 0, 0, 0, time.UTC)))
}

// S5 from spec.md §8: after target1 fires, a tight oscillation over the
// stall window with no continued progress tightens the trailing buffer.
func TestStallDetectionTightensTrailAfterTarget1(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewTracker(cfg)

	pos := &position.Position{
		Symbol: "T", Side: position.Long, EntryPrice: 50.00, EntryTime: time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC),
		StopPrice: 51.00, TrailPct: 0.5, PeakFavorable: 51.25,
		Ladder: []position.Level{{Price: 51.20, Fraction: 0.25, Filled: true}},
		Partials: []position.Partial{
			{Price: 50.50, Shares: 25, Reason: position.ReasonPartial},
			{Price: 51.00, Shares: 25, Reason: position.ReasonPartial},
			{Price: 51.20, Shares: 25, Reason: position.ReasonPartial},
		},
	}

	base := time.Date(2026, 7, 31, 10, 15, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		price := 51.18
		if i%2 != 0 {
			price = 51.22
		}
		act := tr.OnEvent(pos, indicators.Snapshot{}, base.Add(time.Duration(i)*time.Minute), price, false)
		if act.TightenTrail {
			return
		}
	}
	t.Fatal("expected stall detector to tighten the trail within the window")
}

func TestDynamicResistanceRequiresAPriorPartial(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewTracker(cfg)

	pos := &position.Position{Symbol: "T", Side: position.Long, EntryPrice: 50, StopPrice: 49.5}
	snap := indicators.Snapshot{SMA20: indicators.Level{Value: 50.2, Ready: true}}

	act := tr.OnEvent(pos, snap, time.Now(), 50.1, true)
	require.False(t, act.Partial)
}

func TestForgetClearsStallWindowState(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	pos := &position.Position{Symbol: "T", Side: position.Long, EntryPrice: 50, StopPrice: 49.5, EntryTime: time.Now()}
	tr.OnEvent(pos, indicators.Snapshot{}, time.Now(), 50.1, false)
	require.Contains(t, tr.state, "T")
	tr.Forget("T")
	require.NotContains(t, tr.state, "T")
}
