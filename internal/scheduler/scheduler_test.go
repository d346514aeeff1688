package scheduler

import (
	"testing"
	"time"

	"github.com/pivotbreak/engine/internal/bars"
	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/internal/broker"
	"github.com/pivotbreak/engine/internal/exits"
	"github.com/pivotbreak/engine/internal/filters"
	"github.com/pivotbreak/engine/internal/journal"
	"github.com/pivotbreak/engine/internal/position"
	"github.com/pivotbreak/engine/internal/scanner"
	"github.com/stretchr/testify/require"
)

func momentumDay(loc *time.Location) []bars.Bar {
	day := time.Date(2026, 7, 31, 0, 0, 0, 0, loc)
	minute := func(hh, mm int, o, h, l, c float64, vol int64) bars.Bar {
		return bars.Bar{Time: time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, loc), Open: o, High: h, Low: l, Close: c, Volume: vol}
	}
	return []bars.Bar{
		minute(9, 45, 99.80, 99.90, 99.70, 99.85, 10000),
		minute(9, 46, 99.85, 100.10, 99.80, 99.95, 10000),
		minute(9, 47, 99.95, 101.25, 99.95, 101.20, 30000),
		minute(9, 48, 101.20, 101.50, 101.00, 101.45, 12000),
	}
}

func newTestEngine(jr *journal.Journal) (*Engine, *scanner.Watchlist) {
	setup := scanner.Setup{Symbol: "T", Resistance: 100.00, Score: 70, RiskReward: 2.0, SetupType: scanner.SetupBreakout}
	target1 := 100.80
	setup.Target1 = &target1
	wl := scanner.NewWatchlist([]scanner.Setup{setup})

	fCfg := filters.DefaultConfig()
	fCfg.EnableStochastic = false // hourly history is empty in this short fixture

	bCfg := breakout.DefaultConfig()
	bCfg.CVDEnabled = false // no CVD history in this short fixture, confirm on the momentum candle alone

	eng := NewEngine(DefaultConfig(), wl, bCfg, fCfg, exits.DefaultConfig(), position.DefaultConfig(), broker.NewBacktest(), jr)
	return eng, wl
}

// spec.md §8 property 8: replaying identical inputs twice produces
// byte-identical decision journals.
func TestBacktestIsDeterministicAcrossRuns(t *testing.T) {
	loc := time.UTC
	bs := momentumDay(loc)

	run := func() []journal.EntryDecision {
		jr := journal.New(nil)
		eng, wl := newTestEngine(jr)
		eng.ResetSession(wl.Symbols(), bs[0].Time)
		require.NoError(t, eng.RunBacktest(map[string][]bars.Bar{"T": bs}))
		return jr.Entries()
	}

	first := run()
	second := run()
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

// spec.md §8 property 9: replaying the same closed minute twice leaves
// engine state unchanged (duplicate delivery is idempotent).
func TestDuplicateMinuteDeliveryIsIdempotent(t *testing.T) {
	loc := time.UTC
	bs := momentumDay(loc)
	withDup := append(append([]bars.Bar{}, bs...), bs[len(bs)-1])

	jr := journal.New(nil)
	eng, wl := newTestEngine(jr)
	eng.ResetSession(wl.Symbols(), bs[0].Time)
	require.NoError(t, eng.RunBacktest(map[string][]bars.Bar{"T": withDup}))
	withDupEntries := jr.Entries()

	jr2 := journal.New(nil)
	eng2, wl2 := newTestEngine(jr2)
	eng2.ResetSession(wl2.Symbols(), bs[0].Time)
	require.NoError(t, eng2.RunBacktest(map[string][]bars.Bar{"T": bs}))
	plainEntries := jr2.Entries()

	require.Equal(t, plainEntries, withDupEntries)
}

// spec.md §8 property 6: the absolute bar index recorded in the
// journal never decreases across events.
func TestJournalAbsBarIndexIsNonDecreasing(t *testing.T) {
	loc := time.UTC
	bs := momentumDay(loc)
	jr := journal.New(nil)
	eng, wl := newTestEngine(jr)
	eng.ResetSession(wl.Symbols(), bs[0].Time)
	require.NoError(t, eng.RunBacktest(map[string][]bars.Bar{"T": bs}))

	last := int64(-1)
	for _, e := range jr.Entries() {
		require.GreaterOrEqual(t, e.AbsBarIndex, last)
		last = e.AbsBarIndex
	}
}
