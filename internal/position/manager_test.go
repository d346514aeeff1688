package position

import (
	"testing"
	"time"

	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AccountEquity = 100000
	return cfg
}

// S1 from spec.md §8: momentum long, entry 100.25, stop at pivot -
// buffer, shares sized from the risk amount and clipped to MaxShares.
func TestOpenSizesAndStopsPerScenarioS1(t *testing.T) {
	cfg := testConfig()
	m := NewManager(cfg)

	req := OpenRequest{
		Symbol: "T", Side: Long, EntryTime: time.Date(2026, 7, 31, 9, 47, 0, 0, time.UTC),
		MidPrice: 100.25,
		Pivot: breakout.Pivot{
			Symbol: "T", Side: breakout.Long, Resistance: 100.00,
			Target1: 100.80, HasTarget1: true, Target2: 101.50, HasTarget2: true,
		},
		BreakoutType: breakout.TypeMomentum,
	}
	pos, err := m.Open(req)
	require.NoError(t, err)
	require.InDelta(t, 99.99, pos.StopPrice, 0.001)
	require.Greater(t, pos.InitialShares, 0)
	require.Equal(t, 1.0, pos.RemainingFraction)
}

func TestOpenBlocksWhenPositionExists(t *testing.T) {
	m := NewManager(testConfig())
	req := OpenRequest{Symbol: "T", Side: Long, MidPrice: 100, Pivot: breakout.Pivot{Resistance: 99}}
	_, err := m.Open(req)
	require.NoError(t, err)
	_, err = m.Open(req)
	require.Error(t, err)
}

func TestOpenBlocksAtMaxPositions(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPositions = 1
	m := NewManager(cfg)
	_, err := m.Open(OpenRequest{Symbol: "A", Side: Long, MidPrice: 100, Pivot: breakout.Pivot{Resistance: 99}})
	require.NoError(t, err)

	_, err = m.Open(OpenRequest{Symbol: "B", Side: Long, MidPrice: 50, Pivot: breakout.Pivot{Resistance: 49}})
	require.Error(t, err)
	_, ok := err.(SizingBlocked)
	require.True(t, ok)
}

func TestOpenBlocksBelowMinShares(t *testing.T) {
	cfg := testConfig()
	cfg.RiskPerTrade = 0.0000001
	cfg.MinShares = 10
	m := NewManager(cfg)
	_, err := m.Open(OpenRequest{Symbol: "T", Side: Long, MidPrice: 100, Pivot: breakout.Pivot{Resistance: 99}})
	sb, ok := err.(SizingBlocked)
	require.True(t, ok)
	require.Equal(t, "shares_below_minimum", sb.Reason)
}

// Invariant 1 (spec.md §8): sum(partial.shares) + remaining == initial.
func TestPartialsAndRemainingSumToInitial(t *testing.T) {
	cfg := testConfig()
	cfg.LadderFractions = []float64{0.25, 0.25, 0.25, 0.25}
	m := NewManager(cfg)

	pos, err := m.Open(OpenRequest{
		Symbol: "T", Side: Long, EntryTime: time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC),
		MidPrice: 50.0,
		Pivot:    breakout.Pivot{Resistance: 50.5, Target1: 51.20, HasTarget1: true, Target2: 51.80, HasTarget2: true},
	})
	require.NoError(t, err)
	require.Len(t, pos.Ladder, 4)

	for _, price := range []float64{pos.Ladder[0].Price, pos.Ladder[1].Price, pos.Ladder[2].Price, pos.Ladder[3].Price} {
		m.EvaluatePartials("T", time.Now(), price+0.01)
	}

	pos, _ = m.Get("T")
	total := 0
	for _, p := range pos.Partials {
		total += p.Shares
	}
	require.Equal(t, pos.InitialShares, total+pos.RemainingShares)
	require.Equal(t, 0, pos.RemainingShares)
}

// Invariant 2 (spec.md §8): stop never moves adverse for a LONG.
func TestStopNeverMovesAdverseLong(t *testing.T) {
	m := NewManager(testConfig())
	pos, err := m.Open(OpenRequest{
		Symbol: "T", Side: Long, MidPrice: 50.0,
		Pivot: breakout.Pivot{Resistance: 50.5},
	})
	require.NoError(t, err)
	initialStop := pos.StopPrice

	m.raiseStop(pos, initialStop-1) // adverse attempt
	require.Equal(t, initialStop, pos.StopPrice)

	m.raiseStop(pos, initialStop+1) // favorable
	require.Equal(t, initialStop+1, pos.StopPrice)

	m.raiseStop(pos, initialStop+0.5) // adverse relative to the new stop
	require.Equal(t, initialStop+1, pos.StopPrice)
}

func TestCheckStopAppliesAdverseSlippage(t *testing.T) {
	m := NewManager(testConfig())
	pos, err := m.Open(OpenRequest{Symbol: "T", Side: Long, MidPrice: 50.0, Pivot: breakout.Pivot{Resistance: 50.5}})
	require.NoError(t, err)

	_, hit := m.CheckStop("T", pos.StopPrice+0.5)
	require.False(t, hit)

	fill, hit := m.CheckStop("T", pos.StopPrice)
	require.True(t, hit)
	require.Less(t, fill, pos.StopPrice) // adverse slippage on a long stop-out
}

func TestOpenBlocksWhenBuyingPowerExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.AccountEquity = 1000 // tiny account, plenty of risk budget but no buying power
	cfg.RiskPerTrade = 0.5
	cfg.MaxShares = 100000
	cfg.MinShares = 1
	m := NewManager(cfg)

	_, err := m.Open(OpenRequest{Symbol: "T", Side: Long, MidPrice: 100.0, Pivot: breakout.Pivot{Resistance: 99.0}})
	sb, ok := err.(SizingBlocked)
	require.True(t, ok)
	require.Equal(t, "insufficient_buying_power", sb.Reason)
}

func TestCloseReleasesBuyingPowerForReuse(t *testing.T) {
	m := NewManager(testConfig())
	_, err := m.Open(OpenRequest{Symbol: "T", Side: Long, MidPrice: 50.0, Pivot: breakout.Pivot{Resistance: 50.5}})
	require.NoError(t, err)

	before := m.BuyingPower.GetAvailableBuyingPower()
	m.Close("T", time.Now(), 51.0, ReasonStop)
	require.Greater(t, m.BuyingPower.GetAvailableBuyingPower(), before)
}

func TestCloseZeroesRemainingAndRemovesPosition(t *testing.T) {
	m := NewManager(testConfig())
	_, err := m.Open(OpenRequest{Symbol: "T", Side: Long, MidPrice: 50.0, Pivot: breakout.Pivot{Resistance: 50.5}})
	require.NoError(t, err)

	part := m.Close("T", time.Now(), 51.0, ReasonStop)
	require.NotNil(t, part)
	_, ok := m.Get("T")
	require.False(t, ok)
	require.Equal(t, 0, m.Count())

	require.Nil(t, m.Close("T", time.Now(), 51.0, ReasonStop))
}
