package breakout

import (
	"testing"

	"github.com/pivotbreak/engine/internal/bars"
	"github.com/pivotbreak/engine/internal/indicators"
	"github.com/stretchr/testify/require"
)

func longPivot() Pivot {
	return Pivot{Symbol: "T", Side: Long, Resistance: 100.00, Target1: 100.80, HasTarget1: true}
}

func TestMonitoringDetectsBreakoutOnSubBarClose(t *testing.T) {
	tr := NewTracker(longPivot(), DefaultConfig())
	out := tr.AdvanceSubBar(0, bars.Bar{Close: 100.25}, indicators.Snapshot{})
	require.True(t, out.Transitioned)
	require.Equal(t, BreakoutDetected, tr.State)
	require.EqualValues(t, 0, tr.FirstBreakIdx)
}

func TestCandleCloseBelowPivotFails(t *testing.T) {
	tr := NewTracker(longPivot(), DefaultConfig())
	tr.AdvanceSubBar(0, bars.Bar{Close: 100.25}, indicators.Snapshot{})
	out := tr.AdvanceCandleClose(5, bars.Bar{Open: 100.1, Close: 99.95}, nil, indicators.Snapshot{}, 99.95)
	require.True(t, out.Transitioned)
	require.Equal(t, Failed, tr.State)
}

func TestSubAverageVolumeBlocksImmediately(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewTracker(longPivot(), cfg)
	tr.AdvanceSubBar(0, bars.Bar{Close: 100.25}, indicators.Snapshot{})

	snap := indicators.Snapshot{VolumeRatio: 0.8, VolRatioOK: true}
	out := tr.AdvanceCandleClose(5, bars.Bar{Open: 100.0, Close: 100.25}, nil, snap, 100.25)
	require.True(t, out.Blocked)
	require.Equal(t, "min_volume", out.ReasonCode)
	require.Equal(t, Failed, tr.State)

	// S2: attempt counts by entry attempt, not classification attempt.
	tr.Revive()
	require.Equal(t, Monitoring, tr.State)
	require.Equal(t, 1, tr.Attempt)
	require.False(t, tr.Sealed)
}

func TestReviveNeverSealsRegardlessOfAttemptCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttemptsPerPivot = 1
	tr := NewTracker(longPivot(), cfg)
	tr.AdvanceSubBar(0, bars.Bar{Close: 100.25}, indicators.Snapshot{})
	tr.AdvanceCandleClose(5, bars.Bar{Open: 100.1, Close: 99.95}, nil, indicators.Snapshot{}, 99.95)
	require.Equal(t, Failed, tr.State)

	tr.Revive()
	require.Equal(t, Monitoring, tr.State)
	require.False(t, tr.Sealed)
	require.Equal(t, 1, tr.Attempt)
}

func TestMomentumClassificationReadyWithCVDDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CVDEnabled = false
	tr := NewTracker(longPivot(), cfg)
	tr.AdvanceSubBar(0, bars.Bar{Close: 100.25}, indicators.Snapshot{})

	snap := indicators.Snapshot{VolumeRatio: 2.4, VolRatioOK: true}
	out := tr.AdvanceCandleClose(5, bars.Bar{Open: 98.5, Close: 100.25}, nil, snap, 100.25)
	require.True(t, out.ReadyToEnter)
	require.Equal(t, TypeMomentum, out.BreakoutType)
}

func TestWeakThenCVDMonitoringStrongSlopeReadyImmediately(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewTracker(longPivot(), cfg)
	tr.AdvanceSubBar(0, bars.Bar{Close: 100.25}, indicators.Snapshot{})

	weakSnap := indicators.Snapshot{VolumeRatio: 1.1, VolRatioOK: true}
	out := tr.AdvanceCandleClose(5, bars.Bar{Open: 100.1, Close: 100.25}, nil, weakSnap, 100.25)
	require.Equal(t, CVDMonitoring, tr.State)
	require.False(t, out.ReadyToEnter)

	cvdSnap := indicators.Snapshot{CVDSlope: 6000, CVDReady: true}
	out = tr.AdvanceCandleClose(6, bars.Bar{Open: 100.25, Close: 100.4}, nil, cvdSnap, 100.4)
	require.True(t, out.ReadyToEnter)
	require.Equal(t, TypeCVD, out.BreakoutType)
}

func TestCVDPriceValidationBlocksWhenPriceFallsBackBelowPivot(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewTracker(longPivot(), cfg)
	tr.AdvanceSubBar(0, bars.Bar{Close: 100.25}, indicators.Snapshot{})
	weakSnap := indicators.Snapshot{VolumeRatio: 1.1, VolRatioOK: true}
	tr.AdvanceCandleClose(5, bars.Bar{Open: 100.1, Close: 100.25}, nil, weakSnap, 100.25)

	cvdSnap := indicators.Snapshot{CVDSlope: 6000, CVDReady: true}
	out := tr.AdvanceCandleClose(6, bars.Bar{Open: 100.25, Close: 99.9}, nil, cvdSnap, 99.9)
	require.True(t, out.Blocked)
	require.Equal(t, "cvd_price_validation", out.ReasonCode)
	require.Equal(t, CVDMonitoring, tr.State)
}

// TestCVDTimeoutFails drives CheckCVDTimeout the way the scheduler
// actually calls it: AdvanceCandleClose's absIdx is a sub-bar absolute
// index (0-based candle N's close lands at absIdx = (N+1)*SubBarsPerCandle - 1),
// while CheckCVDTimeout is invoked with that same absIdx divided down
// to a candle count. cvdMonitorStartIdx must be stored in the same
// candle-count units or the elapsed-minutes comparison never trips.
func TestCVDTimeoutFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CVDMaxMinutes = 3
	tr := NewTracker(longPivot(), cfg)
	tr.AdvanceSubBar(0, bars.Bar{Close: 100.25}, indicators.Snapshot{})

	weakSnap := indicators.Snapshot{VolumeRatio: 1.1, VolRatioOK: true}
	firstCloseAbsIdx := int64(SubBarsPerCandle - 1) // candle 0's close
	tr.AdvanceCandleClose(firstCloseAbsIdx, bars.Bar{Open: 100.1, Close: 100.25}, nil, weakSnap, 100.25)
	require.Equal(t, CVDMonitoring, tr.State)

	for candle := int64(1); candle <= 3; candle++ {
		closeAbsIdx := candle*SubBarsPerCandle + (SubBarsPerCandle - 1)
		out := tr.CheckCVDTimeout(closeAbsIdx / SubBarsPerCandle)
		if out.Transitioned {
			require.Equal(t, Failed, tr.State)
			require.Equal(t, "cvd_timeout", out.ReasonCode)
			return
		}
	}
	t.Fatal("expected CVD monitoring to time out within CVDMaxMinutes candles")
}

func TestConsumeSealsAfterMaxAttempts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttemptsPerPivot = 1
	tr := NewTracker(longPivot(), cfg)
	tr.Consume(false)
	require.True(t, tr.Sealed)
}

func TestConsumeEnteredResetsWithoutSealing(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewTracker(longPivot(), cfg)
	tr.AdvanceSubBar(0, bars.Bar{Close: 100.25}, indicators.Snapshot{})
	tr.Consume(true)
	require.Equal(t, Monitoring, tr.State)
	require.False(t, tr.Sealed)
	require.Equal(t, 1, tr.Attempt)
}

func TestEvictedFirstBreakBarIsNoOp(t *testing.T) {
	tr := NewTracker(longPivot(), DefaultConfig())
	tr.AdvanceSubBar(0, bars.Bar{Close: 100.25}, indicators.Snapshot{})

	ring := bars.NewRing(2)
	ring.Push(bars.Bar{})
	ring.Push(bars.Bar{})
	ring.Push(bars.Bar{}) // evicts absolute index 0

	out := tr.AdvanceCandleClose(5, bars.Bar{Open: 100.1, Close: 100.3}, ring, indicators.Snapshot{}, 100.3)
	require.True(t, out.NoOp)
	require.Equal(t, BreakoutDetected, tr.State)
}
