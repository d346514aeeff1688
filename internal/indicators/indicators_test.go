package indicators

import (
	"testing"
	"time"

	"github.com/pivotbreak/engine/internal/bars"
	"github.com/stretchr/testify/require"
)

func bar(t time.Time, o, h, l, c float64, v int64) bars.Bar {
	return bars.Bar{Time: t, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestATRAccumulatesThenSmooths(t *testing.T) {
	a := NewATR(3)
	base := time.Now()

	a.Update(bar(base, 10, 10.5, 9.8, 10.2, 100))
	require.False(t, a.Ready())

	a.Update(bar(base, 10.2, 10.6, 10.0, 10.4, 100))
	a.Update(bar(base, 10.4, 10.8, 10.2, 10.6, 100))
	require.True(t, a.Ready())
	require.Greater(t, a.Value(), 0.0)

	a.Reset()
	require.False(t, a.Ready())
	require.Equal(t, 0.0, a.Value())
}

func TestRSINeutralBeforeData(t *testing.T) {
	r := NewRSI(14)
	require.Equal(t, 50.0, r.Value())
	require.False(t, r.Ready())
}

func TestRSIAllGainsSaturatesAt100(t *testing.T) {
	r := NewRSI(3)
	base := time.Now()
	price := 10.0
	r.Update(bar(base, price, price, price, price, 10))
	for i := 0; i < 5; i++ {
		price += 0.5
		r.Update(bar(base, price, price, price, price, 10))
	}
	require.True(t, r.Ready())
	require.Equal(t, 100.0, r.Value())
}

func TestVWAPIgnoresBarsBeforeSessionStart(t *testing.T) {
	open := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)
	v := NewVWAP()
	v.Reset(open)

	v.Update(bar(open.Add(-time.Minute), 10, 10, 10, 10, 1000)) // ignored, premarket
	require.Equal(t, 0.0, v.Value())

	v.Update(bar(open, 10, 10.2, 9.9, 10.1, 100))
	require.Greater(t, v.Value(), 0.0)
}

func TestVolumeRatioNullOnFirstCandle(t *testing.T) {
	vr := NewVolumeRatio(20)
	_, ok := vr.Ratio(500)
	require.False(t, ok)

	vr.Update(500)
	ratio, ok := vr.Ratio(1000)
	require.True(t, ok)
	require.Equal(t, 2.0, ratio)
}

func TestSMAAndEMANullUntilWindowFull(t *testing.T) {
	sma := NewSMA(3)
	_, ok := sma.Value()
	require.False(t, ok)
	sma.Update(1)
	sma.Update(2)
	_, ok = sma.Value()
	require.False(t, ok)
	sma.Update(3)
	v, ok := sma.Value()
	require.True(t, ok)
	require.Equal(t, 2.0, v)

	ema := NewEMA(3)
	ema.Update(1)
	ema.Update(2)
	_, ok = ema.Value()
	require.False(t, ok)
	ema.Update(3)
	_, ok = ema.Value()
	require.True(t, ok)
}

func TestBollingerBandsOrdering(t *testing.T) {
	b := NewBollinger(5, 2.0)
	for _, v := range []float64{10, 10.5, 9.5, 10.2, 9.8} {
		b.Update(v)
	}
	mid, upper, lower, ok := b.Bands()
	require.True(t, ok)
	require.Greater(t, upper, mid)
	require.Less(t, lower, mid)
}

func TestStochasticRangeBounds(t *testing.T) {
	s := NewStochastic(3, 2, 2)
	base := time.Now()
	for i := 0; i < 6; i++ {
		s.Update(bar(base, 10, 10+float64(i)*0.1, 10-0.1, 10, 100))
	}
	k, ok := s.K()
	require.True(t, ok)
	require.GreaterOrEqual(t, k, 0.0)
	require.LessOrEqual(t, k, 100.0)
}

func TestLinRegSlopeSignMatchesTrend(t *testing.T) {
	l := NewLinReg(5)
	for i := 0; i < 5; i++ {
		l.Update(float64(i))
	}
	_, slope, ok := l.Line()
	require.True(t, ok)
	require.Greater(t, slope, 0.0)
}

func TestCVDSlopeNullUntilWindowFull(t *testing.T) {
	c := NewCVD(CVDSourceBarShape, 5)
	base := time.Now()
	for i := 0; i < 4; i++ {
		c.UpdateFromBar(bar(base, 10, 10.5, 9.5, 10.3, 100))
	}
	_, ok := c.Slope()
	require.False(t, ok)

	c.UpdateFromBar(bar(base, 10, 10.5, 9.5, 10.3, 100))
	_, ok = c.Slope()
	require.True(t, ok)
}

func TestHourlyResamplerClosesOnBoundary(t *testing.T) {
	h := NewHourlyResampler()
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)

	_, closed := h.Update(bar(base, 10, 10, 10, 10, 100))
	require.False(t, closed)
	_, closed = h.Update(bar(base.Add(30*time.Minute), 10, 11, 9, 10.5, 100))
	require.False(t, closed)

	candle, closed := h.Update(bar(base.Add(time.Hour), 10.5, 10.5, 10.5, 10.5, 100))
	require.True(t, closed)
	require.Equal(t, 11.0, candle.High)
	require.EqualValues(t, 200, candle.Volume)
}

// TestSuiteVolumeRatioExcludesItsOwnCandle: volume_ratio compares a
// candle against the average of the *prior* completed candles. A
// candle's own volume must not be folded into the baseline before its
// own ratio is read off the snapshot.
func TestSuiteVolumeRatioExcludesItsOwnCandle(t *testing.T) {
	s := NewSuite()
	base := time.Now()

	s.OnCandle(bar(base, 10, 10.1, 9.9, 10.0, 1000))
	snap := s.Snapshot()
	require.False(t, snap.VolRatioOK) // first candle of the session has no prior baseline yet

	s.OnCandle(bar(base.Add(time.Minute), 10, 10.5, 9.9, 10.4, 30000))
	snap = s.Snapshot()
	require.True(t, snap.VolRatioOK)
	require.Equal(t, 30.0, snap.VolumeRatio) // 30000 / avg(1000), not 30000 / avg(1000,30000)
}

func TestSuiteSnapshotNullFieldsBeforeWarmup(t *testing.T) {
	s := NewSuite()
	snap := s.Snapshot()
	require.False(t, snap.SMA5.Ready)
	require.False(t, snap.StochK.Ready)
	require.Equal(t, 50.0, snap.RSI)
}
