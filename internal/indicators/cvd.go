package indicators

import "github.com/pivotbreak/engine/internal/bars"

// CVDSource selects how per-candle buy/sell volume is estimated.
// Tick-sign data is preferred when the feed supplies it; the
// bar-shape heuristic is the default fallback (and the only source
// available from historical 1-minute bars in backtest mode).
type CVDSource int

const (
	// CVDSourceBarShape estimates delta from close vs (high+low)/2.
	CVDSourceBarShape CVDSource = iota
	// CVDSourceTickSign uses accumulated signed tick volume, when present.
	CVDSourceTickSign
)

// CVD accumulates a cumulative volume delta series on 1-minute candles
// and tracks the slope over the trailing 5-candle window.
type CVD struct {
	source   CVDSource
	slopeLen int
	values   []float64
	cum      float64
}

// NewCVD creates a CVD tracker with the given slope window (spec
// default 5 candles). The series starts from a zero baseline, so the
// slope is ready once slopeLen candles have been folded in.
func NewCVD(source CVDSource, slopeLen int) *CVD {
	values := make([]float64, 0, slopeLen+1)
	return &CVD{source: source, slopeLen: slopeLen, values: append(values, 0)}
}

// UpdateFromBar folds one candle into the CVD using the bar-shape
// heuristic: close above the candle midpoint counts as buy pressure.
func (c *CVD) UpdateFromBar(b bars.Bar) {
	mid := (b.High + b.Low) / 2.0
	var delta float64
	if b.High != b.Low {
		delta = float64(b.Volume) * (b.Close - mid) / (b.High - mid + (b.High - b.Low))
	}
	if delta == 0 && b.Close > mid {
		delta = float64(b.Volume)
	} else if delta == 0 && b.Close < mid {
		delta = -float64(b.Volume)
	}
	c.push(delta)
}

// UpdateFromTickSigns folds one candle into the CVD using accumulated
// signed tick volume (buyVolume - sellVolume) when tick data is present.
func (c *CVD) UpdateFromTickSigns(buyVolume, sellVolume int64) {
	c.push(float64(buyVolume - sellVolume))
}

func (c *CVD) push(delta float64) {
	c.cum += delta
	c.values = append(c.values, c.cum)
	if len(c.values) > c.slopeLen+1 {
		c.values = c.values[len(c.values)-(c.slopeLen+1):]
	}
}

// Cumulative returns the running cumulative volume delta.
func (c *CVD) Cumulative() float64 { return c.cum }

// Slope returns the change in cumulative CVD over the trailing window,
// or (0, false) if the window has not filled.
func (c *CVD) Slope() (float64, bool) {
	if len(c.values) <= c.slopeLen {
		return 0, false
	}
	return c.values[len(c.values)-1] - c.values[0], true
}
