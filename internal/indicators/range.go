package indicators

import "github.com/pivotbreak/engine/internal/bars"

// RollingRange tracks the high-low range realised over a trailing
// window of candles, used by the choppy filter (spec default: 5
// minutes). The exits stall detector keeps its own sample window and
// does not use it.
type RollingRange struct {
	period int
	highs  []float64
	lows   []float64
}

// NewRollingRange creates a rolling range tracker over period candles.
func NewRollingRange(period int) *RollingRange {
	return &RollingRange{period: period, highs: make([]float64, 0, period), lows: make([]float64, 0, period)}
}

// Update folds one candle into the window.
func (r *RollingRange) Update(b bars.Bar) {
	r.highs = append(r.highs, b.High)
	r.lows = append(r.lows, b.Low)
	if len(r.highs) > r.period {
		r.highs = r.highs[1:]
		r.lows = r.lows[1:]
	}
}

// Range returns the realised high-low range over whatever history is
// currently held (may be less than a full window early in the session).
func (r *RollingRange) Range() float64 {
	if len(r.highs) == 0 {
		return 0
	}
	hh, ll := r.highs[0], r.lows[0]
	for i := 1; i < len(r.highs); i++ {
		if r.highs[i] > hh {
			hh = r.highs[i]
		}
		if r.lows[i] < ll {
			ll = r.lows[i]
		}
	}
	return hh - ll
}
