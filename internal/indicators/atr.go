package indicators

import (
	"math"

	"github.com/pivotbreak/engine/internal/bars"
)

// ATR computes Average True Range with Wilder's smoothing, fed by the
// 5-second sub-bar series. Ratios of ATR are all callers need, so the
// accumulation-phase simple average is an accepted approximation.
type ATR struct {
	period        int
	trueRanges    []float64
	value         float64
	previousClose float64
	seeded        bool
}

// NewATR creates an ATR calculator for the given period (spec default 20).
func NewATR(period int) *ATR {
	return &ATR{period: period, trueRanges: make([]float64, 0, period+1)}
}

// Update folds one sub-bar into the rolling ATR.
func (a *ATR) Update(b bars.Bar) {
	tr := a.trueRange(b)

	if !a.seeded {
		a.seeded = true
		a.previousClose = b.Close
		a.trueRanges = append(a.trueRanges, tr)
		return
	}

	a.trueRanges = append(a.trueRanges, tr)
	if len(a.trueRanges) > a.period+1 {
		a.trueRanges = a.trueRanges[len(a.trueRanges)-(a.period+1):]
	}

	if len(a.trueRanges) <= a.period {
		sum := 0.0
		for _, v := range a.trueRanges {
			sum += v
		}
		a.value = sum / float64(len(a.trueRanges))
	} else {
		a.value = ((a.value * float64(a.period-1)) + tr) / float64(a.period)
	}

	a.previousClose = b.Close
}

func (a *ATR) trueRange(b bars.Bar) float64 {
	if !a.seeded {
		return b.High - b.Low
	}
	tr1 := b.High - b.Low
	tr2 := math.Abs(b.High - a.previousClose)
	tr3 := math.Abs(b.Low - a.previousClose)
	return math.Max(tr1, math.Max(tr2, tr3))
}

// Value returns the current ATR, or 0 before any bar has been seen.
func (a *ATR) Value() float64 { return a.value }

// Ready reports whether the window has filled.
func (a *ATR) Ready() bool { return len(a.trueRanges) >= a.period }

// Reset clears all accumulated state (new trading day).
func (a *ATR) Reset() {
	a.trueRanges = a.trueRanges[:0]
	a.value = 0
	a.previousClose = 0
	a.seeded = false
}
