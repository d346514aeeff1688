package indicators

import "github.com/pivotbreak/engine/internal/bars"

// RSI computes the Relative Strength Index using Wilder's smoothing,
// kept from the teacher's calculator and adapted to the candle-level
// bars.Bar type.
type RSI struct {
	period        int
	gains         []float64
	losses        []float64
	avgGain       float64
	avgLoss       float64
	previousClose float64
	seeded        bool
}

// NewRSI creates an RSI calculator for the given period.
func NewRSI(period int) *RSI {
	return &RSI{period: period, gains: make([]float64, 0, period+1), losses: make([]float64, 0, period+1)}
}

// Update folds one candle into the rolling RSI.
func (r *RSI) Update(b bars.Bar) {
	if !r.seeded {
		r.seeded = true
		r.previousClose = b.Close
		return
	}

	change := b.Close - r.previousClose
	var gain, loss float64
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	r.gains = append(r.gains, gain)
	r.losses = append(r.losses, loss)
	if len(r.gains) > r.period+1 {
		r.gains = r.gains[len(r.gains)-(r.period+1):]
	}
	if len(r.losses) > r.period+1 {
		r.losses = r.losses[len(r.losses)-(r.period+1):]
	}

	if len(r.gains) <= r.period {
		var sumGain, sumLoss float64
		for _, g := range r.gains {
			sumGain += g
		}
		for _, l := range r.losses {
			sumLoss += l
		}
		r.avgGain = sumGain / float64(len(r.gains))
		r.avgLoss = sumLoss / float64(len(r.losses))
	} else {
		r.avgGain = ((r.avgGain * float64(r.period-1)) + gain) / float64(r.period)
		r.avgLoss = ((r.avgLoss * float64(r.period-1)) + loss) / float64(r.period)
	}

	r.previousClose = b.Close
}

// Value returns the current RSI (0-100), 50 (neutral) before any data.
func (r *RSI) Value() float64 {
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := r.avgGain / r.avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// Ready reports whether the window has filled.
func (r *RSI) Ready() bool {
	return len(r.gains) >= r.period && len(r.losses) >= r.period
}

// Reset clears all accumulated state.
func (r *RSI) Reset() {
	r.gains = r.gains[:0]
	r.losses = r.losses[:0]
	r.avgGain = 0
	r.avgLoss = 0
	r.previousClose = 0
	r.seeded = false
}
