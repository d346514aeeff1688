package indicators

import "math"

// Bollinger computes a simple-moving-average centerline with upper and
// lower bands at a configurable standard-deviation multiple, fed
// closing prices of hourly candles.
type Bollinger struct {
	period     int
	stdDevMult float64
	window     []float64
}

// NewBollinger creates a Bollinger band calculator (spec default 20, 2σ).
func NewBollinger(period int, stdDevMult float64) *Bollinger {
	return &Bollinger{period: period, stdDevMult: stdDevMult, window: make([]float64, 0, period)}
}

// Update folds one close into the window.
func (b *Bollinger) Update(close float64) {
	b.window = append(b.window, close)
	if len(b.window) > b.period {
		b.window = b.window[1:]
	}
}

// Bands returns (middle, upper, lower, ok). ok is false until the
// window has filled.
func (b *Bollinger) Bands() (mid, upper, lower float64, ok bool) {
	if len(b.window) < b.period {
		return 0, 0, 0, false
	}
	sum := 0.0
	for _, v := range b.window {
		sum += v
	}
	mean := sum / float64(len(b.window))

	var variance float64
	for _, v := range b.window {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(b.window))
	sd := math.Sqrt(variance)

	return mean, mean + b.stdDevMult*sd, mean - b.stdDevMult*sd, true
}
