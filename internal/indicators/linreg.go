package indicators

// LinReg computes a simple ordinary-least-squares line and slope over
// a trailing window of closes (spec default 30 periods, hourly candles).
type LinReg struct {
	period int
	window []float64
}

// NewLinReg creates a linear-regression calculator over period closes.
func NewLinReg(period int) *LinReg {
	return &LinReg{period: period, window: make([]float64, 0, period)}
}

// Update folds one close into the window.
func (l *LinReg) Update(close float64) {
	l.window = append(l.window, close)
	if len(l.window) > l.period {
		l.window = l.window[1:]
	}
}

// Line returns the fitted line's current value (at the last x) and
// its slope, or (0, 0, false) if the window has not filled.
func (l *LinReg) Line() (value, slope float64, ok bool) {
	n := len(l.window)
	if n < l.period {
		return 0, 0, false
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range l.window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return l.window[n-1], 0, true
	}
	b := (nf*sumXY - sumX*sumY) / denom
	a := (sumY - b*sumX) / nf
	lastX := float64(n - 1)
	return a + b*lastX, b, true
}
