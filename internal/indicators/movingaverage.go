package indicators

import "github.com/pivotbreak/engine/internal/bars"

// SMA is a simple moving average over closing price, fed one candle
// (of whatever resolution the caller resamples to — hourly for the
// exit system, per component design) at a time.
type SMA struct {
	period int
	window []float64
	sum    float64
}

// NewSMA creates an SMA of the given period.
func NewSMA(period int) *SMA {
	return &SMA{period: period, window: make([]float64, 0, period)}
}

// Update folds one close into the window.
func (s *SMA) Update(close float64) {
	s.window = append(s.window, close)
	s.sum += close
	if len(s.window) > s.period {
		s.sum -= s.window[0]
		s.window = s.window[1:]
	}
}

// Value returns the SMA, or (0, false) if the window has not filled —
// callers must treat false as null per the component design's
// null-passes-filters convention.
func (s *SMA) Value() (float64, bool) {
	if len(s.window) < s.period {
		return 0, false
	}
	return s.sum / float64(len(s.window)), true
}

// EMA is an exponential moving average, seeded by a simple average of
// the first `period` closes and then smoothed.
type EMA struct {
	period  int
	alpha   float64
	seed    []float64
	value   float64
	seeded  bool
}

// NewEMA creates an EMA of the given period.
func NewEMA(period int) *EMA {
	return &EMA{period: period, alpha: 2.0 / float64(period+1), seed: make([]float64, 0, period)}
}

// Update folds one close into the EMA.
func (e *EMA) Update(close float64) {
	if !e.seeded {
		e.seed = append(e.seed, close)
		if len(e.seed) < e.period {
			return
		}
		sum := 0.0
		for _, v := range e.seed {
			sum += v
		}
		e.value = sum / float64(len(e.seed))
		e.seeded = true
		return
	}
	e.value = (close-e.value)*e.alpha + e.value
}

// Value returns the EMA, or (0, false) before it has seeded.
func (e *EMA) Value() (float64, bool) {
	if !e.seeded {
		return 0, false
	}
	return e.value, true
}

// VolumeRatio tracks the average completed-candle volume over the
// trailing window (spec default: last 20 1-minute candles) and
// reports the current candle's volume against it.
type VolumeRatio struct {
	window []int64
	period int
	sum    int64
}

// NewVolumeRatio creates a trailing-volume baseline over period candles.
func NewVolumeRatio(period int) *VolumeRatio {
	return &VolumeRatio{period: period, window: make([]int64, 0, period)}
}

// Update folds one completed candle's volume into the baseline.
func (v *VolumeRatio) Update(volume int64) {
	v.window = append(v.window, volume)
	v.sum += volume
	if len(v.window) > v.period {
		v.sum -= v.window[0]
		v.window = v.window[1:]
	}
}

// Ratio returns current/average, or (0, false) if the baseline has no
// history yet (first candle of the session).
func (v *VolumeRatio) Ratio(current int64) (float64, bool) {
	if len(v.window) == 0 {
		return 0, false
	}
	avg := float64(v.sum) / float64(len(v.window))
	if avg == 0 {
		return 0, false
	}
	return float64(current) / avg, true
}

// candleSizePct is the |close-open|/open classification scalar used
// alongside volume ratio to classify a breakout candle.
func CandleSizePct(b bars.Bar) float64 {
	if b.Open == 0 {
		return 0
	}
	d := b.Close - b.Open
	if d < 0 {
		d = -d
	}
	return d / b.Open
}
