package indicators

import "github.com/pivotbreak/engine/internal/bars"

// Stochastic is a slow stochastic oscillator (%K smoothed, then %D as
// an SMA of %K), fed hourly candles. Spec default periods are 14,3,3.
type Stochastic struct {
	kPeriod, kSmooth, dPeriod int
	highs, lows               []float64
	rawK                      []float64
	smoothK                   []float64
}

// NewStochastic creates a stochastic oscillator with the given periods.
func NewStochastic(kPeriod, kSmooth, dPeriod int) *Stochastic {
	return &Stochastic{
		kPeriod: kPeriod, kSmooth: kSmooth, dPeriod: dPeriod,
		highs: make([]float64, 0, kPeriod), lows: make([]float64, 0, kPeriod),
	}
}

// Update folds one hourly candle into the oscillator.
func (s *Stochastic) Update(b bars.Bar) {
	s.highs = append(s.highs, b.High)
	s.lows = append(s.lows, b.Low)
	if len(s.highs) > s.kPeriod {
		s.highs = s.highs[1:]
		s.lows = s.lows[1:]
	}
	if len(s.highs) < s.kPeriod {
		return
	}

	hh, ll := s.highs[0], s.lows[0]
	for i := 1; i < len(s.highs); i++ {
		if s.highs[i] > hh {
			hh = s.highs[i]
		}
		if s.lows[i] < ll {
			ll = s.lows[i]
		}
	}

	var raw float64
	if hh != ll {
		raw = (b.Close - ll) / (hh - ll) * 100.0
	} else {
		raw = 50.0
	}
	s.rawK = append(s.rawK, raw)
	if len(s.rawK) > s.kSmooth {
		s.rawK = s.rawK[1:]
	}

	sum := 0.0
	for _, v := range s.rawK {
		sum += v
	}
	k := sum / float64(len(s.rawK))
	s.smoothK = append(s.smoothK, k)
	if len(s.smoothK) > s.dPeriod {
		s.smoothK = s.smoothK[1:]
	}
}

// K returns the smoothed %K, or (0, false) if not enough data.
func (s *Stochastic) K() (float64, bool) {
	if len(s.highs) < s.kPeriod || len(s.rawK) < s.kSmooth {
		return 0, false
	}
	return s.smoothK[len(s.smoothK)-1], true
}

// D returns %D (SMA of %K over dPeriod), or (0, false) if not enough data.
func (s *Stochastic) D() (float64, bool) {
	if len(s.smoothK) < s.dPeriod {
		return 0, false
	}
	sum := 0.0
	for _, v := range s.smoothK {
		sum += v
	}
	return sum / float64(len(s.smoothK)), true
}
