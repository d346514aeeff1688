package indicators

import (
	"time"

	"github.com/pivotbreak/engine/internal/bars"
)

// VWAP computes the session Volume Weighted Average Price from the
// 1-minute candle stream, reset at market open.
type VWAP struct {
	volumeSum      float64
	priceVolumeSum float64
	sessionStart   time.Time
}

// NewVWAP creates a VWAP accumulator.
func NewVWAP() *VWAP { return &VWAP{} }

// Reset clears accumulated sums for a new session.
func (v *VWAP) Reset(marketOpen time.Time) {
	v.volumeSum = 0
	v.priceVolumeSum = 0
	v.sessionStart = marketOpen
}

// Update folds one candle into the running VWAP. Candles before the
// session start are ignored.
func (v *VWAP) Update(b bars.Bar) {
	if !v.sessionStart.IsZero() && b.Time.Before(v.sessionStart) {
		return
	}
	typical := (b.High + b.Low + b.Close) / 3.0
	v.volumeSum += float64(b.Volume)
	v.priceVolumeSum += typical * float64(b.Volume)
}

// Value returns the current VWAP, or 0 with no volume yet.
func (v *VWAP) Value() float64 {
	if v.volumeSum == 0 {
		return 0
	}
	return v.priceVolumeSum / v.volumeSum
}

// Extension reports how many ATRs price sits away from VWAP, signed.
func Extension(price, vwap, atr float64) float64 {
	if atr == 0 {
		return 0
	}
	return (price - vwap) / atr
}
