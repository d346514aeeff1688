package indicators

import (
	"time"

	"github.com/pivotbreak/engine/internal/bars"
)

// HourlyResampler folds the 1-minute candle stream into 1-hour candles
// aligned to wall-clock hour boundaries, for the SMA/EMA/Bollinger/
// Stochastic/LinReg family that the exit system and stochastic filter
// need on an hourly basis.
type HourlyResampler struct {
	hourStart time.Time
	acc       bars.Bar
	open      bool
}

// NewHourlyResampler creates an empty resampler.
func NewHourlyResampler() *HourlyResampler { return &HourlyResampler{} }

// Update folds one 1-minute candle in, returning the closed hourly
// candle and true when an hour boundary has just been crossed.
func (h *HourlyResampler) Update(b bars.Bar) (bars.Bar, bool) {
	hour := b.Time.Truncate(time.Hour)

	if !h.open {
		h.start(hour, b)
		return bars.Bar{}, false
	}

	if hour.Equal(h.hourStart) {
		h.extend(b)
		return bars.Bar{}, false
	}

	closed := h.acc
	h.start(hour, b)
	return closed, true
}

func (h *HourlyResampler) start(hour time.Time, b bars.Bar) {
	h.hourStart = hour
	h.acc = b
	h.acc.Time = hour
	h.open = true
}

func (h *HourlyResampler) extend(b bars.Bar) {
	if b.High > h.acc.High {
		h.acc.High = b.High
	}
	if b.Low < h.acc.Low {
		h.acc.Low = b.Low
	}
	h.acc.Close = b.Close
	h.acc.Volume += b.Volume
	h.acc.TickCount += b.TickCount
}
