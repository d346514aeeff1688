package indicators

import (
	"time"

	"github.com/pivotbreak/engine/internal/bars"
)

// Snapshot is the read-only view of one symbol's indicator state at a
// point in the event stream. Consumers (C3-C6) read snapshots; the
// suite never calls back into them, which keeps replay deterministic
// and avoids update-ordering cycles between indicators and the
// components that consume them.
type Snapshot struct {
	ATR         float64
	ATRReady    bool
	RSI         float64
	RSIReady    bool
	VWAP        float64
	VolumeRatio float64
	VolRatioOK  bool
	CVDSlope    float64
	CVDReady    bool

	// Hourly family, null (Ready=false) until enough hourly candles exist.
	SMA5, SMA10, SMA20, SMA50, SMA100, SMA200 Level
	EMA9, EMA20, EMA50                        Level
	StochK, StochD                            Level
	BollMid, BollUpper, BollLower             Level
	LinRegValue, LinRegSlope                  Level

	// FiveMinuteRange is the realised high-low range over the trailing
	// 5 one-minute candles, used by the choppy filter.
	FiveMinuteRange float64
}

// Level is a nullable scalar indicator reading.
type Level struct {
	Value float64
	Ready bool
}

// Suite owns one symbol's full indicator set and publishes Snapshot
// values as bars arrive; it never reaches back into C3-C6.
type Suite struct {
	atr         *ATR
	rsi         *RSI
	vwap        *VWAP
	volumeRatio *VolumeRatio
	cvd         *CVD
	hourly      *HourlyResampler

	sma5, sma10, sma20, sma50, sma100, sma200 *SMA
	ema9, ema20, ema50                        *EMA
	stoch                                     *Stochastic
	boll                                      *Bollinger
	linreg                                    *LinReg
	fiveMinRange                              *RollingRange

	volumeRatioValue float64
	volumeRatioOK    bool
}

// NewSuite builds a symbol's indicator suite using the spec's default
// periods.
func NewSuite() *Suite {
	return &Suite{
		atr:         NewATR(20),
		rsi:         NewRSI(14),
		vwap:        NewVWAP(),
		volumeRatio: NewVolumeRatio(20),
		cvd:         NewCVD(CVDSourceBarShape, 5),
		hourly:      NewHourlyResampler(),
		sma5:        NewSMA(5),
		sma10:       NewSMA(10),
		sma20:       NewSMA(20),
		sma50:       NewSMA(50),
		sma100:      NewSMA(100),
		sma200:      NewSMA(200),
		ema9:        NewEMA(9),
		ema20:       NewEMA(20),
		ema50:       NewEMA(50),
		stoch:       NewStochastic(14, 3, 3),
		boll:        NewBollinger(20, 2.0),
		linreg:      NewLinReg(30),
		fiveMinRange: NewRollingRange(5),
	}
}

// ResetSession resets the session-scoped indicators (VWAP) at market open.
func (s *Suite) ResetSession(marketOpen time.Time) {
	s.vwap.Reset(marketOpen)
}

// OnSubBar folds a 5-second sub-bar into the sub-bar-resolution
// indicators (ATR).
func (s *Suite) OnSubBar(b bars.Bar) {
	s.atr.Update(b)
}

// OnCandle folds a closed 1-minute candle into the candle-resolution
// indicators and the hourly resampling chain.
func (s *Suite) OnCandle(b bars.Bar) {
	s.rsi.Update(b)
	s.vwap.Update(b)
	// volume_ratio compares this candle against the average of the
	// prior 20 completed candles, so the ratio must be read before this
	// candle's own volume folds into the baseline.
	s.volumeRatioValue, s.volumeRatioOK = s.volumeRatio.Ratio(b.Volume)
	s.volumeRatio.Update(b.Volume)
	s.cvd.UpdateFromBar(b)
	s.fiveMinRange.Update(b)

	if hourly, closed := s.hourly.Update(b); closed {
		s.sma5.Update(hourly.Close)
		s.sma10.Update(hourly.Close)
		s.sma20.Update(hourly.Close)
		s.sma50.Update(hourly.Close)
		s.sma100.Update(hourly.Close)
		s.sma200.Update(hourly.Close)
		s.ema9.Update(hourly.Close)
		s.ema20.Update(hourly.Close)
		s.ema50.Update(hourly.Close)
		s.stoch.Update(hourly)
		s.boll.Update(hourly.Close)
		s.linreg.Update(hourly.Close)
	}
}

// Snapshot publishes the current read-only view for this symbol.
func (s *Suite) Snapshot() Snapshot {
	snap := Snapshot{
		ATR:      s.atr.Value(),
		ATRReady: s.atr.Ready(),
		RSI:      s.rsi.Value(),
		RSIReady: s.rsi.Ready(),
		VWAP:     s.vwap.Value(),
		FiveMinuteRange: s.fiveMinRange.Range(),
	}

	if s.volumeRatioOK {
		snap.VolumeRatio, snap.VolRatioOK = s.volumeRatioValue, true
	}
	if slope, ok := s.cvd.Slope(); ok {
		snap.CVDSlope, snap.CVDReady = slope, true
	}

	snap.SMA5 = level(s.sma5.Value())
	snap.SMA10 = level(s.sma10.Value())
	snap.SMA20 = level(s.sma20.Value())
	snap.SMA50 = level(s.sma50.Value())
	snap.SMA100 = level(s.sma100.Value())
	snap.SMA200 = level(s.sma200.Value())
	snap.EMA9 = level(s.ema9.Value())
	snap.EMA20 = level(s.ema20.Value())
	snap.EMA50 = level(s.ema50.Value())

	if k, ok := s.stoch.K(); ok {
		snap.StochK = Level{k, true}
	}
	if d, ok := s.stoch.D(); ok {
		snap.StochD = Level{d, true}
	}
	if mid, upper, lower, ok := s.boll.Bands(); ok {
		snap.BollMid = Level{mid, true}
		snap.BollUpper = Level{upper, true}
		snap.BollLower = Level{lower, true}
	}
	if val, slope, ok := s.linreg.Line(); ok {
		snap.LinRegValue = Level{val, true}
		snap.LinRegSlope = Level{slope, true}
	}

	return snap
}

func level(v float64, ok bool) Level { return Level{Value: v, Ready: ok} }
