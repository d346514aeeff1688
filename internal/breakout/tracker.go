package breakout

import (
	"github.com/google/uuid"
	"github.com/pivotbreak/engine/internal/bars"
)

// SubBarsPerCandle is the number of 5-second sub-bars per 1-minute
// candle (internal/bars.Aggregator's fixed quantization). CVD-monitor
// bookkeeping is kept in candle units, while AdvanceCandleClose's
// absIdx argument is a sub-bar absolute index, so every place that
// stores or compares against cvdMonitorStartIdx must convert through
// this constant.
const SubBarsPerCandle = 12

// Tracker is the per-(symbol, attempt) breakout confirmation state
// machine from spec.md §4.3. It transitions purely from bar events;
// it never reads wall-clock time. SHORT pivots mirror LONG by
// inverting every price comparison — see the broke/favorable helpers
// below.
type Tracker struct {
	Pivot Pivot
	Cfg   Config

	State   State
	Attempt int
	Sealed  bool

	// AttemptID correlates every journal record written for this
	// attempt, distinct from the journal's own ULID record IDs.
	AttemptID uuid.UUID

	FirstBreakIdx      int64
	CandleCloseIdx     int64
	Classification     Classification
	VolumeRatioAtClass float64
	CandleSizeAtClass  float64

	pullbackExtreme    float64 // closest approach back toward the pivot since break
	pullbackArmed      bool
	sustainedOriginIdx int64
	sustainedCandles   int

	cvdMonitorStartIdx int64
	cvdAlignedCount    int
}

// NewTracker creates a tracker parked in MONITORING for the given pivot.
func NewTracker(pivot Pivot, cfg Config) *Tracker {
	return &Tracker{
		Pivot:         pivot,
		Cfg:           cfg,
		State:         Monitoring,
		Attempt:       1,
		FirstBreakIdx: -1,
	}
}

func (t *Tracker) broke(price float64) bool {
	if t.Pivot.Side == Long {
		return price > t.Pivot.Level()
	}
	return price < t.Pivot.Level()
}

func (t *Tracker) favorable(a, b float64) bool {
	if t.Pivot.Side == Long {
		return a > b
	}
	return a < b
}

// AdvanceSubBar feeds one closed 5-second sub-bar. It is the only
// entry point that can fire a MONITORING->BREAKOUT_DETECTED transition
// and the only place pullback/retest is evaluated and a sustained-hold
// dip resets the hold count, since both need intra-candle resolution.
// The sustained-hold entry itself fires on candle close (reclassify).
func (t *Tracker) AdvanceSubBar(absIdx int64, sub bars.Bar, snap IndicatorView) Outcome {
	if t.Sealed || t.State == Failed || t.State == ReadyToEnter {
		return Outcome{}
	}

	switch t.State {
	case Monitoring:
		if t.broke(sub.Close) {
			t.FirstBreakIdx = absIdx
			t.AttemptID = uuid.New()
			t.State = BreakoutDetected
			return Outcome{Transitioned: true, State: t.State}
		}
		return Outcome{}

	case WeakTracking:
		return t.advanceWeakTracking(absIdx, sub, snap)

	default:
		return Outcome{}
	}
}

// AdvanceCandleClose feeds one closed 1-minute candle. It drives
// BREAKOUT_DETECTED -> CANDLE_CLOSED -> classification, the
// re-classification of WEAK_TRACKING, and CVD_MONITORING.
func (t *Tracker) AdvanceCandleClose(absIdx int64, candle bars.Bar, ring *bars.Ring, snap IndicatorView, currentPrice float64) Outcome {
	if t.Sealed || t.State == Failed || t.State == ReadyToEnter {
		return Outcome{}
	}

	switch t.State {
	case BreakoutDetected:
		if ring != nil && ring.Evicted(t.FirstBreakIdx) {
			return Outcome{NoOp: true}
		}
		if !t.broke(candle.Close) {
			t.State = Failed
			return Outcome{Transitioned: true, State: Failed}
		}
		t.CandleCloseIdx = absIdx
		t.State = CandleClosed
		return t.classify(absIdx, candle, snap)

	case WeakTracking:
		return t.reclassify(absIdx, candle, snap)

	case CVDMonitoring:
		return t.advanceCVD(candle, snap, currentPrice)

	default:
		return Outcome{}
	}
}

func (t *Tracker) classify(absIdx int64, candle bars.Bar, snap IndicatorView) Outcome {
	volRatio, volOK := snap.VolumeRatio, snap.VolRatioOK
	sizePct := candleSizePct(candle)

	if volOK && volRatio < t.Cfg.MinVolumeThreshold {
		t.VolumeRatioAtClass, t.CandleSizeAtClass = volRatio, sizePct
		t.State = Failed
		return Outcome{
			Transitioned: true, State: Failed, Blocked: true, ReasonCode: "min_volume",
			Observed: Observed{VolumeRatio: volRatio, CandleSizePct: sizePct},
		}
	}

	t.VolumeRatioAtClass, t.CandleSizeAtClass = volRatio, sizePct

	isMomentum := volOK && volRatio >= t.Cfg.StrongVolThreshold && sizePct >= t.Cfg.MomentumCandleMinPct
	if isMomentum {
		t.Classification = ClassMomentum
	} else {
		t.Classification = ClassWeak
	}

	if t.Cfg.CVDEnabled {
		t.cvdMonitorStartIdx = absIdx / SubBarsPerCandle
		t.cvdAlignedCount = 0
		t.State = CVDMonitoring
		return Outcome{Transitioned: true, State: CVDMonitoring}
	}

	if isMomentum {
		t.State = ReadyToEnter
		return Outcome{Transitioned: true, State: ReadyToEnter, ReadyToEnter: true, BreakoutType: TypeMomentum, Observed: Observed{VolumeRatio: volRatio, CandleSizePct: sizePct}}
	}

	t.sustainedOriginIdx = absIdx
	t.sustainedCandles = 0
	t.pullbackArmed = false
	t.State = WeakTracking
	return Outcome{Transitioned: true, State: WeakTracking}
}

func (t *Tracker) reclassify(absIdx int64, candle bars.Bar, snap IndicatorView) Outcome {
	volRatio, volOK := snap.VolumeRatio, snap.VolRatioOK
	sizePct := candleSizePct(candle)

	t.sustainedCandles++

	if volOK && volRatio >= t.Cfg.StrongVolThreshold && sizePct >= t.Cfg.MomentumCandleMinPct {
		t.Classification = ClassMomentum
		t.VolumeRatioAtClass, t.CandleSizeAtClass = volRatio, sizePct
		if t.Cfg.CVDEnabled {
			t.cvdMonitorStartIdx = absIdx / SubBarsPerCandle
			t.cvdAlignedCount = 0
			t.State = CVDMonitoring
			return Outcome{Transitioned: true, State: CVDMonitoring}
		}
		t.State = ReadyToEnter
		return Outcome{Transitioned: true, State: ReadyToEnter, ReadyToEnter: true, BreakoutType: TypeMomentum}
	}

	if t.sustainedCandles*1 >= t.Cfg.SustainedMinutes {
		t.State = ReadyToEnter
		return Outcome{Transitioned: true, State: ReadyToEnter, ReadyToEnter: true, BreakoutType: TypeSustained}
	}

	return Outcome{}
}

func (t *Tracker) advanceWeakTracking(absIdx int64, sub bars.Bar, snap IndicatorView) Outcome {
	pivot := t.Pivot.Level()
	distPct := distancePct(sub.Close, pivot)

	// Pullback/retest sub-path: arm when within tolerance, fire on re-break.
	if !t.pullbackArmed {
		if distPct <= t.Cfg.PullbackTolerancePct {
			t.pullbackArmed = true
			t.pullbackExtreme = sub.Close
		}
	} else if t.broke(sub.Close) {
		retestRatio := snap.VolumeRatio
		if snap.VolRatioOK && retestRatio >= t.Cfg.RetestVolThreshold {
			t.State = ReadyToEnter
			return Outcome{Transitioned: true, State: ReadyToEnter, ReadyToEnter: true, BreakoutType: TypePullback, Observed: Observed{VolumeRatio: retestRatio}}
		}
	}

	// Sustained-break sub-path: allow brief dips no deeper than tolerance.
	if !t.broke(sub.Close) && distPct > t.Cfg.SustainedTolerancePct {
		t.sustainedOriginIdx = absIdx
		t.sustainedCandles = 0
	}

	return Outcome{}
}

func (t *Tracker) advanceCVD(candle bars.Bar, snap IndicatorView, currentPrice float64) Outcome {
	slope, ok := snap.CVDSlope, snap.CVDReady
	if !ok {
		return Outcome{}
	}

	sign := 1.0
	if t.Pivot.Side == Short {
		sign = -1.0
	}
	signedSlope := slope * sign

	switch {
	case signedSlope >= t.Cfg.StrongCVDThreshold:
		return t.readyFromCVD(currentPrice, slope)
	case signedSlope >= t.Cfg.MinCVDThreshold:
		t.cvdAlignedCount++
		if t.cvdAlignedCount >= t.Cfg.MinConsecutiveAligned {
			return t.readyFromCVD(currentPrice, slope)
		}
	case signedSlope <= -t.Cfg.MinCVDThreshold:
		t.cvdAlignedCount = 0
	}

	return Outcome{}
}

func (t *Tracker) readyFromCVD(currentPrice, slope float64) Outcome {
	if t.Cfg.CVDPriceValidation {
		if !t.broke(currentPrice) {
			return Outcome{Blocked: true, ReasonCode: "cvd_price_validation", Observed: Observed{CVDSlope: slope}}
		}
		if t.Pivot.HasTarget1 {
			band := t.Pivot.Target1 - t.Pivot.Level()
			if band != 0 {
				progressed := (currentPrice - t.Pivot.Level()) / band
				if t.Pivot.Side == Short {
					progressed = (t.Pivot.Level() - currentPrice) / (t.Pivot.Level() - t.Pivot.Target1)
				}
				if progressed > t.Cfg.CVDPriceValidationBand {
					return Outcome{Blocked: true, ReasonCode: "cvd_price_validation", Observed: Observed{CVDSlope: slope}}
				}
			}
		}
	}
	t.State = ReadyToEnter
	return Outcome{Transitioned: true, State: ReadyToEnter, ReadyToEnter: true, BreakoutType: TypeCVD, Observed: Observed{CVDSlope: slope}}
}

// CheckCVDTimeout must be called by the scheduler once per candle
// close while in CVD_MONITORING with the current absolute candle index
// (sub-bar absIdx / SubBarsPerCandle, matching the units
// cvdMonitorStartIdx is stored in).
func (t *Tracker) CheckCVDTimeout(currentAbsCandleIdx int64) Outcome {
	if t.State != CVDMonitoring {
		return Outcome{}
	}
	if currentAbsCandleIdx-t.cvdMonitorStartIdx >= int64(t.Cfg.CVDMaxMinutes) {
		t.State = Failed
		return Outcome{Transitioned: true, State: Failed, Blocked: true, ReasonCode: "cvd_timeout"}
	}
	return Outcome{}
}

// Consume is called by the caller after the filter pipeline has fired
// on a READY_TO_ENTER outcome, i.e. after a genuine entry attempt: on
// pass (entered) it resets the tracker to MONITORING; on a filter
// block it does the same but first bumps the attempt counter, sealing
// the pivot once the attempt cap is exhausted (spec.md "On block,
// record the reason and reset to MONITORING with attempt += 1").
func (t *Tracker) Consume(entered bool) {
	if entered {
		t.reset()
		return
	}
	t.Attempt++
	if t.Attempt > t.Cfg.MaxAttemptsPerPivot {
		t.Sealed = true
		return
	}
	t.reset()
}

// Revive resets the tracker to MONITORING after a classification-stage
// FAILED transition (min_volume, a break that didn't hold the candle
// close, a CVD timeout, ...). These never reach the filter pipeline, so
// per spec.md's S2 ("attempt counts by entry attempt, not
// classification attempt") they never consume an attempt.
func (t *Tracker) Revive() {
	t.reset()
}

func (t *Tracker) reset() {
	t.State = Monitoring
	t.FirstBreakIdx = -1
	t.CandleCloseIdx = 0
	t.Classification = ClassNone
	t.pullbackArmed = false
	t.sustainedCandles = 0
	t.cvdAlignedCount = 0
}

func candleSizePct(b bars.Bar) float64 {
	if b.Open == 0 {
		return 0
	}
	d := b.Close - b.Open
	if d < 0 {
		d = -d
	}
	return d / b.Open * 100.0
}

func distancePct(price, pivot float64) float64 {
	if pivot == 0 {
		return 0
	}
	d := price - pivot
	if d < 0 {
		d = -d
	}
	return d / pivot * 100.0
}
