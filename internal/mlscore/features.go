package mlscore

import (
	"math"
	"time"

	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/internal/indicators"
)

// Features is the feature vector the model was trained against,
// adapted from the teacher's ml.Features to the pivot/snapshot shape
// this engine has available at a READY_TO_ENTER decision instead of
// the teacher's EntrySignal/IndicatorState/bar-history triple.
type Features struct {
	VWAPExtension   float64
	RSI             float64
	VolumeRatio     float64
	ATRPriceRatio   float64
	BreakoutTypeNum float64
	StochK          float64
	HourOfDay       float64
	MinutesFromOpen float64
	PivotDistance   float64
	TargetDistance  float64
	RiskReward      float64
}

// Extract builds a feature vector from one filter-pipeline evaluation.
// Unlike the teacher's extractor, it has no rolling bar history to
// compute momentum terms from (the filter Context is a point-in-time
// snapshot); those terms are dropped rather than faked.
func Extract(snap indicators.Snapshot, pivot breakout.Pivot, side breakout.Side, breakoutType breakout.BreakoutType, price, riskReward float64, eventTime time.Time) Features {
	f := Features{RiskReward: normalize(riskReward, 3.0)}

	if snap.ATRReady && snap.ATR > 0 {
		ext := math.Abs(price-snap.VWAP) / snap.ATR
		f.VWAPExtension = normalize(ext, 3.0)

		atrRatio := snap.ATR / price
		f.ATRPriceRatio = normalize(atrRatio, 0.15)

		pivotLevel := pivot.Resistance
		if side == breakout.Short {
			pivotLevel = pivot.Support
		}
		f.PivotDistance = normalize(math.Abs(price-pivotLevel)/snap.ATR, 2.0)

		if target, ok := nearestTarget(pivot, side, price); ok {
			f.TargetDistance = normalize(math.Abs(target-price)/snap.ATR, 2.0)
		}
	}

	if snap.RSIReady {
		f.RSI = snap.RSI / 100.0
	} else {
		f.RSI = 0.5
	}

	if snap.VolRatioOK {
		f.VolumeRatio = normalize(snap.VolumeRatio, 2.0)
	}

	if snap.StochK.Ready {
		f.StochK = snap.StochK.Value / 100.0
	} else {
		f.StochK = 0.5
	}

	f.BreakoutTypeNum = float64(breakoutType) / 4.0

	hour := eventTime.Hour()
	f.HourOfDay = clamp01(float64(hour-9) / 6.0)

	open := time.Date(eventTime.Year(), eventTime.Month(), eventTime.Day(), 9, 30, 0, 0, eventTime.Location())
	f.MinutesFromOpen = clamp01(eventTime.Sub(open).Minutes() / 390.0)

	return f
}

// ToVector matches the field order the model was trained on.
func (f Features) ToVector() []float64 {
	return []float64{
		f.VWAPExtension,
		f.RSI,
		f.VolumeRatio,
		f.ATRPriceRatio,
		f.BreakoutTypeNum,
		f.StochK,
		f.HourOfDay,
		f.MinutesFromOpen,
		f.PivotDistance,
		f.TargetDistance,
		f.RiskReward,
	}
}

// NumFeatures is the length ToVector always produces.
const NumFeatures = 11

func nearestTarget(p breakout.Pivot, side breakout.Side, price float64) (float64, bool) {
	if side == breakout.Short {
		return 0, false
	}
	if p.HasTarget1 && p.Target1 > price {
		return p.Target1, true
	}
	return 0, false
}

func normalize(v, cap float64) float64 {
	if v < 0 {
		v = -v
	}
	if v > cap {
		v = cap
	}
	return v / cap
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
