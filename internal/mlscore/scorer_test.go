package mlscore

import (
	"testing"
	"time"

	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/internal/indicators"
	"github.com/stretchr/testify/require"
)

func TestDisabledScorerReturnsNeutral(t *testing.T) {
	s, err := NewScorer("")
	require.NoError(t, err)
	require.False(t, s.IsEnabled())

	snap := indicators.Snapshot{}
	pivot := breakout.Pivot{Resistance: 100}
	got := s.Score(snap, pivot, breakout.Long, breakout.TypeMomentum, 100.25, 2.0, time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC))
	require.Equal(t, 0.5, got)
}

func TestMissingModelPathDisablesRatherThanErrors(t *testing.T) {
	s, err := NewScorer("/nonexistent/path/model.json")
	require.NoError(t, err)
	require.False(t, s.IsEnabled())
}

func TestExtractFeaturesAreBounded(t *testing.T) {
	snap := indicators.Snapshot{
		ATR: 0.5, ATRReady: true,
		RSI: 55, RSIReady: true,
		VWAP:        100.1,
		VolumeRatio: 2.4, VolRatioOK: true,
		StochK: indicators.Level{Value: 70, Ready: true},
	}
	pivot := breakout.Pivot{Resistance: 100, Target1: 100.8, HasTarget1: true}
	f := Extract(snap, pivot, breakout.Long, breakout.TypeMomentum, 100.25, 2.5, time.Date(2026, 7, 31, 9, 47, 0, 0, time.UTC))

	for _, v := range f.ToVector() {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
	require.Len(t, f.ToVector(), NumFeatures)
}

func TestModelPredictHandlesFeatureMismatch(t *testing.T) {
	m := NewModel(3)
	require.Equal(t, 0.5, m.Predict([]float64{1, 2}))
}
