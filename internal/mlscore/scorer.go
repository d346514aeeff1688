package mlscore

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/internal/indicators"
)

// Scorer wraps an optional Model. A zero-value Scorer (or one built
// with an empty path) is always disabled and Score returns the
// neutral 0.5 the teacher's ml.Scorer used, so callers never need a
// nil check.
type Scorer struct {
	model   *Model
	enabled bool
}

// NewScorer loads modelPath if it names an existing file, following
// the teacher's directory/extension-guessing convention. A missing or
// empty path yields a disabled scorer, not an error: secondary ML
// scoring is opt-in (SPEC_FULL.md §5).
func NewScorer(modelPath string) (*Scorer, error) {
	if modelPath == "" {
		return &Scorer{}, nil
	}

	resolved := modelPath
	if stat, err := os.Stat(modelPath); err == nil && stat.IsDir() {
		resolved = filepath.Join(modelPath, "model.json")
	} else if !strings.HasSuffix(modelPath, ".json") {
		resolved = modelPath + ".json"
	}

	if _, err := os.Stat(resolved); os.IsNotExist(err) {
		return &Scorer{}, nil
	}

	model, err := LoadModel(resolved)
	if err != nil {
		return nil, err
	}
	return &Scorer{model: model, enabled: true}, nil
}

// IsEnabled reports whether a model was loaded.
func (s *Scorer) IsEnabled() bool {
	return s != nil && s.enabled && s.model != nil
}

// Score returns the model's probability for the given decision
// context, or 0.5 (neutral) when disabled.
func (s *Scorer) Score(snap indicators.Snapshot, pivot breakout.Pivot, side breakout.Side, breakoutType breakout.BreakoutType, price, riskReward float64, eventTime time.Time) float64 {
	if !s.IsEnabled() {
		return 0.5
	}
	f := Extract(snap, pivot, side, breakoutType, price, riskReward, eventTime)
	return s.model.Predict(f.ToVector())
}
