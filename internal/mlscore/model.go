// Package mlscore adapts the teacher's pkg/ml logistic-regression
// scorer to the new engine's types: it blends an optional secondary
// probability into the quality-score filter's observed set without
// ever gating entries on its own (SPEC_FULL.md §5).
package mlscore

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Model is a simple logistic-regression classifier: probability that
// the setup that produced the current feature vector reaches its
// first partial target before its stop.
type Model struct {
	Weights     []float64 `json:"weights"`
	Bias        float64   `json:"bias"`
	NumFeatures int       `json:"num_features"`
}

// NewModel returns an untrained model seeded the way the teacher's
// ml.NewModel does, for tests that only need a deterministic scorer.
func NewModel(numFeatures int) *Model {
	weights := make([]float64, numFeatures)
	for i := range weights {
		weights[i] = math.Sin(float64(i)) * 0.1
	}
	return &Model{Weights: weights, NumFeatures: numFeatures}
}

// Predict returns a 0-1 probability given a feature vector already
// produced by Features.ToVector; a length mismatch returns the neutral
// 0.5 rather than erroring, matching the teacher's fail-open posture.
func (m *Model) Predict(features []float64) float64 {
	if len(features) != m.NumFeatures {
		return 0.5
	}
	z := m.Bias
	for i, f := range features {
		z += m.Weights[i] * f
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	if z > 20 {
		return 1.0
	}
	if z < -20 {
		return 0.0
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

// LoadModel reads a JSON-serialized model from disk.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ml model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal ml model: %w", err)
	}
	return &m, nil
}
