package strategy

import (
	"encoding/json"
	"fmt"
	"os"
)

// Predictor is the trained lap-time model. Predict takes a batch of feature
// vectors (one per lap, laid out per the feature schema) and returns one
// predicted lap time in seconds per vector. Implementations must be safe for
// concurrent use: the simulator shares one Predictor across strategies.
type Predictor interface {
	Predict(rows [][]float64) ([]float64, error)
}

// LinearModel predicts lap times as intercept + dot(coefficients, row).
type LinearModel struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func (m *LinearModel) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for r, row := range rows {
		if len(row) != len(m.Coefficients) {
			return nil, fmt.Errorf("%w: vector has %d features, model expects %d",
				ErrInferenceFailed, len(row), len(m.Coefficients))
		}
		sum := m.Intercept
		for i, v := range row {
			sum += m.Coefficients[i] * v
		}
		out[r] = sum
	}
	return out, nil
}

// TreeNode is a node of a regression tree. Leaves have Feature == -1 and
// carry the predicted value; internal nodes route rows with
// row[Feature] <= Threshold to Left, otherwise to Right.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// RegressionTree is a single decision tree stored as a flat node array with
// the root at index 0.
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *RegressionTree) predict(row []float64) (float64, error) {
	i := 0
	for {
		if i < 0 || i >= len(t.Nodes) {
			return 0, fmt.Errorf("%w: tree node index %d out of range", ErrInferenceFailed, i)
		}
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value, nil
		}
		if n.Feature >= len(row) {
			return 0, fmt.Errorf("%w: tree references feature %d, vector has %d",
				ErrInferenceFailed, n.Feature, len(row))
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// ForestModel averages the outputs of an ensemble of regression trees,
// mirroring random-forest inference.
type ForestModel struct {
	Trees []RegressionTree `json:"trees"`
}

func (m *ForestModel) Predict(rows [][]float64) ([]float64, error) {
	if len(m.Trees) == 0 {
		return nil, fmt.Errorf("%w: forest has no trees", ErrInferenceFailed)
	}
	out := make([]float64, len(rows))
	for r, row := range rows {
		var sum float64
		for i := range m.Trees {
			v, err := m.Trees[i].predict(row)
			if err != nil {
				return nil, err
			}
			sum += v
		}
		out[r] = sum / float64(len(m.Trees))
	}
	return out, nil
}

// modelFile is the on-disk model artifact written by the offline training
// pipeline. Type selects which payload is populated.
type modelFile struct {
	Type         string           `json:"type"`
	Intercept    float64          `json:"intercept,omitempty"`
	Coefficients []float64        `json:"coefficients,omitempty"`
	Trees        []RegressionTree `json:"trees,omitempty"`
}

// LoadModel reads a trained lap-time model artifact from disk. A missing or
// corrupt artifact yields ErrModelUnavailable.
func LoadModel(path string) (Predictor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read model: %v", ErrModelUnavailable, err)
	}
	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("%w: parse model %s: %v", ErrModelUnavailable, path, err)
	}
	switch mf.Type {
	case "linear":
		if len(mf.Coefficients) == 0 {
			return nil, fmt.Errorf("%w: linear model %s has no coefficients", ErrModelUnavailable, path)
		}
		return &LinearModel{Intercept: mf.Intercept, Coefficients: mf.Coefficients}, nil
	case "forest":
		if len(mf.Trees) == 0 {
			return nil, fmt.Errorf("%w: forest model %s has no trees", ErrModelUnavailable, path)
		}
		return &ForestModel{Trees: mf.Trees}, nil
	default:
		return nil, fmt.Errorf("%w: unknown model type %q in %s", ErrModelUnavailable, mf.Type, path)
	}
}
