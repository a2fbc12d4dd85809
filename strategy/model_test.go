package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearModel_Predict(t *testing.T) {
	m := &LinearModel{Intercept: 90.0, Coefficients: []float64{0.5, -1.0, 2.0}}

	preds, err := m.Predict([][]float64{
		{2, 1, 3},
		{0, 0, 0},
	})
	require.NoError(t, err)

	// 90 + 0.5*2 - 1*1 + 2*3 = 96; intercept only = 90
	assert.Equal(t, []float64{96.0, 90.0}, preds)
}

func TestLinearModel_WidthMismatchIsInferenceFailure(t *testing.T) {
	m := &LinearModel{Intercept: 90.0, Coefficients: []float64{0.5, -1.0}}

	_, err := m.Predict([][]float64{{1, 2, 3}})
	assert.ErrorIs(t, err, ErrInferenceFailed)
}

func TestForestModel_PredictAveragesTrees(t *testing.T) {
	// Two stumps split on feature 0 at 10: tree A predicts 90/100,
	// tree B predicts 92/98. Forest output is the per-row mean.
	forest := &ForestModel{Trees: []RegressionTree{
		{Nodes: []TreeNode{
			{Feature: 0, Threshold: 10, Left: 1, Right: 2},
			{Feature: -1, Value: 90},
			{Feature: -1, Value: 100},
		}},
		{Nodes: []TreeNode{
			{Feature: 0, Threshold: 10, Left: 1, Right: 2},
			{Feature: -1, Value: 92},
			{Feature: -1, Value: 98},
		}},
	}}

	preds, err := forest.Predict([][]float64{{5}, {15}})
	require.NoError(t, err)
	assert.Equal(t, []float64{91.0, 99.0}, preds)
}

func TestForestModel_BadFeatureIndexIsInferenceFailure(t *testing.T) {
	forest := &ForestModel{Trees: []RegressionTree{
		{Nodes: []TreeNode{
			{Feature: 7, Threshold: 10, Left: 1, Right: 2},
			{Feature: -1, Value: 90},
			{Feature: -1, Value: 100},
		}},
	}}

	_, err := forest.Predict([][]float64{{5}})
	assert.ErrorIs(t, err, ErrInferenceFailed)
}

func TestLoadModel_Linear(t *testing.T) {
	path := filepath.Join(t.TempDir(), ModelFileName)
	artifact := `{"type":"linear","intercept":88.5,"coefficients":[0.1,0.2]}`
	require.NoError(t, os.WriteFile(path, []byte(artifact), 0o644))

	model, err := LoadModel(path)
	require.NoError(t, err)

	preds, err := model.Predict([][]float64{{1, 1}})
	require.NoError(t, err)
	assert.InDelta(t, 88.8, preds[0], 1e-9)
}

func TestLoadModel_Forest(t *testing.T) {
	path := filepath.Join(t.TempDir(), ModelFileName)
	artifact := `{"type":"forest","trees":[{"nodes":[{"feature":-1,"value":95.5}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(artifact), 0o644))

	model, err := LoadModel(path)
	require.NoError(t, err)

	preds, err := model.Predict([][]float64{{0}})
	require.NoError(t, err)
	assert.Equal(t, 95.5, preds[0])
}

func TestLoadModel_ErrorConditions(t *testing.T) {
	dir := t.TempDir()

	// missing file
	_, err := LoadModel(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrModelUnavailable)

	// corrupt JSON
	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{"), 0o644))
	_, err = LoadModel(corrupt)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	// unknown type
	unknown := filepath.Join(dir, "unknown.json")
	require.NoError(t, os.WriteFile(unknown, []byte(`{"type":"xgboost"}`), 0o644))
	_, err = LoadModel(unknown)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	// linear without coefficients
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"type":"linear"}`), 0o644))
	_, err = LoadModel(empty)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}
