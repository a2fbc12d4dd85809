package strategy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifacts(t *testing.T, dir string, intercept float64) {
	t.Helper()
	model := modelFile{
		Type:         "linear",
		Intercept:    intercept,
		Coefficients: make([]float64, len(testColumns)),
	}
	data, err := json.Marshal(model)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFileName), data, 0o644))

	cols, err := json.Marshal(testColumns)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FeatureFileName), cols, 0o644))
}

func TestOpenRegistry_Snapshot(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, 88.0)

	reg, err := OpenRegistry(dir)
	require.NoError(t, err)
	defer reg.Close()

	model, enc, err := reg.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, len(testColumns), enc.Len())

	preds, err := model.Predict([][]float64{make([]float64, enc.Len())})
	require.NoError(t, err)
	assert.Equal(t, 88.0, preds[0])
}

func TestOpenRegistry_MissingArtifacts(t *testing.T) {
	_, err := OpenRegistry(t.TempDir())
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestRegistry_ReloadSwapsModel(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, 88.0)

	reg, err := OpenRegistry(dir)
	require.NoError(t, err)
	defer reg.Close()

	writeArtifacts(t, dir, 91.0)
	require.NoError(t, reg.Reload())

	model, enc, err := reg.Snapshot()
	require.NoError(t, err)
	preds, err := model.Predict([][]float64{make([]float64, enc.Len())})
	require.NoError(t, err)
	assert.Equal(t, 91.0, preds[0])
}

func TestRegistry_ReloadFailureKeepsPreviousModel(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, 88.0)

	reg, err := OpenRegistry(dir)
	require.NoError(t, err)
	defer reg.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFileName), []byte("{"), 0o644))
	assert.ErrorIs(t, reg.Reload(), ErrModelUnavailable)

	model, _, err := reg.Snapshot()
	require.NoError(t, err)
	preds, err := model.Predict([][]float64{make([]float64, len(testColumns))})
	require.NoError(t, err)
	assert.Equal(t, 88.0, preds[0])
}

func TestRegistry_WatchPicksUpRetrainedModel(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, 88.0)

	reg, err := OpenRegistry(dir)
	require.NoError(t, err)
	defer reg.Close()
	require.NoError(t, reg.Watch())

	writeArtifacts(t, dir, 95.0)

	// the watcher reloads asynchronously
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		model, enc, err := reg.Snapshot()
		require.NoError(t, err)
		preds, err := model.Predict([][]float64{make([]float64, enc.Len())})
		require.NoError(t, err)
		if preds[0] == 95.0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("watcher did not reload the retrained model in time")
}
