package strategy

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Artifact file names produced by the offline training pipeline.
const (
	ModelFileName   = "lap_time_model.json"
	FeatureFileName = "lap_model_features.json"
)

// Registry holds the process-wide model + encoder pair loaded from an
// artifact directory. Snapshot hands out the current pair by reference; both
// are read-only after load, so a batch keeps using the snapshot it took even
// if the registry reloads mid-batch.
type Registry struct {
	mu      sync.RWMutex
	dir     string
	model   Predictor
	encoder *Encoder

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// OpenRegistry loads the model and feature-schema artifacts from dir. Either
// artifact missing or unreadable yields ErrModelUnavailable.
func OpenRegistry(dir string) (*Registry, error) {
	r := &Registry{dir: dir}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads both artifacts from disk and swaps them in atomically. On
// failure the previously loaded pair stays active.
func (r *Registry) Reload() error {
	model, err := LoadModel(filepath.Join(r.dir, ModelFileName))
	if err != nil {
		return err
	}
	columns, err := LoadFeatureColumns(filepath.Join(r.dir, FeatureFileName))
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.model = model
	r.encoder = NewEncoder(columns)
	r.mu.Unlock()
	logrus.Infof("loaded lap-time model from %s (%d feature columns)", r.dir, len(columns))
	return nil
}

// Snapshot returns the currently loaded model and encoder.
func (r *Registry) Snapshot() (Predictor, *Encoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.model == nil || r.encoder == nil {
		return nil, nil, ErrModelUnavailable
	}
	return r.model, r.encoder, nil
}

// Watch starts reloading the artifacts whenever the files in the registry
// directory change, so a retrained model is picked up without a restart.
// Call Close to stop watching.
func (r *Registry) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch artifacts: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch artifacts in %s: %w", r.dir, err)
	}
	r.watcher = watcher
	r.done = make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
					continue
				}
				name := filepath.Base(ev.Name)
				if name != ModelFileName && name != FeatureFileName {
					continue
				}
				if err := r.Reload(); err != nil {
					// keep serving the previous artifacts
					logrus.Warnf("model reload after %s changed failed: %v", name, err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Warnf("artifact watcher: %v", err)
			case <-r.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the artifact watcher, if one was started.
func (r *Registry) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.done)
	return r.watcher.Close()
}
