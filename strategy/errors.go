package strategy

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable reports that the model or feature-schema artifact could
// not be loaded. It is fatal for a whole simulation batch: no partial results
// are produced.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrInferenceFailed reports that the model rejected a feature vector. This
// indicates a schema/version mismatch between artifacts, so callers should
// not retry.
var ErrInferenceFailed = errors.New("inference failed")

// InvalidStrategyError rejects a malformed strategy before simulation begins,
// identifying which stint failed validation. Stint numbering is 1-based to
// match the simulator's stint index.
type InvalidStrategyError struct {
	Strategy string
	Stint    int
	Reason   string
}

func (e *InvalidStrategyError) Error() string {
	return fmt.Sprintf("invalid strategy %q: stint %d: %s", e.Strategy, e.Stint, e.Reason)
}
