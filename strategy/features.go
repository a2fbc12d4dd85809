package strategy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Dummy-column prefixes as produced by the training pipeline's one-hot
// expansion (pandas get_dummies with drop_first=True names columns
// "<field>_<level>").
const (
	driverColumnPrefix   = "driver_code_"
	compoundColumnPrefix = "compound_"
	raceColumnPrefix     = "race_name_"
)

// numericColumns are the pass-through feature columns of the lap-time model,
// keyed by the names used at training time.
var numericColumns = map[string]struct{}{
	"year":              {},
	"round":             {},
	"lap_number":        {},
	"lap_in_stint":      {},
	"fuel_lap_from_end": {},
	"stint":             {},
	"tyre_life":         {},
	"position":          {},
}

// Encoder maps a LapFeatures row onto the fixed column layout the trained
// model expects. It is built once from the persisted feature-column list and
// is safe for concurrent use; Encode never mutates the Encoder.
//
// Categorical levels that were dropped as the reference level at training
// time, or that the model has never seen, encode as an all-zero dummy set.
// That is deliberate: a novel driver or race name degrades to "all reference
// levels" instead of aborting the simulation.
type Encoder struct {
	columns   []string
	numeric   map[string]int
	drivers   map[string]int
	compounds map[string]int
	races     map[string]int
}

// NewEncoder builds an Encoder from the ordered feature-column list persisted
// next to the model artifact. Columns that match neither a known numeric
// field nor a dummy prefix stay zero in every encoded vector.
func NewEncoder(columns []string) *Encoder {
	e := &Encoder{
		columns:   append([]string(nil), columns...),
		numeric:   make(map[string]int),
		drivers:   make(map[string]int),
		compounds: make(map[string]int),
		races:     make(map[string]int),
	}
	for i, col := range columns {
		switch {
		case hasNumericName(col):
			e.numeric[col] = i
		case strings.HasPrefix(col, driverColumnPrefix):
			e.drivers[strings.TrimPrefix(col, driverColumnPrefix)] = i
		case strings.HasPrefix(col, raceColumnPrefix):
			e.races[strings.TrimPrefix(col, raceColumnPrefix)] = i
		case strings.HasPrefix(col, compoundColumnPrefix):
			e.compounds[strings.TrimPrefix(col, compoundColumnPrefix)] = i
		}
	}
	return e
}

func hasNumericName(col string) bool {
	_, ok := numericColumns[col]
	return ok
}

// Len returns the width of encoded vectors.
func (e *Encoder) Len() int { return len(e.columns) }

// Columns returns the schema column names in model order.
func (e *Encoder) Columns() []string {
	return append([]string(nil), e.columns...)
}

// Encode produces the numeric feature vector for one simulated lap. The
// vector has length Len() and follows the schema's column order exactly.
func (e *Encoder) Encode(lap LapFeatures) []float64 {
	vec := make([]float64, len(e.columns))
	e.setNumeric(vec, "year", lap.Year)
	e.setNumeric(vec, "round", lap.Round)
	e.setNumeric(vec, "lap_number", lap.LapNumber)
	e.setNumeric(vec, "lap_in_stint", lap.LapInStint)
	e.setNumeric(vec, "fuel_lap_from_end", lap.FuelLapFromEnd)
	e.setNumeric(vec, "stint", lap.StintIndex)
	e.setNumeric(vec, "tyre_life", lap.TyreLife)
	e.setNumeric(vec, "position", lap.Position)

	if i, ok := e.drivers[lap.DriverCode]; ok {
		vec[i] = 1
	}
	if i, ok := e.compounds[NormalizeCompound(lap.Compound)]; ok {
		vec[i] = 1
	}
	if i, ok := e.races[lap.RaceName]; ok {
		vec[i] = 1
	}
	return vec
}

func (e *Encoder) setNumeric(vec []float64, name string, value int) {
	if i, ok := e.numeric[name]; ok {
		vec[i] = float64(value)
	}
}

// LoadFeatureColumns reads the persisted feature-column list (a JSON array of
// strings written at training time alongside the model).
func LoadFeatureColumns(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read feature columns: %v", ErrModelUnavailable, err)
	}
	var columns []string
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, fmt.Errorf("%w: parse feature columns %s: %v", ErrModelUnavailable, path, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: feature column list %s is empty", ErrModelUnavailable, path)
	}
	return columns, nil
}
