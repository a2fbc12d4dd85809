package strategy

// Shared fixtures for the strategy package tests.

// predictorFunc adapts a function to the Predictor interface.
type predictorFunc func(rows [][]float64) ([]float64, error)

func (f predictorFunc) Predict(rows [][]float64) ([]float64, error) { return f(rows) }

// constantPredictor returns the same lap time for every row.
func constantPredictor(seconds float64) predictorFunc {
	return func(rows [][]float64) ([]float64, error) {
		out := make([]float64, len(rows))
		for i := range out {
			out[i] = seconds
		}
		return out, nil
	}
}

// testColumns is a small feature schema in training order: the numeric
// pass-through columns followed by dummy columns with SOFT, the reference
// compound level, dropped.
var testColumns = []string{
	"year",
	"round",
	"lap_number",
	"lap_in_stint",
	"fuel_lap_from_end",
	"stint",
	"tyre_life",
	"position",
	"driver_code_LEC",
	"driver_code_VER",
	"compound_HARD",
	"compound_MEDIUM",
	"race_name_Monaco Grand Prix",
}

func testEncoder() *Encoder { return NewEncoder(testColumns) }

func bahrainContext(totalLaps int) RaceContext {
	return RaceContext{
		Year:             2021,
		Round:            1,
		RaceName:         "Bahrain Grand Prix",
		DriverCode:       "VER",
		TotalLaps:        totalLaps,
		StartingPosition: 1,
	}
}
