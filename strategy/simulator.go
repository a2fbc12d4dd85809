package strategy

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Simulation-level assumptions. Pit loss is a constant, not predicted by the
// model; starting position is held fixed for every simulated lap. Both are
// explicit parameters everywhere, these are only the documented defaults.
const (
	DefaultPitLossSeconds   = 22.0
	DefaultStartingPosition = 1
)

// ValidateStrategy rejects malformed strategies at the boundary, before any
// simulation work: every stint needs a positive lap count and a non-empty
// compound. The returned error identifies the first failing stint.
func ValidateStrategy(s Strategy) error {
	if len(s.Stints) == 0 {
		return &InvalidStrategyError{Strategy: s.Name, Stint: 0, Reason: "strategy has no stints"}
	}
	for i, st := range s.Stints {
		if strings.TrimSpace(st.Compound) == "" {
			return &InvalidStrategyError{Strategy: s.Name, Stint: i + 1, Reason: "compound is empty"}
		}
		if st.Laps <= 0 {
			return &InvalidStrategyError{
				Strategy: s.Name,
				Stint:    i + 1,
				Reason:   fmt.Sprintf("lap count %d is not positive", st.Laps),
			}
		}
	}
	return nil
}

// Simulate walks a stint plan lap by lap, asking the model for one lap-time
// prediction per simulated lap, and returns the full lap-time series plus the
// aggregate race time.
//
// Bookkeeping contract (must match the model's training-time feature
// derivation exactly):
//   - a stint's effective length is min(declared laps, laps remaining); stints
//     truncate, never overflow the race distance
//   - lap_number starts at 1 and increments only on real laps
//   - lap_in_stint and tyre_life restart at 1 in every stint
//   - fuel_lap_from_end = total laps - lap_number
//   - stint index is 1-based and advances even for zero-length stints
//   - a pit-loss entry is appended after a stint iff laps remain afterwards
//
// A race with zero laps or an empty stint list yields an empty series and a
// zero total; non-positive declared lap counts simply contribute nothing.
// The call is deterministic: identical inputs and model give identical output.
func Simulate(
	model Predictor,
	enc *Encoder,
	race RaceContext,
	stints []Stint,
	pitLossSeconds float64,
) (SimulationResult, error) {
	if model == nil || enc == nil {
		return SimulationResult{}, fmt.Errorf("%w: simulator needs a model and an encoder", ErrModelUnavailable)
	}

	position := race.StartingPosition
	if position <= 0 {
		position = DefaultStartingPosition
	}

	currentLap := 0
	lapsRemaining := race.TotalLaps
	if lapsRemaining < 0 {
		lapsRemaining = 0
	}

	result := SimulationResult{LapTimes: make([]float64, 0, lapsRemaining+len(stints))}

	for idx, stint := range stints {
		stintIndex := idx + 1
		compound := NormalizeCompound(stint.Compound)

		effectiveLen := stint.Laps
		if effectiveLen < 0 {
			effectiveLen = 0
		}
		if effectiveLen > lapsRemaining {
			effectiveLen = lapsRemaining
		}

		for i := 1; i <= effectiveLen; i++ {
			currentLap++
			row := LapFeatures{
				Year:           race.Year,
				Round:          race.Round,
				RaceName:       race.RaceName,
				DriverCode:     race.DriverCode,
				Compound:       compound,
				LapNumber:      currentLap,
				LapInStint:     i,
				FuelLapFromEnd: race.TotalLaps - currentLap,
				StintIndex:     stintIndex,
				TyreLife:       i,
				Position:       position,
			}
			preds, err := model.Predict([][]float64{enc.Encode(row)})
			if err != nil {
				return SimulationResult{}, fmt.Errorf("lap %d (stint %d): %w", currentLap, stintIndex, err)
			}
			if len(preds) != 1 {
				return SimulationResult{}, fmt.Errorf("%w: model returned %d predictions for 1 row",
					ErrInferenceFailed, len(preds))
			}
			result.LapTimes = append(result.LapTimes, preds[0])
		}

		lapsRemaining -= effectiveLen
		if lapsRemaining > 0 {
			result.LapTimes = append(result.LapTimes, pitLossSeconds)
			result.PitStops++
		}
	}

	for _, t := range result.LapTimes {
		result.TotalTime += t
	}

	logrus.Debugf("simulated %d laps + %d stops for %s at %s: total %.3fs",
		result.RealLaps(), result.PitStops, race.DriverCode, race.RaceName, result.TotalTime)
	return result, nil
}
