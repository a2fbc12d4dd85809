package strategy

import "strings"

// Tyre compounds as they appear in the lap data. The training pipeline
// uppercases compound strings and maps missing values to UNKNOWN, so the
// simulator applies the same normalisation before encoding.
const (
	CompoundSoft         = "SOFT"
	CompoundMedium       = "MEDIUM"
	CompoundHard         = "HARD"
	CompoundIntermediate = "INTERMEDIATE"
	CompoundWet          = "WET"
	CompoundUnknown      = "UNKNOWN"
)

// NormalizeCompound uppercases a compound string and maps empty values to
// UNKNOWN, matching the dataset builder's treatment of raw lap data.
func NormalizeCompound(s string) string {
	c := strings.ToUpper(strings.TrimSpace(s))
	if c == "" {
		return CompoundUnknown
	}
	return c
}

// Stint is a contiguous block of laps run on one tyre compound.
type Stint struct {
	Compound string `json:"compound" yaml:"compound"`
	Laps     int    `json:"laps"     yaml:"laps"`
}

// Strategy is a named, ordered sequence of stints. It is immutable once
// submitted for simulation.
type Strategy struct {
	Name   string  `json:"name"   yaml:"name"`
	Stints []Stint `json:"stints" yaml:"stints"`
}

// RaceContext describes the race a strategy is simulated against. It is
// read-only for the duration of one simulation call. StartingPosition is held
// constant across all simulated laps; the simulator does not model on-track
// position changes.
type RaceContext struct {
	Year             int    `json:"year"              yaml:"year"`
	Round            int    `json:"round_number"      yaml:"round"`
	RaceName         string `json:"race_name"         yaml:"name"`
	DriverCode       string `json:"driver_code"       yaml:"driver"`
	TotalLaps        int    `json:"total_laps"        yaml:"total_laps"`
	StartingPosition int    `json:"starting_position" yaml:"starting_position"`
}

// LapFeatures is the per-lap input row handed to the Encoder. One instance is
// derived per simulated lap and discarded afterwards.
//
// TyreLife equals LapInStint: the tyre counter resets to 1 at the start of
// every stint, even when a compound is reused. The trained model was fit
// against this convention, so changing it would silently break calibration.
type LapFeatures struct {
	Year           int
	Round          int
	RaceName       string
	DriverCode     string
	Compound       string
	LapNumber      int
	LapInStint     int
	FuelLapFromEnd int
	StintIndex     int
	TyreLife       int
	Position       int
}

// SimulationResult is the outcome of simulating one strategy. LapTimes
// interleaves predicted lap durations with inserted pit-loss entries;
// PitStops counts the pit-loss entries so callers can separate the two
// without inspecting values.
type SimulationResult struct {
	LapTimes  []float64 `json:"lap_times"`
	TotalTime float64   `json:"total_time"`
	PitStops  int       `json:"pit_stops"`
}

// RealLaps returns the number of predicted (non-pit-loss) entries.
func (r SimulationResult) RealLaps() int {
	return len(r.LapTimes) - r.PitStops
}
