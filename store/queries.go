package store

import (
	"database/sql"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound reports that a requested race or driver does not exist.
var ErrNotFound = errors.New("not found")

// ListRaces returns all races ordered by year and round.
func (s *Store) ListRaces() ([]Race, error) {
	rows, err := s.db.Query(
		`SELECT race_id, year, round, name, COALESCE(circuit, ''), COALESCE(date, '')
		 FROM race ORDER BY year, round`)
	if err != nil {
		return nil, errors.Wrap(err, "list races")
	}
	defer rows.Close()

	races := make([]Race, 0)
	for rows.Next() {
		var r Race
		if err := rows.Scan(&r.ID, &r.Year, &r.Round, &r.Name, &r.Circuit, &r.Date); err != nil {
			return nil, errors.Wrap(err, "scan race")
		}
		races = append(races, r)
	}
	return races, rows.Err()
}

// GetRace returns one race by id, or ErrNotFound.
func (s *Store) GetRace(raceID int64) (Race, error) {
	var r Race
	err := s.db.QueryRow(
		`SELECT race_id, year, round, name, COALESCE(circuit, ''), COALESCE(date, '')
		 FROM race WHERE race_id = ?`, raceID).
		Scan(&r.ID, &r.Year, &r.Round, &r.Name, &r.Circuit, &r.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return Race{}, errors.Wrapf(ErrNotFound, "race %d", raceID)
	}
	if err != nil {
		return Race{}, errors.Wrapf(err, "get race %d", raceID)
	}
	return r, nil
}

// RaceLaps returns the laps of a race ordered by driver code and lap number,
// optionally filtered by driver code. An unknown driver code yields an empty
// list, an unknown race yields ErrNotFound.
func (s *Store) RaceLaps(raceID int64, driverCode string) ([]Lap, error) {
	if _, err := s.GetRace(raceID); err != nil {
		return nil, err
	}

	query := `SELECT d.code, l.lap_number, COALESCE(l.lap_time_secs, 0),
			COALESCE(l.sector1_time_secs, 0), COALESCE(l.sector2_time_secs, 0),
			COALESCE(l.sector3_time_secs, 0),
			COALESCE(l.stint, 0), COALESCE(l.compound, ''), COALESCE(l.tyre_life, 0),
			COALESCE(l.fresh_tire, 0), COALESCE(l.pit_stop, 0), COALESCE(l.position, 0)
		FROM lap l JOIN driver d ON d.driver_id = l.driver_id
		WHERE l.race_id = ?`
	args := []any{raceID}
	if driverCode != "" {
		query += ` AND d.code = ?`
		args = append(args, strings.ToUpper(driverCode))
	}
	query += ` ORDER BY d.code, l.lap_number`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "laps for race %d", raceID)
	}
	defer rows.Close()

	laps := make([]Lap, 0)
	for rows.Next() {
		var l Lap
		var fresh, pit, pos int
		if err := rows.Scan(&l.Driver, &l.LapNumber, &l.LapTimeSecs,
			&l.Sector1Secs, &l.Sector2Secs, &l.Sector3Secs,
			&l.Stint, &l.Compound, &l.TyreLife, &fresh, &pit, &pos); err != nil {
			return nil, errors.Wrap(err, "scan lap")
		}
		l.FreshTire = fresh == 1
		l.PitStop = pit == 1
		l.Position = pos
		laps = append(laps, l)
	}
	return laps, rows.Err()
}

// ListDrivers returns distinct driver codes, optionally restricted to one
// race or one season.
func (s *Store) ListDrivers(raceID int64, year int) ([]string, error) {
	query := `SELECT DISTINCT d.code FROM driver d`
	args := []any{}
	switch {
	case raceID > 0:
		query += ` JOIN lap l ON l.driver_id = d.driver_id WHERE l.race_id = ?`
		args = append(args, raceID)
	case year > 0:
		query += ` JOIN lap l ON l.driver_id = d.driver_id
			JOIN race r ON r.race_id = l.race_id WHERE r.year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY d.code`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list drivers")
	}
	defer rows.Close()

	codes := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, errors.Wrap(err, "scan driver code")
		}
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes, rows.Err()
}

// DriverStats aggregates one driver's recorded laps.
type DriverStats struct {
	DriverCode     string  `json:"driver_code"`
	DriverName     string  `json:"driver_name"`
	TotalLaps      int     `json:"total_laps"`
	FastestLap     float64 `json:"fastest_lap,omitempty"`
	AverageLapTime float64 `json:"average_lap_time,omitempty"`
	BestPosition   int     `json:"best_position,omitempty"`
	WorstPosition  int     `json:"worst_position,omitempty"`
}

// GetDriverStats returns lap statistics for one driver, optionally filtered
// by race or season. A driver without matching laps yields ErrNotFound.
func (s *Store) GetDriverStats(driverCode string, raceID int64, year int) (DriverStats, error) {
	code := strings.ToUpper(driverCode)

	var driverID int64
	var fullName string
	err := s.db.QueryRow(
		`SELECT driver_id, COALESCE(full_name, '') FROM driver WHERE code = ?`, code).
		Scan(&driverID, &fullName)
	if errors.Is(err, sql.ErrNoRows) {
		return DriverStats{}, errors.Wrapf(ErrNotFound, "driver %s", code)
	}
	if err != nil {
		return DriverStats{}, errors.Wrapf(err, "look up driver %s", code)
	}

	query := `SELECT COUNT(l.lap_id),
			COALESCE(MIN(l.lap_time_secs), 0), COALESCE(AVG(l.lap_time_secs), 0),
			COALESCE(MIN(l.position), 0), COALESCE(MAX(l.position), 0)
		FROM lap l`
	args := []any{}
	where := ` WHERE l.driver_id = ?`
	switch {
	case raceID > 0:
		where += ` AND l.race_id = ?`
		args = append(args, driverID, raceID)
	case year > 0:
		query += ` JOIN race r ON r.race_id = l.race_id`
		where += ` AND r.year = ?`
		args = append(args, driverID, year)
	default:
		args = append(args, driverID)
	}

	stats := DriverStats{DriverCode: code, DriverName: fullName}
	if stats.DriverName == "" {
		stats.DriverName = code
	}
	err = s.db.QueryRow(query+where, args...).Scan(&stats.TotalLaps,
		&stats.FastestLap, &stats.AverageLapTime, &stats.BestPosition, &stats.WorstPosition)
	if err != nil {
		return DriverStats{}, errors.Wrapf(err, "stats for driver %s", code)
	}
	if stats.TotalLaps == 0 {
		return DriverStats{}, errors.Wrapf(ErrNotFound, "driver %s has no laps", code)
	}
	return stats, nil
}

// LapComparison is one comparable lap between two drivers.
type LapComparison struct {
	LapNumber      int     `json:"lap_number"`
	Driver1Time    float64 `json:"driver_1_time"`
	Driver2Time    float64 `json:"driver_2_time"`
	TimeDifference float64 `json:"time_difference"`
	FasterDriver   string  `json:"faster_driver"`
}

// DriverComparison holds the lap-by-lap comparison of two drivers.
type DriverComparison struct {
	Driver1     string          `json:"driver_1"`
	Driver2     string          `json:"driver_2"`
	Comparisons []LapComparison `json:"comparisons"`
	TotalLaps   int             `json:"total_comparable_laps"`
}

// CompareDrivers returns per-lap time differences for laps both drivers
// completed, optionally filtered by race or season. Unknown driver codes
// yield ErrNotFound.
func (s *Store) CompareDrivers(driver1, driver2 string, raceID int64, year int) (DriverComparison, error) {
	d1 := strings.ToUpper(driver1)
	d2 := strings.ToUpper(driver2)

	times1, err := s.driverLapTimes(d1, raceID, year)
	if err != nil {
		return DriverComparison{}, err
	}
	times2, err := s.driverLapTimes(d2, raceID, year)
	if err != nil {
		return DriverComparison{}, err
	}

	cmp := DriverComparison{Driver1: d1, Driver2: d2, Comparisons: make([]LapComparison, 0)}
	maxLap := 0
	for lap := range times1 {
		if lap > maxLap {
			maxLap = lap
		}
	}
	for lap := 1; lap <= maxLap; lap++ {
		t1, ok1 := times1[lap]
		t2, ok2 := times2[lap]
		if !ok1 || !ok2 || t1 <= 0 || t2 <= 0 {
			continue
		}
		diff := roundTo(t1-t2, 3)
		faster := d1
		if diff > 0 {
			faster = d2
		}
		cmp.Comparisons = append(cmp.Comparisons, LapComparison{
			LapNumber:      lap,
			Driver1Time:    t1,
			Driver2Time:    t2,
			TimeDifference: diff,
			FasterDriver:   faster,
		})
	}
	cmp.TotalLaps = len(cmp.Comparisons)
	return cmp, nil
}

// driverLapTimes loads a driver's lap times keyed by lap number. When a
// driver recorded the same lap number in several races (no race filter),
// the fastest time wins so comparisons stay well-defined.
func (s *Store) driverLapTimes(code string, raceID int64, year int) (map[int]float64, error) {
	var driverID int64
	err := s.db.QueryRow(`SELECT driver_id FROM driver WHERE code = ?`, code).Scan(&driverID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "driver %s", code)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "look up driver %s", code)
	}

	query := `SELECT l.lap_number, MIN(l.lap_time_secs) FROM lap l`
	args := []any{}
	where := ` WHERE l.driver_id = ? AND l.lap_time_secs IS NOT NULL`
	switch {
	case raceID > 0:
		where += ` AND l.race_id = ?`
		args = append(args, driverID, raceID)
	case year > 0:
		query += ` JOIN race r ON r.race_id = l.race_id`
		where += ` AND r.year = ?`
		args = append(args, driverID, year)
	default:
		args = append(args, driverID)
	}

	rows, err := s.db.Query(query+where+` GROUP BY l.lap_number`, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "lap times for %s", code)
	}
	defer rows.Close()

	times := make(map[int]float64)
	for rows.Next() {
		var lap int
		var t float64
		if err := rows.Scan(&lap, &t); err != nil {
			return nil, errors.Wrap(err, "scan lap time")
		}
		times[lap] = t
	}
	return times, rows.Err()
}

// CircuitRace summarises one race held at a circuit.
type CircuitRace struct {
	RaceID    int64  `json:"race_id"`
	Year      int    `json:"year"`
	RaceName  string `json:"race_name"`
	Round     int    `json:"round"`
	TotalLaps int    `json:"total_laps"`
}

// CircuitFastestLap is the fastest recorded lap of one race at a circuit.
type CircuitFastestLap struct {
	Year     int     `json:"year"`
	Driver   string  `json:"driver"`
	LapTime  float64 `json:"lap_time"`
	Compound string  `json:"compound"`
}

// CircuitPerformance aggregates race history at one circuit.
type CircuitPerformance struct {
	Circuit     string              `json:"circuit"`
	Races       []CircuitRace       `json:"races"`
	FastestLaps []CircuitFastestLap `json:"fastest_laps"`
}

// GetCircuitPerformance returns recent races and per-race fastest laps for a
// circuit (case-insensitive match), newest first, capped at limit.
func (s *Store) GetCircuitPerformance(circuit string, limit int) (CircuitPerformance, error) {
	if limit <= 0 {
		limit = 10
	}
	perf := CircuitPerformance{
		Circuit:     circuit,
		Races:       make([]CircuitRace, 0),
		FastestLaps: make([]CircuitFastestLap, 0),
	}

	rows, err := s.db.Query(
		`SELECT r.race_id, r.year, r.name, r.round, COUNT(l.lap_id)
		 FROM race r LEFT JOIN lap l ON l.race_id = r.race_id
		 WHERE LOWER(r.circuit) = LOWER(?)
		 GROUP BY r.race_id, r.year, r.name, r.round
		 ORDER BY r.year DESC LIMIT ?`, circuit, limit)
	if err != nil {
		return perf, errors.Wrapf(err, "races at circuit %s", circuit)
	}
	defer rows.Close()
	for rows.Next() {
		var cr CircuitRace
		if err := rows.Scan(&cr.RaceID, &cr.Year, &cr.RaceName, &cr.Round, &cr.TotalLaps); err != nil {
			return perf, errors.Wrap(err, "scan circuit race")
		}
		perf.Races = append(perf.Races, cr)
	}
	if err := rows.Err(); err != nil {
		return perf, err
	}

	flRows, err := s.db.Query(
		`SELECT r.year, d.code, l.lap_time_secs, COALESCE(l.compound, '')
		 FROM lap l
		 JOIN race r ON r.race_id = l.race_id
		 JOIN driver d ON d.driver_id = l.driver_id
		 JOIN (SELECT race_id, MIN(lap_time_secs) AS min_time
		       FROM lap WHERE lap_time_secs IS NOT NULL GROUP BY race_id) f
		   ON f.race_id = l.race_id AND f.min_time = l.lap_time_secs
		 WHERE LOWER(r.circuit) = LOWER(?)
		 ORDER BY r.year DESC LIMIT ?`, circuit, limit)
	if err != nil {
		return perf, errors.Wrapf(err, "fastest laps at circuit %s", circuit)
	}
	defer flRows.Close()
	for flRows.Next() {
		var fl CircuitFastestLap
		if err := flRows.Scan(&fl.Year, &fl.Driver, &fl.LapTime, &fl.Compound); err != nil {
			return perf, errors.Wrap(err, "scan fastest lap")
		}
		perf.FastestLaps = append(perf.FastestLaps, fl)
	}
	return perf, flRows.Err()
}

// SeasonFastestLap is the single fastest lap recorded in a season.
type SeasonFastestLap struct {
	Driver  string  `json:"driver"`
	LapTime float64 `json:"lap_time"`
	Race    string  `json:"race"`
	Circuit string  `json:"circuit,omitempty"`
}

// SeasonTopDriver counts the races in which a driver set the fastest lap.
type SeasonTopDriver struct {
	Driver          string `json:"driver"`
	FastestLapCount int    `json:"fastest_lap_count"`
}

// SeasonSummary aggregates one season.
type SeasonSummary struct {
	Year          int               `json:"year"`
	RaceCount     int               `json:"race_count"`
	TotalLaps     int               `json:"total_laps"`
	UniqueDrivers int               `json:"unique_drivers"`
	FastestLap    *SeasonFastestLap `json:"fastest_lap"`
	TopDrivers    []SeasonTopDriver `json:"top_drivers"`
}

// GetSeasonSummary returns summary statistics for one season.
func (s *Store) GetSeasonSummary(year int) (SeasonSummary, error) {
	sum := SeasonSummary{Year: year, TopDrivers: make([]SeasonTopDriver, 0)}

	err := s.db.QueryRow(`SELECT COUNT(race_id) FROM race WHERE year = ?`, year).Scan(&sum.RaceCount)
	if err != nil {
		return sum, errors.Wrapf(err, "race count for %d", year)
	}
	err = s.db.QueryRow(
		`SELECT COUNT(l.lap_id), COUNT(DISTINCT l.driver_id)
		 FROM lap l JOIN race r ON r.race_id = l.race_id WHERE r.year = ?`, year).
		Scan(&sum.TotalLaps, &sum.UniqueDrivers)
	if err != nil {
		return sum, errors.Wrapf(err, "lap totals for %d", year)
	}

	var fl SeasonFastestLap
	err = s.db.QueryRow(
		`SELECT d.code, l.lap_time_secs, r.name, COALESCE(r.circuit, '')
		 FROM lap l
		 JOIN race r ON r.race_id = l.race_id
		 JOIN driver d ON d.driver_id = l.driver_id
		 WHERE r.year = ? AND l.lap_time_secs IS NOT NULL
		 ORDER BY l.lap_time_secs ASC LIMIT 1`, year).
		Scan(&fl.Driver, &fl.LapTime, &fl.Race, &fl.Circuit)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// season with no timed laps
	case err != nil:
		return sum, errors.Wrapf(err, "fastest lap for %d", year)
	default:
		sum.FastestLap = &fl
	}

	rows, err := s.db.Query(
		`SELECT d.code, COUNT(DISTINCT r.race_id)
		 FROM lap l
		 JOIN race r ON r.race_id = l.race_id
		 JOIN driver d ON d.driver_id = l.driver_id
		 WHERE r.year = ? AND l.lap_time_secs IS NOT NULL AND l.is_fastest = 1
		 GROUP BY d.code
		 ORDER BY COUNT(DISTINCT r.race_id) DESC LIMIT 5`, year)
	if err != nil {
		return sum, errors.Wrapf(err, "top drivers for %d", year)
	}
	defer rows.Close()
	for rows.Next() {
		var td SeasonTopDriver
		if err := rows.Scan(&td.Driver, &td.FastestLapCount); err != nil {
			return sum, errors.Wrap(err, "scan top driver")
		}
		sum.TopDrivers = append(sum.TopDrivers, td)
	}
	return sum, rows.Err()
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
