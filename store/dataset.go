package store

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// outlierRatio drops laps slower than this multiple of the driver's per-race
// median (in-laps, safety-car laps and the like).
const outlierRatio = 2.0

// DatasetRow is one training example for the lap-time model. Column names in
// the exported CSV match the feature names the model is trained against.
type DatasetRow struct {
	RaceID         int64
	DriverID       int64
	DriverCode     string
	Year           int
	Round          int
	RaceName       string
	LapNumber      int
	LapInStint     int
	FuelLapFromEnd int
	Stint          int
	Compound       string
	TyreLife       int
	Position       int
	PitStop        bool
	LapTimeSecs    float64
}

// datasetColumns is the CSV header, in the order the training script expects.
var datasetColumns = []string{
	"race_id", "driver_id", "driver_code", "year", "round", "race_name",
	"lap_number", "lap_in_stint", "fuel_lap_from_end", "stint", "compound",
	"tyre_life", "position", "pit_stop", "lap_time_secs",
}

// BuildDataset joins lap, race and driver rows into cleaned, feature-
// engineered training rows:
//
//   - laps without a positive lap time are dropped
//   - laps slower than 2x the driver's per-race median are dropped
//   - lap_in_stint is the running lap count within each (race, driver, stint)
//   - fuel_lap_from_end is the race's maximum lap number minus the lap number
//   - compound is uppercased, empty values become UNKNOWN
func (s *Store) BuildDataset() ([]DatasetRow, error) {
	rows, err := s.db.Query(
		`SELECT l.race_id, l.driver_id, d.code, r.year, r.round, r.name,
			l.lap_number, COALESCE(l.stint, 0), COALESCE(l.compound, ''),
			COALESCE(l.tyre_life, 0), COALESCE(l.position, 0),
			COALESCE(l.pit_stop, 0), l.lap_time_secs
		 FROM lap l
		 JOIN race r ON r.race_id = l.race_id
		 JOIN driver d ON d.driver_id = l.driver_id
		 WHERE l.lap_time_secs IS NOT NULL AND l.lap_time_secs > 0`)
	if err != nil {
		return nil, errors.Wrap(err, "load raw laps")
	}
	defer rows.Close()

	raw := make([]DatasetRow, 0)
	for rows.Next() {
		var dr DatasetRow
		var pit int
		if err := rows.Scan(&dr.RaceID, &dr.DriverID, &dr.DriverCode, &dr.Year, &dr.Round,
			&dr.RaceName, &dr.LapNumber, &dr.Stint, &dr.Compound, &dr.TyreLife,
			&dr.Position, &pit, &dr.LapTimeSecs); err != nil {
			return nil, errors.Wrap(err, "scan raw lap")
		}
		dr.PitStop = pit == 1
		raw = append(raw, dr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cleaned := dropOutliers(raw)
	engineerFeatures(cleaned)
	logrus.Infof("built dataset: %d raw laps, %d after cleaning", len(raw), len(cleaned))
	return cleaned, nil
}

type raceDriverKey struct {
	raceID   int64
	driverID int64
}

// dropOutliers removes laps at or above outlierRatio times the per
// (race, driver) median lap time.
func dropOutliers(raw []DatasetRow) []DatasetRow {
	byGroup := make(map[raceDriverKey][]float64)
	for _, r := range raw {
		k := raceDriverKey{r.RaceID, r.DriverID}
		byGroup[k] = append(byGroup[k], r.LapTimeSecs)
	}
	medians := make(map[raceDriverKey]float64, len(byGroup))
	for k, times := range byGroup {
		medians[k] = median(times)
	}

	kept := make([]DatasetRow, 0, len(raw))
	for _, r := range raw {
		med := medians[raceDriverKey{r.RaceID, r.DriverID}]
		if med > 0 && r.LapTimeSecs/med >= outlierRatio {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// engineerFeatures sorts rows by (race, driver, stint, lap) and fills in
// lap_in_stint, fuel_lap_from_end and the normalised compound in place.
func engineerFeatures(rows []DatasetRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.RaceID != b.RaceID {
			return a.RaceID < b.RaceID
		}
		if a.DriverID != b.DriverID {
			return a.DriverID < b.DriverID
		}
		if a.Stint != b.Stint {
			return a.Stint < b.Stint
		}
		return a.LapNumber < b.LapNumber
	})

	maxLap := make(map[int64]int)
	for _, r := range rows {
		if r.LapNumber > maxLap[r.RaceID] {
			maxLap[r.RaceID] = r.LapNumber
		}
	}

	type stintKey struct {
		raceID   int64
		driverID int64
		stint    int
	}
	counts := make(map[stintKey]int)
	for i := range rows {
		k := stintKey{rows[i].RaceID, rows[i].DriverID, rows[i].Stint}
		counts[k]++
		rows[i].LapInStint = counts[k]
		rows[i].FuelLapFromEnd = maxLap[rows[i].RaceID] - rows[i].LapNumber
		rows[i].Compound = normalizeCompound(rows[i].Compound)
	}
}

func normalizeCompound(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return "UNKNOWN"
	}
	return c
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// WriteDatasetCSV writes rows as CSV. progress, when non-nil, is called after
// every written row (the CLI attaches a progress bar to it).
func WriteDatasetCSV(w io.Writer, rows []DatasetRow, progress func()) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(datasetColumns); err != nil {
		return errors.Wrap(err, "write dataset header")
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.RaceID, 10),
			strconv.FormatInt(r.DriverID, 10),
			r.DriverCode,
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Round),
			r.RaceName,
			strconv.Itoa(r.LapNumber),
			strconv.Itoa(r.LapInStint),
			strconv.Itoa(r.FuelLapFromEnd),
			strconv.Itoa(r.Stint),
			r.Compound,
			strconv.Itoa(r.TyreLife),
			strconv.Itoa(r.Position),
			strconv.FormatBool(r.PitStop),
			strconv.FormatFloat(r.LapTimeSecs, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "write dataset row")
		}
		if progress != nil {
			progress()
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush dataset")
}
