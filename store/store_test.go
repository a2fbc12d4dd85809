package store

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

// openTestStore seeds an in-memory database with two races, two drivers and
// a handful of laps.
func openTestStore(t *testing.T) (*Store, map[string]int64) {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ids := make(map[string]int64)

	bahrain, err := s.InsertRace(Race{Year: 2021, Round: 1, Name: "Bahrain Grand Prix", Circuit: "Sakhir", Date: "2021-03-28"})
	require.NoError(t, err)
	ids["bahrain"] = bahrain

	imola, err := s.InsertRace(Race{Year: 2021, Round: 2, Name: "Emilia Romagna Grand Prix", Circuit: "Imola"})
	require.NoError(t, err)
	ids["imola"] = imola

	ver, err := s.UpsertDriver(Driver{Code: "VER", FullName: "Max Verstappen", Number: 33, Team: "Red Bull"})
	require.NoError(t, err)
	ids["VER"] = ver

	ham, err := s.UpsertDriver(Driver{Code: "HAM", FullName: "Lewis Hamilton", Number: 44, Team: "Mercedes"})
	require.NoError(t, err)
	ids["HAM"] = ham

	laps := []Lap{
		{RaceID: bahrain, DriverID: ver, LapNumber: 1, LapTimeSecs: 95.1, Stint: 1, Compound: "MEDIUM", TyreLife: 1, FreshTire: true, Position: 1},
		{RaceID: bahrain, DriverID: ver, LapNumber: 2, LapTimeSecs: 94.2, Stint: 1, Compound: "MEDIUM", TyreLife: 2, Position: 1, IsFastest: true},
		{RaceID: bahrain, DriverID: ver, LapNumber: 3, LapTimeSecs: 94.8, Stint: 2, Compound: "HARD", TyreLife: 1, Position: 2},
		{RaceID: bahrain, DriverID: ham, LapNumber: 1, LapTimeSecs: 95.5, Stint: 1, Compound: "SOFT", TyreLife: 1, FreshTire: true, Position: 2},
		{RaceID: bahrain, DriverID: ham, LapNumber: 2, LapTimeSecs: 94.0, Stint: 1, Compound: "SOFT", TyreLife: 2, Position: 2},
		{RaceID: imola, DriverID: ver, LapNumber: 1, LapTimeSecs: 78.3, Stint: 1, Compound: "SOFT", TyreLife: 1, Position: 1, IsFastest: true},
	}
	for _, l := range laps {
		require.NoError(t, s.InsertLap(l))
	}
	return s, ids
}

func TestListRaces_OrderedByYearAndRound(t *testing.T) {
	s, _ := openTestStore(t)

	races, err := s.ListRaces()
	require.NoError(t, err)
	require.Len(t, races, 2)
	assert.Equal(t, "Bahrain Grand Prix", races[0].Name)
	assert.Equal(t, "Emilia Romagna Grand Prix", races[1].Name)
	assert.Equal(t, "2021-03-28", races[0].Date)
	assert.Empty(t, races[1].Date)
}

func TestGetRace(t *testing.T) {
	s, ids := openTestStore(t)

	r, err := s.GetRace(ids["bahrain"])
	require.NoError(t, err)
	assert.Equal(t, "Sakhir", r.Circuit)

	_, err = s.GetRace(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRaceLaps(t *testing.T) {
	s, ids := openTestStore(t)

	laps, err := s.RaceLaps(ids["bahrain"], "")
	require.NoError(t, err)
	require.Len(t, laps, 5)
	// ordered by driver code then lap number: HAM first
	assert.Equal(t, "HAM", laps[0].Driver)
	assert.Equal(t, 1, laps[0].LapNumber)
	assert.True(t, laps[0].FreshTire)

	verLaps, err := s.RaceLaps(ids["bahrain"], "ver")
	require.NoError(t, err)
	require.Len(t, verLaps, 3)
	assert.Equal(t, "MEDIUM", verLaps[0].Compound)

	none, err := s.RaceLaps(ids["bahrain"], "XXX")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.RaceLaps(424242, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDrivers(t *testing.T) {
	s, ids := openTestStore(t)

	all, err := s.ListDrivers(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"HAM", "VER"}, all)

	imolaOnly, err := s.ListDrivers(ids["imola"], 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"VER"}, imolaOnly)

	byYear, err := s.ListDrivers(0, 2021)
	require.NoError(t, err)
	assert.Equal(t, []string{"HAM", "VER"}, byYear)
}

func TestGetDriverStats(t *testing.T) {
	s, ids := openTestStore(t)

	stats, err := s.GetDriverStats("ver", ids["bahrain"], 0)
	require.NoError(t, err)
	assert.Equal(t, "VER", stats.DriverCode)
	assert.Equal(t, "Max Verstappen", stats.DriverName)
	assert.Equal(t, 3, stats.TotalLaps)
	assert.InDelta(t, 94.2, stats.FastestLap, 1e-9)
	assert.Equal(t, 1, stats.BestPosition)
	assert.Equal(t, 2, stats.WorstPosition)

	_, err = s.GetDriverStats("XXX", 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompareDrivers(t *testing.T) {
	s, ids := openTestStore(t)

	cmp, err := s.CompareDrivers("VER", "HAM", ids["bahrain"], 0)
	require.NoError(t, err)
	assert.Equal(t, 2, cmp.TotalLaps)

	lap1 := cmp.Comparisons[0]
	assert.Equal(t, 1, lap1.LapNumber)
	assert.InDelta(t, -0.4, lap1.TimeDifference, 1e-9)
	assert.Equal(t, "VER", lap1.FasterDriver)

	lap2 := cmp.Comparisons[1]
	assert.InDelta(t, 0.2, lap2.TimeDifference, 1e-9)
	assert.Equal(t, "HAM", lap2.FasterDriver)

	_, err = s.CompareDrivers("VER", "XXX", 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetCircuitPerformance(t *testing.T) {
	s, _ := openTestStore(t)

	perf, err := s.GetCircuitPerformance("sakhir", 10)
	require.NoError(t, err)
	require.Len(t, perf.Races, 1)
	assert.Equal(t, 5, perf.Races[0].TotalLaps)

	require.Len(t, perf.FastestLaps, 1)
	assert.Equal(t, "HAM", perf.FastestLaps[0].Driver)
	assert.InDelta(t, 94.0, perf.FastestLaps[0].LapTime, 1e-9)
}

func TestGetSeasonSummary(t *testing.T) {
	s, _ := openTestStore(t)

	sum, err := s.GetSeasonSummary(2021)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.RaceCount)
	assert.Equal(t, 6, sum.TotalLaps)
	assert.Equal(t, 2, sum.UniqueDrivers)
	require.NotNil(t, sum.FastestLap)
	assert.Equal(t, "VER", sum.FastestLap.Driver)
	assert.InDelta(t, 78.3, sum.FastestLap.LapTime, 1e-9)
	// VER set the fastest lap in both races
	require.NotEmpty(t, sum.TopDrivers)
	assert.Equal(t, "VER", sum.TopDrivers[0].Driver)
	assert.Equal(t, 2, sum.TopDrivers[0].FastestLapCount)

	empty, err := s.GetSeasonSummary(1999)
	require.NoError(t, err)
	assert.Zero(t, empty.RaceCount)
	assert.Nil(t, empty.FastestLap)
}

func TestUpsertDriver_ReusesExistingRow(t *testing.T) {
	s, ids := openTestStore(t)

	again, err := s.UpsertDriver(Driver{Code: "VER"})
	require.NoError(t, err)
	assert.Equal(t, ids["VER"], again)
}
