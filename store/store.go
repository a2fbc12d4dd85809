// Package store persists race, driver and lap data in SQLite and serves the
// query side of the API: race listings, lap data, driver statistics and the
// training-dataset export.
package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Store wraps the SQLite database holding historical race data.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema
// exists. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping database %s", path)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	logrus.Debugf("opened race database at %s", path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS race (
			race_id INTEGER PRIMARY KEY AUTOINCREMENT,
			year INTEGER,
			round INTEGER,
			name TEXT,
			circuit TEXT,
			date TEXT);`,
		`CREATE INDEX IF NOT EXISTS idx_race_year ON race(year);`,
		`CREATE TABLE IF NOT EXISTS driver (
			driver_id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT UNIQUE,
			full_name TEXT,
			number INTEGER,
			team TEXT);`,
		`CREATE TABLE IF NOT EXISTS lap (
			lap_id INTEGER PRIMARY KEY AUTOINCREMENT,
			race_id INTEGER REFERENCES race(race_id) ON DELETE CASCADE,
			driver_id INTEGER REFERENCES driver(driver_id) ON DELETE CASCADE,
			lap_number INTEGER,
			lap_time_secs REAL,
			sector1_time_secs REAL,
			sector2_time_secs REAL,
			sector3_time_secs REAL,
			stint INTEGER,
			compound TEXT,
			tyre_life INTEGER,
			fresh_tire INTEGER,
			pit_stop INTEGER DEFAULT 0,
			position INTEGER,
			is_fastest INTEGER DEFAULT 0,
			is_personal_best INTEGER DEFAULT 0);`,
		`CREATE INDEX IF NOT EXISTS idx_lap_race ON lap(race_id);`,
		`CREATE INDEX IF NOT EXISTS idx_lap_driver ON lap(driver_id);`,
		`CREATE TABLE IF NOT EXISTS weather (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			race_id INTEGER REFERENCES race(race_id) ON DELETE CASCADE,
			sample_time_secs REAL,
			air_temp REAL,
			track_temp REAL,
			humidity REAL,
			pressure REAL,
			wind_speed REAL,
			wind_dir INTEGER,
			rainfall INTEGER);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "create schema")
		}
	}
	return nil
}

// Race is an F1 race event.
type Race struct {
	ID      int64  `json:"race_id"`
	Year    int    `json:"year"`
	Round   int    `json:"round"`
	Name    string `json:"name"`
	Circuit string `json:"circuit,omitempty"`
	Date    string `json:"date,omitempty"`
}

// Driver is an F1 driver, identified by the three-letter code (e.g. VER).
type Driver struct {
	ID       int64  `json:"driver_id"`
	Code     string `json:"code"`
	FullName string `json:"full_name,omitempty"`
	Number   int    `json:"number,omitempty"`
	Team     string `json:"team,omitempty"`
}

// Lap is a single recorded lap of one driver in one race.
type Lap struct {
	ID          int64   `json:"-"`
	RaceID      int64   `json:"-"`
	DriverID    int64   `json:"-"`
	Driver      string  `json:"driver,omitempty"`
	LapNumber   int     `json:"lap_number"`
	LapTimeSecs float64 `json:"lap_time"`
	Sector1Secs float64 `json:"s1,omitempty"`
	Sector2Secs float64 `json:"s2,omitempty"`
	Sector3Secs float64 `json:"s3,omitempty"`
	Stint       int     `json:"stint"`
	Compound    string  `json:"compound"`
	TyreLife    int     `json:"tyre_life"`
	FreshTire   bool    `json:"fresh_tire"`
	PitStop     bool    `json:"pit_stop"`
	Position    int     `json:"position"`
	IsFastest   bool    `json:"is_fastest,omitempty"`
}

// InsertRace stores a race and returns its id.
func (s *Store) InsertRace(r Race) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO race (year, round, name, circuit, date) VALUES (?, ?, ?, ?, ?)`,
		r.Year, r.Round, r.Name, nullable(r.Circuit), nullable(r.Date))
	if err != nil {
		return 0, errors.Wrapf(err, "insert race %s %d", r.Name, r.Year)
	}
	return res.LastInsertId()
}

// UpsertDriver stores a driver, reusing the existing row when the code is
// already known, and returns the driver id.
func (s *Store) UpsertDriver(d Driver) (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT driver_id FROM driver WHERE code = ?`, d.Code).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, sql.ErrNoRows):
		res, err := s.db.Exec(
			`INSERT INTO driver (code, full_name, number, team) VALUES (?, ?, ?, ?)`,
			d.Code, nullable(d.FullName), d.Number, nullable(d.Team))
		if err != nil {
			return 0, errors.Wrapf(err, "insert driver %s", d.Code)
		}
		return res.LastInsertId()
	default:
		return 0, errors.Wrapf(err, "look up driver %s", d.Code)
	}
}

// InsertLap stores one lap row.
func (s *Store) InsertLap(l Lap) error {
	_, err := s.db.Exec(
		`INSERT INTO lap (race_id, driver_id, lap_number, lap_time_secs,
			sector1_time_secs, sector2_time_secs, sector3_time_secs,
			stint, compound, tyre_life, fresh_tire, pit_stop, position, is_fastest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.RaceID, l.DriverID, l.LapNumber, l.LapTimeSecs,
		l.Sector1Secs, l.Sector2Secs, l.Sector3Secs,
		l.Stint, l.Compound, l.TyreLife, boolInt(l.FreshTire), boolInt(l.PitStop),
		l.Position, boolInt(l.IsFastest))
	return errors.Wrapf(err, "insert lap %d race %d driver %d", l.LapNumber, l.RaceID, l.DriverID)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullable maps "" to NULL so optional text columns stay NULL like in the
// original data import.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
