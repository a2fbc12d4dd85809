package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Devarsh-44/raceintel360/store"
	"github.com/Devarsh-44/raceintel360/strategy"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "RaceIntel360 API",
		"version": "1.0",
		"docs":    "see /races, /drivers, /analytics/*, /strategy/simulate",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	modelReady := false
	if s.registry != nil {
		if _, _, err := s.registry.Snapshot(); err == nil {
			modelReady = true
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"model_ready": modelReady,
	})
}

func (s *Server) handleListRaces(w http.ResponseWriter, _ *http.Request) {
	races, err := s.store.ListRaces()
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"races": races, "count": len(races)})
}

func (s *Server) handleGetRace(w http.ResponseWriter, req *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(req)["id"], 10, 64)
	race, err := s.store.GetRace(id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, race)
}

func (s *Server) handleRaceLaps(w http.ResponseWriter, req *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(req)["id"], 10, 64)
	laps, err := s.store.RaceLaps(id, req.URL.Query().Get("driver"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"race_id": id, "laps": laps, "count": len(laps)})
}

func (s *Server) handleListDrivers(w http.ResponseWriter, req *http.Request) {
	raceID := queryInt64(req, "race_id")
	year := queryInt(req, "year")
	drivers, err := s.store.ListDrivers(raceID, year)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drivers": drivers, "count": len(drivers)})
}

func (s *Server) handleDriverStats(w http.ResponseWriter, req *http.Request) {
	code := mux.Vars(req)["code"]
	stats, err := s.store.GetDriverStats(code, queryInt64(req, "race_id"), queryInt(req, "year"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDriverComparison(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	d1, d2 := q.Get("driver1"), q.Get("driver2")
	if d1 == "" || d2 == "" {
		writeError(w, http.StatusBadRequest, "driver1 and driver2 are required")
		return
	}
	cmp, err := s.store.CompareDrivers(d1, d2, queryInt64(req, "race_id"), queryInt(req, "year"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleCircuitPerformance(w http.ResponseWriter, req *http.Request) {
	circuit := req.URL.Query().Get("circuit")
	if circuit == "" {
		writeError(w, http.StatusBadRequest, "circuit is required")
		return
	}
	perf, err := s.store.GetCircuitPerformance(circuit, queryInt(req, "limit"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

func (s *Server) handleSeasonSummary(w http.ResponseWriter, req *http.Request) {
	year := queryInt(req, "year")
	if year == 0 {
		writeError(w, http.StatusBadRequest, "year is required")
		return
	}
	sum, err := s.store.GetSeasonSummary(year)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// simulationRequest mirrors the strategy endpoint's JSON body. The race
// context fields are embedded at the top level.
type simulationRequest struct {
	strategy.RaceContext
	PitLossSeconds  float64             `json:"pit_loss_seconds"`
	IncludeLapTimes bool                `json:"include_lap_times"`
	Strategies      []strategy.Strategy `json:"strategies"`
}

type simulationResponse struct {
	Results      []strategy.StrategyResult `json:"results"`
	BestStrategy string                    `json:"best_strategy,omitempty"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, req *http.Request) {
	var body simulationRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(body.Strategies) == 0 {
		writeError(w, http.StatusBadRequest, "at least one strategy is required")
		return
	}

	if s.registry == nil {
		writeError(w, http.StatusServiceUnavailable, strategy.ErrModelUnavailable.Error())
		return
	}
	model, enc, err := s.registry.Snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	pitLoss := body.PitLossSeconds
	if pitLoss <= 0 {
		pitLoss = s.pitLossSeconds
	}

	results, err := strategy.RankStrategies(req.Context(), model, enc, body.RaceContext, body.Strategies, pitLoss)
	if err != nil {
		s.strategyError(w, err)
		return
	}

	resp := simulationResponse{Results: results}
	if !body.IncludeLapTimes {
		for i := range resp.Results {
			resp.Results[i].LapTimes = nil
		}
	}
	if len(results) > 0 {
		resp.BestStrategy = results[0].Strategy
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	logrus.WithError(err).Error("store query failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) strategyError(w http.ResponseWriter, err error) {
	var invalid *strategy.InvalidStrategyError
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusUnprocessableEntity, invalid.Error())
	case errors.Is(err, strategy.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logrus.WithError(err).Error("simulation failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(req *http.Request, key string) int {
	v, _ := strconv.Atoi(req.URL.Query().Get(key))
	return v
}

func queryInt64(req *http.Request, key string) int64 {
	v, _ := strconv.ParseInt(req.URL.Query().Get(key), 10, 64)
	return v
}
