// Package api exposes the race database and the strategy simulator over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/Devarsh-44/raceintel360/store"
	"github.com/Devarsh-44/raceintel360/strategy"
)

// Server wires the lap store and the model registry into an HTTP handler.
type Server struct {
	store          *store.Store
	registry       *strategy.Registry
	pitLossSeconds float64
}

// NewServer builds a Server. registry may be nil, in which case the strategy
// endpoint reports the model as unavailable.
func NewServer(st *store.Store, reg *strategy.Registry, pitLossSeconds float64) *Server {
	if pitLossSeconds <= 0 {
		pitLossSeconds = strategy.DefaultPitLossSeconds
	}
	return &Server{store: st, registry: reg, pitLossSeconds: pitLossSeconds}
}

// Handler returns the fully routed HTTP handler, CORS and logging included.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogging)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/races", s.handleListRaces).Methods(http.MethodGet)
	r.HandleFunc("/races/{id:[0-9]+}", s.handleGetRace).Methods(http.MethodGet)
	r.HandleFunc("/races/{id:[0-9]+}/laps", s.handleRaceLaps).Methods(http.MethodGet)

	r.HandleFunc("/drivers", s.handleListDrivers).Methods(http.MethodGet)
	r.HandleFunc("/drivers/{code}/stats", s.handleDriverStats).Methods(http.MethodGet)

	r.HandleFunc("/analytics/driver-comparison", s.handleDriverComparison).Methods(http.MethodGet)
	r.HandleFunc("/analytics/circuit-performance", s.handleCircuitPerformance).Methods(http.MethodGet)
	r.HandleFunc("/analytics/season-summary", s.handleSeasonSummary).Methods(http.MethodGet)

	r.HandleFunc("/strategy/simulate", s.handleSimulate).Methods(http.MethodPost)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

// requestLogging tags every request with an id and logs method, path, status
// and duration.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, req)
		logrus.WithFields(logrus.Fields{
			"request_id": id,
			"method":     req.Method,
			"path":       req.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}).Info("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
