package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/taxi-dispatch/internal/config"
	"github.com/example/taxi-dispatch/internal/dispatch"
	"github.com/example/taxi-dispatch/internal/ingest"
	"github.com/example/taxi-dispatch/internal/lifecycle"
	"github.com/example/taxi-dispatch/internal/matcher"
	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/proximity"
	"github.com/example/taxi-dispatch/internal/storage"
)

// Deps carries the wired services the HTTP surface exposes.
type Deps struct {
	Matcher   *matcher.Service
	Lifecycle *lifecycle.Service
	Sweeper   *proximity.Sweeper
	Locations storage.LocationStore
	Kafka     *ingest.LocationProducer // optional
	WSReg     *dispatch.WSRegistry
}

type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(cfg config.ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/taxis/find", s.handleFindTaxis).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/accept", s.transition(s.deps.Lifecycle.AcceptRide)).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/decline", s.transition(s.deps.Lifecycle.DeclineRide)).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/cancel", s.transition(s.deps.Lifecycle.CancelRide)).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/start", s.transition(s.deps.Lifecycle.StartRide)).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/end", s.transition(s.deps.Lifecycle.EndRide)).Methods("POST")
	s.mux.HandleFunc("/internal/locations", s.handleLocation).Methods("POST")
	s.mux.HandleFunc("/internal/proximity/tick", s.handleProximityTick).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{user_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type findTaxisRequest struct {
	Origin      models.Coord `json:"origin"`
	Destination models.Coord `json:"destination"`
	MaxOriginKm float64      `json:"max_origin_km"`
	MaxDestKm   float64      `json:"max_dest_km"`
	MaxTaxiKm   float64      `json:"max_taxi_km"`
	MaxResults  int          `json:"max_results"`
}

func (s *Server) handleFindTaxis(w http.ResponseWriter, r *http.Request) {
	var req findTaxisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q := matcher.Query{
		Origin:      req.Origin,
		Destination: req.Destination,
		MaxOriginKm: orDefault(req.MaxOriginKm, s.cfg.MaxOriginKm),
		MaxDestKm:   orDefault(req.MaxDestKm, s.cfg.MaxDestKm),
		MaxTaxiKm:   orDefault(req.MaxTaxiKm, s.cfg.MaxTaxiKm),
		MaxResults:  req.MaxResults,
	}
	if q.MaxResults <= 0 {
		q.MaxResults = s.cfg.MaxResults
	}
	writeJSON(w, http.StatusOK, s.deps.Matcher.FindTaxis(r.Context(), q))
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

type transitionRequest struct {
	ActorID string `json:"actor_id"`
}

func (s *Server) transition(fn func(ctx context.Context, rideID, actorID string) (lifecycle.TransitionResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.ActorID == "" {
			http.Error(w, "actor_id is required", http.StatusBadRequest)
			return
		}
		rideID := mux.Vars(r)["ride_id"]
		res, err := fn(r.Context(), rideID, req.ActorID)
		if err != nil {
			s.writeTransitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// writeTransitionError maps a domain error to a client status with the
// reason verbatim; infrastructure errors become an opaque 500.
func (s *Server) writeTransitionError(w http.ResponseWriter, err error) {
	if lifecycle.IsDomainError(err) {
		status := http.StatusConflict
		switch {
		case errors.Is(err, lifecycle.ErrRideNotFound):
			status = http.StatusNotFound
		case errors.Is(err, lifecycle.ErrNotAssignedAccept),
			errors.Is(err, lifecycle.ErrNotAssignedDecline),
			errors.Is(err, lifecycle.ErrCancelUnauthorized),
			errors.Is(err, lifecycle.ErrNotPassengerStart),
			errors.Is(err, lifecycle.ErrNotPassengerEnd):
			status = http.StatusForbidden
		}
		writeJSON(w, status, map[string]any{"success": false, "message": err.Error()})
		return
	}
	s.logger.Error("transition failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "internal error"})
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var sample models.LocationSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if sample.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	// publish to kafka if configured; the consumer owns the Redis write in
	// that topology, but we also write directly so single-binary deployments
	// stay consistent.
	if s.deps.Kafka != nil {
		if err := s.deps.Kafka.PublishLocation(sample); err != nil {
			s.logger.Warn("kafka publish failed", "user_id", sample.UserID, "error", err)
		}
	}
	if err := s.deps.Locations.Upsert(r.Context(), sample); err != nil {
		s.logger.Error("location upsert failed", "user_id", sample.UserID, "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleProximityTick lets a client single-step the sweep instead of
// waiting for the 30s ticker.
func (s *Server) handleProximityTick(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sweeper.RunOnce(r.Context()); err != nil {
		s.logger.Error("manual sweep failed", "error", err)
		http.Error(w, "sweep failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["user_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.deps.WSReg.Add(id, conn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
