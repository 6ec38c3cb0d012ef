// Package web provides the HTTP API to submit intents to, and monitor, the planner.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goutils "go.viam.com/utils"

	"github.com/sslcore/planner/logging"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/scheduler"
	"github.com/sslcore/planner/trajectory"
)

const (
	shutdownTimeout = 5 * time.Second
	// DebugHeader enables debug logs for everything done on behalf of the request.
	DebugHeader = "X-Planner-Debug"
)

// Planner is the scheduler surface served over HTTP.
type Planner interface {
	SubmitIntent(ctx context.Context, intent planning.RobotIntent) (scheduler.Result, error)
	Cancel(robotID int) error
	PlanHypothetical(ctx context.Context, intent planning.RobotIntent) (time.Duration, error)
	TimeLeft(robotID int) (time.Duration, bool, error)
	LastTrajectory(robotID int) (trajectory.Trajectory, bool, error)
	IsConnected() bool
}

var _ Planner = (*scheduler.Node)(nil)

// Server serves the planner HTTP API.
type Server struct {
	planner Planner
	logger  logging.Logger
	router  chi.Router
}

// NewServer routes the API of `planner`. Metrics are served from `gatherer` when it is not nil.
func NewServer(planner Planner, gatherer prometheus.Gatherer, logger logging.Logger) *Server {
	s := &Server{planner: planner, logger: logger, router: chi.NewRouter()}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(debugMode)

	s.router.Get("/healthz", s.handleHealth)
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	s.router.Route("/robots/{id}", func(r chi.Router) {
		r.Post("/move", s.handleMove)
		r.Delete("/move", s.handleCancel)
		r.Post("/hypothetical", s.handleHypothetical)
		r.Get("/trajectory", s.handleTrajectory)
		r.Get("/time_left", s.handleTimeLeft)
	})
	return s
}

// debugMode tags the request context so that contextual debug logs are emitted at any level.
func debugMode(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key, ok := r.Header[DebugHeader]; ok {
			name := ""
			if len(key) > 0 {
				name = key[0]
			}
			if name == "" {
				name = middleware.GetReqID(r.Context())
			}
			r = r.WithContext(logging.WithDebug(r.Context(), name))
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on `addr` until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	goutils.PanicCapturingGo(func() {
		errCh <- httpServer.ListenAndServe()
	})
	s.logger.Infow("serving http api", "address", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debugw("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, scheduler.ErrUnknownRobot):
		status = http.StatusNotFound
	case errors.Is(err, scheduler.ErrNodeClosed):
		status = http.StatusServiceUnavailable
	case planning.IsUnknownPlanner(err), errors.Is(err, planning.ErrInvalidIntent), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func robotID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, errors.Wrapf(errBadRequest, "robot id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// decodeIntent reads an intent body for the robot in the path. The path wins over any robot
// id in the body.
func decodeIntent(r *http.Request) (planning.RobotIntent, error) {
	id, err := robotID(r)
	if err != nil {
		return planning.RobotIntent{}, err
	}
	var intent planning.RobotIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		return planning.RobotIntent{}, errors.Wrapf(errBadRequest, "invalid intent: %v", err)
	}
	intent.RobotID = id
	if err := intent.Validate(); err != nil {
		return planning.RobotIntent{}, err
	}
	return intent, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.planner.IsConnected() {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "disconnected"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	intent, err := decodeIntent(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.planner.SubmitIntent(r.Context(), intent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := robotID(r)
	if err == nil {
		err = s.planner.Cancel(id)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type hypotheticalResponse struct {
	EstimateSeconds float64 `json:"estimate_seconds"`
}

func (s *Server) handleHypothetical(w http.ResponseWriter, r *http.Request) {
	intent, err := decodeIntent(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	estimate, err := s.planner.PlanHypothetical(r.Context(), intent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hypotheticalResponse{EstimateSeconds: estimate.Seconds()})
}

func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	id, err := robotID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	traj, ok, err := s.planner.LastTrajectory(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no trajectory published yet"})
		return
	}
	msg, err := traj.Message(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, msg)
}

type timeLeftResponse struct {
	Seconds   float64 `json:"seconds"`
	Available bool    `json:"available"`
}

func (s *Server) handleTimeLeft(w http.ResponseWriter, r *http.Request) {
	id, err := robotID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	left, ok, err := s.planner.TimeLeft(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, timeLeftResponse{Seconds: left.Seconds(), Available: ok})
}
