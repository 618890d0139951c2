// Package httpapi exposes the trigger, the task queries and the live state
// stream over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"voice-tasks/internal/application"
	"voice-tasks/internal/capture"
	"voice-tasks/internal/domain"
)

// Controller is the part of the voice pipeline the API drives.
type Controller interface {
	OnTrigger() error
	StopRecording() error
	State() domain.PipelineState
}

type Tasks interface {
	List(ctx context.Context, filter application.TaskFilter) ([]domain.StoredTask, error)
	Get(ctx context.Context, id string) (domain.StoredTask, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.StoredTask, error)
	Next(ctx context.Context) (domain.StoredTask, error)
	Stats(ctx context.Context) (application.TaskStats, error)
}

type Config struct {
	Addr      string
	AuthToken string
	// RateLimit caps trigger requests per client per RateWindow.
	RateLimit  int
	RateWindow time.Duration
}

type Server struct {
	cfg         Config
	controller  Controller
	tasks       Tasks
	hub         *Hub
	metrics     http.Handler
	onRejected  func()
	rateLimiter *RateLimiter
	router      *mux.Router
	logger      *slog.Logger

	mu      sync.Mutex
	server  *http.Server
	running bool
}

func NewServer(cfg Config, controller Controller, tasks Tasks, hub *Hub, logger *slog.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}

	s := &Server{
		cfg:         cfg,
		controller:  controller,
		tasks:       tasks,
		hub:         hub,
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		router:      mux.NewRouter(),
		logger:      logger.With("component", "http"),
	}
	s.routes()
	return s
}

// WithMetrics serves h on /metrics and calls onRejected for every trigger
// refused because an interaction was running.
func (s *Server) WithMetrics(h http.Handler, onRejected func()) *Server {
	s.metrics = h
	s.onRejected = onRejected
	return s
}

func (s *Server) routes() {
	r := s.router
	r.HandleFunc("/trigger", s.rateLimiter.Middleware(s.requireToken(s.handleTrigger))).Methods(http.MethodPost)
	r.HandleFunc("/recording/stop", s.requireToken(s.handleStop)).Methods(http.MethodPost)

	r.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/tasks/next", s.handleNext).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}", s.handleGetTask).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}/status", s.requireToken(s.handleUpdateStatus)).Methods(http.MethodPatch)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", http.HandlerFunc(s.handleMetrics)).Methods(http.MethodGet)
	if s.hub != nil {
		r.Handle("/ws", s.hub)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.cfg.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	return nil
}

// requireToken checks the X-Auth-Token header or the token query parameter
// when an auth token is configured.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.cfg.AuthToken {
				s.logger.Warn("unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	err := s.controller.OnTrigger()
	switch {
	case errors.Is(err, application.ErrBusy):
		if s.onRejected != nil {
			s.onRejected()
		}
		writeJSON(w, http.StatusConflict, map[string]string{
			"status": "busy",
			"state":  s.controller.State().String(),
		})
	case errors.Is(err, application.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
	case err != nil:
		s.logger.Error("trigger failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "listening"})
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	err := s.controller.StopRecording()
	switch {
	case errors.Is(err, capture.ErrStopTimeout):
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "stopped", "timeout": true})
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "stopped", "timeout": false})
	}
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var filter application.TaskFilter

	if v := r.URL.Query().Get("priority"); v != "" {
		p, ok := domain.ParsePriority(v)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown priority %q", v))
			return
		}
		filter.Priority = p
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st, ok := domain.ParseStatus(v)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", v))
			return
		}
		filter.Status = st
	}

	tasks, err := s.tasks.List(r.Context(), filter)
	if err != nil {
		s.taskError(w, err)
		return
	}
	if tasks == nil {
		tasks = []domain.StoredTask{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tasks.Stats(r.Context())
	if err != nil {
		s.taskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Next(r.Context())
	if err != nil {
		s.taskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.taskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status, ok := domain.ParseStatus(body.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", body.Status))
		return
	}

	task, err := s.tasks.UpdateStatus(r.Context(), mux.Vars(r)["id"], status)
	if err != nil {
		s.taskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"state":  s.controller.State().String(),
	}
	if s.hub != nil {
		resp["ws_clients"] = s.hub.Clients()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusNotFound, "metrics disabled")
		return
	}
	s.metrics.ServeHTTP(w, r)
}

func (s *Server) taskError(w http.ResponseWriter, err error) {
	if errors.Is(err, application.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("task query failed", "error", err)
	writeError(w, http.StatusInternalServerError, "task store error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
