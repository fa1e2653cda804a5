// Package http exposes the ordering engine as a JSON API for voice drivers
// and web front-ends, with per-session server-sent events.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aretw0/roomservice"
	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/internal/runtime"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/session"
)

// maxBodyBytes bounds an action request body.
const maxBodyBytes = 64 << 10

// Service is the engine surface the API drives.
type Service interface {
	Start(ctx context.Context) (string, runtime.Outcome, error)
	Act(ctx context.Context, sessionID, action string, params map[string]any) (runtime.Outcome, error)
	Session(ctx context.Context, sessionID string) (roomservice.View, error)
	End(ctx context.Context, sessionID string) error
	Registry() *runtime.Registry
}

// Server routes API requests to the Service.
type Server struct {
	svc     Service
	streams *StreamManager
	logger  *slog.Logger

	origins    []string
	rateLimit  int
	rateWindow time.Duration
	metrics    http.Handler
}

// Option configures the Server.
type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStreams shares a StreamManager whose Hooks are registered on the Service.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithCORSOrigins sets the allowed browser origins. Defaults to any origin.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithRateLimit limits requests per client IP. Zero disables the limit.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		s.rateLimit = requests
		s.rateWindow = window
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates the HTTP handler for the service.
func NewHandler(svc Service, opts ...Option) http.Handler {
	s := &Server{
		svc:     svc,
		logger:  logging.NewNop(),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(rateLimit(s.rateLimit, s.rateWindow))
		}
		r.Get("/nodes", s.ListNodes)
		r.Get("/actions", s.ListActions)
		r.Post("/sessions", s.StartSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.EndSession)
			r.Post("/actions/{action}", s.RunAction)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

// TurnResponse is the body returned for every turn.
type TurnResponse struct {
	SessionID string        `json:"session_id"`
	From      string        `json:"from,omitempty"`
	Node      string        `json:"node"`
	Prompt    string        `json:"prompt"`
	Terminal  bool          `json:"terminal"`
	Kind      string        `json:"kind,omitempty"`
	Result    domain.Result `json:"result,omitempty"`
	Actions   []string      `json:"actions"`
}

func (s *Server) turn(sessionID string, out runtime.Outcome) TurnResponse {
	resp := TurnResponse{
		SessionID: sessionID,
		From:      out.From,
		Node:      out.Node,
		Prompt:    out.Prompt,
		Terminal:  out.Terminal,
		Result:    out.Result,
		Actions:   []string{},
	}
	if out.Result != nil {
		resp.Kind = out.Result.Kind()
	}
	for _, spec := range s.svc.Registry().ActionsFor(out.Node) {
		resp.Actions = append(resp.Actions, spec.Name)
	}
	return resp
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "roomservice",
		"version": roomservice.Version,
	})
}

// ListNodes handles GET /nodes.
func (s *Server) ListNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Registry().Nodes())
}

// ListActions handles GET /actions.
func (s *Server) ListActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Registry().Specs())
}

// StartSession handles POST /sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	id, out, err := s.svc.Start(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+id)
	writeJSON(w, http.StatusCreated, s.turn(id, out))
}

// GetSession handles GET /sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// EndSession handles DELETE /sessions/{sessionID}.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.svc.End(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.streams.Publish(id, map[string]any{"type": "session_ended", "session_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// RunAction handles POST /sessions/{sessionID}/actions/{action}. The body is
// a JSON object with the action parameters; it may be empty.
func (s *Server) RunAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	action := chi.URLParam(r, "action")

	params := map[string]any{}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Warn("Invalid action body", "session_id", id, "action", action, "err", err)
		writeError(w, http.StatusBadRequest, "request body must be a JSON object of action parameters")
		return
	}

	out, err := s.svc.Act(r.Context(), id, action, params)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := s.turn(id, out)
	s.streams.Publish(id, resp)
	writeJSON(w, http.StatusOK, resp)
}

// SubscribeEvents handles GET /sessions/{sessionID}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	id := chi.URLParam(r, "sessionID")
	if _, err := s.svc.Session(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	ch, cancel := s.streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client subscribed", "session_id", id)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// fail maps engine errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var stateErr *domain.StateError
	var terminated *session.TerminatedError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.As(err, &stateErr):
		allowed := []string{}
		for _, spec := range s.svc.Registry().ActionsFor(stateErr.NodeID) {
			allowed = append(allowed, spec.Name)
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   stateErr.Error(),
			"node":    stateErr.NodeID,
			"actions": allowed,
		})
	case errors.As(err, &terminated):
		writeError(w, http.StatusGone, terminated.Error())
	default:
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
