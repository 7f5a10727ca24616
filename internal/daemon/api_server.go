package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ghoststation/internal/api"
	"ghoststation/internal/config"
	"ghoststation/internal/logging"
	"ghoststation/internal/services"
)

const maxRequestBytes = 1 << 20

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/trigger", srv.handleTrigger)
	mux.HandleFunc("POST /api/evp", srv.handleEVP)
	mux.HandleFunc("POST /api/sessions/start", srv.handleSessionStart)
	mux.HandleFunc("POST /api/sessions/close", srv.handleSessionClose)
	mux.HandleFunc("GET /api/sessions", srv.handleSessions)
	mux.HandleFunc("GET /api/events", srv.handleEvents)
	mux.HandleFunc("GET /api/events/{id}", srv.handleEvent)
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.Handle("GET /api/feed", d.hub)

	srv.handler = requestIDMiddleware(authMiddleware(cfg.Paths.APIToken, mux.ServeHTTP))
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.logger.Info("api server disabled; no bind address configured")
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Feed websockets are hijacked and ignored by Shutdown; the hub closes them.
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req api.TriggerRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.daemon.capture.Trigger(r.Context(), req.ToCapture())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromCaptureResult(result))
}

func (s *apiServer) handleEVP(w http.ResponseWriter, r *http.Request) {
	var req api.EVPRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.daemon.capture.SubmitEVP(r.Context(), req.ToCapture())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromCaptureResult(result))
}

func (s *apiServer) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req api.SessionStartRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	result, err := s.daemon.capture.StartSession(r.Context(), req.ToSession())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromStartResult(result, time.Now()))
}

func (s *apiServer) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	result, err := s.daemon.capture.CloseSession(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromCloseResult(result, time.Now()))
}

func (s *apiServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}
	sessions, err := s.daemon.capture.Sessions(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionListResponse{
		Status:   api.StatusOK,
		Sessions: api.FromSessions(sessions, time.Now()),
	})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}
	events, err := s.daemon.capture.RecentEvents(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.EventListResponse{Status: api.StatusOK, Events: api.FromEvents(events)})
}

func (s *apiServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	event, err := s.daemon.capture.Event(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.EventResponse{Status: api.StatusOK, Event: api.FromEvent(event)})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.daemon.capture.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromStatus(status))
}

// decode reads a JSON body, answering 400 itself when it is malformed.
func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		message := "malformed request body"
		if errors.Is(err, io.EOF) {
			message = "request body is required"
		}
		s.writeError(w, http.StatusBadRequest, message)
		return false
	}
	if dec.More() {
		s.writeError(w, http.StatusBadRequest, "request body must contain a single JSON object")
		return false
	}
	return true
}

func (s *apiServer) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Status: api.StatusFailed, Error: message})
}

// requestIDMiddleware stamps every request context with a correlation id,
// reusing the caller's when it sent one.
func requestIDMiddleware(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(api.RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(api.RequestIDHeader, id)
		next(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}
