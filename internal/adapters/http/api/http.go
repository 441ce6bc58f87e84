// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/bodytrack/internal/adapters/export"
	"github.com/okian/bodytrack/internal/adapters/repository"
	service "github.com/okian/bodytrack/internal/app"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/internal/domain/recording"
	"github.com/okian/bodytrack/pkg/logger"
)

const (
	defaultMaxBodyBytes = 1 << 20
	defaultStreamIdle   = 60 * time.Second
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	PoseDependencies
	RecordingDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	sessionHandler    *SessionHandler
	posesHandler      *PosesHandler
	streamHandler     *StreamHandler
	recordingsHandler *RecordingsHandler

	maxBodyBytes int64
	streamIdle   time.Duration
	logger       logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		maxBodyBytes: defaultMaxBodyBytes,
		streamIdle:   defaultStreamIdle,
		logger:       logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.sessionHandler = NewSessionHandler(deps, s.maxBodyBytes)
	s.posesHandler = NewPosesHandler(deps, s.maxBodyBytes)
	s.streamHandler = NewStreamHandler(deps, s.maxBodyBytes, s.streamIdle, s.logger)
	s.recordingsHandler = NewRecordingsHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /session", MetricsMiddleware(s.sessionHandler.HandleGet, "session"))
	mux.HandleFunc("POST /session/start", MetricsMiddleware(s.sessionHandler.HandleStart, "session_start"))
	mux.HandleFunc("POST /session/stop", MetricsMiddleware(s.sessionHandler.HandleStop, "session_stop"))
	mux.HandleFunc("POST /session/save", MetricsMiddleware(s.sessionHandler.HandleSave, "session_save"))
	mux.HandleFunc("POST /session/discard", MetricsMiddleware(s.sessionHandler.HandleDiscard, "session_discard"))

	mux.HandleFunc("POST /poses", MetricsMiddleware(s.posesHandler.HandlePost, "poses"))
	// Upgraded connections must not be wrapped: the hijack needs the raw writer.
	mux.HandleFunc("GET /poses/stream", s.streamHandler.HandleStream)

	mux.HandleFunc("GET /recordings", MetricsMiddleware(s.recordingsHandler.HandleList, "recordings"))
	mux.HandleFunc("GET /recordings/{name}", MetricsMiddleware(s.recordingsHandler.HandleDownload, "recording"))
	mux.HandleFunc("GET /recordings/{name}/summary", MetricsMiddleware(s.recordingsHandler.HandleSummary, "recording_summary"))
	mux.HandleFunc("DELETE /recordings/{name}", MetricsMiddleware(s.recordingsHandler.HandleDelete, "recording_delete"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps domain error kinds to a status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidPose):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, recording.ErrEmptyName):
		return http.StatusBadRequest, "empty_name"
	case errors.Is(err, repository.ErrInvalidName):
		return http.StatusBadRequest, "invalid_name"
	case errors.Is(err, recording.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, export.ErrMalformed):
		return http.StatusUnprocessableEntity, "malformed_recording"
	case errors.Is(err, export.ErrWrite):
		return http.StatusInternalServerError, "write_failed"
	case errors.Is(err, export.ErrDirectoryCreation):
		return http.StatusInsufficientStorage, "directory_creation"
	case errors.Is(err, export.ErrStorageUnavailable),
		errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_started"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeKindError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// decodeBody reads a JSON body of at most limit bytes into v.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrTooLarge
		}
		return err
	}
	return nil
}
