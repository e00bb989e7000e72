// Package server provides the HTTP API for uploading, parsing and editing resumes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/resume-enhancer/internal/agent"
	"github.com/jonathan/resume-enhancer/internal/archive"
	"github.com/jonathan/resume-enhancer/internal/cache"
	"github.com/jonathan/resume-enhancer/internal/config"
	"github.com/jonathan/resume-enhancer/internal/db"
	"github.com/jonathan/resume-enhancer/internal/ingestion"
	"github.com/jonathan/resume-enhancer/internal/llm"
	"github.com/jonathan/resume-enhancer/internal/logging"
	"github.com/jonathan/resume-enhancer/internal/parsing"
	"github.com/jonathan/resume-enhancer/internal/schemas"
	"github.com/jonathan/resume-enhancer/internal/server/middleware"
	"github.com/jonathan/resume-enhancer/internal/server/ratelimit"
)

// DefaultMaxUploadBytes is the upload size cap when Config leaves it unset
const DefaultMaxUploadBytes = 10 << 20

// Config holds server configuration
type Config struct {
	Port           int
	MaxUploadBytes int64
	Structuring    parsing.Options
	RateLimit      *ratelimit.Config
	// JWT enables bearer auth on /api/resumes routes when set
	JWT *config.JWTConfig
}

// ActivityFeed returns the sink that publishes one upload session's activities
type ActivityFeed func(sessionID string) agent.ActivitySink

// Deps are the adapters the server runs with. Only Logger has a default;
// a nil Client means every upload goes through the heuristic fallback, and
// a nil Store disables the /api/resumes routes.
type Deps struct {
	Client    llm.Client
	Extractor agent.TextExtractor
	Cache     cache.Cache
	Store     db.Store
	Archive   archive.Archive
	Feed      ActivityFeed
	Logger    *zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	cfg         Config
	deps        Deps
	logger      zerolog.Logger
	handler     http.Handler
	httpServer  *http.Server
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
}

// New creates a server and its router
func New(cfg Config, deps Deps) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	s := &Server{
		cfg:         cfg,
		deps:        deps,
		logger:      logging.Logger,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
	}
	if deps.Logger != nil {
		s.logger = *deps.Logger
	}
	if cfg.JWT != nil {
		s.jwtService = NewJWTService(cfg.JWT)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/resume/upload", s.handleUpload)
	mux.HandleFunc("POST /api/resume/upload/stream", s.handleUploadStream)
	mux.HandleFunc("GET /api/resume/schema", s.handleSchema)

	mux.Handle("GET /api/resumes", s.protect(s.handleListResumes))
	mux.Handle("GET /api/resumes/{id}", s.protect(s.handleGetResume))
	mux.Handle("PUT /api/resumes/{id}", s.protect(s.handleUpdateResume))
	mux.Handle("DELETE /api/resumes/{id}", s.protect(s.handleDeleteResume))
	mux.Handle("GET /api/resumes/{id}/activities", s.protect(s.handleListActivities))
	mux.Handle("GET /api/resumes/{id}/export", s.protect(s.handleExportResume))
	mux.Handle("GET /api/resumes/{id}/original", s.protect(s.handleGetOriginal))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout(cfg.Structuring.Timeout),
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// MinWriteTimeout is the response write deadline when the model timeout is short
const MinWriteTimeout = 3 * time.Minute

// writeTimeout leaves room after the model deadline for the fallback parse
// and the response, so a slow model never cuts off the write.
func writeTimeout(modelTimeout time.Duration) time.Duration {
	if modelTimeout <= 0 {
		modelTimeout = parsing.DefaultTimeout
	}
	if t := modelTimeout + time.Minute; t > MinWriteTimeout {
		return t
	}
	return MinWriteTimeout
}

// Handler returns the fully wrapped router
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info().Msg("server stopped")
	return nil
}

// protect applies bearer auth when JWT is configured
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	if s.jwtService == nil {
		return h
	}
	return middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(h)
}

// handleHealth reports which adapters are wired
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"llm":     s.deps.Client != nil,
		"store":   s.deps.Store != nil,
		"cache":   s.deps.Cache != nil,
		"archive": s.deps.Archive != nil,
		"events":  s.deps.Feed != nil,
		"formats": ingestion.AllowedExtensions,
	})
}

// handleSchema serves the JSON Schema that PUT /api/resumes/{id} bodies are checked against
func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, schemas.ParsedResumeSchema())
}

// envelope is the JSON body of every API response
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) success(w http.ResponseWriter, status int, data any) {
	s.jsonResponse(w, status, envelope{Success: true, Data: data})
}

// errorResponse writes {"success":false,"error":message}
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, envelope{Success: false, Error: message})
}

// writeError maps err to a status with HTTPStatus. Internal errors are logged
// and reported generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		s.errorResponse(w, status, "Internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}
