package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"twinpane/internal/core"
	"twinpane/pkg/engine"
)

// Server is the HTTP API server for twinpane
type Server struct {
	addr   string
	log    zerolog.Logger
	mux    *http.ServeMux
	server *http.Server

	bus       *core.Bus
	scanner   *engine.Scanner
	transfers *engine.Transfers
	detector  *engine.Detector

	maxConflicts int
	clientGen    core.Generation
	done         chan struct{}
}

// ServerOption configures the Server
type ServerOption func(*Server)

// WithMaxConflicts caps conflict detection responses.
func WithMaxConflicts(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxConflicts = n
		}
	}
}

// NewServer creates a new API server
func NewServer(addr string, log zerolog.Logger, bus *core.Bus, scanner *engine.Scanner, transfers *engine.Transfers, detector *engine.Detector, opts ...ServerOption) *Server {
	s := &Server{
		addr:         addr,
		log:          log,
		bus:          bus,
		scanner:      scanner,
		transfers:    transfers,
		detector:     detector,
		maxConflicts: engine.DefaultMaxConflicts,
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.mux = http.NewServeMux()

	// Health check
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Scan previews
	s.mux.HandleFunc("/api/scan/start", s.handleStartScan)
	s.mux.HandleFunc("/api/scan/", s.handleScan) // handles /api/scan/{id}/cancel and GET /api/scan/{id}

	// Transfers
	s.mux.HandleFunc("/api/transfer/start", s.handleStartTransfer)
	s.mux.HandleFunc("/api/transfer/", s.handleTransfer) // /{id}, /{id}/cancel, /{id}/resolve, /{id}/ack

	// Conflict detection
	s.mux.HandleFunc("/api/conflicts/detect", s.handleDetectConflicts)

	// Operation registry
	s.mux.HandleFunc("/api/operations", s.handleOperations)
	s.mux.HandleFunc("/api/operations/", s.handleOperation)

	// SSE events
	s.mux.HandleFunc("/api/events", s.handleSSE)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.corsMiddleware(s.loggingMiddleware(s.mux)),
	}

	s.log.Info().Str("addr", s.addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// StartBackground starts the server in a goroutine
func (s *Server) StartBackground(ctx context.Context) {
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("server error")
		}
	}()

	// Handle shutdown
	go func() {
		defer close(s.done)
		<-ctx.Done()
		s.log.Info().Msg("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("shutdown error")
		}
	}()
}

// Wait blocks until a server started with StartBackground has shut down.
func (s *Server) Wait() {
	<-s.done
}

// loggingMiddleware logs all requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// corsMiddleware adds CORS headers for cross-origin requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helper functions for responses

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Data:    data,
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

// writeOpError maps a tagged engine error onto the response envelope,
// preserving its code for the client.
func (s *Server) writeOpError(w http.ResponseWriter, status int, err error) {
	op := engine.AsOpError(err)
	s.writeError(w, status, string(op.Code), op.Error())
}
