// Package api exposes the conversation manager over HTTP.
//
// Endpoints:
//
//	GET    /health                                        liveness probe
//	GET    /ready                                         readiness probe
//	POST   /api/conversations                             create conversation
//	GET    /api/conversations                             list conversations
//	GET    /api/conversations/{id}                        conversation snapshot
//	DELETE /api/conversations/{id}                        discard conversation
//	GET    /api/conversations/{id}/messages               conversation snapshot
//	POST   /api/conversations/{id}/messages               submit user message
//	DELETE /api/conversations/{id}/messages               clear conversation
//	PATCH  /api/conversations/{id}/messages/{msgID}       edit user message
//	POST   /api/conversations/{id}/messages/{msgID}/reload regenerate reply
//	DELETE /api/conversations/{id}/messages/{msgID}       delete from message
//	POST   /api/conversations/{id}/stop                   cancel generation
//	GET    /api/conversations/{id}/events                 SSE event stream
//
// File structure:
//   - server.go: server setup and lifecycle
//   - middleware.go: logging and recovery middleware
//   - health.go: liveness and readiness probes
//   - conversation.go: conversation CRUD and mutation endpoints
//   - events.go: SSE streaming endpoint
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/brightpath/brainstorm/internal/chat"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout = 30 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server over a conversation registry.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger

	registry *chat.Registry
}

// NewServer creates a server with all routes registered. registry is
// required; logger may be nil.
func NewServer(registry *chat.Registry, logger *slog.Logger) (*Server, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		registry: registry,
	}

	h := &conversationHandler{registry: registry, logger: logger}
	s.mux.HandleFunc("GET /health", s.liveness)
	s.mux.HandleFunc("GET /ready", s.readiness)
	s.mux.HandleFunc("POST /api/conversations", h.create)
	s.mux.HandleFunc("GET /api/conversations", h.list)
	s.mux.HandleFunc("GET /api/conversations/{id}", h.messages)
	s.mux.HandleFunc("DELETE /api/conversations/{id}", h.delete)
	s.mux.HandleFunc("GET /api/conversations/{id}/messages", h.messages)
	s.mux.HandleFunc("POST /api/conversations/{id}/messages", h.submit)
	s.mux.HandleFunc("DELETE /api/conversations/{id}/messages", h.clear)
	s.mux.HandleFunc("PATCH /api/conversations/{id}/messages/{msgID}", h.edit)
	s.mux.HandleFunc("POST /api/conversations/{id}/messages/{msgID}/reload", h.reload)
	s.mux.HandleFunc("DELETE /api/conversations/{id}/messages/{msgID}", h.deleteMessage)
	s.mux.HandleFunc("POST /api/conversations/{id}/stop", h.stop)
	s.mux.HandleFunc("GET /api/conversations/{id}/events", h.events)

	return s, nil
}

// Handler returns the server's handler with middleware applied.
// Middleware order: recovery, then tracing, then logging, then routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		tracingMiddleware(),
		loggingMiddleware(s.logger),
	)
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully. SSE responses are long lived, so no WriteTimeout is set; the
// per-request context still ends streams on shutdown.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		IdleTimeout:       IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.registry.Close()
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
