// Package server wires the HTTP surface onto the job queue core: routing,
// the auth/logging/recovery/CORS middleware chain, and request/response
// marshalling.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/interfaces"
	"github.com/scorbettUM/dcrx-kv/internal/services/auth"
)

// Server wraps an http.Server configured with every registered route and
// the full middleware chain.
type Server struct {
	queue       queueAPI
	users       interfaces.UserStore
	authSvc     *auth.Service
	logger      *common.Logger
	tokenExpiry time.Duration

	httpServer *http.Server
	metrics    *metrics
}

// New constructs a Server bound to host:port, ready to Start.
func New(host string, port int, queue queueAPI, users interfaces.UserStore, authSvc *auth.Service, tokenExpiry time.Duration, logger *common.Logger) *Server {
	s := &Server{
		queue:       queue,
		users:       users,
		authSvc:     authSvc,
		logger:      logger,
		tokenExpiry: tokenExpiry,
		metrics:     newMetrics(),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	handler := applyMiddleware(mux, logger, authSvc, users)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the wrapped http.Handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server. Blocks until Shutdown is called or the
// listener fails.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server: starting HTTP listener")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
