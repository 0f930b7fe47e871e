package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/logging"
)

// Server wraps an http.Server around the admin router with graceful
// shutdown, the same Start(ctx)-blocks/Stop(ctx)-once-safe shape the
// control-plane API server uses.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a Server listening on addr (":9090" style). The server
// is constructed stopped; call Start to run it.
func NewServer(addr string, provider StatusProvider) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(provider),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start runs the server until ctx is cancelled, then gracefully shuts it
// down with a 5s budget.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("admin API listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("adminapi: server failed: %w", err)
	}
}

// Stop gracefully shuts the server down; safe to call even if Start never
// ran.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
