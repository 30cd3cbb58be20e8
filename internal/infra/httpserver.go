package infra

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServer wraps http.Server with start and graceful shutdown helpers.
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer creates a server listening on cfg.Port. The write timeout must
// outlive a full submit-and-poll cycle for synchronous generation requests.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{server: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}}
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *HTTPServer) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
