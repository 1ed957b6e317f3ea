// Package server wraps the HTTP server with production timeouts and
// signal-driven graceful shutdown.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server       *http.Server
	logger       *slog.Logger
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(addr string, handler http.Handler, logger *slog.Logger) *GracefulServer {
	return &GracefulServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        handler,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Start starts the server and handles graceful shutdown signals.
// It blocks until the server stops.
func (gs *GracefulServer) Start() error {
	go gs.handleSignals()

	gs.logger.Info("http server starting", "addr", gs.server.Addr)
	if err := gs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown initiates a graceful shutdown
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", "timeout", timeout)

		if shutdownErr := gs.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			gs.logger.Error("error during shutdown", "error", shutdownErr)
		} else {
			gs.logger.Info("server shutdown complete")
		}
	})
	return err
}

// handleSignals waits for SIGINT/SIGTERM and triggers shutdown
func (gs *GracefulServer) handleSignals() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		gs.logger.Info("received shutdown signal", "signal", sig.String())
		_ = gs.Shutdown(30 * time.Second)
	case <-gs.shutdownCh:
	}
}
