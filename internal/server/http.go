package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPService runs an http.Server under a Lifecycle.
type HTTPService struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewHTTPService wraps srv. Stop drains in-flight requests for at most
// shutdownTimeout before closing connections.
//
// Precondition: srv and logger must be non-nil; srv.Addr must be set.
func NewHTTPService(srv *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) *HTTPService {
	return &HTTPService{srv: srv, shutdownTimeout: shutdownTimeout, logger: logger}
}

// Start listens and serves until Stop is called.
//
// Postcondition: Returns nil after a graceful Stop, or the listen error.
func (h *HTTPService) Start() error {
	h.logger.Info("http listening", zap.String("addr", h.srv.Addr))
	if err := h.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (h *HTTPService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()
	if err := h.srv.Shutdown(ctx); err != nil {
		h.logger.Warn("http shutdown", zap.Error(err))
		_ = h.srv.Close()
	}
}
