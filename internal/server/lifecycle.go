// Package server runs the sheet host's long-lived components (the HTTP API
// and the database health check) and tears them down on SIGINT or SIGTERM.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a component whose Start blocks until Stop is called or it fails.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a pair of functions to Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

func (f *FuncService) Start() error { return f.StartFn() }
func (f *FuncService) Stop()        { f.StopFn() }

type entry struct {
	name string
	svc  Service
}

// Lifecycle starts registered services together and stops them in reverse
// registration order.
type Lifecycle struct {
	logger *zap.Logger

	mu      sync.Mutex
	entries []entry
}

// NewLifecycle returns an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers svc under name. Adding after Run has started has no effect
// on that run.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{name: name, svc: svc})
}

// Run starts every service and blocks until ctx ends, the process receives
// SIGINT or SIGTERM, or a service's Start returns an error.
//
// Postcondition: every service has been stopped and every Start call has
// returned. The result is the first service failure, or nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	l.mu.Lock()
	entries := append([]entry(nil), l.entries...)
	l.mu.Unlock()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	began := time.Now()
	failed := make(chan error, len(entries))
	var running sync.WaitGroup
	for _, e := range entries {
		running.Add(1)
		go func() {
			defer running.Done()
			l.logger.Info("starting service", zap.String("service", e.name))
			if err := e.svc.Start(); err != nil {
				failed <- fmt.Errorf("service %s: %w", e.name, err)
			}
		}()
	}
	l.logger.Info("services started", zap.Int("count", len(entries)))

	var runErr error
	select {
	case runErr = <-failed:
		l.logger.Error("service failed, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(ctx)))
	}

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		t := time.Now()
		e.svc.Stop()
		l.logger.Info("service stopped", zap.String("service", e.name), zap.Duration("elapsed", time.Since(t)))
	}
	running.Wait()

	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(began)))
	return runErr
}
