// Package server runs the long-lived components of the KNW actor server and
// shuts them down in reverse order on SIGINT/SIGTERM or the first failure.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component. Start blocks until Stop is called or
// the component fails.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls StopFn when set.
func (f *FuncService) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
}

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

	// StopTimeout bounds each Stop call; a service that overruns it is
	// abandoned. Zero waits indefinitely.
	StopTimeout time.Duration
}

// NewLifecycle creates a Lifecycle with no services.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers svc under name. Services added after Run has begun are not started.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{name: name, svc: svc})
}

// Run starts every service and blocks until SIGINT/SIGTERM, ctx
// cancellation, or the first service failure.
//
// Postcondition: Every service was asked to stop. Returns the first failure,
// or nil for a requested shutdown.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l.mu.Lock()
	entries := slices.Clone(l.entries)
	l.mu.Unlock()

	failed := make(chan error, len(entries))
	for _, e := range entries {
		go l.start(e, failed)
	}
	l.logger.Info("services started", zap.Int("count", len(entries)))

	var err error
	select {
	case err = <-failed:
		l.logger.Error("service failed, shutting down", zap.Error(err))
	case <-ctx.Done():
		l.logger.Info("shutdown requested", zap.NamedError("cause", context.Cause(ctx)))
	}

	for _, e := range slices.Backward(entries) {
		l.stop(e)
	}
	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(start)))
	return err
}

func (l *Lifecycle) start(e entry, failed chan<- error) {
	started := time.Now()
	l.logger.Info("starting service", zap.String("service", e.name))
	if err := e.svc.Start(); err != nil {
		l.logger.Error("service exited",
			zap.String("service", e.name),
			zap.Duration("uptime", time.Since(started)),
			zap.Error(err),
		)
		failed <- fmt.Errorf("service %s: %w", e.name, err)
	}
}

func (l *Lifecycle) stop(e entry) {
	begin := time.Now()
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.svc.Stop()
	}()

	var timeout <-chan time.Time
	if l.StopTimeout > 0 {
		timer := time.NewTimer(l.StopTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-done:
		l.logger.Info("service stopped",
			zap.String("service", e.name),
			zap.Duration("elapsed", time.Since(begin)),
		)
	case <-timeout:
		l.logger.Warn("service did not stop in time",
			zap.String("service", e.name),
			zap.Duration("timeout", l.StopTimeout),
		)
	}
}
