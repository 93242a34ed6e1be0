package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Monitor is a Service that runs a health check on a fixed interval and logs
// transitions between healthy and failing.
type Monitor struct {
	Interval time.Duration
	Timeout  time.Duration
	Check    func(ctx context.Context) error
	Logger   *zap.Logger

	once   sync.Once
	cancel context.CancelFunc
	ctx    context.Context

	mu      sync.Mutex
	healthy bool
	checked bool
}

func (m *Monitor) init() {
	m.once.Do(func() { m.ctx, m.cancel = context.WithCancel(context.Background()) })
}

// Start checks immediately and then every Interval until Stop.
func (m *Monitor) Start() error {
	m.init()
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		m.probe()
		select {
		case <-m.ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Stop ends Start. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.init()
	m.cancel()
}

// Healthy reports the result of the latest check; false before the first one.
func (m *Monitor) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

func (m *Monitor) probe() {
	ctx := m.ctx
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	err := m.Check(ctx)
	if m.ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	changed := !m.checked || m.healthy != (err == nil)
	m.healthy, m.checked = err == nil, true
	m.mu.Unlock()

	switch {
	case !changed:
	case err != nil:
		m.Logger.Warn("health check failing", zap.Error(err))
	default:
		m.Logger.Info("health check passing")
	}
}
