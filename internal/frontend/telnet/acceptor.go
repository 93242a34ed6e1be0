package telnet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/config"
)

// ServerFullMessage is sent to clients refused by the connection cap.
const ServerFullMessage = "The server is full. Try again later."

// SessionHandler runs the command loop of one connected client.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor listens for Telnet connections and runs each one through a
// SessionHandler on its own goroutine.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler SessionHandler
	logger  *zap.Logger

	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
	mu       sync.Mutex
	running  bool
	active   atomic.Int32
}

// NewAcceptor creates a Telnet acceptor with the given configuration.
//
// Precondition: handler and logger must be non-nil.
// Postcondition: Returns an Acceptor ready to be started with ListenAndServe.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		quit:    make(chan struct{}),
	}
}

// ListenAndServe binds cfg.Addr() and serves until Stop is called.
func (a *Acceptor) ListenAndServe() error {
	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	return a.Serve(listener)
}

// Serve accepts connections on listener until Stop is called.
//
// Precondition: The acceptor must not already be running.
// Postcondition: listener is closed when Serve returns.
func (a *Acceptor) Serve(listener net.Listener) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		_ = listener.Close()
		return fmt.Errorf("acceptor already running on %s", a.listener.Addr())
	}
	a.listener = listener
	a.running = true
	a.mu.Unlock()

	a.logger.Info("telnet acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.Int("max_connections", a.cfg.MaxConnections),
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-a.quit:
				return nil
			default:
				a.logger.Error("accepting connection", zap.Error(err))
				continue
			}
		}
		if !a.admit() {
			a.refuse(conn)
			continue
		}
		a.wg.Add(1)
		go a.handleConn(conn)
	}
}

// admit reserves a session slot, failing when MaxConnections are active.
func (a *Acceptor) admit() bool {
	limit := int32(a.cfg.MaxConnections)
	for {
		n := a.active.Load()
		if limit > 0 && n >= limit {
			return false
		}
		if a.active.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (a *Acceptor) refuse(raw net.Conn) {
	a.logger.Warn("connection refused: server full",
		zap.String("remote_addr", raw.RemoteAddr().String()),
		zap.Int32("active", a.active.Load()),
	)
	_ = raw.SetWriteDeadline(time.Now().Add(time.Second))
	_, _ = raw.Write([]byte(ServerFullMessage + "\r\n"))
	_ = raw.Close()
}

func (a *Acceptor) handleConn(raw net.Conn) {
	defer a.wg.Done()
	defer a.active.Add(-1)

	start := time.Now()
	logger := a.logger.With(zap.String("remote_addr", raw.RemoteAddr().String()))
	logger.Info("client connected", zap.Int32("active", a.active.Load()))

	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout)
	defer conn.Close()

	if err := conn.Negotiate(); err != nil {
		logger.Error("telnet negotiation failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-a.quit:
			cancel()
			// Unblock a pending ReadLine.
			_ = conn.Close()
		case <-ctx.Done():
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("session panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	err := a.handler.HandleSession(ctx, conn)
	logger.Info("session ended", zap.Error(err), zap.Duration("duration", time.Since(start)))
}

// Stop closes the listener, signals every session to end, and waits for
// their goroutines to exit.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.quit)
	if a.listener != nil {
		_ = a.listener.Close()
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("telnet acceptor stopped")
}

// Addr returns the listening address, or "" before Serve binds.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// IsRunning reports whether the acceptor is accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// ActiveSessions is the number of connections currently being handled.
func (a *Acceptor) ActiveSessions() int {
	return int(a.active.Load())
}
