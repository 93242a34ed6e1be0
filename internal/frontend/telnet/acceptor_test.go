package telnet

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/knw/internal/config"
)

// echoHandler is a test SessionHandler that echoes lines back to the client.
type echoHandler struct {
	sessionCount atomic.Int32
}

func (h *echoHandler) HandleSession(_ context.Context, conn *Conn) error {
	h.sessionCount.Add(1)
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		switch line {
		case "quit":
			_ = conn.WriteLine("bye")
			return nil
		case "panic":
			panic("handler failure")
		}
		_ = conn.WriteLine("echo: " + line)
	}
}

func startAcceptor(t *testing.T, handler SessionHandler, maxConns ...int) *Acceptor {
	t.Helper()
	cfg := config.TelnetConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	if len(maxConns) > 0 {
		cfg.MaxConnections = maxConns[0]
	}
	acc := NewAcceptor(cfg, handler, zaptest.NewLogger(t))
	go func() { _ = acc.ListenAndServe() }()

	require.Eventually(t, func() bool {
		return acc.IsRunning() && acc.Addr() != ""
	}, 2*time.Second, 5*time.Millisecond, "acceptor did not start in time")
	t.Cleanup(acc.Stop)
	return acc
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	// Discard the negotiation bytes.
	buf := make([]byte, 16)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _ = conn.Read(buf)
	return conn
}

func roundTrip(t *testing.T, conn net.Conn, line string) string {
	t.Helper()
	_, err := conn.Write([]byte(line + "\r\n"))
	require.NoError(t, err)
	buf := make([]byte, 256)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _ := conn.Read(buf)
	return string(buf[:n])
}

func TestAcceptorStartAndStop(t *testing.T) {
	handler := &echoHandler{}
	acc := startAcceptor(t, handler)

	conn := dial(t, acc.Addr())
	assert.Contains(t, roundTrip(t, conn, "hello"), "echo: hello")
	assert.Contains(t, roundTrip(t, conn, "quit"), "bye")

	acc.Stop()
	assert.False(t, acc.IsRunning())
	assert.Equal(t, int32(1), handler.sessionCount.Load())
	acc.Stop()
}

func TestAcceptorMultipleClients(t *testing.T) {
	handler := &echoHandler{}
	acc := startAcceptor(t, handler)

	const numClients = 3
	conns := make([]net.Conn, numClients)
	for i := range conns {
		conns[i] = dial(t, acc.Addr())
	}
	assert.Eventually(t, func() bool { return acc.ActiveSessions() == numClients },
		2*time.Second, 5*time.Millisecond)

	for _, conn := range conns {
		assert.Contains(t, roundTrip(t, conn, "quit"), "bye")
	}
	assert.Eventually(t, func() bool { return acc.ActiveSessions() == 0 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(numClients), handler.sessionCount.Load())
}

func TestAcceptorStopEndsIdleSessions(t *testing.T) {
	acc := startAcceptor(t, &echoHandler{})
	dial(t, acc.Addr())
	require.Eventually(t, func() bool { return acc.ActiveSessions() == 1 },
		2*time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		acc.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop blocked on an idle session")
	}
}

func TestAcceptorRecoversFromHandlerPanic(t *testing.T) {
	acc := startAcceptor(t, &echoHandler{})
	conn := dial(t, acc.Addr())
	_, err := conn.Write([]byte("panic\r\n"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return acc.ActiveSessions() == 0 },
		2*time.Second, 5*time.Millisecond)

	other := dial(t, acc.Addr())
	assert.Contains(t, roundTrip(t, other, "still"), "echo: still")
}

func TestAcceptorRefusesBeyondConnectionCap(t *testing.T) {
	acc := startAcceptor(t, &echoHandler{}, 1)
	first := dial(t, acc.Addr())
	require.Eventually(t, func() bool { return acc.ActiveSessions() == 1 },
		2*time.Second, 5*time.Millisecond)

	refused, err := net.DialTimeout("tcp", acc.Addr(), 2*time.Second)
	require.NoError(t, err)
	defer refused.Close()
	_ = refused.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, _ := io.ReadAll(refused)
	assert.Contains(t, string(data), ServerFullMessage)
	assert.Equal(t, 1, acc.ActiveSessions())

	assert.Contains(t, roundTrip(t, first, "quit"), "bye")
	require.Eventually(t, func() bool { return acc.ActiveSessions() == 0 },
		2*time.Second, 5*time.Millisecond)
	second := dial(t, acc.Addr())
	assert.Contains(t, roundTrip(t, second, "again"), "echo: again")
}
