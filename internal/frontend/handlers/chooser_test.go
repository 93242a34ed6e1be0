package handlers

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/document"
	"github.com/cory-johannsen/knw/internal/frontend/telnet"
	"github.com/cory-johannsen/knw/internal/game/actor"
)

// syncBuffer collects server output read off the client end of a pipe.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return telnet.StripANSI(b.buf.String())
}

// chooserPipe returns a chooser over one end of a pipe. The client end
// answers with the given lines and its received output is collected.
func chooserPipe(t *testing.T, answers ...string) (promptChooser, *syncBuffer) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	out := &syncBuffer{}
	go func() { _, _ = io.Copy(out, client) }()
	go func() {
		for _, a := range answers {
			if _, err := client.Write([]byte(a + "\r\n")); err != nil {
				return
			}
		}
	}()
	return promptChooser{conn: telnet.NewConn(server, 2*time.Second, 2*time.Second)}, out
}

func members() []actor.Member {
	return []actor.Member{
		actor.FromDocument(&document.Document{ID: "aldric", Name: "Aldric"}),
		actor.FromDocument(&document.Document{ID: "bryn", Name: "Bryn"}),
	}
}

func TestChooser_ByNumber(t *testing.T) {
	c, out := chooserPipe(t, "2")

	m, err := c.Choose(context.Background(), "Who rolls?", members())
	require.NoError(t, err)
	assert.Equal(t, "bryn", m.ID())
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "2) Bryn")
	}, time.Second, 10*time.Millisecond)
}

func TestChooser_ByIDAndName(t *testing.T) {
	c, _ := chooserPipe(t, "aldric")
	m, err := c.Choose(context.Background(), "Who rolls?", members())
	require.NoError(t, err)
	assert.Equal(t, "aldric", m.ID())

	c, _ = chooserPipe(t, "BRYN")
	m, err = c.Choose(context.Background(), "Who rolls?", members())
	require.NoError(t, err)
	assert.Equal(t, "bryn", m.ID())
}

func TestChooser_InvalidAnswerReprompts(t *testing.T) {
	c, out := chooserPipe(t, "7", "1")

	m, err := c.Choose(context.Background(), "Who rolls?", members())
	require.NoError(t, err)
	assert.Equal(t, "aldric", m.ID())
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), `No option "7"`)
	}, time.Second, 10*time.Millisecond)
}

func TestChooser_BlankCancels(t *testing.T) {
	c, _ := chooserPipe(t, "")

	_, err := c.Choose(context.Background(), "Who rolls?", members())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChoiceCancelled))
	var n *chat.Notice
	require.True(t, errors.As(err, &n))
	assert.Equal(t, "KNW.Warning.ChoiceCancelled", n.Key)
}

func TestChooser_CancelledContext(t *testing.T) {
	c, _ := chooserPipe(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Choose(ctx, "Who rolls?", members())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPick(t *testing.T) {
	opts := members()
	assert.Nil(t, pick("0", opts))
	assert.Nil(t, pick("3", opts))
	assert.Nil(t, pick("nobody", opts))
	assert.Equal(t, "aldric", pick("1", opts).ID())
}
