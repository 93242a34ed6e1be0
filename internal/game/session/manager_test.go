package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/game/actor"
)

var _ chat.Delivery = (*Manager)(nil)

func TestOutbox_Push(t *testing.T) {
	o := NewOutbox("test", 4)
	require.NoError(t, o.Push("hello"))
	assert.Equal(t, "hello", <-o.Lines())
}

func TestOutbox_PushClosed(t *testing.T) {
	o := NewOutbox("test", 4)
	require.NoError(t, o.Close())
	assert.True(t, o.IsClosed())
	assert.Error(t, o.Push("fail"))
}

func TestOutbox_PushFull(t *testing.T) {
	o := NewOutbox("test", 1)
	require.NoError(t, o.Push("first"))
	err := o.Push("overflow")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "buffer full")
}

func TestOutbox_CloseIdempotent(t *testing.T) {
	o := NewOutbox("test", 4)
	require.NoError(t, o.Close())
	require.NoError(t, o.Close())
	assert.True(t, o.IsClosed())
}

func newManager(t *testing.T) *Manager {
	return NewManager(zaptest.NewLogger(t))
}

func TestManager_AddUser(t *testing.T) {
	m := newManager(t)
	sess, err := m.AddUser(actor.User{ID: "u1", Name: "Alice"}, "alice", "player")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)
	assert.Empty(t, sess.Viewing)
	assert.Equal(t, 1, m.UserCount())

	_, err = m.AddUser(actor.User{ID: "u1"}, "alice", "player")
	assert.Error(t, err)
}

func TestManager_RemoveUser(t *testing.T) {
	m := newManager(t)
	sess, err := m.AddUser(actor.User{ID: "u1"}, "alice", "player")
	require.NoError(t, err)
	_, err = m.View("u1", "org")
	require.NoError(t, err)

	require.NoError(t, m.RemoveUser("u1"))
	assert.True(t, sess.Outbox.IsClosed())
	assert.Empty(t, m.Viewers("org"))
	assert.Error(t, m.RemoveUser("u1"))
}

func TestManager_View(t *testing.T) {
	m := newManager(t)
	for _, uid := range []string{"u1", "u2"} {
		_, err := m.AddUser(actor.User{ID: uid}, uid, "player")
		require.NoError(t, err)
	}
	prev, err := m.View("u1", "org")
	require.NoError(t, err)
	assert.Empty(t, prev)
	_, err = m.View("u2", "org")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, m.Viewers("org"))

	prev, err = m.View("u1", "unit")
	require.NoError(t, err)
	assert.Equal(t, "org", prev)
	assert.Equal(t, []string{"u2"}, m.Viewers("org"))
	assert.Equal(t, []string{"u1"}, m.Viewers("unit"))

	_, err = m.View("u2", "")
	require.NoError(t, err)
	assert.Empty(t, m.Viewers("org"))

	_, err = m.View("ghost", "org")
	assert.Error(t, err)
}

func TestManager_BroadcastAndSendTo(t *testing.T) {
	m := newManager(t)
	a, err := m.AddUser(actor.User{ID: "a"}, "a", "player")
	require.NoError(t, err)
	b, err := m.AddUser(actor.User{ID: "b"}, "b", "gm")
	require.NoError(t, err)

	m.Broadcast("everyone")
	assert.Equal(t, "everyone", <-a.Outbox.Lines())
	assert.Equal(t, "everyone", <-b.Outbox.Lines())

	require.NoError(t, m.SendTo("b", "just you"))
	assert.Equal(t, "just you", <-b.Outbox.Lines())
	assert.Len(t, a.Outbox.Lines(), 0)

	assert.Error(t, m.SendTo("ghost", "nobody"))
}

func TestManager_UsersSortedByUsername(t *testing.T) {
	m := newManager(t)
	_, err := m.AddUser(actor.User{ID: "2"}, "wren", "player")
	require.NoError(t, err)
	_, err = m.AddUser(actor.User{ID: "1"}, "aldric", "gm")
	require.NoError(t, err)

	users := m.Users()
	require.Len(t, users, 2)
	assert.Equal(t, "aldric", users[0].Username)
	assert.Equal(t, "wren", users[1].Username)
}

func TestManager_BroadcastSkipsFullOutbox(t *testing.T) {
	m := newManager(t)
	sess, err := m.AddUser(actor.User{ID: "a"}, "a", "player")
	require.NoError(t, err)
	for i := 0; i < 64; i++ {
		require.NoError(t, sess.Outbox.Push(fmt.Sprintf("line %d", i)))
	}
	assert.NotPanics(t, func() { m.Broadcast("dropped") })
	assert.Len(t, sess.Outbox.Lines(), 64)
}

func TestManager_ConcurrentAddRemove(t *testing.T) {
	m := newManager(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := fmt.Sprintf("u%d", i)
			_, err := m.AddUser(actor.User{ID: uid}, uid, "player")
			assert.NoError(t, err)
			_, err = m.View(uid, "org")
			assert.NoError(t, err)
			m.Broadcast("hi")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, m.UserCount())
	assert.Len(t, m.Viewers("org"), 50)
}

func TestProperty_ViewersMatchSessions(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := NewManager(zaptest.NewLogger(t))
		n := rapid.IntRange(1, 10).Draw(rt, "users")
		records := []string{"", "org", "unit"}
		want := map[string]string{}
		for i := 0; i < n; i++ {
			uid := fmt.Sprintf("u%d", i)
			if _, err := m.AddUser(actor.User{ID: uid}, uid, "player"); err != nil {
				rt.Fatalf("add: %v", err)
			}
		}
		steps := rapid.IntRange(0, 30).Draw(rt, "steps")
		for s := 0; s < steps; s++ {
			uid := fmt.Sprintf("u%d", rapid.IntRange(0, n-1).Draw(rt, "uid"))
			rec := rapid.SampledFrom(records).Draw(rt, "record")
			if _, err := m.View(uid, rec); err != nil {
				rt.Fatalf("view: %v", err)
			}
			want[uid] = rec
		}
		for _, rec := range records[1:] {
			for _, uid := range m.Viewers(rec) {
				if want[uid] != rec {
					rt.Fatalf("%s listed as viewer of %s but views %q", uid, rec, want[uid])
				}
			}
		}
	})
}
