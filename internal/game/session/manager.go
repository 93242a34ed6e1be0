package session

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/game/actor"
)

// UserSession tracks a connected user's state.
type UserSession struct {
	// User is the authenticated identity used for permission checks.
	User actor.User
	// Username is the account username (for logging).
	Username string
	// Role is the account privilege level (player, gm, admin).
	Role string
	// Viewing is the id of the record whose sheet is open; empty when none.
	Viewing string
	// Outbox feeds the user's connection writer.
	Outbox *Outbox
}

// Manager tracks all connected users and which record each is viewing.
// All methods are safe for concurrent use. Manager is the chat.Delivery of
// the live server.
type Manager struct {
	mu      sync.RWMutex
	users   map[string]*UserSession    // uid → session
	viewers map[string]map[string]bool // recordID → set of UIDs
	logger  *zap.Logger
}

// NewManager creates an empty session Manager.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		users:   make(map[string]*UserSession),
		viewers: make(map[string]map[string]bool),
		logger:  logger,
	}
}

// AddUser registers a connected user.
//
// Precondition: u.ID, username and role must be non-empty.
// Postcondition: Returns the created UserSession, or an error if the user is already connected.
func (m *Manager) AddUser(u actor.User, username, role string) (*UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[u.ID]; exists {
		return nil, fmt.Errorf("user %q already connected", username)
	}
	sess := &UserSession{
		User:     u,
		Username: username,
		Role:     role,
		Outbox:   NewOutbox(u.ID, 64),
	}
	m.users[u.ID] = sess
	return sess, nil
}

// RemoveUser removes a session, its viewer registration, and closes its outbox.
//
// Postcondition: Returns an error if the user is not connected.
func (m *Manager) RemoveUser(uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.users[uid]
	if !exists {
		return fmt.Errorf("user %q not found", uid)
	}
	m.unview(sess)
	_ = sess.Outbox.Close()
	delete(m.users, uid)
	return nil
}

// unview removes sess from its viewed record's viewer set. Callers hold mu.
func (m *Manager) unview(sess *UserSession) {
	if sess.Viewing == "" {
		return
	}
	if vs, ok := m.viewers[sess.Viewing]; ok {
		delete(vs, sess.User.ID)
		if len(vs) == 0 {
			delete(m.viewers, sess.Viewing)
		}
	}
	sess.Viewing = ""
}

// View records that uid opened the sheet of recordID; an empty recordID closes
// the open sheet.
//
// Postcondition: Returns the previously viewed record id, or an error if the user is not connected.
func (m *Manager) View(uid, recordID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.users[uid]
	if !exists {
		return "", fmt.Errorf("user %q not found", uid)
	}
	previous := sess.Viewing
	m.unview(sess)
	if recordID == "" {
		return previous, nil
	}
	sess.Viewing = recordID
	if m.viewers[recordID] == nil {
		m.viewers[recordID] = make(map[string]bool)
	}
	m.viewers[recordID][uid] = true
	return previous, nil
}

// Viewers returns the sorted ids of users viewing recordID.
func (m *Manager) Viewers(recordID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uids := make([]string, 0, len(m.viewers[recordID]))
	for uid := range m.viewers[recordID] {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// GetUser returns the session for the given user id.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (m *Manager) GetUser(uid string) (*UserSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.users[uid]
	return sess, ok
}

// UserCount returns the number of connected users.
func (m *Manager) UserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// Broadcast pushes line to every connected user. Full or closed outboxes are
// logged and skipped.
func (m *Manager) Broadcast(line string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for uid, sess := range m.users {
		if err := sess.Outbox.Push(line); err != nil {
			m.logger.Warn("broadcast dropped", zap.String("user", uid), zap.Error(err))
		}
	}
}

// SendTo pushes line to one user.
//
// Postcondition: Returns an error if the user is not connected or the outbox rejects the line.
func (m *Manager) SendTo(uid, line string) error {
	m.mu.RLock()
	sess, ok := m.users[uid]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("user %q not connected", uid)
	}
	return sess.Outbox.Push(line)
}

// Users returns the connected sessions ordered by username.
func (m *Manager) Users() []*UserSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*UserSession, 0, len(m.users))
	for _, sess := range m.users {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
