package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification is one recorded Notify call.
type Notification struct {
	UserID string
	Level  Level
	Text   string
}

// Recorder is an in-memory Messenger and Notifier for tests and offline tools.
type Recorder struct {
	mu            sync.Mutex
	messages      []Message
	notifications []Notification
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Post records m.
func (r *Recorder) Post(_ context.Context, m Message) (Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return m, nil
}

// Notify records a notification.
func (r *Recorder) Notify(_ context.Context, userID string, level Level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{UserID: userID, Level: level, Text: text})
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Notifications returns a copy of the recorded notifications.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
	r.notifications = nil
}
