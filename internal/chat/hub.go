package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists chat history.
type Store interface {
	SaveMessage(ctx context.Context, m Message) error
}

// Delivery pushes rendered lines to connected users.
type Delivery interface {
	Broadcast(line string)
	SendTo(userID, line string) error
}

// Hub is the live Messenger and Notifier: messages are persisted then
// broadcast, notifications go only to their user.
type Hub struct {
	store    Store
	delivery Delivery
	logger   *zap.Logger
	now      func() time.Time
}

// NewHub creates a Hub. store may be nil to skip persistence.
//
// Precondition: delivery and logger must be non-nil.
func NewHub(store Store, delivery Delivery, logger *zap.Logger) *Hub {
	return &Hub{store: store, delivery: delivery, logger: logger, now: time.Now}
}

// Post assigns an id and timestamp, persists m and broadcasts it.
//
// Postcondition: Nothing is broadcast when persistence fails.
func (h *Hub) Post(ctx context.Context, m Message) (Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = h.now()
	}
	if h.store != nil {
		if err := h.store.SaveMessage(ctx, m); err != nil {
			return Message{}, fmt.Errorf("saving chat message: %w", err)
		}
	}
	h.delivery.Broadcast(m.Text())
	h.logger.Debug("chat message posted",
		zap.String("id", m.ID),
		zap.String("speaker", m.SpeakerID),
		zap.String("author", m.AuthorID),
	)
	return m, nil
}

// Notify sends a notification line to userID. Delivery failures are logged.
func (h *Hub) Notify(_ context.Context, userID string, level Level, text string) {
	line := fmt.Sprintf("[%s] %s", level, text)
	if err := h.delivery.SendTo(userID, line); err != nil {
		h.logger.Warn("notification not delivered",
			zap.String("user", userID),
			zap.String("level", string(level)),
			zap.Error(err),
		)
	}
}
