// Package chat carries roll results and flavor text to every connected user,
// and warnings or info notices to a single user.
package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cory-johannsen/knw/internal/game/dice"
)

// Level is a notification severity.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Message is one chat entry. Roll is nil for plain flavor messages.
type Message struct {
	ID string
	// SpeakerID is the actor the message is attributed to.
	SpeakerID   string
	SpeakerName string
	// AuthorID is the user who triggered the message.
	AuthorID  string
	Flavor    string
	Content   string
	Roll      *dice.RollResult
	CreatedAt time.Time
}

// Text renders m as a single line of chat.
func (m Message) Text() string {
	var b strings.Builder
	if m.SpeakerName != "" {
		b.WriteString(m.SpeakerName)
		b.WriteString(": ")
	}
	b.WriteString(m.Flavor)
	if m.Content != "" {
		if m.Flavor != "" {
			b.WriteString(" ")
		}
		b.WriteString(m.Content)
	}
	if m.Roll != nil {
		fmt.Fprintf(&b, " (%s)", m.Roll.String())
	}
	return b.String()
}

// Messenger posts chat messages visible to everyone.
type Messenger interface {
	Post(ctx context.Context, m Message) (Message, error)
}

// Notifier shows a transient notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID string, level Level, text string)
}

// Notice is a user-facing policy warning returned as an error. Key is a
// catalog key; Args fill its placeholders.
type Notice struct {
	Level Level
	Key   string
	Args  map[string]string
	// Cause is an optional sentinel the notice stands for.
	Cause error
}

// Wrap sets the sentinel matched by errors.Is and returns n.
func (n *Notice) Wrap(cause error) *Notice {
	n.Cause = cause
	return n
}

// Unwrap returns Cause.
func (n *Notice) Unwrap() error { return n.Cause }

// Warn returns a warning Notice.
func Warn(key string, args map[string]string) *Notice {
	return &Notice{Level: LevelWarn, Key: key, Args: args}
}

// Info returns an info Notice.
func Info(key string, args map[string]string) *Notice {
	return &Notice{Level: LevelInfo, Key: key, Args: args}
}

func (n *Notice) Error() string {
	if len(n.Args) == 0 {
		return n.Key
	}
	keys := make([]string, 0, len(n.Args))
	for k := range n.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + n.Args[k]
	}
	return n.Key + " (" + strings.Join(parts, ", ") + ")"
}
