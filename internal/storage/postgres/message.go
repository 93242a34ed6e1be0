package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/game/dice"
)

// MessageRepository persists the chat log. It implements chat.Store.
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a MessageRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// SaveMessage appends m to the chat log. The roll, when present, is stored as JSONB.
//
// Precondition: m.ID must be non-empty.
func (r *MessageRepository) SaveMessage(ctx context.Context, m chat.Message) error {
	var roll []byte
	if m.Roll != nil {
		var err error
		if roll, err = json.Marshal(m.Roll); err != nil {
			return fmt.Errorf("encoding roll: %w", err)
		}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_messages (id, speaker_id, speaker_name, author_id, flavor, content, roll, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.SpeakerID, m.SpeakerName, m.AuthorID, m.Flavor, m.Content, roll, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}
	return nil
}

// Recent returns the newest limit messages, oldest first.
//
// Precondition: limit > 0.
func (r *MessageRepository) Recent(ctx context.Context, limit int) ([]chat.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, speaker_id, speaker_name, author_id, flavor, content, roll, created_at
		 FROM (
		   SELECT * FROM chat_messages ORDER BY created_at DESC, id DESC LIMIT $1
		 ) newest
		 ORDER BY created_at, id`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying chat log: %w", err)
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var m chat.Message
		var roll []byte
		if err := rows.Scan(&m.ID, &m.SpeakerID, &m.SpeakerName, &m.AuthorID, &m.Flavor, &m.Content, &roll, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		if len(roll) > 0 {
			m.Roll = &dice.RollResult{}
			if err := json.Unmarshal(roll, m.Roll); err != nil {
				return nil, fmt.Errorf("decoding roll of %s: %w", m.ID, err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
