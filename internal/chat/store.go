// Package chat runs inbound chat messages through the agent pipeline and
// persists both sides of the conversation.
package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/wolfman30/callflow-ai/internal/agent"
)

// Message is one persisted chat message as returned by the history endpoint.
type Message struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Sender    agent.Sender   `json:"sender"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

// MessageStore persists chat messages in Postgres through database/sql.
type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	if db == nil {
		panic("chat: sql db required")
	}
	return &MessageStore{db: db}
}

// Recent returns the newest limit messages of a session in chronological order.
func (s *MessageStore) Recent(ctx context.Context, sessionID string, limit int) ([]agent.ConversationTurn, error) {
	query := `
		SELECT content, sender, timestamp
		FROM messages
		WHERE session_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("chat: query recent: %w", err)
	}
	defer rows.Close()

	var turns []agent.ConversationTurn
	for rows.Next() {
		var (
			turn   agent.ConversationTurn
			sender string
		)
		if err := rows.Scan(&turn.Content, &sender, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("chat: scan recent: %w", err)
		}
		turn.Sender = agent.Sender(sender)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: iterate recent: %w", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Insert stores a message and returns its id. A nil metadata map is stored as NULL.
func (s *MessageStore) Insert(ctx context.Context, sessionID, content string, sender agent.Sender, metadata map[string]any) (string, error) {
	var meta any
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("chat: encode metadata: %w", err)
		}
		meta = string(raw)
	}

	query := `
		INSERT INTO messages (session_id, content, sender, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	if err := s.db.QueryRowContext(ctx, query, sessionID, content, string(sender), meta).Scan(&id); err != nil {
		return "", fmt.Errorf("chat: insert message: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// History returns up to limit messages of a session, oldest first.
func (s *MessageStore) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	query := `
		SELECT id, content, sender, timestamp, metadata
		FROM messages
		WHERE session_id = $1
		ORDER BY timestamp ASC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("chat: query history: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var (
			id     int64
			sender string
			raw    []byte
			msg    Message
		)
		if err := rows.Scan(&id, &msg.Content, &sender, &msg.Timestamp, &raw); err != nil {
			return nil, fmt.Errorf("chat: scan history: %w", err)
		}
		msg.ID = strconv.FormatInt(id, 10)
		msg.Sender = agent.Sender(sender)
		msg.Metadata = map[string]any{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("chat: decode metadata for message %d: %w", id, err)
			}
			if msg.Metadata == nil {
				msg.Metadata = map[string]any{}
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: iterate history: %w", err)
	}
	return messages, nil
}
