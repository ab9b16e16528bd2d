package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultMaxAttempts = 10

// OutboxEntry is a staged event waiting to be relayed.
type OutboxEntry struct {
	ID        uuid.UUID
	Subject   string
	Payload   json.RawMessage
	Attempts  int
	CreatedAt time.Time
}

type outboxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OutboxStore stages events in Postgres so a NATS outage does not lose them.
// Entries that fail maxAttempts times are left in the table and no longer retried.
type OutboxStore struct {
	db          outboxDB
	maxAttempts int
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return newOutboxStoreWithDB(pool)
}

func newOutboxStoreWithDB(db outboxDB) *OutboxStore {
	return &OutboxStore{db: db, maxAttempts: defaultMaxAttempts}
}

// Publish satisfies Publisher by staging the payload under subject.
func (s *OutboxStore) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal %s payload: %w", subject, err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO outbox (id, subject, payload) VALUES ($1, $2, $3)`,
		uuid.New(), subject, data,
	)
	if err != nil {
		return fmt.Errorf("events: stage %s: %w", subject, err)
	}
	return nil
}

// Pending returns undelivered entries with attempts left, oldest first.
func (s *OutboxStore) Pending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, subject, payload, attempts, created_at
		FROM outbox
		WHERE delivered_at IS NULL AND attempts < $1
		ORDER BY created_at
		LIMIT $2
	`, s.maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("events: query pending: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OutboxEntry, error) {
		var (
			entry   OutboxEntry
			payload []byte
		)
		err := row.Scan(&entry.ID, &entry.Subject, &payload, &entry.Attempts, &entry.CreatedAt)
		entry.Payload = json.RawMessage(payload)
		return entry, err
	})
	if err != nil {
		return nil, fmt.Errorf("events: scan pending: %w", err)
	}
	return entries, nil
}

func (s *OutboxStore) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE outbox
		SET delivered_at = now(), attempts = attempts + 1, last_error = NULL
		WHERE id = $1 AND delivered_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("events: mark %s delivered: %w", id, err)
	}
	return nil
}

// MarkFailed counts a failed attempt and keeps the cause for inspection.
func (s *OutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	_, err := s.db.Exec(ctx, `
		UPDATE outbox
		SET attempts = attempts + 1, last_error = $2
		WHERE id = $1
	`, id, cause.Error())
	if err != nil {
		return fmt.Errorf("events: mark %s failed: %w", id, err)
	}
	return nil
}
