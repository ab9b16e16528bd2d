// Package dashboard exposes per-session activity counters: calls, minutes,
// captured leads, scheduled visits and message volume.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfman30/callflow-ai/internal/agent"
)

// ErrSessionNotFound is returned when the session row does not exist.
var ErrSessionNotFound = agent.ErrSessionNotFound

// Stats is the dashboard view of one session.
type Stats struct {
	SessionID       string     `json:"session_id"`
	TotalCalls      int        `json:"total_calls"`
	TotalMinutes    int        `json:"total_minutes"`
	Leads           int        `json:"leads"`
	ScheduledVisits int        `json:"scheduled_visits"`
	MessagesCount   int64      `json:"messages_count"`
	LastActivity    *time.Time `json:"last_activity"`
}

// statsDB defines the database interface needed by StatsRepository
type statsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// StatsRepository reads and updates the stats table.
type StatsRepository struct {
	db statsDB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	if pool == nil {
		panic("dashboard: pgx pool required for stats")
	}
	return &StatsRepository{db: pool}
}

// NewStatsRepositoryWithDB allows injecting a mock database for testing.
func NewStatsRepositoryWithDB(db statsDB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`, sessionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("dashboard: session lookup: %w", err)
	}
	return exists, nil
}

// GetStats returns the counters for a session. A session without a stats row
// gets a zeroed one inserted and reported with no last activity.
func (r *StatsRepository) GetStats(ctx context.Context, sessionID string) (*Stats, error) {
	exists, err := r.SessionExists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrSessionNotFound
	}

	stats := &Stats{SessionID: sessionID}
	statsQuery := `
		SELECT total_calls, total_minutes, leads, scheduled_visits, last_activity
		FROM stats
		WHERE session_id = $1
	`
	missing := false
	if err := r.db.QueryRow(ctx, statsQuery, sessionID).Scan(
		&stats.TotalCalls,
		&stats.TotalMinutes,
		&stats.Leads,
		&stats.ScheduledVisits,
		&stats.LastActivity,
	); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("dashboard: select stats: %w", err)
		}
		missing = true
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = $1`, sessionID).Scan(&stats.MessagesCount); err != nil {
		return nil, fmt.Errorf("dashboard: count messages: %w", err)
	}

	if missing {
		if _, err := r.db.Exec(ctx, `INSERT INTO stats (session_id) VALUES ($1)`, sessionID); err != nil {
			return nil, fmt.Errorf("dashboard: create stats: %w", err)
		}
	}
	return stats, nil
}

// IncrementCalls adds one call and the given minutes. Unknown sessions are a no-op.
func (r *StatsRepository) IncrementCalls(ctx context.Context, sessionID string, minutes int) error {
	query := `
		UPDATE stats SET
			total_calls = total_calls + 1,
			total_minutes = total_minutes + $2,
			last_activity = NOW()
		WHERE session_id = $1
	`
	if _, err := r.db.Exec(ctx, query, sessionID, minutes); err != nil {
		return fmt.Errorf("dashboard: increment calls: %w", err)
	}
	return nil
}

// RecordActivity touches last_activity and bumps the counter matching the
// routed intent of a chat turn.
func (r *StatsRepository) RecordActivity(ctx context.Context, sessionID string, intent agent.Intent) error {
	var leads, visits int
	switch intent {
	case agent.IntentLeadCapture:
		leads = 1
	case agent.IntentAppointment:
		visits = 1
	}
	query := `
		UPDATE stats SET
			last_activity = NOW(),
			leads = leads + $2,
			scheduled_visits = scheduled_visits + $3
		WHERE session_id = $1
	`
	if _, err := r.db.Exec(ctx, query, sessionID, leads, visits); err != nil {
		return fmt.Errorf("dashboard: record activity: %w", err)
	}
	return nil
}
