package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sessionDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores sessions in the relational database.
type PostgresRepository struct {
	db sessionDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("sessions: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db sessionDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *Session) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sessions: begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO sessions (id, business_name, website, location, property_types,
		                      working_hours, phone, api_provider, system_prompt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := tx.Exec(ctx, query,
		s.ID,
		s.BusinessName,
		s.Website,
		s.Location,
		s.PropertyTypes,
		s.WorkingHours,
		s.Phone,
		string(s.APIProvider),
		s.SystemPrompt,
		s.CreatedAt,
	); err != nil {
		return fmt.Errorf("sessions: insert session: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO agent_configs (session_id) VALUES ($1)`, s.ID); err != nil {
		return fmt.Errorf("sessions: insert agent config: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO stats (session_id) VALUES ($1)`, s.ID); err != nil {
		return fmt.Errorf("sessions: insert stats: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sessions: commit create: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, business_name, COALESCE(website, ''), location, property_types,
		       working_hours, phone, api_provider, COALESCE(system_prompt, ''), created_at
		FROM sessions
		WHERE id = $1
	`
	var (
		s        Session
		website  string
		provider string
	)
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.BusinessName,
		&website,
		&s.Location,
		&s.PropertyTypes,
		&s.WorkingHours,
		&s.Phone,
		&provider,
		&s.SystemPrompt,
		&s.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("sessions: select failed: %w", err)
	}
	if website != "" {
		s.Website = &website
	}
	s.APIProvider = APIProvider(provider)
	return &s, nil
}

// Delete removes dependents first to satisfy the foreign keys.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sessions: begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"stats", "agent_configs", "messages"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE session_id = $1", id); err != nil {
			return fmt.Errorf("sessions: delete %s: %w", table, err)
		}
	}
	tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sessions: delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sessions: commit delete: %w", err)
	}
	return nil
}

// GetAgentConfig falls back to column defaults when the session has no config row.
func (r *PostgresRepository) GetAgentConfig(ctx context.Context, id string) (*AgentConfig, error) {
	query := `
		SELECT s.id,
		       COALESCE(s.system_prompt, ''),
		       COALESCE(ac.voice_provider, 'retell'),
		       COALESCE(ac.voice_id, 'default-voice'),
		       COALESCE(ac.plan, 'starter'),
		       COALESCE(ac.max_tokens, 1000),
		       COALESCE(ac.temperature, 0.7)::float8
		FROM sessions s
		LEFT JOIN agent_configs ac ON ac.session_id = s.id
		WHERE s.id = $1
	`
	var (
		cfg  AgentConfig
		plan string
	)
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&cfg.SessionID,
		&cfg.SystemPrompt,
		&cfg.VoiceProvider,
		&cfg.VoiceID,
		&plan,
		&cfg.MaxTokens,
		&cfg.Temperature,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("sessions: select agent config: %w", err)
	}
	cfg.Plan = Plan(plan)
	return &cfg, nil
}

func (r *PostgresRepository) SaveAgentConfig(ctx context.Context, cfg *AgentConfig) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sessions: begin save config: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE sessions SET system_prompt = $2 WHERE id = $1`, cfg.SessionID, cfg.SystemPrompt)
	if err != nil {
		return fmt.Errorf("sessions: update system prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	query := `
		INSERT INTO agent_configs (session_id, voice_provider, voice_id, plan, max_tokens, temperature, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			voice_provider = EXCLUDED.voice_provider,
			voice_id = EXCLUDED.voice_id,
			plan = EXCLUDED.plan,
			max_tokens = EXCLUDED.max_tokens,
			temperature = EXCLUDED.temperature,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.Exec(ctx, query,
		cfg.SessionID,
		cfg.VoiceProvider,
		cfg.VoiceID,
		string(cfg.Plan),
		cfg.MaxTokens,
		cfg.Temperature,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("sessions: upsert agent config: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sessions: commit save config: %w", err)
	}
	return nil
}
