package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepositoryWithDB(mock)
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, repo := newMockRepo(t)
	req := validRequest()
	require.NoError(t, req.Validate())
	s := NewSession(&req, time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(s.ID, "Inmobiliaria Sol", pgxmock.AnyArg(), "Madrid", "pisos y áticos", "L-V 9:00-18:00", "+34911222333", "openai", s.SystemPrompt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO agent_configs").WithArgs(s.ID).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO stats").WithArgs(s.ID).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateRollsBackOnFailure(t *testing.T) {
	mock, repo := newMockRepo(t)
	s := &Session{ID: "session_1_abcdef12", APIProvider: ProviderOpenAI}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(s.ID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), "openai", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO agent_configs").WithArgs(s.ID).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), s)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Get(t *testing.T) {
	mock, repo := newMockRepo(t)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, business_name").
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "business_name", "website", "location", "property_types", "working_hours", "phone", "api_provider", "system_prompt", "created_at"}).
			AddRow("s1", "Sol", "https://sol.example", "Madrid", "pisos", "9-18", "+34", "anthropic", "prompt", created))

	s, err := repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Sol", s.BusinessName)
	require.NotNil(t, s.Website)
	assert.Equal(t, "https://sol.example", *s.Website)
	assert.Equal(t, ProviderAnthropic, s.APIProvider)
	assert.Equal(t, created, s.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetMissingWebsiteIsNil(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery("SELECT id, business_name").
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "business_name", "website", "location", "property_types", "working_hours", "phone", "api_provider", "system_prompt", "created_at"}).
			AddRow("s1", "Sol", "", "Madrid", "pisos", "9-18", "+34", "openai", "", time.Now()))

	s, err := repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, s.Website)
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery("SELECT id, business_name").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPostgresRepository_Delete(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM stats").WithArgs("s1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM agent_configs").WithArgs("s1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM messages").WithArgs("s1").WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec("DELETE FROM sessions").WithArgs("s1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM stats").WithArgs("missing").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM agent_configs").WithArgs("missing").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM messages").WithArgs("missing").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM sessions").WithArgs("missing").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetAgentConfig(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery("LEFT JOIN agent_configs").
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "system_prompt", "voice_provider", "voice_id", "plan", "max_tokens", "temperature"}).
			AddRow("s1", "prompt", "elevenlabs", "v-1", "pro", 500, 0.3))

	cfg, err := repo.GetAgentConfig(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, &AgentConfig{
		SessionID:     "s1",
		SystemPrompt:  "prompt",
		VoiceProvider: "elevenlabs",
		VoiceID:       "v-1",
		Plan:          PlanPro,
		MaxTokens:     500,
		Temperature:   0.3,
	}, cfg)
}

func TestPostgresRepository_GetAgentConfigNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery("LEFT JOIN agent_configs").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetAgentConfig(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPostgresRepository_SaveAgentConfig(t *testing.T) {
	mock, repo := newMockRepo(t)
	cfg := &AgentConfig{SessionID: "s1", SystemPrompt: "nuevo", VoiceProvider: "retell", VoiceID: "default-voice", Plan: PlanMax, MaxTokens: 800, Temperature: 0.5}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE sessions SET system_prompt").WithArgs("s1", "nuevo").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO agent_configs").
		WithArgs("s1", "retell", "default-voice", "max", 800, 0.5, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveAgentConfig(context.Background(), cfg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveAgentConfigNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE sessions SET system_prompt").WithArgs("missing", "p").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.SaveAgentConfig(context.Background(), &AgentConfig{SessionID: "missing", SystemPrompt: "p"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
