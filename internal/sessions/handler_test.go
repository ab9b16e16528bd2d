package sessions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepo struct {
	*InMemoryRepository
}

func (failingRepo) Create(context.Context, *Session) error { return assert.AnError }

func (failingRepo) Get(context.Context, string) (*Session, error) { return nil, assert.AnError }

func newTestRouter(repo Repository) http.Handler {
	h := NewHandler(repo, quietLogger())
	h.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Post("/api/sessions", h.Create)
	r.Get("/api/sessions/{sessionID}", h.Get)
	r.Delete("/api/sessions/{sessionID}", h.Delete)
	r.Get("/api/sessions/{sessionID}/agent-config", h.GetAgentConfig)
	r.Put("/api/sessions/{sessionID}/agent-config", h.UpdateAgentConfig)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const createBody = `{
	"business_name": "Inmobiliaria Sol",
	"location": "Madrid",
	"property_types": "pisos",
	"working_hours": "L-V 9-18",
	"phone": "+34911222333",
	"api_provider": "anthropic"
}`

func TestHandler_SessionLifecycle(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newTestRouter(repo)

	rec := do(t, router, http.MethodPost, "/api/sessions", createBody)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeBody(t, rec)
	assert.Equal(t, "created", created["status"])
	id, _ := created["session_id"].(string)
	assert.True(t, strings.HasPrefix(id, "session_1740823200_"))

	rec = do(t, router, http.MethodGet, "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "Inmobiliaria Sol", got["business_name"])
	assert.Equal(t, "anthropic", got["api_provider"])
	assert.Nil(t, got["website"])
	assert.Contains(t, got["system_prompt"], "Inmobiliaria Sol")

	rec = do(t, router, http.MethodDelete, "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deleted", decodeBody(t, rec)["status"])

	rec = do(t, router, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Sesión no encontrada", decodeBody(t, rec)["detail"])
}

func TestHandler_CreateValidation(t *testing.T) {
	router := newTestRouter(NewInMemoryRepository())

	rec := do(t, router, http.MethodPost, "/api/sessions", `{"business_name": ""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["detail"], "business_name")

	rec = do(t, router, http.MethodPost, "/api/sessions", `not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandler_RepositoryErrors(t *testing.T) {
	router := newTestRouter(failingRepo{NewInMemoryRepository()})

	rec := do(t, router, http.MethodPost, "/api/sessions", createBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(decodeBody(t, rec)["detail"].(string), "Error creando sesión: "))

	rec = do(t, router, http.MethodGet, "/api/sessions/any", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(decodeBody(t, rec)["detail"].(string), "Error obteniendo sesión: "))
}

func TestHandler_DeleteMissing(t *testing.T) {
	router := newTestRouter(NewInMemoryRepository())
	rec := do(t, router, http.MethodDelete, "/api/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_AgentConfig(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newTestRouter(repo)

	rec := do(t, router, http.MethodPost, "/api/sessions", createBody)
	require.Equal(t, http.StatusOK, rec.Code)
	id := decodeBody(t, rec)["session_id"].(string)

	rec = do(t, router, http.MethodGet, "/api/sessions/"+id+"/agent-config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decodeBody(t, rec)
	assert.Equal(t, "retell", cfg["voice_provider"])
	assert.Equal(t, "starter", cfg["plan"])
	assert.EqualValues(t, 1000, cfg["max_tokens"])

	rec = do(t, router, http.MethodPut, "/api/sessions/"+id+"/agent-config", `{"plan":"pro","system_prompt":"Sé breve.","temperature":0.2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg = decodeBody(t, rec)
	assert.Equal(t, "pro", cfg["plan"])
	assert.Equal(t, "Sé breve.", cfg["system_prompt"])
	assert.Equal(t, "default-voice", cfg["voice_id"])

	s, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Sé breve.", s.SystemPrompt)

	rec = do(t, router, http.MethodPut, "/api/sessions/"+id+"/agent-config", `{"temperature":3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/sessions/missing/agent-config", `{"plan":"max"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/sessions/missing/agent-config", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
