package calls

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/callflow-ai/internal/events"
	"github.com/wolfman30/callflow-ai/internal/sessions"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

func quietLogger() *logging.Logger {
	return logging.NewWithWriter("error", io.Discard)
}

type recordingStats struct {
	calls   int
	minutes int
	err     error
}

func (r *recordingStats) IncrementCalls(_ context.Context, _ string, minutes int) error {
	if r.err != nil {
		return r.err
	}
	r.calls++
	r.minutes += minutes
	return nil
}

type countingObserver struct{ n int }

func (c *countingObserver) ObserveCallSimulated() { c.n++ }

type capturePublisher struct{ subjects []string }

func (c *capturePublisher) Publish(_ context.Context, subject string, _ any) error {
	c.subjects = append(c.subjects, subject)
	return nil
}

func seedSession(t *testing.T) (*sessions.InMemoryRepository, *sessions.Session) {
	t.Helper()
	repo := sessions.NewInMemoryRepository()
	req := sessions.CreateRequest{
		BusinessName:  "Inmobiliaria Sol",
		Location:      "Madrid",
		PropertyTypes: "pisos",
		WorkingHours:  "L-V 9-18",
		Phone:         "+34911222333",
	}
	require.NoError(t, req.Validate())
	s := sessions.NewSession(&req, time.Now().UTC())
	require.NoError(t, repo.Create(context.Background(), s))
	return repo, s
}

func TestSimulate(t *testing.T) {
	repo, s := seedSession(t)
	stats := &recordingStats{}
	obs := &countingObserver{}
	pub := &capturePublisher{}
	svc := NewService(repo, stats,
		WithDelay(0),
		WithObserver(obs),
		WithEmitter(events.NewEmitter(pub, quietLogger())),
		WithLogger(quietLogger()),
	)

	res, err := svc.Simulate(context.Background(), SimulateRequest{SessionID: s.ID, PhoneNumber: "+34600111222"})
	require.NoError(t, err)
	assert.Equal(t, &SimulateResult{
		Status:       "success",
		Message:      "Llamada simulada exitosamente al +34600111222",
		CallDuration: "3 minutos",
		BusinessName: "Inmobiliaria Sol",
	}, res)
	assert.Equal(t, 1, stats.calls)
	assert.Equal(t, 3, stats.minutes)
	assert.Equal(t, 1, obs.n)
	assert.Equal(t, []string{events.SubjectCallSimulated}, pub.subjects)
}

func TestSimulate_UnknownSession(t *testing.T) {
	repo, _ := seedSession(t)
	stats := &recordingStats{}
	svc := NewService(repo, stats, WithDelay(0), WithLogger(quietLogger()))

	_, err := svc.Simulate(context.Background(), SimulateRequest{SessionID: "missing"})
	assert.ErrorIs(t, err, sessions.ErrSessionNotFound)
	assert.Zero(t, stats.calls)
}

func TestSimulate_CancelledDuringDelay(t *testing.T) {
	repo, s := seedSession(t)
	stats := &recordingStats{}
	svc := NewService(repo, stats, WithDelay(time.Hour), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Simulate(ctx, SimulateRequest{SessionID: s.ID, PhoneNumber: "+34600111222"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.calls)
}

func TestSimulate_CustomMinutes(t *testing.T) {
	repo, s := seedSession(t)
	stats := &recordingStats{}
	svc := NewService(repo, stats, WithDelay(time.Millisecond), WithMinutes(5), WithLogger(quietLogger()))

	res, err := svc.Simulate(context.Background(), SimulateRequest{SessionID: s.ID, PhoneNumber: "1"})
	require.NoError(t, err)
	assert.Equal(t, "5 minutos", res.CallDuration)
	assert.Equal(t, 5, stats.minutes)
}

func TestRetellConfig(t *testing.T) {
	repo, s := seedSession(t)
	cfg, err := repo.GetAgentConfig(context.Background(), s.ID)
	require.NoError(t, err)
	cfg.VoiceProvider = "elevenlabs"
	cfg.Temperature = 0
	require.NoError(t, repo.SaveAgentConfig(context.Background(), cfg))

	svc := NewService(repo, &recordingStats{}, WithLogger(quietLogger()))
	rc, err := svc.RetellConfig(context.Background(), s.ID)
	require.NoError(t, err)

	assert.Equal(t, s.ID, rc.SessionID)
	assert.Equal(t, s.SystemPrompt, rc.SystemPrompt)
	assert.Equal(t, VoiceConfig{Provider: "elevenlabs", VoiceID: "default-voice"}, rc.VoiceConfig)
	assert.Equal(t, LLMConfig{MaxTokens: 1000, Temperature: 0.7}, rc.LLMConfig)
	assert.Equal(t, BusinessInfo{Name: "Inmobiliaria Sol", Phone: "+34911222333", Location: "Madrid"}, rc.BusinessInfo)

	_, err = svc.RetellConfig(context.Background(), "missing")
	assert.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "corto", preview("corto"))
	long := strings.Repeat("ñ", 150)
	assert.Equal(t, strings.Repeat("ñ", 100)+"...", preview(long))
}

func TestHandler(t *testing.T) {
	repo, s := seedSession(t)
	svc := NewService(repo, &recordingStats{}, WithDelay(0), WithLogger(quietLogger()))
	h := NewHandler(svc, quietLogger())

	r := chi.NewRouter()
	r.Post("/api/calls/simulate", h.Simulate)
	r.Get("/api/calls/retell-config/{sessionID}", h.RetellConfig)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/calls/simulate",
		strings.NewReader(`{"session_id":"`+s.ID+`","phone_number":"+34600111222"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "3 minutos", body["call_duration"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/calls/simulate", strings.NewReader(`{"session_id":"missing","phone_number":"1"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calls/retell-config/"+s.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, map[string]any{"provider": "retell", "voice_id": "default-voice"}, cfg["voice_config"])
	assert.Equal(t, map[string]any{"max_tokens": float64(1000), "temperature": 0.7}, cfg["llm_config"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calls/retell-config/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_SimulateFailure(t *testing.T) {
	repo, s := seedSession(t)
	svc := NewService(repo, &recordingStats{err: assert.AnError}, WithDelay(0), WithLogger(quietLogger()))
	h := NewHandler(svc, quietLogger())

	rec := httptest.NewRecorder()
	h.Simulate(rec, httptest.NewRequest(http.MethodPost, "/api/calls/simulate", strings.NewReader(`{"session_id":"`+s.ID+`","phone_number":"1"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error simulando llamada: ")
}
