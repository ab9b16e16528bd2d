// Package calls simulates outbound voice calls and exposes the configuration
// a voice platform needs to run a session's agent.
package calls

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/callflow-ai/internal/events"
	"github.com/wolfman30/callflow-ai/internal/sessions"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

const (
	defaultDelay   = 2 * time.Second
	defaultMinutes = 3
	promptPreview  = 100
)

// SessionReader is the part of the session repository calls reads.
type SessionReader interface {
	Get(ctx context.Context, id string) (*sessions.Session, error)
	GetAgentConfig(ctx context.Context, id string) (*sessions.AgentConfig, error)
}

// CallRecorder adds a finished call to the session counters.
type CallRecorder interface {
	IncrementCalls(ctx context.Context, sessionID string, minutes int) error
}

// Observer counts simulated calls.
type Observer interface {
	ObserveCallSimulated()
}

// SimulateRequest is the body of POST /api/calls/simulate.
type SimulateRequest struct {
	SessionID   string `json:"session_id"`
	PhoneNumber string `json:"phone_number"`
}

type SimulateResult struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	CallDuration string `json:"call_duration"`
	BusinessName string `json:"business_name"`
}

type VoiceConfig struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voice_id"`
}

type LLMConfig struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type BusinessInfo struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// RetellConfig is everything a voice agent needs for one session.
type RetellConfig struct {
	SessionID    string       `json:"session_id"`
	SystemPrompt string       `json:"system_prompt"`
	VoiceConfig  VoiceConfig  `json:"voice_config"`
	LLMConfig    LLMConfig    `json:"llm_config"`
	BusinessInfo BusinessInfo `json:"business_info"`
}

// Service runs simulated calls.
type Service struct {
	sessions SessionReader
	stats    CallRecorder
	emitter  *events.Emitter
	observer Observer
	logger   *logging.Logger
	delay    time.Duration
	minutes  int
	now      func() time.Time
}

type Option func(*Service)

// WithDelay sets the simulated dialing time. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithMinutes sets the minutes credited per simulated call.
func WithMinutes(m int) Option {
	return func(s *Service) {
		if m > 0 {
			s.minutes = m
		}
	}
}

func WithEmitter(e *events.Emitter) Option {
	return func(s *Service) { s.emitter = e }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(sessionReader SessionReader, stats CallRecorder, opts ...Option) *Service {
	s := &Service{
		sessions: sessionReader,
		stats:    stats,
		logger:   logging.Default(),
		delay:    defaultDelay,
		minutes:  defaultMinutes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate pretends to place a call to req.PhoneNumber on behalf of the
// session and credits it to the stats. The wait honours ctx cancellation.
func (s *Service) Simulate(ctx context.Context, req SimulateRequest) (*SimulateResult, error) {
	session, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("calls: simulation interrupted: %w", ctx.Err())
		case <-timer.C:
		}
	}

	s.logger.Info("simulating call",
		"session_id", session.ID,
		"business_name", session.BusinessName,
		"phone_number", req.PhoneNumber,
		"prompt_preview", preview(session.SystemPrompt),
	)

	if err := s.stats.IncrementCalls(ctx, session.ID, s.minutes); err != nil {
		return nil, err
	}
	if s.observer != nil {
		s.observer.ObserveCallSimulated()
	}
	s.emitter.CallSimulated(ctx, events.CallEvent{
		SessionID:    session.ID,
		BusinessName: session.BusinessName,
		PhoneNumber:  req.PhoneNumber,
		Minutes:      s.minutes,
		OccurredAt:   s.now().UTC(),
	})

	return &SimulateResult{
		Status:       "success",
		Message:      "Llamada simulada exitosamente al " + req.PhoneNumber,
		CallDuration: fmt.Sprintf("%d minutos", s.minutes),
		BusinessName: session.BusinessName,
	}, nil
}

// RetellConfig assembles the voice agent configuration of a session.
func (s *Service) RetellConfig(ctx context.Context, sessionID string) (*RetellConfig, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.sessions.GetAgentConfig(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &RetellConfig{
		SessionID:    sessionID,
		SystemPrompt: cfg.SystemPrompt,
		VoiceConfig: VoiceConfig{
			Provider: orDefault(cfg.VoiceProvider, sessions.DefaultVoiceProvider),
			VoiceID:  orDefault(cfg.VoiceID, sessions.DefaultVoiceID),
		},
		LLMConfig: LLMConfig{
			MaxTokens:   positiveOr(cfg.MaxTokens, sessions.DefaultMaxTokens),
			Temperature: nonZeroOr(cfg.Temperature, sessions.DefaultTemperature),
		},
		BusinessInfo: BusinessInfo{
			Name:     session.BusinessName,
			Phone:    session.Phone,
			Location: session.Location,
		},
	}, nil
}

func preview(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= promptPreview {
		return prompt
	}
	return string(runes[:promptPreview]) + "..."
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// A stored temperature of 0 reads as unset, same as the column default.
func nonZeroOr(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
