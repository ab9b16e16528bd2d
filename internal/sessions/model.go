package sessions

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/callflow-ai/internal/agent"
)

// APIProvider names the LLM provider a session's general strategy uses.
type APIProvider string

const (
	ProviderOpenAI     APIProvider = "openai"
	ProviderAnthropic  APIProvider = "anthropic"
	ProviderOpenRouter APIProvider = "openrouter"
	ProviderGoogle     APIProvider = "google"
)

func (p APIProvider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter, ProviderGoogle:
		return true
	}
	return false
}

type Plan string

const (
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
	PlanMax     Plan = "max"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanStarter, PlanPro, PlanMax:
		return true
	}
	return false
}

// Agent config defaults, matching the column defaults of agent_configs.
const (
	DefaultVoiceProvider = "retell"
	DefaultVoiceID       = "default-voice"
	DefaultMaxTokens     = 1000
	DefaultTemperature   = 0.7
)

var voiceProviders = map[string]bool{"retell": true, "elevenlabs": true}

// Session is one configured business.
type Session struct {
	ID            string      `json:"id"`
	BusinessName  string      `json:"business_name"`
	Website       *string     `json:"website"`
	Location      string      `json:"location"`
	PropertyTypes string      `json:"property_types"`
	WorkingHours  string      `json:"working_hours"`
	Phone         string      `json:"phone"`
	APIProvider   APIProvider `json:"api_provider"`
	CreatedAt     time.Time   `json:"created_at"`
	SystemPrompt  string      `json:"system_prompt"`
}

// Context projects the session into what the agent pipeline reads.
func (s *Session) Context() agent.SessionContext {
	sc := agent.SessionContext{
		BusinessName:  s.BusinessName,
		Location:      s.Location,
		PropertyTypes: s.PropertyTypes,
		WorkingHours:  s.WorkingHours,
		Phone:         s.Phone,
		APIProvider:   string(s.APIProvider),
	}
	if s.Website != nil {
		sc.Website = *s.Website
	}
	return sc
}

// CreateRequest is the body of POST /api/sessions.
type CreateRequest struct {
	BusinessName  string      `json:"business_name"`
	Website       *string     `json:"website"`
	Location      string      `json:"location"`
	PropertyTypes string      `json:"property_types"`
	WorkingHours  string      `json:"working_hours"`
	Phone         string      `json:"phone"`
	APIProvider   APIProvider `json:"api_provider"`
}

// Validate checks field lengths in characters and normalizes defaults.
func (r *CreateRequest) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"business_name", r.BusinessName, 200},
		{"location", r.Location, 100},
		{"property_types", r.PropertyTypes, 200},
		{"working_hours", r.WorkingHours, 100},
		{"phone", r.Phone, 20},
	}
	for _, f := range fields {
		if n := utf8.RuneCountInString(f.value); n < 1 || n > f.max {
			return fmt.Errorf("%w: %s must be 1-%d characters", ErrValidation, f.name, f.max)
		}
	}
	if r.APIProvider == "" {
		r.APIProvider = ProviderOpenAI
	}
	if !r.APIProvider.Valid() {
		return fmt.Errorf("%w: api_provider must be one of openai, anthropic, openrouter, google", ErrValidation)
	}
	return nil
}

// NewSession builds a session from a validated request.
func NewSession(req *CreateRequest, now time.Time) *Session {
	s := &Session{
		ID:            NewID(now),
		BusinessName:  req.BusinessName,
		Location:      req.Location,
		PropertyTypes: req.PropertyTypes,
		WorkingHours:  req.WorkingHours,
		Phone:         req.Phone,
		APIProvider:   req.APIProvider,
		CreatedAt:     now,
	}
	if req.Website != nil && *req.Website != "" {
		website := *req.Website
		s.Website = &website
	}
	s.SystemPrompt = GenerateSystemPrompt(s)
	return s
}

// AgentConfig is the voice and generation configuration of a session.
type AgentConfig struct {
	SessionID     string  `json:"session_id"`
	SystemPrompt  string  `json:"system_prompt"`
	VoiceProvider string  `json:"voice_provider"`
	VoiceID       string  `json:"voice_id"`
	Plan          Plan    `json:"plan"`
	MaxTokens     int     `json:"max_tokens"`
	Temperature   float64 `json:"temperature"`
}

// DefaultAgentConfig mirrors the row created alongside a new session.
func DefaultAgentConfig(s *Session) *AgentConfig {
	return &AgentConfig{
		SessionID:     s.ID,
		SystemPrompt:  s.SystemPrompt,
		VoiceProvider: DefaultVoiceProvider,
		VoiceID:       DefaultVoiceID,
		Plan:          PlanStarter,
		MaxTokens:     DefaultMaxTokens,
		Temperature:   DefaultTemperature,
	}
}

// AgentConfigUpdate is the body of PUT /api/sessions/{id}/agent-config.
// Absent fields keep their current value.
type AgentConfigUpdate struct {
	SystemPrompt  *string  `json:"system_prompt"`
	VoiceProvider *string  `json:"voice_provider"`
	VoiceID       *string  `json:"voice_id"`
	Plan          *Plan    `json:"plan"`
	MaxTokens     *int     `json:"max_tokens"`
	Temperature   *float64 `json:"temperature"`
}

func (u *AgentConfigUpdate) Validate() error {
	if u.VoiceProvider != nil && !voiceProviders[*u.VoiceProvider] {
		return fmt.Errorf("%w: voice_provider must be retell or elevenlabs", ErrValidation)
	}
	if u.VoiceID != nil && (*u.VoiceID == "" || utf8.RuneCountInString(*u.VoiceID) > 50) {
		return fmt.Errorf("%w: voice_id must be 1-50 characters", ErrValidation)
	}
	if u.Plan != nil && !u.Plan.Valid() {
		return fmt.Errorf("%w: plan must be one of starter, pro, max", ErrValidation)
	}
	if u.MaxTokens != nil && *u.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive", ErrValidation)
	}
	if u.Temperature != nil && (*u.Temperature < 0 || *u.Temperature > 2) {
		return fmt.Errorf("%w: temperature must be between 0 and 2", ErrValidation)
	}
	return nil
}

// Apply merges the update into cfg.
func (u *AgentConfigUpdate) Apply(cfg *AgentConfig) {
	if u.SystemPrompt != nil {
		cfg.SystemPrompt = *u.SystemPrompt
	}
	if u.VoiceProvider != nil {
		cfg.VoiceProvider = *u.VoiceProvider
	}
	if u.VoiceID != nil {
		cfg.VoiceID = *u.VoiceID
	}
	if u.Plan != nil {
		cfg.Plan = *u.Plan
	}
	if u.MaxTokens != nil {
		cfg.MaxTokens = *u.MaxTokens
	}
	if u.Temperature != nil {
		cfg.Temperature = *u.Temperature
	}
}
