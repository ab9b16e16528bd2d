package chat

import (
	"context"
	"time"

	"github.com/wolfman30/callflow-ai/internal/agent"
	"github.com/wolfman30/callflow-ai/internal/events"
	"github.com/wolfman30/callflow-ai/internal/llm"
	"github.com/wolfman30/callflow-ai/internal/sessions"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

const (
	defaultHistoryLimit = 10
	defaultUserType     = "user"
)

// Request is the body of POST /api/chat.
type Request struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	UserType  string `json:"user_type"`
}

// Response is the persisted AI reply.
type Response struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Sender    agent.Sender   `json:"sender"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Metadata  map[string]any `json:"metadata"`
}

// SessionStore is the part of the session repository chat reads.
// Session lookups go through an agent.ContextProvider built on top of it.
type SessionStore interface {
	Get(ctx context.Context, id string) (*sessions.Session, error)
	GetAgentConfig(ctx context.Context, id string) (*sessions.AgentConfig, error)
}

// ProviderFactory builds the completion provider for a session's api_provider.
type ProviderFactory interface {
	Provider(name string, params llm.Params) agent.TextCompletionProvider
}

// ActivityRecorder updates the session counters after a turn.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, sessionID string, intent agent.Intent) error
}

type messageStore interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]agent.ConversationTurn, error)
	Insert(ctx context.Context, sessionID, content string, sender agent.Sender, metadata map[string]any) (string, error)
	History(ctx context.Context, sessionID string, limit int) ([]Message, error)
}

// Service processes chat turns.
type Service struct {
	sessions     SessionStore
	contexts     agent.ContextProvider
	messages     messageStore
	providers    ProviderFactory
	stats        ActivityRecorder
	emitter      *events.Emitter
	observer     agent.Observer
	logger       *logging.Logger
	historyLimit int
	now          func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithEmitter(e *events.Emitter) ServiceOption {
	return func(s *Service) { s.emitter = e }
}

func WithPipelineObserver(o agent.Observer) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// WithContextProvider replaces the repository-backed session context lookup.
func WithContextProvider(p agent.ContextProvider) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.contexts = p
		}
	}
}

func WithLogger(logger *logging.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHistoryLimit sets how many previous messages are loaded per turn.
func WithHistoryLimit(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

func NewService(sessionStore SessionStore, messages messageStore, providers ProviderFactory, stats ActivityRecorder, opts ...ServiceOption) *Service {
	s := &Service{
		sessions:     sessionStore,
		contexts:     sessions.NewContextProvider(sessionStore),
		messages:     messages,
		providers:    providers,
		stats:        stats,
		logger:       logging.Default(),
		historyLimit: defaultHistoryLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessMessage stores the user message, runs the pipeline and stores the reply.
// Unknown sessions return sessions.ErrSessionNotFound.
func (s *Service) ProcessMessage(ctx context.Context, req Request) (*Response, error) {
	if req.UserType == "" {
		req.UserType = defaultUserType
	}

	sc, err := s.contexts.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	history, err := s.messages.Recent(ctx, req.SessionID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	if _, err := s.messages.Insert(ctx, req.SessionID, req.Message, agent.Sender(req.UserType), nil); err != nil {
		return nil, err
	}

	result, err := s.pipeline(ctx, req.SessionID, sc.APIProvider).Process(ctx, agent.Input{
		Session: sc,
		Message: req.Message,
		History: history,
	})
	if err != nil {
		return nil, err
	}

	metadata := result.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	aiID, err := s.messages.Insert(ctx, req.SessionID, result.Response, agent.SenderAI, metadata)
	if err != nil {
		return nil, err
	}
	if err := s.stats.RecordActivity(ctx, req.SessionID, result.ResponseType); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	s.emit(ctx, req.SessionID, sc.BusinessName, aiID, req.Message, result.ResponseType, now)
	s.logger.Info("chat message processed",
		"session_id", req.SessionID,
		"intent", result.ResponseType.String(),
		"history_len", len(history),
	)

	return &Response{
		ID:        aiID,
		Content:   result.Response,
		Sender:    agent.SenderAI,
		Timestamp: now,
		SessionID: req.SessionID,
		Metadata:  metadata,
	}, nil
}

// History returns up to limit messages, oldest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	return s.messages.History(ctx, sessionID, limit)
}

func (s *Service) pipeline(ctx context.Context, sessionID, provider string) *agent.Pipeline {
	params := llm.Params{MaxTokens: sessions.DefaultMaxTokens, Temperature: sessions.DefaultTemperature}
	cfg, err := s.sessions.GetAgentConfig(ctx, sessionID)
	if err != nil {
		s.logger.Warn("agent config unavailable, using defaults", "session_id", sessionID, "error", err)
	} else {
		params = llm.Params{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}
	}

	opts := []agent.Option{agent.WithLogger(s.logger)}
	if s.observer != nil {
		opts = append(opts, agent.WithObserver(s.observer))
	}
	return agent.NewPipeline(s.providers.Provider(provider, params), opts...)
}

func (s *Service) emit(ctx context.Context, sessionID, businessName, messageID, message string, intent agent.Intent, at time.Time) {
	ev := events.ConversationEvent{
		SessionID:    sessionID,
		BusinessName: businessName,
		MessageID:    messageID,
		Message:      message,
		Intent:       intent.String(),
		OccurredAt:   at,
	}
	switch intent {
	case agent.IntentLeadCapture:
		s.emitter.LeadCaptured(ctx, ev)
	case agent.IntentAppointment:
		s.emitter.AppointmentRequested(ctx, ev)
	}
}
