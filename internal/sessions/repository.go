package sessions

import (
	"context"
	"sync"

	"github.com/wolfman30/callflow-ai/internal/agent"
)

// Repository defines the interface for session storage.
type Repository interface {
	// Create stores the session together with its default agent config and zeroed stats.
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// Delete removes the session and everything that references it.
	Delete(ctx context.Context, id string) error
	GetAgentConfig(ctx context.Context, id string) (*AgentConfig, error)
	// SaveAgentConfig writes the config and the session's system prompt.
	SaveAgentConfig(ctx context.Context, cfg *AgentConfig) error
}

// InMemoryRepository keeps sessions in a map. Used in tests and local runs without Postgres.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	configs  map[string]*AgentConfig
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]*Session),
		configs:  make(map[string]*AgentConfig),
	}
}

func (r *InMemoryRepository) Create(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *s
	r.sessions[s.ID] = &stored
	r.configs[s.ID] = DefaultAgentConfig(s)
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := *s
	return &out, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	delete(r.configs, id)
	return nil
}

func (r *InMemoryRepository) GetAgentConfig(_ context.Context, id string) (*AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cfg, ok := r.configs[id]
	if !ok {
		return DefaultAgentConfig(s), nil
	}
	out := *cfg
	out.SystemPrompt = s.SystemPrompt
	return &out, nil
}

func (r *InMemoryRepository) SaveAgentConfig(_ context.Context, cfg *AgentConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[cfg.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	s.SystemPrompt = cfg.SystemPrompt
	stored := *cfg
	r.configs[cfg.SessionID] = &stored
	return nil
}

// Getter is the read side of Repository.
type Getter interface {
	Get(ctx context.Context, id string) (*Session, error)
}

// ContextProvider resolves session ids for the agent pipeline.
type ContextProvider struct {
	sessions Getter
}

var _ agent.ContextProvider = (*ContextProvider)(nil)

func NewContextProvider(sessions Getter) *ContextProvider {
	return &ContextProvider{sessions: sessions}
}

func (p *ContextProvider) GetSession(ctx context.Context, id string) (agent.SessionContext, error) {
	s, err := p.sessions.Get(ctx, id)
	if err != nil {
		return agent.SessionContext{}, err
	}
	return s.Context(), nil
}
