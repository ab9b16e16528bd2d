package agent

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned by context providers when a session id does not resolve.
// The pipeline itself never returns it.
var ErrSessionNotFound = errors.New("session not found")

// SessionContext is the business profile the strategies read.
// Website is optional; an empty string means the business has none.
type SessionContext struct {
	BusinessName  string `json:"business_name"`
	Location      string `json:"location"`
	PropertyTypes string `json:"property_types"`
	WorkingHours  string `json:"working_hours"`
	Phone         string `json:"phone"`
	Website       string `json:"website,omitempty"`
	// APIProvider names the completion backend chosen for the session.
	APIProvider   string `json:"api_provider,omitempty"`
}

// ContextProvider resolves a session id into the context the pipeline consumes.
type ContextProvider interface {
	GetSession(ctx context.Context, sessionID string) (SessionContext, error)
}

// Sender identifies who authored a conversation turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ConversationTurn is one persisted message of a session, oldest first when in a slice.
type ConversationTurn struct {
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// loadContext projects the caller's session into the shape strategies read.
// Currently the identity; enrichment hooks in here without touching strategies.
func loadContext(sc SessionContext) SessionContext {
	return sc
}
