package sessions

import (
	"errors"

	"github.com/wolfman30/callflow-ai/internal/agent"
)

var (
	// ErrSessionNotFound is returned when a session id does not resolve.
	ErrSessionNotFound = agent.ErrSessionNotFound

	// ErrValidation wraps every request validation failure.
	ErrValidation = errors.New("validation failed")
)
