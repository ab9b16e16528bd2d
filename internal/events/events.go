// Package events publishes domain notifications (captured leads, requested
// appointments, simulated calls) for downstream consumers such as a CRM sync.
package events

import (
	"context"
	"time"

	"github.com/wolfman30/callflow-ai/pkg/logging"
)

const (
	SubjectLeadCaptured         = "callflow.lead.captured"
	SubjectAppointmentRequested = "callflow.appointment.requested"
	SubjectCallSimulated        = "callflow.call.simulated"
)

// ConversationEvent is emitted after a chat turn routed to lead capture or appointment.
type ConversationEvent struct {
	SessionID    string    `json:"session_id"`
	BusinessName string    `json:"business_name"`
	MessageID    string    `json:"message_id"`
	Message      string    `json:"message"`
	Intent       string    `json:"intent"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// CallEvent is emitted after a simulated call updates the stats.
type CallEvent struct {
	SessionID    string    `json:"session_id"`
	BusinessName string    `json:"business_name"`
	PhoneNumber  string    `json:"phone_number"`
	Minutes      int       `json:"minutes"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher delivers a JSON-encodable payload on subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Emitter is the best-effort front for a Publisher. A nil Emitter or one
// without a publisher drops events; publish failures are logged, never returned.
type Emitter struct {
	pub    Publisher
	logger *logging.Logger
}

func NewEmitter(pub Publisher, logger *logging.Logger) *Emitter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Emitter{pub: pub, logger: logger}
}

func (e *Emitter) LeadCaptured(ctx context.Context, ev ConversationEvent) {
	e.emit(ctx, SubjectLeadCaptured, ev)
}

func (e *Emitter) AppointmentRequested(ctx context.Context, ev ConversationEvent) {
	e.emit(ctx, SubjectAppointmentRequested, ev)
}

func (e *Emitter) CallSimulated(ctx context.Context, ev CallEvent) {
	e.emit(ctx, SubjectCallSimulated, ev)
}

func (e *Emitter) emit(ctx context.Context, subject string, payload any) {
	if e == nil || e.pub == nil {
		return
	}
	if err := e.pub.Publish(ctx, subject, payload); err != nil {
		e.logger.Warn("event publish failed", "subject", subject, "error", err)
		return
	}
	e.logger.Debug("event published", "subject", subject)
}
