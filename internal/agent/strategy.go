package agent

import (
	"context"
	"errors"
	"fmt"
)

// Reply is what a strategy produces for one message.
type Reply struct {
	Text     string
	Metadata map[string]any
}

// Strategy generates the reply bound to one intent.
type Strategy interface {
	Respond(ctx context.Context, sc SessionContext, message string) (Reply, error)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(ctx context.Context, sc SessionContext, message string) (Reply, error)

// Respond calls f.
func (f StrategyFunc) Respond(ctx context.Context, sc SessionContext, message string) (Reply, error) {
	return f(ctx, sc, message)
}

const (
	MetadataLeadInfoRequested    = "lead_info_requested"
	MetadataAppointmentRequested = "appointment_requested"
)

var errNilProvider = errors.New("agent: text completion provider is nil")

// GeneralStrategy answers free-form questions through the completion provider.
type GeneralStrategy struct {
	provider TextCompletionProvider
}

// NewGeneralStrategy returns a strategy that calls provider once per message.
func NewGeneralStrategy(provider TextCompletionProvider) *GeneralStrategy {
	return &GeneralStrategy{provider: provider}
}

// Respond builds the business instruction and returns the provider's completion.
// Provider errors are returned as-is.
func (s *GeneralStrategy) Respond(ctx context.Context, sc SessionContext, message string) (Reply, error) {
	if s.provider == nil {
		return Reply{}, errNilProvider
	}
	text, err := s.provider.Complete(ctx, GeneralInstruction(sc), message)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text}, nil
}

// GeneralInstruction renders the instruction sent ahead of the user's message.
// When the website is empty its line is left blank.
func GeneralInstruction(sc SessionContext) string {
	websiteLine := ""
	if sc.Website != "" {
		websiteLine = "- Sitio web: " + sc.Website
	}
	return fmt.Sprintf(`Eres un asistente de IA para %s ubicada en %s.

Información de la empresa:
- Nombre: %s
- Ubicación: %s
- Tipos de propiedades: %s
- Horarios: %s
- Teléfono: %s
%s

Responde de manera amable y profesional. Si no tienes información específica sobre propiedades, deriva al usuario a contactar directamente.`,
		sc.BusinessName, sc.Location,
		sc.BusinessName, sc.Location, sc.PropertyTypes, sc.WorkingHours, sc.Phone,
		websiteLine,
	)
}

// LeadCaptureStrategy asks the prospect for their search criteria.
type LeadCaptureStrategy struct{}

// Respond renders the lead capture template. It never fails.
func (LeadCaptureStrategy) Respond(_ context.Context, sc SessionContext, _ string) (Reply, error) {
	text := fmt.Sprintf(`¡Perfecto! Me da mucho gusto poder ayudarte. Soy el asistente de %s.

Para poder darte la mejor información sobre %s en %s, me gustaría conocerte mejor.

¿Podrías compartirme:
- ¿Qué tipo de propiedad estás buscando específicamente?
- ¿En qué zona te interesa más?
- ¿Cuál es tu presupuesto aproximado?

Puedes contactarnos directamente al %s o durante nuestros horarios: %s`,
		sc.BusinessName, sc.PropertyTypes, sc.Location, sc.Phone, sc.WorkingHours)
	return Reply{
		Text:     text,
		Metadata: map[string]any{MetadataLeadInfoRequested: true},
	}, nil
}

// AppointmentStrategy invites the prospect to schedule a visit.
type AppointmentStrategy struct{}

// Respond renders the appointment template. It never fails.
func (AppointmentStrategy) Respond(_ context.Context, sc SessionContext, _ string) (Reply, error) {
	text := fmt.Sprintf(`¡Excelente! Me encanta que quieras conocer nuestras propiedades en persona.

Para agendar tu visita a %s:

📞 Llámanos al %s
🕒 Horarios: %s
📍 Ubicación: %s

Nuestro equipo te contactará para coordinar el mejor horario y preparar una selección personalizada de %s que se ajusten a lo que buscas.

¿Hay algún día y horario que te convenga más?`,
		sc.BusinessName, sc.Phone, sc.WorkingHours, sc.Location, sc.PropertyTypes)
	return Reply{
		Text:     text,
		Metadata: map[string]any{MetadataAppointmentRequested: true},
	}, nil
}
