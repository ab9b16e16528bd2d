package sessions

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID returns session_<unix seconds>_<first 8 chars of a random uuid>.
func NewID(now time.Time) string {
	return fmt.Sprintf("session_%d_%s", now.Unix(), uuid.NewString()[:8])
}

// GenerateSystemPrompt renders the persona prompt stored with the session.
// It is surfaced to voice integrations; the chat pipeline builds its own instruction.
func GenerateSystemPrompt(s *Session) string {
	websiteLine := ""
	if s.Website != nil && *s.Website != "" {
		websiteLine = "- Sitio web: " + *s.Website
	}
	return fmt.Sprintf(`Eres un asistente de IA para %[1]s ubicada en %[2]s.

Información de la empresa:
- Nombre: %[1]s
- Ubicación: %[2]s
- Tipos de propiedades: %[3]s
- Horarios: %[4]s
- Teléfono: %[5]s
%[6]s

Tu trabajo es:
1. Responder consultas sobre propiedades disponibles
2. Proporcionar información de contacto y horarios
3. Ser amable y profesional
4. Capturar información de leads (nombre, teléfono, email, tipo de propiedad buscada)
5. NO inventar propiedades específicas - deriva a un agente humano para detalles

Siempre mantén un tono profesional pero cercano, y recuerda que representas a %[1]s.`,
		s.BusinessName, s.Location, s.PropertyTypes, s.WorkingHours, s.Phone, websiteLine)
}
