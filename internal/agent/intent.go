package agent

import "strings"

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentGeneral     Intent = "general"
	IntentLeadCapture Intent = "lead_capture"
	IntentAppointment Intent = "appointment"
)

// Keyword tables are matched as substrings of the lower-cased message.
// Lead capture is checked first and wins when both tables match.
var (
	leadCaptureKeywords = []string{"mi nombre", "me llamo", "contacto", "teléfono", "email"}
	appointmentKeywords = []string{"cita", "visita", "ver", "agendar", "reunión"}
)

// Classify maps a raw message to an intent. It never fails: anything that
// matches no keyword is General.
func Classify(message string) Intent {
	normalized := strings.ToLower(message)
	switch {
	case containsAny(normalized, leadCaptureKeywords):
		return IntentLeadCapture
	case containsAny(normalized, appointmentKeywords):
		return IntentAppointment
	default:
		return IntentGeneral
	}
}

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentGeneral, IntentLeadCapture, IntentAppointment:
		return true
	}
	return false
}

func (i Intent) String() string { return string(i) }

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
