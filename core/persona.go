package core

import "fmt"

// Persona is the active behavioral mode of a user's conversation. It selects
// the system prompt, the response model and whether the explicit-content
// gating applies. Exactly one persona is active per user at any instant.
type Persona string

const (
	// PersonaAssistant is the default task-oriented mode ("Jarvis").
	PersonaAssistant Persona = "assistant"
	// PersonaCompanion is the intimate companion mode ("Her"). Requires an
	// externally verified eligibility flag on the profile.
	PersonaCompanion Persona = "companion"
)

// Valid reports whether p is one of the two known personas.
func (p Persona) Valid() bool {
	return p == PersonaAssistant || p == PersonaCompanion
}

// Other returns the opposite persona. Used by the safe-word toggle.
func (p Persona) Other() Persona {
	if p == PersonaCompanion {
		return PersonaAssistant
	}
	return PersonaCompanion
}

// ParsePersona converts a stored string into a Persona, defaulting unknown
// values to the assistant persona rather than failing: a corrupt profile row
// must never lock a user into companion mode.
func ParsePersona(s string) Persona {
	if Persona(s) == PersonaCompanion {
		return PersonaCompanion
	}
	return PersonaAssistant
}

func (p Persona) String() string { return string(p) }

// GoString implements fmt.GoStringer for readable test failure output.
func (p Persona) GoString() string { return fmt.Sprintf("core.Persona(%q)", string(p)) }
