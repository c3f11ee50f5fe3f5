// Package persona tracks the active behavioral mode per user and owns every
// transition between the assistant and companion personas.
package persona

import (
	"context"
	"fmt"

	"github.com/avachat/ava/core"
	"github.com/avachat/ava/logging"
)

// Machine is the mode state machine. Transitions:
//
//	assistant -> companion   safe-word match
//	companion -> assistant   safe-word match or exit keyword
//
// No other transitions exist. The initial state of a fresh profile is
// assistant. The machine persists each transition through the profile store
// immediately.
type Machine struct {
	profiles core.ProfileStore
	logger   logging.Logger
}

// NewMachine constructs a Machine over a profile store.
func NewMachine(profiles core.ProfileStore, logger logging.Logger) *Machine {
	return &Machine{profiles: profiles, logger: logging.OrNoOp(logger)}
}

// Current returns the user's active persona.
func (m *Machine) Current(ctx context.Context, userID string) (core.Persona, error) {
	profile, err := m.profiles.Get(ctx, userID)
	if err != nil {
		return core.PersonaAssistant, err
	}
	return core.ParsePersona(string(profile.Persona)), nil
}

// Toggle flips the persona (safe-word transition) and persists the change.
// Returns the new persona.
func (m *Machine) Toggle(ctx context.Context, userID string) (core.Persona, error) {
	profile, err := m.profiles.Get(ctx, userID)
	if err != nil {
		return core.PersonaAssistant, err
	}
	next := core.ParsePersona(string(profile.Persona)).Other()
	profile.Persona = next
	if err := m.profiles.Save(ctx, profile); err != nil {
		return core.PersonaAssistant, fmt.Errorf("persist persona toggle: %w", err)
	}
	m.logger.Info("persona toggled", "user_id", logging.ShortID(userID), "persona", next)
	return next, nil
}

// ForceAssistant returns the user to assistant mode (exit-keyword
// transition). A no-op when already in assistant mode.
func (m *Machine) ForceAssistant(ctx context.Context, userID string) error {
	profile, err := m.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	if profile.Persona == core.PersonaAssistant {
		return nil
	}
	profile.Persona = core.PersonaAssistant
	if err := m.profiles.Save(ctx, profile); err != nil {
		return fmt.Errorf("persist persona exit: %w", err)
	}
	m.logger.Info("persona forced to assistant", "user_id", logging.ShortID(userID))
	return nil
}

// RequireEligible rejects a companion-mode turn for an unverified profile.
// Assistant-mode turns always pass.
func RequireEligible(profile *core.Profile) error {
	if profile.Persona == core.PersonaCompanion && !profile.AgeVerified {
		return &core.EligibilityError{UserID: profile.ID}
	}
	return nil
}
