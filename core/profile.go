package core

import (
	"context"
	"time"
)

// Profile is the session-independent user record the orchestration engine
// reads at the start of every turn. The persona field is mutated only by the
// mode state machine; everything else is owned by external onboarding flows.
type Profile struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name,omitempty"`
	SafeWordHash string    `json:"safe_word_hash,omitempty"` // bcrypt hash, never the plaintext
	ExitWord     string    `json:"exit_word,omitempty"`      // optional per-user override of the default exit keywords
	Persona      Persona   `json:"persona"`
	AgeVerified  bool      `json:"age_verified"`
	AvatarRef    string    `json:"avatar_ref,omitempty"` // backend-side reference image name for generation
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at,omitempty"`
}

// Clone returns a copy safe for mutation by the caller.
func (p *Profile) Clone() *Profile {
	cp := *p
	return &cp
}

// ProfileStore persists user profiles. Implementations must be safe for
// concurrent use; each write is assumed transactional on its own.
type ProfileStore interface {
	// Get returns the profile for the user or ErrProfileNotFound.
	Get(ctx context.Context, userID string) (*Profile, error)

	// Save persists the full profile record.
	Save(ctx context.Context, profile *Profile) error
}
