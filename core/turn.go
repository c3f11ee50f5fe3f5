package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn authored by the human.
	RoleUser Role = "user"
	// RoleAssistant marks a turn authored by the agent.
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a session's ordered conversation log. Immutable once
// created, except that the memory subsystem tags the produced assistant turn
// with the ids of the facts derived from it after the stream completes.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Persona   Persona   `json:"persona"` // persona at time of creation
	MemoryIDs []string  `json:"memory_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn constructs a Turn with a fresh id and UTC timestamp.
func NewTurn(sessionID, userID string, role Role, content string, persona Persona) Turn {
	return Turn{
		ID:        NewID(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		Persona:   persona,
		CreatedAt: time.Now().UTC(),
	}
}

// Session groups the turns of one conversation.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
	TurnCount int       `json:"turn_count"`
}

// SessionStore persists sessions and their ordered turn logs.
// Implementations must be safe for concurrent use. Two concurrent turns
// against the same session may interleave counter updates; that race is
// accepted rather than guarded.
type SessionStore interface {
	// Create opens a new session owned by userID.
	Create(ctx context.Context, userID string) (*Session, error)

	// Get returns the session or ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// AppendTurn appends one turn to the session's ordered log.
	AppendTurn(ctx context.Context, turn Turn) error

	// TagTurnMemories records memory ids on a previously appended turn.
	TagTurnMemories(ctx context.Context, turnID string, memoryIDs []string) error

	// RecentTurns returns up to limit most recent turns in chronological order.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)

	// IncrementTurnCount adds n to the session's turn counter.
	IncrementTurnCount(ctx context.Context, sessionID string, n int) error
}

// NewID generates a unique identifier for turns, sessions, events and
// memory vectors.
func NewID() string { return uuid.NewString() }
