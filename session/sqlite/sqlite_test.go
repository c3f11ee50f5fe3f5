package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avachat/ava/core"
)

var (
	_ core.ProfileStore = (*Store)(nil)
	_ core.SessionStore = (*sessionView)(nil)
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ava.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestProfileRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "nobody")
	require.ErrorIs(t, err, core.ErrProfileNotFound)

	profile := &core.Profile{
		ID:           "user-1",
		DisplayName:  "Sam",
		SafeWordHash: "$2a$10$fakehash",
		Persona:      core.PersonaCompanion,
		AgeVerified:  true,
		AvatarRef:    "avatar.png",
	}
	require.NoError(t, store.Save(ctx, profile))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.DisplayName)
	assert.Equal(t, core.PersonaCompanion, got.Persona)
	assert.True(t, got.AgeVerified)
	assert.Equal(t, "$2a$10$fakehash", got.SafeWordHash)
	assert.False(t, got.CreatedAt.IsZero())

	// Save is an upsert.
	got.Persona = core.PersonaAssistant
	require.NoError(t, store.Save(ctx, got))

	got, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, core.PersonaAssistant, got.Persona)
}

func TestSessionAndTurns(t *testing.T) {
	store := openTestStore(t)
	sessions := store.Sessions()
	ctx := context.Background()

	session, err := sessions.Create(ctx, "user-1")
	require.NoError(t, err)

	got, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, 0, got.TurnCount)

	_, err = sessions.Get(ctx, "missing")
	require.ErrorIs(t, err, core.ErrSessionNotFound)

	for _, content := range []string{"a", "b", "c", "d", "e"} {
		turn := core.NewTurn(session.ID, "user-1", core.RoleUser, content, core.PersonaAssistant)
		require.NoError(t, sessions.AppendTurn(ctx, turn))
	}

	// Windowed fetch keeps chronological order within the window.
	turns, err := sessions.RecentTurns(ctx, session.ID, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "d", turns[0].Content)
	assert.Equal(t, "e", turns[1].Content)

	all, err := sessions.RecentTurns(ctx, session.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	err = sessions.AppendTurn(ctx, core.NewTurn("missing", "user-1", core.RoleUser, "x", core.PersonaAssistant))
	require.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestTagTurnMemories(t *testing.T) {
	store := openTestStore(t)
	sessions := store.Sessions()
	ctx := context.Background()

	session, err := sessions.Create(ctx, "user-1")
	require.NoError(t, err)

	turn := core.NewTurn(session.ID, "user-1", core.RoleAssistant, "reply", core.PersonaAssistant)
	require.NoError(t, sessions.AppendTurn(ctx, turn))

	require.NoError(t, sessions.TagTurnMemories(ctx, turn.ID, []string{"m1", "m2"}))

	turns, err := sessions.RecentTurns(ctx, session.ID, 1)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, []string{"m1", "m2"}, turns[0].MemoryIDs)

	err = sessions.TagTurnMemories(ctx, "missing", []string{"m1"})
	require.True(t, errors.Is(err, core.ErrTurnNotFound))
}

func TestIncrementTurnCount(t *testing.T) {
	store := openTestStore(t)
	sessions := store.Sessions()
	ctx := context.Background()

	session, err := sessions.Create(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, sessions.IncrementTurnCount(ctx, session.ID, 1))
	require.NoError(t, sessions.IncrementTurnCount(ctx, session.ID, 1))

	got, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TurnCount)

	require.ErrorIs(t, sessions.IncrementTurnCount(ctx, "missing", 1), core.ErrSessionNotFound)
}
