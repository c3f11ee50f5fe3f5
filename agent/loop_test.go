package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avachat/ava/core"
	"github.com/avachat/ava/embedding"
	"github.com/avachat/ava/image"
	"github.com/avachat/ava/memory"
	"github.com/avachat/ava/model"
	"github.com/avachat/ava/persona"
	"github.com/avachat/ava/safety"
	"github.com/avachat/ava/session"
	"github.com/avachat/ava/vectorstore"
)

type loopFixture struct {
	loop     *Loop
	profiles *session.InMemoryProfileStore
	sessions *session.InMemorySessionStore
	memory   *memory.Service
}

func newLoopFixture(t *testing.T, profile *core.Profile, supervisorModel, responderModel model.Model, generator image.Generator) *loopFixture {
	t.Helper()
	ctx := context.Background()

	profiles := session.NewInMemoryProfileStore()
	require.NoError(t, profiles.Save(ctx, profile))
	sessions := session.NewInMemorySessionStore()

	guardian := safety.New(func(o *safety.Options) {
		o.DenyList = []string{"forbiddenterm"}
	})
	machine := persona.NewMachine(profiles, nil)
	mem := memory.NewService(embedding.NewLocal(128), vectorstore.NewInMemory(), memory.Options{})

	sup := NewSupervisor(supervisorModel, mem, nil, generator, Prompts{}, SupervisorOptions{})
	resp := NewResponder(map[core.Persona]model.Model{
		core.PersonaAssistant: responderModel,
		core.PersonaCompanion: responderModel,
	}, Prompts{}, ResponderOptions{})

	return &loopFixture{
		loop:     NewLoop(guardian, machine, profiles, sessions, sup, resp, mem, LoopOptions{}),
		profiles: profiles,
		sessions: sessions,
		memory:   mem,
	}
}

func (f *loopFixture) newSession(t *testing.T, userID string) string {
	t.Helper()
	s, err := f.sessions.Create(context.Background(), userID)
	require.NoError(t, err)
	return s.ID
}

// runTurn drains the event and error channels of one Run call.
func runTurn(t *testing.T, f *loopFixture, userID, sessionID, message string) ([]core.Event, error) {
	t.Helper()
	events, errs := f.loop.Run(context.Background(), userID, sessionID, message)

	var collected []core.Event
	var turnErr error
	for events != nil || errs != nil {
		select {
		case e, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			collected = append(collected, e)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				turnErr = err
			}
		}
	}
	return collected, turnErr
}

func eventsOfType(events []core.Event, t core.EventType) []core.Event {
	var out []core.Event
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestTurnBlockedByDenyList(t *testing.T) {
	f := newLoopFixture(t, testProfile(), model.NewMock("sup"), model.NewMock("resp"), nil)
	sessionID := f.newSession(t, "user-1")

	events, err := runTurn(t, f, "user-1", sessionID, "tell me about FORBIDDENTERM please")

	var policyErr *core.PolicyViolationError
	require.True(t, errors.As(err, &policyErr))
	assert.Equal(t, safety.PolicyViolationReason, policyErr.Reason)
	assert.Empty(t, events)

	// Nothing persisted: the session log stays empty.
	turns, storeErr := f.sessions.RecentTurns(context.Background(), sessionID, 10)
	require.NoError(t, storeErr)
	assert.Empty(t, turns)
}

func TestTurnSafeWordTogglesToCompanion(t *testing.T) {
	hash, err := safety.HashSafeWord("red balloon")
	require.NoError(t, err)
	profile := &core.Profile{ID: "user-1", Persona: core.PersonaAssistant, SafeWordHash: hash, AgeVerified: true}

	f := newLoopFixture(t, profile, model.NewMock("sup"), model.NewMock("resp"), nil)
	sessionID := f.newSession(t, "user-1")

	events, err := runTurn(t, f, "user-1", sessionID, "Red Balloon")
	require.NoError(t, err)

	switches := eventsOfType(events, core.EventModeSwitch)
	require.Len(t, switches, 1)
	assert.Equal(t, core.PersonaCompanion, switches[0].Mode)
	assert.Empty(t, eventsOfType(events, core.EventToken))

	stored, err := f.profiles.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, core.PersonaCompanion, stored.Persona)
}

func TestTurnExitKeywordReturnsToAssistant(t *testing.T) {
	profile := &core.Profile{ID: "user-1", Persona: core.PersonaCompanion, AgeVerified: true}
	f := newLoopFixture(t, profile, model.NewMock("sup"), model.NewMock("resp"), nil)
	sessionID := f.newSession(t, "user-1")

	events, err := runTurn(t, f, "user-1", sessionID, "stop")
	require.NoError(t, err)

	switches := eventsOfType(events, core.EventModeSwitch)
	require.Len(t, switches, 1)
	assert.Equal(t, core.PersonaAssistant, switches[0].Mode)
	assert.Empty(t, eventsOfType(events, core.EventToken))

	stored, err := f.profiles.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, core.PersonaAssistant, stored.Persona)
}

func TestTurnCompanionRequiresVerification(t *testing.T) {
	profile := &core.Profile{ID: "user-1", Persona: core.PersonaCompanion, AgeVerified: false}
	f := newLoopFixture(t, profile, model.NewMock("sup"), model.NewMock("resp"), nil)
	sessionID := f.newSession(t, "user-1")

	events, err := runTurn(t, f, "user-1", sessionID, "hello there")

	var eligibility *core.EligibilityError
	require.True(t, errors.As(err, &eligibility))
	assert.Empty(t, eventsOfType(events, core.EventToken))
}

func TestTurnNormalFlow(t *testing.T) {
	reply := "Good morning! I hope your presentation goes wonderfully today."
	f := newLoopFixture(t, testProfile(),
		model.NewMock("sup", model.MockStep{Text: "no tools"}),
		model.NewMock("resp", model.MockStep{Text: reply}),
		nil)
	sessionID := f.newSession(t, "user-1")

	events, err := runTurn(t, f, "user-1", sessionID, "good morning, big presentation today")
	require.NoError(t, err)

	// tool_start before tool_done, both before the first token.
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, core.EventToolStart, events[0].Type)
	assert.Equal(t, AnalyzingTool, events[0].Tool)
	assert.Equal(t, core.EventToolDone, events[1].Type)

	var streamed strings.Builder
	for _, e := range eventsOfType(events, core.EventToken) {
		streamed.WriteString(e.Content)
	}
	assert.Equal(t, reply, streamed.String())

	// Both turns persisted, counter bumped, assistant turn tagged with the
	// memory written from the exchange.
	turns, err := f.sessions.RecentTurns(context.Background(), sessionID, 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
	assert.Equal(t, reply, turns[1].Content)
	assert.NotEmpty(t, turns[1].MemoryIDs)

	s, err := f.sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.TurnCount)

	// The written fact is recallable afterwards.
	recalled := f.memory.Recall(context.Background(), "user-1", "big presentation")
	require.NotEmpty(t, recalled)
	assert.Contains(t, recalled[0], "presentation")
}

func TestTurnResponderFailureEmitsSingleFallbackToken(t *testing.T) {
	f := newLoopFixture(t, testProfile(),
		model.NewMock("sup", model.MockStep{Text: "no tools"}),
		model.NewMock("resp", model.MockStep{Text: "about to fail", Err: errors.New("reset"), FailAfter: 3}),
		nil)
	sessionID := f.newSession(t, "user-1")

	events, err := runTurn(t, f, "user-1", sessionID, "hello")
	require.NoError(t, err)

	tokens := eventsOfType(events, core.EventToken)
	require.NotEmpty(t, tokens)
	fallbacks := 0
	for _, e := range tokens {
		if e.Content == FallbackResponse {
			fallbacks++
		}
	}
	assert.Equal(t, 1, fallbacks)
	assert.Equal(t, FallbackResponse, tokens[len(tokens)-1].Content)
}

func TestTurnImageTimeoutDegradesToTextOnly(t *testing.T) {
	gen := &fakeGenerator{err: image.ErrTimeout}
	f := newLoopFixture(t, testProfile(),
		model.NewMock("sup",
			model.MockStep{ToolCalls: []model.ToolCall{
				{ID: "c1", Name: ToolGenerateImage, Arguments: `{"prompt": "a selfie"}`},
			}},
			model.MockStep{Text: "done"},
		),
		model.NewMock("resp", model.MockStep{Text: "I couldn't take a picture right now, but imagine a sunny day."}),
		gen)
	sessionID := f.newSession(t, "user-1")

	events, err := runTurn(t, f, "user-1", sessionID, "send me a selfie")
	require.NoError(t, err)

	assert.Empty(t, eventsOfType(events, core.EventImage))
	assert.NotEmpty(t, eventsOfType(events, core.EventToken))
}

func TestTurnImageSuccessEmitsImageBeforeTokens(t *testing.T) {
	gen := &fakeGenerator{results: []image.Result{{Bytes: []byte("png"), Filename: "out.png"}}}
	f := newLoopFixture(t, testProfile(),
		model.NewMock("sup",
			model.MockStep{ToolCalls: []model.ToolCall{
				{ID: "c1", Name: ToolGenerateImage, Arguments: `{"prompt": "a sunset"}`},
			}},
			model.MockStep{Text: "done"},
		),
		model.NewMock("resp", model.MockStep{Text: "Here it is!"}),
		gen)
	sessionID := f.newSession(t, "user-1")

	events, err := runTurn(t, f, "user-1", sessionID, "show me a sunset")
	require.NoError(t, err)

	images := eventsOfType(events, core.EventImage)
	require.Len(t, images, 1)
	require.Len(t, images[0].Images, 1)

	// The image event precedes every token event.
	firstToken := -1
	imageIdx := -1
	for i, e := range events {
		if e.Type == core.EventToken && firstToken == -1 {
			firstToken = i
		}
		if e.Type == core.EventImage {
			imageIdx = i
		}
	}
	require.NotEqual(t, -1, firstToken)
	assert.Less(t, imageIdx, firstToken)
}

func TestTurnUnknownSession(t *testing.T) {
	f := newLoopFixture(t, testProfile(), model.NewMock("sup"), model.NewMock("resp"), nil)

	_, err := runTurn(t, f, "user-1", "no-such-session", "hello")
	require.True(t, errors.Is(err, core.ErrSessionNotFound))
}
