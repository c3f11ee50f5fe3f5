package agent

import (
	"context"
	"fmt"

	"github.com/avachat/ava/core"
	"github.com/avachat/ava/logging"
	"github.com/avachat/ava/memory"
	"github.com/avachat/ava/persona"
	"github.com/avachat/ava/safety"
)

// User-visible mode switch notices.
const (
	companionSwitchMessage = "Mode switched to companion."
	assistantSwitchMessage = "Mode switched to assistant."
	assistantReturnMessage = "Returning to assistant mode."
)

// AnalyzingTool is the tool name reported around the supervisor phase.
const AnalyzingTool = "analyzing"

// LoopOptions configures a Loop.
type LoopOptions struct {
	// HistoryLimit caps how many turns are fetched per turn for prompt
	// construction.
	HistoryLimit int

	Logger logging.Logger
}

// Loop drives one conversational turn end to end: safety gate, mode state
// machine, supervisor tool phase, streamed response, then memory writes.
type Loop struct {
	guardian   *safety.Guardian
	machine    *persona.Machine
	profiles   core.ProfileStore
	sessions   core.SessionStore
	supervisor *Supervisor
	responder  *Responder
	memory     *memory.Service
	opts       LoopOptions
	logger     logging.Logger
}

// NewLoop wires the per-turn pipeline.
func NewLoop(guardian *safety.Guardian, machine *persona.Machine, profiles core.ProfileStore, sessions core.SessionStore, supervisor *Supervisor, responder *Responder, mem *memory.Service, opts LoopOptions) *Loop {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	return &Loop{
		guardian:   guardian,
		machine:    machine,
		profiles:   profiles,
		sessions:   sessions,
		supervisor: supervisor,
		responder:  responder,
		memory:     mem,
		opts:       opts,
		logger:     logging.OrNoOp(opts.Logger),
	}
}

// Run processes one inbound message. Events arrive on the first channel in
// emission order; a terminal failure arrives on the second. Both channels
// close when the turn ends. Each Run call is one independent task; turns
// never block each other.
func (l *Loop) Run(ctx context.Context, userID, sessionID, message string) (<-chan core.Event, <-chan error) {
	events := make(chan core.Event, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errCh)
		if err := l.runTurn(ctx, userID, sessionID, message, events); err != nil {
			errCh <- err
		}
	}()

	return events, errCh
}

func (l *Loop) runTurn(ctx context.Context, userID, sessionID, message string, events chan<- core.Event) error {
	log := l.logger

	// Safety gate first: no persistence, no model call on blocked input.
	if filtered := l.guardian.Prefilter(message); filtered.Blocked {
		return &core.PolicyViolationError{Reason: filtered.Reason}
	}

	profile, err := l.profiles.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	// Safe word: toggle persona and short-circuit, no model call.
	if l.guardian.IsSafeWord(message, profile.SafeWordHash) {
		next, err := l.machine.Toggle(ctx, userID)
		if err != nil {
			return fmt.Errorf("toggle persona: %w", err)
		}
		notice := assistantSwitchMessage
		if next == core.PersonaCompanion {
			notice = companionSwitchMessage
		}
		if !emit(ctx, events, core.NewModeSwitchEvent(next, notice)) {
			return ctx.Err()
		}
		return nil
	}

	// Exit keyword: only consulted in companion mode; forces assistant.
	if profile.Persona == core.PersonaCompanion && l.guardian.IsExitKeyword(message, profile.ExitWord) {
		if err := l.machine.ForceAssistant(ctx, userID); err != nil {
			return fmt.Errorf("exit companion mode: %w", err)
		}
		if !emit(ctx, events, core.NewModeSwitchEvent(core.PersonaAssistant, assistantReturnMessage)) {
			return ctx.Err()
		}
		return nil
	}

	if err := persona.RequireEligible(profile); err != nil {
		return err
	}

	// Persona is read once here and held fixed for the turn.
	active := core.ParsePersona(string(profile.Persona))

	session, err := l.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	userTurn := core.NewTurn(session.ID, userID, core.RoleUser, message, active)
	if err := l.sessions.AppendTurn(ctx, userTurn); err != nil {
		return fmt.Errorf("persist user turn: %w", err)
	}

	history, err := l.sessions.RecentTurns(ctx, session.ID, l.opts.HistoryLimit)
	if err != nil {
		log.Warn("history fetch failed, proceeding without", "session_id", logging.ShortID(sessionID), "error", err)
		history = []core.Turn{userTurn}
	}

	// Supervisor tool phase.
	if !emit(ctx, events, core.NewToolStartEvent(AnalyzingTool)) {
		return ctx.Err()
	}
	phase := l.supervisor.Run(ctx, message, history, profile)
	if !emit(ctx, events, core.NewToolDoneEvent(AnalyzingTool)) {
		return ctx.Err()
	}

	if len(phase.Images) > 0 {
		if !emit(ctx, events, core.NewImageEvent(phase.Images)) {
			return ctx.Err()
		}
	}

	// Responder stream.
	full := l.responder.Stream(ctx, profile, active, history, message, phase, func(token string) {
		emit(ctx, events, core.NewTokenEvent(token))
	})

	assistantTurn := core.NewTurn(session.ID, userID, core.RoleAssistant, full, active)
	if err := l.sessions.AppendTurn(ctx, assistantTurn); err != nil {
		log.Error("persist assistant turn failed", "session_id", logging.ShortID(sessionID), "error", err)
	}

	// Memory writes happen strictly after the last token event. Failures
	// are logged; the visible output of the turn is already complete.
	var memoryIDs []string
	for _, fact := range l.memory.ExtractFacts(message, full) {
		id, err := l.memory.Remember(ctx, userID, fact, assistantTurn.ID)
		if err != nil {
			log.Warn("memory write failed", "user_id", logging.ShortID(userID), "error", err)
			continue
		}
		memoryIDs = append(memoryIDs, id)
	}
	if len(memoryIDs) > 0 {
		if err := l.sessions.TagTurnMemories(ctx, assistantTurn.ID, memoryIDs); err != nil {
			log.Warn("memory tagging failed", "turn_id", logging.ShortID(assistantTurn.ID), "error", err)
		}
	}

	if err := l.sessions.IncrementTurnCount(ctx, session.ID, 2); err != nil {
		log.Warn("turn count update failed", "session_id", logging.ShortID(sessionID), "error", err)
	}
	return nil
}

// emit delivers one event unless the consumer is gone.
func emit(ctx context.Context, events chan<- core.Event, e core.Event) bool {
	select {
	case events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
