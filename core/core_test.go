package core

import (
	"errors"
	"testing"
)

func TestPersona_ToggleAndParse(t *testing.T) {
	if PersonaAssistant.Other() != PersonaCompanion {
		t.Fatalf("assistant should toggle to companion")
	}
	if PersonaCompanion.Other() != PersonaAssistant {
		t.Fatalf("companion should toggle to assistant")
	}
	if got := ParsePersona("companion"); got != PersonaCompanion {
		t.Fatalf("unexpected parse result: %#v", got)
	}
	// unknown stored values must default to assistant, never companion
	for _, raw := range []string{"", "jarvis", "her", "garbage"} {
		if got := ParsePersona(raw); got != PersonaAssistant {
			t.Fatalf("ParsePersona(%q) = %#v, want assistant", raw, got)
		}
	}
	if !PersonaCompanion.Valid() || Persona("x").Valid() {
		t.Fatalf("Valid() mismatch")
	}
}

func TestEvent_Constructors(t *testing.T) {
	tok := NewTokenEvent("hi")
	if tok.Type != EventToken || tok.Content != "hi" || tok.ID == "" || tok.Timestamp.IsZero() {
		t.Fatalf("token event malformed: %+v", tok)
	}

	img := NewImageEvent([]string{"YWJj"})
	if img.Type != EventImage || len(img.Images) != 1 {
		t.Fatalf("image event malformed: %+v", img)
	}

	sw := NewModeSwitchEvent(PersonaCompanion, "Mode switched to companion.")
	if sw.Type != EventModeSwitch || sw.Mode != PersonaCompanion || sw.Message == "" {
		t.Fatalf("mode switch event malformed: %+v", sw)
	}

	ts := NewToolStartEvent("analyzing")
	td := NewToolDoneEvent("analyzing")
	if ts.Type != EventToolStart || td.Type != EventToolDone || ts.Tool != td.Tool {
		t.Fatalf("tool events malformed: %+v %+v", ts, td)
	}
}

func TestNewTurn_Fields(t *testing.T) {
	turn := NewTurn("s1", "u1", RoleUser, "hello", PersonaAssistant)
	if turn.ID == "" || turn.SessionID != "s1" || turn.UserID != "u1" {
		t.Fatalf("turn identity malformed: %+v", turn)
	}
	if turn.Role != RoleUser || turn.Content != "hello" || turn.Persona != PersonaAssistant {
		t.Fatalf("turn content malformed: %+v", turn)
	}
	if turn.CreatedAt.IsZero() {
		t.Fatalf("turn timestamp not set")
	}
}

func TestErrors_WrappingAndMessages(t *testing.T) {
	pv := &PolicyViolationError{Reason: "Content policy violation"}
	if pv.Error() != "Content policy violation" {
		t.Fatalf("unexpected policy violation message: %q", pv.Error())
	}
	if (&PolicyViolationError{}).Error() == "" {
		t.Fatalf("empty reason must still produce a generic message")
	}

	cause := errors.New("connection refused")
	bu := &BackendUnavailableError{Backend: "responder", Err: cause}
	if !errors.Is(bu, cause) {
		t.Fatalf("BackendUnavailableError must unwrap its cause")
	}

	tf := &ToolFailureError{Tool: "generate_image", Err: cause}
	if !errors.Is(tf, cause) {
		t.Fatalf("ToolFailureError must unwrap its cause")
	}

	var el *EligibilityError
	if !errors.As(error(&EligibilityError{UserID: "u1"}), &el) {
		t.Fatalf("errors.As failed for EligibilityError")
	}
}
