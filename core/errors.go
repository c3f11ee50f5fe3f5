package core

import (
	"errors"
	"fmt"
)

// Sentinel lookup errors returned by stores.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrTurnNotFound    = errors.New("turn not found")
)

// PolicyViolationError is returned when the safety gate blocks an inbound
// message. The reason is intentionally generic; deny-list contents are never
// echoed back to the caller.
type PolicyViolationError struct {
	Reason string
}

func (e *PolicyViolationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "content policy violation"
}

// EligibilityError is returned when a turn is attempted in companion mode
// without the externally verified eligibility flag. No generation occurs.
type EligibilityError struct {
	UserID string
}

func (e *EligibilityError) Error() string {
	return "age verification required for companion mode"
}

// BackendUnavailableError wraps a failed classifier, supervisor or responder
// call. It is recovered locally wherever possible and never propagated as a
// hard error once a stream has started.
type BackendUnavailableError struct {
	Backend string // "supervisor", "responder", "embedding", ...
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("%s backend unavailable: %v", e.Backend, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// ToolFailureError wraps an image-generation (or other tool) failure. It is
// recovered locally: the turn degrades to a text-only response.
type ToolFailureError struct {
	Tool string
	Err  error
}

func (e *ToolFailureError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolFailureError) Unwrap() error { return e.Err }
