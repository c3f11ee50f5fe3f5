package core

import "time"

// EventType discriminates the transient output units of one turn.
type EventType string

const (
	// EventToken carries one streamed text delta of the reply.
	EventToken EventType = "token"
	// EventImage carries generated images as base64 strings.
	EventImage EventType = "image"
	// EventModeSwitch signals a persona change; terminal for the turn.
	EventModeSwitch EventType = "mode_switch"
	// EventToolStart signals the beginning of a tool phase.
	EventToolStart EventType = "tool_start"
	// EventToolDone signals the end of a tool phase.
	EventToolDone EventType = "tool_done"
)

// Event is the unit the agent loop emits to the transport layer. Events are
// produced in real time and consumed immediately; after emission they are
// immutable. Only the fields relevant to the Type carry values.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Content   string    `json:"content,omitempty"` // token text
	Images    []string  `json:"images,omitempty"`  // base64 encoded image bytes
	Mode      Persona   `json:"mode,omitempty"`    // new persona on mode_switch
	Message   string    `json:"message,omitempty"` // user-visible mode_switch text
	Tool      string    `json:"tool,omitempty"`    // tool name on tool_start / tool_done
	Timestamp time.Time `json:"timestamp"`
}

func newEvent(t EventType) Event {
	return Event{ID: NewID(), Type: t, Timestamp: time.Now().UTC()}
}

// NewTokenEvent wraps one streamed text delta.
func NewTokenEvent(content string) Event {
	e := newEvent(EventToken)
	e.Content = content
	return e
}

// NewImageEvent wraps one or more base64 encoded images.
func NewImageEvent(images []string) Event {
	e := newEvent(EventImage)
	e.Images = images
	return e
}

// NewModeSwitchEvent signals the persona change with a user-visible message.
func NewModeSwitchEvent(mode Persona, message string) Event {
	e := newEvent(EventModeSwitch)
	e.Mode = mode
	e.Message = message
	return e
}

// NewToolStartEvent marks the beginning of the named tool phase.
func NewToolStartEvent(tool string) Event {
	e := newEvent(EventToolStart)
	e.Tool = tool
	return e
}

// NewToolDoneEvent marks the end of the named tool phase.
func NewToolDoneEvent(tool string) Event {
	e := newEvent(EventToolDone)
	e.Tool = tool
	return e
}
