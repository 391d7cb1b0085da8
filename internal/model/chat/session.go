package chat

import "time"

// Session captures a transient anonymous support conversation.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventKind names the part of State that changed.
type EventKind string

const (
	EventMessage      EventKind = "message"
	EventTyping       EventKind = "typing"
	EventQuickReplies EventKind = "quick_replies"
)

// Event is emitted on every State change so the widget can re-render.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"sessionId"`
	Message   *Message  `json:"message,omitempty"`
	State     State     `json:"state"`
}
