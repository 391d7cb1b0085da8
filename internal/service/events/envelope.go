package events

import "time"

// TurnEventType is the routing key and event name for completed turns.
const TurnEventType = "chat.turn.v1"

// Meta describes an emitted event.
type Meta struct {
	// Trace / request correlation ID; the chat session id for turns.
	CorrelationID *string `json:"correlation_id,omitempty"`
	// Unique event ID
	ID string `json:"id"`
	// Emitting service
	Producer *string `json:"producer,omitempty"`
	// Timestamp when the event was emitted
	Time time.Time `json:"time"`
	// Event name and version, e.g. chat.turn.v1
	Type string `json:"type"`
}

// Envelope wraps every payload published to the broker.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// TurnPayload is the body of a chat.turn.v1 event.
type TurnPayload struct {
	SessionID string    `json:"sessionId"`
	Intent    string    `json:"intent"`
	UserText  string    `json:"userText"`
	Reply     string    `json:"reply"`
	RepliedAt time.Time `json:"repliedAt"`
}
