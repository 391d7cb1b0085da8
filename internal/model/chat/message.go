package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is a single immutable entry of the conversation log.
type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// QuickReply is a suggested follow-up. Choosing it submits Seed as if the user typed it.
type QuickReply struct {
	Label string `json:"label" yaml:"label"`
	Seed  string `json:"seed" yaml:"seed"`
}

// State is the render model handed to the presentation layer.
type State struct {
	Messages     []Message    `json:"messages"`
	Typing       bool         `json:"isBotTyping"`
	QuickReplies []QuickReply `json:"activeQuickReplies"`
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	return State{
		Messages:     append(make([]Message, 0, len(s.Messages)), s.Messages...),
		Typing:       s.Typing,
		QuickReplies: append(make([]QuickReply, 0, len(s.QuickReplies)), s.QuickReplies...),
	}
}
