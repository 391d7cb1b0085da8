package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/fixmycar/assistant/backend/internal/analysis/intent"
	"github.com/fixmycar/assistant/backend/internal/model/chat"
)

// DefaultTypingDelay is how long the bot "types" before each reply lands.
const DefaultTypingDelay = 1500 * time.Millisecond

// Classifier maps an utterance to a canned reply.
type Classifier interface {
	Classify(utterance string) intent.Decision
}

// Turn describes one completed user/bot exchange.
type Turn struct {
	SessionID string
	UserText  string
	Decision  intent.Decision
	Reply     chat.Message
}

// ConversationOptions configures a Conversation. Nil fields pick defaults.
type ConversationOptions struct {
	SessionID   string
	Classifier  Classifier
	Scheduler   Scheduler
	TypingDelay time.Duration
	Now         func() time.Time
	// OnEvent receives every state change. It is called while the conversation
	// lock is held and must not block or call back into the conversation.
	OnEvent func(chat.Event)
	// OnTurn is called after each bot reply, under the same rules as OnEvent.
	OnTurn func(Turn)
}

// Conversation owns the message log, typing indicator and quick replies of a
// single widget session.
type Conversation struct {
	mu sync.Mutex

	sessionID  string
	classifier Classifier
	scheduler  Scheduler
	delay      time.Duration
	now        func() time.Time
	onEvent    func(chat.Event)
	onTurn     func(Turn)

	messages     []chat.Message
	quickReplies []chat.QuickReply
	lastID       int64
	lastActive   time.Time
	closed       bool

	nextTimer int
	pending   map[int]Timer
}

// NewConversation returns an idle conversation with an empty log.
func NewConversation(opts ConversationOptions) *Conversation {
	if opts.Classifier == nil {
		opts.Classifier = intent.DefaultCatalog()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler{}
	}
	if opts.TypingDelay < 0 {
		opts.TypingDelay = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Conversation{
		sessionID:  opts.SessionID,
		classifier: opts.Classifier,
		scheduler:  opts.Scheduler,
		delay:      opts.TypingDelay,
		now:        opts.Now,
		onEvent:    opts.OnEvent,
		onTurn:     opts.OnTurn,
		messages:   make([]chat.Message, 0, 16),
		lastActive: opts.Now(),
		pending:    make(map[int]Timer),
	}
}

// Submit appends the user's utterance and schedules exactly one bot reply.
// Blank input and submissions after Close are ignored and report false.
//
// Overlapping submissions each get their own reply; the typing indicator stays
// on until the last in-flight reply has been posted.
func (c *Conversation) Submit(utterance string) bool {
	if strings.TrimSpace(utterance) == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	msg := c.appendLocked(chat.SenderUser, utterance)
	c.emitLocked(chat.EventMessage, &msg)

	id := c.nextTimer
	c.nextTimer++
	// The callback takes c.mu, so it cannot observe pending before the timer is stored.
	c.pending[id] = c.scheduler.AfterFunc(c.delay, func() { c.reply(id, utterance) })
	c.emitLocked(chat.EventTyping, nil)
	return true
}

// SelectQuickReply submits the reply's seed as if it were typed.
func (c *Conversation) SelectQuickReply(qr chat.QuickReply) bool {
	return c.Submit(qr.Seed)
}

// State returns a snapshot of the conversation.
func (c *Conversation) State() chat.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Typing reports whether a bot reply is pending.
func (c *Conversation) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending) > 0
}

// LastActive is the time of the most recent appended message, or creation.
func (c *Conversation) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Close tears the session down. Undelivered replies are discarded.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, timer := range c.pending {
		timer.Stop()
		delete(c.pending, id)
	}
}

// Closed reports whether Close has been called.
func (c *Conversation) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conversation) reply(id int, utterance string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[id]; !ok || c.closed {
		return
	}

	decision := c.classifier.Classify(utterance)

	delete(c.pending, id)
	c.emitLocked(chat.EventTyping, nil)

	msg := c.appendLocked(chat.SenderBot, decision.Reply)
	c.emitLocked(chat.EventMessage, &msg)

	c.quickReplies = append([]chat.QuickReply(nil), decision.QuickReplies...)
	c.emitLocked(chat.EventQuickReplies, nil)

	if c.onTurn != nil {
		c.onTurn(Turn{
			SessionID: c.sessionID,
			UserText:  utterance,
			Decision:  decision,
			Reply:     msg,
		})
	}
}

func (c *Conversation) appendLocked(sender chat.Sender, text string) chat.Message {
	now := c.now()
	id := now.UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	c.lastActive = now

	msg := chat.Message{ID: id, Text: text, Sender: sender, Timestamp: now}
	c.messages = append(c.messages, msg)
	return msg
}

func (c *Conversation) stateLocked() chat.State {
	return chat.State{
		Messages:     c.messages,
		Typing:       len(c.pending) > 0,
		QuickReplies: c.quickReplies,
	}.Clone()
}

func (c *Conversation) emitLocked(kind chat.EventKind, msg *chat.Message) {
	if c.onEvent == nil {
		return
	}
	c.onEvent(chat.Event{
		Kind:      kind,
		SessionID: c.sessionID,
		Message:   msg,
		State:     c.stateLocked(),
	})
}
