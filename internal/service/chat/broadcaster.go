package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fixmycar/assistant/backend/internal/logger"
	"github.com/fixmycar/assistant/backend/internal/model/chat"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Broadcaster fans conversation events out to every subscriber of a session.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan chat.Event // sessionID -> subID -> ch
	log         zerolog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan chat.Event),
		log:         logger.Component(log, "broadcaster"),
	}
}

// Subscribe registers for events of sessionID. The subscription is removed
// and the channel closed when ctx is cancelled or the session is dropped.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID string) (<-chan chat.Event, string) {
	subID := uuid.NewString()
	ch := make(chan chat.Event, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[sessionID]; !ok {
		b.subscribers[sessionID] = make(map[string]chan chat.Event)
	}
	b.subscribers[sessionID][subID] = ch
	b.mu.Unlock()

	b.log.Debug().Str("session_id", sessionID).Str("sub_id", subID).Msg("subscriber added")

	go func() {
		<-ctx.Done()
		b.Unsubscribe(sessionID, subID)
	}()

	return ch, subID
}

// Publish delivers event to the session's subscribers without blocking.
// Events are dropped for subscribers whose buffers are full.
func (b *Broadcaster) Publish(event chat.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subID, ch := range b.subscribers[event.SessionID] {
		select {
		case ch <- event:
		default:
			b.log.Warn().
				Str("session_id", event.SessionID).
				Str("sub_id", subID).
				Str("kind", string(event.Kind)).
				Msg("subscriber buffer full, dropping event")
		}
	}
}

// Unsubscribe removes one subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(sessionID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[sessionID]
	if !ok {
		return
	}
	if ch, ok := subs[subID]; ok {
		close(ch)
		delete(subs, subID)
	}
	if len(subs) == 0 {
		delete(b.subscribers, sessionID)
	}
}

// Drop closes every subscription of sessionID.
func (b *Broadcaster) Drop(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers[sessionID] {
		close(ch)
	}
	delete(b.subscribers, sessionID)
}

// SubscriberCount returns the number of live subscribers for sessionID.
func (b *Broadcaster) SubscriberCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[sessionID])
}
