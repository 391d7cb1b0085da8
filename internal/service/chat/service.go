package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fixmycar/assistant/backend/internal/analysis/intent"
	"github.com/fixmycar/assistant/backend/internal/logger"
	"github.com/fixmycar/assistant/backend/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

// TurnSink receives completed turns. Enqueue must not block.
type TurnSink interface {
	Enqueue(turn Turn)
}

// Config wires the service. Nil fields pick defaults.
type Config struct {
	Classifier  Classifier
	Scheduler   Scheduler
	TypingDelay time.Duration
	// IdleTimeout closes sessions with no activity; zero disables sweeping.
	IdleTimeout time.Duration
	Now         func() time.Time
	Turns       TurnSink
	Logger      zerolog.Logger
}

type entry struct {
	session chat.Session
	conv    *Conversation
}

// Service encapsulates conversation state for every open widget session.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	classifier  Classifier
	scheduler   Scheduler
	delay       time.Duration
	idleTimeout time.Duration
	now         func() time.Time
	turns       TurnSink
	broadcaster *Broadcaster
	metrics     metrics
	log         zerolog.Logger
}

// NewService bootstraps the in-memory chat service.
func NewService(cfg Config) *Service {
	if cfg.Classifier == nil {
		cfg.Classifier = intent.DefaultCatalog()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	log := logger.Component(cfg.Logger, "chat")
	return &Service{
		sessions:    make(map[string]*entry),
		classifier:  cfg.Classifier,
		scheduler:   cfg.Scheduler,
		delay:       cfg.TypingDelay,
		idleTimeout: cfg.IdleTimeout,
		now:         cfg.Now,
		turns:       cfg.Turns,
		broadcaster: NewBroadcaster(cfg.Logger),
		metrics:     newMetrics(),
		log:         log,
	}
}

// Broadcaster exposes the per-session event fan-out.
func (s *Service) Broadcaster() *Broadcaster {
	return s.broadcaster
}

// Classify runs the configured classifier without touching any session.
func (s *Service) Classify(utterance string) intent.Decision {
	return s.classifier.Classify(utterance)
}

// CreateSession provisions an anonymous conversation.
func (s *Service) CreateSession(ctx context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
	}

	conv := NewConversation(ConversationOptions{
		SessionID:   session.ID,
		Classifier:  s.classifier,
		Scheduler:   s.scheduler,
		TypingDelay: s.delay,
		Now:         s.now,
		OnEvent:     s.broadcaster.Publish,
		OnTurn:      s.handleTurn,
	})

	s.mu.Lock()
	s.sessions[session.ID] = &entry{session: session, conv: conv}
	s.mu.Unlock()

	s.metrics.sessionDelta(ctx, 1)
	s.log.Debug().Str("session_id", session.ID).Msg("session created")
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return e.session, nil
}

// State returns the current render model of a session.
func (s *Service) State(_ context.Context, sessionID string) (chat.State, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.State{}, err
	}
	return e.conv.State(), nil
}

// Submit forwards typed text to the session. Blank text is accepted as a no-op
// and reported as false.
func (s *Service) Submit(_ context.Context, sessionID, text string) (bool, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return false, err
	}
	return e.conv.Submit(text), nil
}

// SelectQuickReply forwards a quick-reply click to the session.
func (s *Service) SelectQuickReply(_ context.Context, sessionID string, qr chat.QuickReply) (bool, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return false, err
	}
	return e.conv.SelectQuickReply(qr), nil
}

// CloseSession destroys a session together with any undelivered replies.
func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.teardown(ctx, e)
	return nil
}

// Count returns the number of open sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SweepIdle closes sessions whose last activity is older than the idle
// timeout and which have no reply in flight. It returns the number closed.
func (s *Service) SweepIdle(ctx context.Context, now time.Time) int {
	if s.idleTimeout <= 0 {
		return 0
	}

	var expired []*entry
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.conv.Typing() {
			continue
		}
		if now.Sub(e.conv.LastActive()) >= s.idleTimeout {
			expired = append(expired, e)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		s.teardown(ctx, e)
	}
	if len(expired) > 0 {
		s.log.Info().Int("closed", len(expired)).Msg("swept idle sessions")
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx ends, then closes every session.
func (s *Service) Run(ctx context.Context) {
	if s.idleTimeout <= 0 {
		<-ctx.Done()
		s.Shutdown()
		return
	}

	interval := s.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
			s.SweepIdle(ctx, s.now())
		}
	}
}

// Shutdown closes every open session.
func (s *Service) Shutdown() {
	s.mu.Lock()
	all := make([]*entry, 0, len(s.sessions))
	for id, e := range s.sessions {
		all = append(all, e)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	ctx := context.Background()
	for _, e := range all {
		s.teardown(ctx, e)
	}
}

func (s *Service) lookup(sessionID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (s *Service) teardown(ctx context.Context, e *entry) {
	e.conv.Close()
	s.broadcaster.Drop(e.session.ID)
	s.metrics.sessionDelta(ctx, -1)
	s.log.Debug().Str("session_id", e.session.ID).Msg("session closed")
}

func (s *Service) handleTurn(turn Turn) {
	s.metrics.recordIntent(context.Background(), turn.Decision.Intent)
	s.log.Info().
		Str("session_id", turn.SessionID).
		Str("intent", string(turn.Decision.Intent)).
		Msg("bot replied")
	if s.turns != nil {
		s.turns.Enqueue(turn)
	}
}
