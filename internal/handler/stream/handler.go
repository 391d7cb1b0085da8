package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fixmycar/assistant/backend/internal/logger"
	chatService "github.com/fixmycar/assistant/backend/internal/service/chat"
	"github.com/fixmycar/assistant/backend/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// Handler streams conversation events via Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	heartbeat time.Duration
	log       zerolog.Logger
}

// New creates a new stream handler.
func New(chatSvc *chatService.Service, log zerolog.Logger) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		heartbeat: defaultHeartbeat,
		log:       logger.Component(log, "sse"),
	}
}

// RegisterRoutes mounts the event stream endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/sessions/{sessionID}/events", func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if err := h.HandleStreamRequest(r.Context(), w, sessionID); err != nil {
			switch {
			case errors.Is(err, chatService.ErrSessionNotFound):
				utils.RespondError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, errStreamingUnsupported):
				utils.RespondError(w, http.StatusInternalServerError, err.Error())
			default:
				h.log.Warn().Err(err).Str("session_id", sessionID).Msg("stream ended with error")
			}
		}
	})
}

var errStreamingUnsupported = errors.New("streaming unsupported")

// HandleStreamRequest sends a snapshot of the session followed by every
// subsequent event until the client disconnects or the session is closed.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errStreamingUnsupported
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, _ := h.chatSvc.Broadcaster().Subscribe(ctx, sessionID)

	state, err := h.chatSvc.State(ctx, sessionID)
	if err != nil {
		return err
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := utils.SendSSEEvent(w, flusher, "state", state); err != nil {
		return fmt.Errorf("send snapshot: %w", err)
	}
	h.log.Debug().Str("session_id", sessionID).Msg("stream opened")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Str("session_id", sessionID).Msg("stream closed by client")
			return nil
		case event, ok := <-events:
			if !ok {
				// Session closed; tell the widget before hanging up.
				_ = utils.SendSSEEvent(w, flusher, "closed", map[string]string{"sessionId": sessionID})
				return nil
			}
			if err := utils.SendSSEEvent(w, flusher, string(event.Kind), event); err != nil {
				return fmt.Errorf("send event: %w", err)
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return fmt.Errorf("send heartbeat: %w", err)
			}
		}
	}
}
