package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fixmycar/assistant/backend/internal/logger"
	"github.com/fixmycar/assistant/backend/internal/model/chat"
	chatservice "github.com/fixmycar/assistant/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	// maxFrameBytes 单个入站帧的上限
	maxFrameBytes = 64 << 10
)

// Handler WebSocket客服组件处理器。每个连接对应一个会话，连接断开即销毁会话。
type Handler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// New 创建WebSocket处理器
func New(chatSvc *chatservice.Service, checkOrigin func(r *http.Request) bool, log zerolog.Logger) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger.Component(log, "websocket"),
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// conn serialises writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	c := &conn{ws: ws}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := h.chatSvc.CreateSession(ctx)
	if err != nil {
		h.sendError(c, "failed to create session")
		return
	}
	defer func() {
		if err := h.chatSvc.CloseSession(context.Background(), session.ID); err != nil {
			h.log.Debug().Err(err).Str("session_id", session.ID).Msg("session already closed")
		}
	}()

	log := h.log.With().Str("session_id", session.ID).Logger()
	log.Info().Msg("new connection")

	events, _ := h.chatSvc.Broadcaster().Subscribe(ctx, session.ID)
	go h.writeLoop(ctx, cancel, c, events, log)
	go h.pingLoop(ctx, c)

	state, _ := h.chatSvc.State(ctx, session.ID)
	h.send(c, session.ID, "connected", map[string]any{
		"session": session,
		"state":   state,
	})

	ws.SetReadLimit(maxFrameBytes)
	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("read error")
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(readTimeout))

		if ctx.Err() != nil {
			return
		}
		h.handleMessage(ctx, c, session.ID, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, sessionID string, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(c, "invalid text payload")
			return
		}
		h.submit(c, sessionID, func() (bool, error) {
			return h.chatSvc.Submit(ctx, sessionID, text.Text)
		})
	case "quick_reply":
		var qr chat.QuickReply
		if err := json.Unmarshal(msg.Data, &qr); err != nil {
			h.sendError(c, "invalid quick reply payload")
			return
		}
		h.submit(c, sessionID, func() (bool, error) {
			return h.chatSvc.SelectQuickReply(ctx, sessionID, qr)
		})
	case "state":
		state, err := h.chatSvc.State(ctx, sessionID)
		if err != nil {
			h.sendError(c, err.Error())
			return
		}
		h.send(c, sessionID, "state", state)
	default:
		h.sendError(c, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) submit(c *conn, sessionID string, fn func() (bool, error)) {
	accepted, err := fn()
	if err != nil {
		h.sendError(c, err.Error())
		return
	}
	if !accepted {
		h.send(c, sessionID, "ignored", map[string]string{"reason": "empty message"})
	}
}

// writeLoop 把会话事件推送给客户端
func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, c *conn, events <-chan chat.Event, log zerolog.Logger) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				// Session was closed elsewhere (idle sweep or shutdown).
				c.ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeTimeout))
				c.ws.Close()
				return
			}
			if err := c.writeJSON(outgoingMessage{
				Type:      "event",
				SessionID: event.SessionID,
				Data:      event,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				log.Warn().Err(err).Msg("write event failed")
				return
			}
		}
	}
}

func (h *Handler) send(c *conn, sessionID, kind string, data interface{}) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := c.writeJSON(msg); err != nil {
		h.log.Warn().Err(err).Str("session_id", sessionID).Msg("write failed")
	}
}

func (h *Handler) sendError(c *conn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := c.writeJSON(msg); err != nil {
		h.log.Warn().Err(err).Msg("write error failed")
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
