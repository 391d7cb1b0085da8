package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixmycar/assistant/backend/internal/model/chat"
	chatservice "github.com/fixmycar/assistant/backend/internal/service/chat"
)

type frame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func dial(t *testing.T) (*websocket.Conn, *chatservice.Service, string) {
	t.Helper()
	svc := chatservice.NewService(chatservice.Config{TypingDelay: time.Millisecond, Logger: zerolog.Nop()})

	r := chi.NewRouter()
	New(svc, nil, zerolog.Nop()).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	connected := readFrame(t, conn)
	require.Equal(t, "connected", connected.Type)
	require.NotEmpty(t, connected.SessionID)
	return conn, svc, connected.SessionID
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func send(t *testing.T, conn *websocket.Conn, kind string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: kind, Data: raw}))
}

func TestWebSocketTextTurn(t *testing.T) {
	conn, _, sessionID := dial(t)

	send(t, conn, "text", TextMessage{Text: "Quanto custa um reparo? Qual o preço?"})

	var events []chat.Event
	for len(events) < 5 {
		f := readFrame(t, conn)
		require.Equal(t, "event", f.Type)
		var e chat.Event
		require.NoError(t, json.Unmarshal(f.Data, &e))
		assert.Equal(t, sessionID, e.SessionID)
		events = append(events, e)
	}

	last := events[len(events)-1]
	assert.Equal(t, chat.EventQuickReplies, last.Kind)
	assert.False(t, last.State.Typing)
	require.Len(t, last.State.Messages, 2)
	require.Len(t, last.State.QuickReplies, 2)
	assert.Equal(t, "Agendar Avaliação", last.State.QuickReplies[0].Label)
}

func TestWebSocketQuickReplyTurn(t *testing.T) {
	conn, _, _ := dial(t)

	send(t, conn, "quick_reply", chat.QuickReply{Label: "Manutenção", Seed: "Estou interessado em serviços de manutenção."})

	f := readFrame(t, conn)
	var e chat.Event
	require.NoError(t, json.Unmarshal(f.Data, &e))
	require.NotNil(t, e.Message)
	assert.Equal(t, chat.SenderUser, e.Message.Sender)
	assert.Equal(t, "Estou interessado em serviços de manutenção.", e.Message.Text)
}

func TestWebSocketBlankAndUnknownMessages(t *testing.T) {
	conn, _, _ := dial(t)

	send(t, conn, "text", TextMessage{Text: "  "})
	assert.Equal(t, "ignored", readFrame(t, conn).Type)

	send(t, conn, "audio", map[string]string{})
	assert.Equal(t, "error", readFrame(t, conn).Type)

	send(t, conn, "state", nil)
	assert.Equal(t, "state", readFrame(t, conn).Type)
}

func TestWebSocketCloseDestroysSession(t *testing.T) {
	conn, svc, sessionID := dial(t)
	require.Equal(t, 1, svc.Count())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	conn.Close()

	require.Eventually(t, func() bool { return svc.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	_, err := svc.GetSession(context.Background(), sessionID)
	require.ErrorIs(t, err, chatservice.ErrSessionNotFound)
}

func TestWebSocketServerSideCloseHangsUp(t *testing.T) {
	conn, svc, sessionID := dial(t)

	require.NoError(t, svc.CloseSession(context.Background(), sessionID))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestWebSocketOversizedFrameEndsSession(t *testing.T) {
	conn, svc, _ := dial(t)

	send(t, conn, "text", TextMessage{Text: strings.Repeat("a", maxFrameBytes)})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.Eventually(t, func() bool { return svc.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
