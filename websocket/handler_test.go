package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/services"
	"github.com/retrieveapp/retrieve-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens map[string]uuid.UUID

func (s staticTokens) ParseToken(raw string) (uuid.UUID, error) {
	id, ok := s[raw]
	if !ok {
		return uuid.Nil, utils.ErrUnauthorized("Invalid or expired token")
	}
	return id, nil
}

type echoSender struct {
	allowed uuid.UUID
}

func (e echoSender) CreateMessage(_ context.Context, threadID, senderID uuid.UUID, in services.CreateMessageInput) (*models.Message, error) {
	if threadID != e.allowed {
		return nil, services.ErrNotThreadMember
	}
	if in.Body == "" {
		return nil, errors.New("boom")
	}
	return &models.Message{ID: uuid.New(), ThreadID: threadID, SenderID: senderID, Body: in.Body}, nil
}

type frame struct {
	Type  string         `json:"type"`
	Data  map[string]any `json:"data"`
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func startSocketServer(t *testing.T, tokens TokenParser, sender MessageSender) (string, *Hub) {
	t.Helper()
	hub, _ := runHub(t)

	app := fiber.New()
	app.Use("/ws", UpgradeRequired)
	app.Get("/ws", Handler(hub, tokens, sender, nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws", hub
}

func dial(t *testing.T, url string) *fastws.Conn {
	t.Helper()
	conn, _, err := fastws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *fastws.Conn) frame {
	t.Helper()
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestSocketRejectsPlainHTTP(t *testing.T) {
	app := fiber.New()
	app.Use("/ws", UpgradeRequired)
	app.Get("/ws", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(newRequest("/ws"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestSocketAuthAndMessaging(t *testing.T) {
	userID, threadID := uuid.New(), uuid.New()
	url, hub := startSocketServer(t, staticTokens{"good": userID}, echoSender{allowed: threadID})
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": "good"}))
	ready := readFrame(t, conn)
	require.Equal(t, "ready", ready.Type)
	assert.Equal(t, userID.String(), ready.Data["userId"])
	require.Eventually(t, func() bool { return hub.Connected(userID) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "message", "threadId": threadID.String(), "body": "on my way"}))
	ack := readFrame(t, conn)
	require.Equal(t, "message_ack", ack.Type)
	assert.Equal(t, "on my way", ack.Data["body"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "message", "threadId": uuid.NewString(), "body": "hi"}))
	denied := readFrame(t, conn)
	assert.Equal(t, "error", denied.Type)
	assert.Equal(t, utils.CodeForbidden, denied.Error.Code)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "message", "threadId": "nope"}))
	assert.Equal(t, utils.CodeBadRequest, readFrame(t, conn).Error.Code)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	assert.Equal(t, utils.CodeBadRequest, readFrame(t, conn).Error.Code)

	hub.PublishToUser(userID, services.Event{Type: services.EventRead, Data: map[string]string{"threadId": threadID.String()}})
	assert.Equal(t, services.EventRead, readFrame(t, conn).Type)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connected(userID) == 0 }, time.Second, 5*time.Millisecond)
}

func TestSocketRejectsBadToken(t *testing.T) {
	url, _ := startSocketServer(t, staticTokens{}, echoSender{})
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": "forged"}))
	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, utils.CodeUnauthorized, f.Error.Code)

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func newRequest(path string) *http.Request {
	return httptest.NewRequest(fiber.MethodGet, path, nil)
}
