package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/models"
	"github.com/retrieveapp/retrieve-api/services"
	"github.com/retrieveapp/retrieve-api/utils"
	"go.uber.org/zap"
)

const (
	authTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

type TokenParser interface {
	ParseToken(raw string) (uuid.UUID, error)
}

type MessageSender interface {
	CreateMessage(ctx context.Context, threadID, senderID uuid.UUID, in services.CreateMessageInput) (*models.Message, error)
}

// inboundFrame covers every frame a client may send.
type inboundFrame struct {
	Type          string  `json:"type"`
	Token         string  `json:"token,omitempty"`
	ThreadID      string  `json:"threadId,omitempty"`
	Body          string  `json:"body,omitempty"`
	AttachmentURL *string `json:"attachmentUrl,omitempty"`
}

type errorFrame struct {
	Type  string    `json:"type"`
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newErrorFrame(err error) errorFrame {
	if appErr, ok := utils.AsAppError(err); ok {
		return errorFrame{Type: "error", Error: errorBody{Code: appErr.Code, Message: appErr.Message}}
	}
	return errorFrame{Type: "error", Error: errorBody{Code: utils.CodeInternal, Message: "Something went wrong"}}
}

// UpgradeRequired rejects plain HTTP requests on the socket route.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler authenticates the socket with its first frame, registers it with
// the hub and routes inbound message frames through the message store.
func Handler(hub *Hub, tokens TokenParser, messages MessageSender, log *zap.Logger) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		userID, err := authenticate(conn, tokens)
		if err != nil {
			_ = conn.WriteJSON(newErrorFrame(err))
			return
		}
		_ = conn.WriteJSON(fiber.Map{"type": "ready", "data": fiber.Map{"userId": userID}})

		client := NewClient(userID)
		if !hub.Register(client) {
			return
		}

		done := make(chan struct{})
		go writePump(conn, client, done)

		readPump(conn, hub, client, messages, log)
		hub.Unregister(client)
		<-done
	})
}

func authenticate(conn *websocket.Conn, tokens TokenParser) (uuid.UUID, error) {
	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var frame inboundFrame
	if err := conn.ReadJSON(&frame); err != nil {
		return uuid.Nil, utils.ErrUnauthorized("Authentication frame required")
	}
	if frame.Type != "auth" || frame.Token == "" {
		return uuid.Nil, utils.ErrUnauthorized("Authentication frame required")
	}
	return tokens.ParseToken(frame.Token)
}

func writePump(conn *websocket.Conn, client *Client, done chan<- struct{}) {
	defer close(done)
	for payload := range client.Outbound() {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = conn.Close()
			for range client.Outbound() {
			}
			return
		}
	}
}

func readPump(conn *websocket.Conn, hub *Hub, client *Client, messages MessageSender, log *zap.Logger) {
	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}

		var reply any
		switch frame.Type {
		case "ping":
			reply = fiber.Map{"type": "pong"}
		case "message":
			reply = handleMessageFrame(messages, client.UserID, frame)
		default:
			reply = errorFrame{Type: "error", Error: errorBody{Code: utils.CodeBadRequest, Message: "Unknown frame type"}}
		}

		payload, err := json.Marshal(reply)
		if err != nil {
			log.Error("failed to encode socket reply", zap.Error(err))
			continue
		}
		if !hub.SendTo(client, payload) {
			log.Warn("socket reply dropped", zap.String("user_id", client.UserID.String()))
		}
	}
}

func handleMessageFrame(messages MessageSender, userID uuid.UUID, frame inboundFrame) any {
	threadID, err := uuid.Parse(frame.ThreadID)
	if err != nil {
		return errorFrame{Type: "error", Error: errorBody{Code: utils.CodeBadRequest, Message: "Invalid threadId"}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg, err := messages.CreateMessage(ctx, threadID, userID, services.CreateMessageInput{
		Body:          frame.Body,
		AttachmentURL: frame.AttachmentURL,
	})
	if err != nil {
		return newErrorFrame(err)
	}
	return services.Event{Type: "message_ack", Data: msg}
}
