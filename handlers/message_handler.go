package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/middleware"
	"github.com/retrieveapp/retrieve-api/services"
	"github.com/retrieveapp/retrieve-api/utils"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type createMessageRequest struct {
	Body          string  `json:"body"`
	AttachmentURL *string `json:"attachmentUrl" validate:"omitempty,url"`
}

type listMessagesQuery struct {
	Limit  int    `query:"limit"`
	Before string `query:"before"`
}

type messagesMeta struct {
	NextBefore *uuid.UUID `json:"nextBefore"`
	Count      int        `json:"count"`
	HasMore    bool       `json:"hasMore"`
}

func (h *MessageHandler) Create(c *fiber.Ctx) error {
	threadID, err := uuidParam(c, "threadId")
	if err != nil {
		return err
	}
	var req createMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	msg, err := h.messages.CreateMessage(c.UserContext(), threadID, middleware.CurrentUserID(c), services.CreateMessageInput{
		Body:          req.Body,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		return err
	}
	return utils.Created(c, msg)
}

// List pages backwards through a thread. Out-of-range limits are clamped by
// the store rather than rejected.
func (h *MessageHandler) List(c *fiber.Ctx) error {
	threadID, err := uuidParam(c, "threadId")
	if err != nil {
		return err
	}
	var q listMessagesQuery
	if err := c.QueryParser(&q); err != nil {
		return utils.ErrBadRequest("", "Invalid query parameters")
	}

	in := services.ListMessagesInput{Limit: q.Limit}
	if q.Before != "" {
		before, err := uuid.Parse(q.Before)
		if err != nil {
			return utils.ErrBadRequest("", "before must be a valid message id")
		}
		in.Before = &before
	}

	page, err := h.messages.ListMessages(c.UserContext(), threadID, middleware.CurrentUserID(c), in)
	if err != nil {
		return err
	}
	return utils.OKWithMeta(c, page.Messages, messagesMeta{
		NextBefore: page.NextBefore,
		Count:      len(page.Messages),
		HasMore:    page.HasMore,
	})
}
