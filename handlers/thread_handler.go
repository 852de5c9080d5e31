package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/middleware"
	"github.com/retrieveapp/retrieve-api/services"
	"github.com/retrieveapp/retrieve-api/utils"
)

type ThreadHandler struct {
	threads *services.ThreadService
	unread  services.UnreadCounter
}

func NewThreadHandler(threads *services.ThreadService, unread services.UnreadCounter) *ThreadHandler {
	if unread == nil {
		unread = threads
	}
	return &ThreadHandler{threads: threads, unread: unread}
}

type createThreadRequest struct {
	ItemID        string  `json:"itemId" validate:"required,uuid"`
	ParticipantID *string `json:"participantId" validate:"omitempty,uuid"`
}

type listThreadsQuery struct {
	ItemID string `query:"itemId" validate:"omitempty,uuid"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Size   int    `query:"size"`
}

type markReadRequest struct {
	MessageID string `json:"messageId" validate:"required,uuid"`
}

// Create opens the thread for an item, or returns the existing one with 200.
func (h *ThreadHandler) Create(c *fiber.Ctx) error {
	var req createThreadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	itemID := uuid.MustParse(req.ItemID)
	var participantID *uuid.UUID
	if req.ParticipantID != nil {
		id := uuid.MustParse(*req.ParticipantID)
		participantID = &id
	}

	thread, created, err := h.threads.StartThread(c.UserContext(), middleware.CurrentUserID(c), itemID, participantID)
	if err != nil {
		return err
	}
	if created {
		return utils.Created(c, thread)
	}
	return utils.OK(c, thread)
}

func (h *ThreadHandler) List(c *fiber.Ctx) error {
	var q listThreadsQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	filter := services.ThreadFilter{Page: q.Page, Size: q.Size}
	if q.ItemID != "" {
		id := uuid.MustParse(q.ItemID)
		filter.ItemID = &id
	}

	page, err := h.threads.ListThreadsForUser(c.UserContext(), middleware.CurrentUserID(c), filter)
	if err != nil {
		return err
	}
	return utils.OKWithMeta(c, page.Threads, utils.NewPageMeta(page.Page, page.Size, page.Total))
}

func (h *ThreadHandler) MarkRead(c *fiber.Ctx) error {
	threadID, err := uuidParam(c, "threadId")
	if err != nil {
		return err
	}
	var req markReadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	thread, err := h.threads.MarkThreadAsRead(c.UserContext(), threadID, middleware.CurrentUserID(c), uuid.MustParse(req.MessageID))
	if err != nil {
		return err
	}
	return utils.OK(c, thread)
}

func (h *ThreadHandler) UnreadCount(c *fiber.Ctx) error {
	count, err := h.unread.CountUnreadForUser(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return err
	}
	return utils.OK(c, fiber.Map{"unreadCount": count})
}
