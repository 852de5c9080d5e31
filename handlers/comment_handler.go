package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/middleware"
	"github.com/retrieveapp/retrieve-api/services"
	"github.com/retrieveapp/retrieve-api/utils"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type createCommentRequest struct {
	Body string `json:"body"`
}

func (h *CommentHandler) Create(c *fiber.Ctx) error {
	itemID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req createCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Create(c.UserContext(), itemID, middleware.CurrentUserID(c), req.Body)
	if err != nil {
		return err
	}
	return utils.Created(c, comment)
}

func (h *CommentHandler) List(c *fiber.Ctx) error {
	itemID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	limit := queryInt(c, "limit", services.DefaultCommentLimit)
	offset := queryInt(c, "offset", 0)

	comments, total, err := h.comments.List(c.UserContext(), itemID, limit, offset)
	if err != nil {
		return err
	}
	return utils.OKWithMeta(c, comments, fiber.Map{"count": total, "limit": limit, "offset": offset})
}

func (h *CommentHandler) Delete(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.UserContext(), id, middleware.CurrentUserID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
