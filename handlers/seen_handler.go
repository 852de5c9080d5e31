package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/middleware"
	"github.com/retrieveapp/retrieve-api/services"
	"github.com/retrieveapp/retrieve-api/utils"
)

type SeenHandler struct {
	seen *services.SeenService
}

func NewSeenHandler(seen *services.SeenService) *SeenHandler {
	return &SeenHandler{seen: seen}
}

type listSeenQuery struct {
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int    `query:"offset" validate:"omitempty,min=0"`
	SortBy    string `query:"sortBy" validate:"omitempty,oneof=createdAt userId"`
	SortOrder string `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

func (h *SeenHandler) Mark(c *fiber.Ctx) error {
	itemID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	mark, err := h.seen.Mark(c.UserContext(), itemID, middleware.CurrentUserID(c))
	if err != nil {
		return err
	}
	return utils.Created(c, mark)
}

func (h *SeenHandler) List(c *fiber.Ctx) error {
	itemID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var q listSeenQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	marks, total, err := h.seen.List(c.UserContext(), itemID, services.SeenQuery{
		Limit:     q.Limit,
		Offset:    q.Offset,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	})
	if err != nil {
		return err
	}
	return utils.OKWithMeta(c, marks, fiber.Map{"count": total, "limit": q.Limit, "offset": q.Offset})
}

func (h *SeenHandler) Get(c *fiber.Ctx) error {
	itemID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	markID, err := uuidParam(c, "markId")
	if err != nil {
		return err
	}
	mark, err := h.seen.Get(c.UserContext(), itemID, markID)
	if err != nil {
		return err
	}
	return utils.OK(c, mark)
}

func (h *SeenHandler) Delete(c *fiber.Ctx) error {
	itemID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	markID, err := uuidParam(c, "markId")
	if err != nil {
		return err
	}
	if err := h.seen.Delete(c.UserContext(), itemID, markID, middleware.CurrentUserID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
