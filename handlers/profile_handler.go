package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/middleware"
	"github.com/retrieveapp/retrieve-api/services"
	"github.com/retrieveapp/retrieve-api/utils"
)

type ProfileHandler struct {
	users *services.UserService
	items *services.ItemService
}

func NewProfileHandler(users *services.UserService, items *services.ItemService) *ProfileHandler {
	return &ProfileHandler{users: users, items: items}
}

type updateProfileRequest struct {
	FirstName   *string `json:"firstName" validate:"omitempty,min=2,max=60"`
	LastName    *string `json:"lastName" validate:"omitempty,min=2,max=60"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,e164"`
	ZipCode     *string `json:"zipCode" validate:"omitempty,min=3,max=10"`
}

func (h *ProfileHandler) GetSelf(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return err
	}
	return utils.OK(c, user)
}

func (h *ProfileHandler) UpdateSelf(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.UserContext(), middleware.CurrentUserID(c), services.UpdateProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		ZipCode:     req.ZipCode,
	})
	if err != nil {
		return err
	}
	return utils.OK(c, user)
}

func (h *ProfileHandler) UploadAvatar(c *fiber.Ctx) error {
	file, err := c.FormFile("avatar")
	if err != nil {
		return utils.ErrValidation("Avatar file is required")
	}
	user, err := h.users.UpdateAvatar(c.UserContext(), middleware.CurrentUserID(c), file)
	if err != nil {
		return err
	}
	return utils.OK(c, user)
}

func (h *ProfileHandler) ListOwnItems(c *fiber.Ctx) error {
	page, err := h.items.ListOwnItems(c.UserContext(), middleware.CurrentUserID(c),
		queryInt(c, "page", 1), queryInt(c, "limit", services.DefaultItemLimit))
	if err != nil {
		return err
	}
	return utils.OKWithMeta(c, page.Items, utils.NewPageMeta(page.Page, page.Limit, page.Total))
}
