package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/handlers"
)

func ProfileRoutes(api fiber.Router, h *handlers.ProfileHandler, protected fiber.Handler) {
	self := api.Group("/users/self", protected)
	self.Get("", h.GetSelf)
	self.Patch("", h.UpdateSelf)
	self.Post("/avatar", h.UploadAvatar)
	self.Get("/items", h.ListOwnItems)
}
