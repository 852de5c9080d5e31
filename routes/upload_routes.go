package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/handlers"
)

func UploadRoutes(api fiber.Router, h *handlers.UploadHandler, protected fiber.Handler) {
	api.Get("/uploads/signature", protected, h.Signature)
}
