package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/handlers"
)

func CategoryRoutes(api fiber.Router, h *handlers.CategoryHandler, protected fiber.Handler) {
	categories := api.Group("/categories")
	categories.Get("", h.List)
	categories.Get("/:id", h.Get)
	categories.Post("", protected, h.Create)
	categories.Put("/:id", protected, h.Update)
	categories.Delete("/:id", protected, h.Delete)
}
