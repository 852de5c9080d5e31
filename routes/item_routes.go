package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/handlers"
)

func ItemRoutes(api fiber.Router, items *handlers.ItemHandler, comments *handlers.CommentHandler, seen *handlers.SeenHandler, protected fiber.Handler) {
	group := api.Group("/items")
	group.Get("", items.List)
	group.Get("/:id", items.Get)
	group.Get("/:id/poster", items.Poster)
	group.Post("", protected, items.Create)
	group.Patch("/:id", protected, items.Update)
	group.Delete("/:id", protected, items.Delete)
	group.Post("/:id/poster", protected, items.PublishPoster)

	group.Post("/:id/photos", protected, items.AddPhotos)
	group.Delete("/:id/photos/:photoId", protected, items.DeletePhoto)

	group.Get("/:id/comments", comments.List)
	group.Post("/:id/comments", protected, comments.Create)
	api.Delete("/comments/:id", protected, comments.Delete)

	group.Post("/:id/seen", protected, seen.Mark)
	group.Get("/:id/seen", protected, seen.List)
	group.Get("/:id/seen/:markId", protected, seen.Get)
	group.Delete("/:id/seen/:markId", protected, seen.Delete)
}
