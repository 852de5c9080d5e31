package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/retrieveapp/retrieve-api/handlers"
)

// Handlers bundles every HTTP handler the API mounts.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Profile    *handlers.ProfileHandler
	Categories *handlers.CategoryHandler
	Items      *handlers.ItemHandler
	Comments   *handlers.CommentHandler
	Seen       *handlers.SeenHandler
	Threads    *handlers.ThreadHandler
	Messages   *handlers.MessageHandler
	Uploads    *handlers.UploadHandler
	Health     *handlers.HealthHandler
	Socket     fiber.Handler
}

// Setup mounts every route group. protected guards authenticated routes.
func Setup(app *fiber.App, h Handlers, protected fiber.Handler) {
	app.Get("/healthz", h.Health.Live)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")
	api.Get("/healthz/db", h.Health.Database)

	AuthRoutes(api, h.Auth)
	ProfileRoutes(api, h.Profile, protected)
	CategoryRoutes(api, h.Categories, protected)
	ItemRoutes(api, h.Items, h.Comments, h.Seen, protected)
	MessagingRoutes(api, h.Threads, h.Messages, h.Socket, protected)
	UploadRoutes(api, h.Uploads, protected)
}
