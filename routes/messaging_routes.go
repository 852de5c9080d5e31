package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/handlers"
	"github.com/retrieveapp/retrieve-api/websocket"
)

func MessagingRoutes(api fiber.Router, threads *handlers.ThreadHandler, messages *handlers.MessageHandler, socket fiber.Handler, protected fiber.Handler) {
	group := api.Group("/threads", protected)
	group.Post("", threads.Create)
	group.Get("", threads.List)
	group.Get("/unread-count", threads.UnreadCount)
	group.Post("/:threadId/read", threads.MarkRead)
	group.Post("/:threadId/messages", messages.Create)
	group.Get("/:threadId/messages", messages.List)

	if socket != nil {
		api.Use("/ws", websocket.UpgradeRequired)
		api.Get("/ws", socket)
	}
}
