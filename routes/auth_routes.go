package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/handlers"
)

func AuthRoutes(api fiber.Router, h *handlers.AuthHandler) {
	auth := api.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/forgot-password", h.ForgotPassword)
	auth.Post("/reset-password", h.ResetPassword)
}
