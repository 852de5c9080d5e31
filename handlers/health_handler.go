package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/cache"
	"github.com/retrieveapp/retrieve-api/database"
	"github.com/retrieveapp/retrieve-api/utils"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	cache cache.Service
}

func NewHealthHandler(db *gorm.DB, c cache.Service) *HealthHandler {
	return &HealthHandler{db: db, cache: c}
}

func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Database pings the store and, when configured, the cache.
func (h *HealthHandler) Database(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, h.db); err != nil {
		return utils.NewAppError(fiber.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "Database is unreachable")
	}
	status := fiber.Map{"status": "ok", "database": "up", "cache": "disabled"}
	if h.cache != nil && h.cache.Available() {
		status["cache"] = "up"
		if err := h.cache.Ping(ctx); err != nil {
			status["cache"] = "down"
		}
	}
	return utils.OK(c, status)
}
