package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/metrics"
	"github.com/retrieveapp/retrieve-api/utils"
)

// Metrics records request counts and latency per route template. It must run
// inside RequestLogger so that error statuses are already rendered.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
			if appErr, ok := utils.AsAppError(err); ok {
				status = appErr.Status
			}
		}

		route := c.Route().Path
		if route == "" {
			route = "unknown"
		}
		metrics.RecordRequest(c.Method(), route, strconv.Itoa(status), time.Since(start).Seconds())
		return err
	}
}
