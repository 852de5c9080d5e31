package utils

import (
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Meta    any       `json:"meta,omitempty"`
	Error   *AppError `json:"error,omitempty"`
}

// PageMeta is the offset pagination block returned by list endpoints.
type PageMeta struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func NewPageMeta(page, size int, total int64) PageMeta {
	pages := int64(1)
	if size > 0 && total > 0 {
		pages = (total + int64(size) - 1) / int64(size)
	}
	return PageMeta{Page: page, Size: size, Total: total, Pages: pages}
}

func OK(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(Response{Success: true, Data: data})
}

func OKWithMeta(c *fiber.Ctx, data, meta any) error {
	return c.Status(fiber.StatusOK).JSON(Response{Success: true, Data: data, Meta: meta})
}

func Created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: data})
}

// Fail writes the error envelope used by every non-2xx response.
func Fail(c *fiber.Ctx, err *AppError) error {
	return c.Status(err.Status).JSON(fiber.Map{
		"success": false,
		"error":   err,
		"meta":    fiber.Map{"requestId": RequestID(c)},
	})
}

func RequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
