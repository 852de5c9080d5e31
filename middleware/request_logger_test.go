package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/retrieveapp/retrieve-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerLevelsByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := utils.AsAppError(err); ok {
				return utils.Fail(c, appErr)
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})
	app.Use(requestid.New(), RequestLogger(zap.New(core)), Metrics())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(c *fiber.Ctx) error { return utils.ErrNotFound("", "nope") })
	app.Get("/broken", func(c *fiber.Ctx) error { return assert.AnError })

	for path, status := range map[string]int{"/ok": 200, "/missing": 404, "/broken": 500} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, path)
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	levels := map[string]zapcore.Level{}
	for _, e := range entries {
		fields := e.ContextMap()
		levels[fields["path"].(string)] = e.Level
		assert.NotEmpty(t, fields["request_id"])
	}
	assert.Equal(t, zapcore.InfoLevel, levels["/ok"])
	assert.Equal(t, zapcore.WarnLevel, levels["/missing"])
	assert.Equal(t, zapcore.ErrorLevel, levels["/broken"])
}
