package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func errorApp(err error) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	app.Get("/boom", func(c *fiber.Ctx) error { return err })
	return app
}

func failureBody(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestErrorHandlerMapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"app error", utils.ErrConflict("DUPLICATE", "Already seen"), 409, "DUPLICATE"},
		{"wrapped app error", errors.Join(errors.New("ctx"), utils.ErrForbidden("no")), 403, utils.CodeForbidden},
		{"fiber error", fiber.ErrMethodNotAllowed, 405, "METHOD_NOT_ALLOWED"},
		{"fiber not found", fiber.ErrNotFound, 404, utils.CodeNotFound},
		{"unknown", errors.New("db exploded"), 500, utils.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := failureBody(t, errorApp(tt.err), "/boom")
			assert.Equal(t, tt.status, status)
			assert.Equal(t, false, body["success"])
			errBody := body["error"].(map[string]any)
			assert.Equal(t, tt.code, errBody["code"])
			assert.Contains(t, body, "meta")
		})
	}
}

func TestErrorHandlerHidesInternalMessages(t *testing.T) {
	_, body := failureBody(t, errorApp(errors.New("pq: password authentication failed")), "/boom")
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "Internal server error", errBody["message"])
}

func TestErrorHandlerUnknownRoute(t *testing.T) {
	status, body := failureBody(t, errorApp(nil), "/nowhere")
	assert.Equal(t, 404, status)
	assert.Equal(t, utils.CodeNotFound, body["error"].(map[string]any)["code"])
}

type phoneForm struct {
	Phone string `json:"phoneNumber" validate:"phone"`
}

func TestPhoneValidation(t *testing.T) {
	for _, ok := range []string{"+12025550143", "2025550143", "+442079460958"} {
		assert.NoError(t, validate.Struct(phoneForm{Phone: ok}), ok)
	}
	for _, bad := range []string{"", "12345", "+1-202-555-0143", "phone"} {
		err := validate.Struct(phoneForm{Phone: bad})
		require.Error(t, err, bad)
		verrs, ok := isValidationError(err)
		require.True(t, ok)
		assert.Equal(t, "phoneNumber", ValidationDetails(verrs)[0].Field)
	}
}
