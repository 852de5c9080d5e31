package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/retrieveapp/retrieve-api/utils"
	"go.uber.org/zap"
)

// ErrorHandler renders every error returned by a handler in the standard
// failure envelope. Unknown errors are logged and hidden behind a 500.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr, ok := utils.AsAppError(err); ok {
			return utils.Fail(c, appErr)
		}
		if verrs, ok := isValidationError(err); ok {
			return utils.Fail(c, utils.ErrValidation("Validation failed").WithDetails(ValidationDetails(verrs)))
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return utils.Fail(c, utils.NewAppError(fe.Code, codeForStatus(fe.Code), fe.Message))
		}

		log.Error("unhandled error",
			zap.Error(err),
			zap.String("request_id", utils.RequestID(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()))
		return utils.Fail(c, utils.NewAppError(fiber.StatusInternalServerError, utils.CodeInternal, "Internal server error"))
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return utils.CodeBadRequest
	case fiber.StatusUnauthorized:
		return utils.CodeUnauthorized
	case fiber.StatusForbidden:
		return utils.CodeForbidden
	case fiber.StatusNotFound:
		return utils.CodeNotFound
	case fiber.StatusConflict:
		return utils.CodeConflict
	case fiber.StatusUnprocessableEntity:
		return utils.CodeValidation
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusUpgradeRequired:
		return "UPGRADE_REQUIRED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	}
	if status >= 500 {
		return utils.CodeInternal
	}
	return utils.CodeBadRequest
}
