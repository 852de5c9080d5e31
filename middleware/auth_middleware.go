package middleware

import (
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/retrieveapp/retrieve-api/utils"
)

const userIDKey = "userID"

// Protected verifies the Bearer token and stores the caller's id in Locals.
// A missing, malformed or expired token is a 401.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     []byte(secret),
		SuccessHandler: storeUserID,
		ErrorHandler:   jwtError,
	})
}

func storeUserID(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return utils.Fail(c, utils.ErrUnauthorized("Invalid or expired JWT"))
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return utils.Fail(c, utils.ErrUnauthorized("Invalid or expired JWT"))
	}
	raw, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		return utils.Fail(c, utils.ErrUnauthorized("Invalid or expired JWT"))
	}
	c.Locals(userIDKey, userID)
	return c.Next()
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return utils.Fail(c, utils.ErrUnauthorized("Missing or malformed JWT"))
	}
	return utils.Fail(c, utils.ErrUnauthorized("Invalid or expired JWT"))
}

// CurrentUserID returns the id stored by Protected, or uuid.Nil on public routes.
func CurrentUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(userIDKey).(uuid.UUID)
	return id
}

// SetUserID is used by tests to fake an authenticated caller.
func SetUserID(c *fiber.Ctx, id uuid.UUID) {
	c.Locals(userIDKey, id)
}
