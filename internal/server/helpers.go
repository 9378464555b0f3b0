package server

import (
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// parseObjectID converts a route parameter into an ObjectID, responding with
// a validation error (and returning false) when the value is malformed.
func parseObjectID(c *fiber.Ctx, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Params(param))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid id"))
		return primitive.NilObjectID, false
	}
	return id, true
}

// getUsername returns the authenticated username set by AuthRequired.
func getUsername(c *fiber.Ctx) string {
	username, _ := c.Locals("username").(string)
	return username
}

// getIsAdmin returns the admin flag set by AuthRequired.
func getIsAdmin(c *fiber.Ctx) bool {
	isAdmin, _ := c.Locals("isAdmin").(bool)
	return isAdmin
}

// statusFor maps an application error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case models.IsNotFound(err):
		return fiber.StatusNotFound
	case models.IsConflict(err):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
