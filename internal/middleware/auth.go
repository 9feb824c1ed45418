package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/tenderwatch/tenderwatch/internal/services"
	"github.com/tenderwatch/tenderwatch/internal/types"
)

// AuthAdmin validates that the request has admin role authorization
func AuthAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{"admin"}, "tenders.authorization.admin")
	}
}

// AuthUser validates that the request has user role authorization
func AuthUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{"user"}, "tenders.authorization.user")
	}
}

// authorize performs the authorization check. A request with no valid session
// is rejected here, before it can reach the pipeline.
func authorize(c *fiber.Ctx, roles []string, errorType string) error {
	// Get session cookie
	session := c.Cookies("cookie_session")
	if session == "" {
		return types.NewForbidden("Authorizer cookie \"cookie_session\" not found", errorType)
	}

	// Validate session
	data, err := services.ValidateSession(session, roles)
	if err != nil {
		return types.NewForbidden(fmt.Sprintf("Invalid session: %v", err), errorType)
	}

	// Set user data in context
	if user, ok := data["user"]; ok {
		c.Locals("user", user)
	}

	return c.Next()
}
