package handlers

import (
	"fmt"

	"github.com/authorizerdev/authorizer-go"
	"github.com/gofiber/fiber/v2"
)

// getUserID extracts the stable user identifier from context (set by the auth
// middleware). The authorizer SDK hands back a typed user; tests stash a map.
func getUserID(c *fiber.Ctx) (string, error) {
	user := c.Locals("user")
	if user == nil {
		return "", fmt.Errorf("user not found in context")
	}

	switch u := user.(type) {
	case *authorizer.User:
		return u.ID, nil
	case map[string]interface{}:
		if id, ok := u["id"].(string); ok && id != "" {
			return id, nil
		}
	}

	return "", fmt.Errorf("user ID not found")
}
