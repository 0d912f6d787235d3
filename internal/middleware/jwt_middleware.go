package middleware

import (
	"errors"
	"log"
	"strings"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID = "user_id"
	localRole   = "role"
)

var errInvalidToken = errors.New("Invalid or expired token")

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"errorMessage": "Authorization header is required",
			})
		}
		if err := authenticate(c, authService, authHeader); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"errorMessage": err.Error(),
			})
		}
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid bearer token is sent and
// otherwise lets the request through anonymously.
func OptionalAuth(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authHeader := c.Get("Authorization"); authHeader != "" {
			if err := authenticate(c, authService, authHeader); err != nil {
				log.Printf("Ignoring credentials on %s %s: %v", c.Method(), c.Path(), err)
			}
		}
		return c.Next()
	}
}

func authenticate(c *fiber.Ctx, authService *services.AuthService, authHeader string) error {
	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return errors.New("Authorization header format must be 'Bearer <token>'")
	}

	claims, err := authService.ValidateToken(parts[1])
	if err != nil {
		log.Printf("JWT validation failed: %v", err)
		return errInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if userID == "" {
		return errInvalidToken
	}

	c.Locals(localUserID, userID)
	c.Locals(localRole, models.Role(role))
	return nil
}

// RestrictTo must run after AuthRequired.
func RestrictTo(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := Actor(c).Role
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"errorMessage": "You do not have permission to perform this action",
		})
	}
}

// Actor returns the caller stored by AuthRequired.
func Actor(c *fiber.Ctx) services.Actor {
	userID, _ := c.Locals(localUserID).(string)
	role, _ := c.Locals(localRole).(models.Role)
	return services.Actor{UserID: userID, Role: role}
}
