package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/domain"
	"blood-donation/internal/service/auth"
)

const ActorContextKey = "actor"

// TokenValidator is the part of the auth service the middleware needs.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

func AuthRequired(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return Unauthorized("Missing authorization header")
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			return Unauthorized("Invalid authorization header format")
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil {
			return Unauthorized("Invalid or expired token")
		}

		c.Locals(ActorContextKey, claims.Actor())
		return c.Next()
	}
}

// OptionalAuth attaches the actor when a valid bearer token is present and
// lets anonymous callers through otherwise.
func OptionalAuth(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := bearerToken(c.Get("Authorization")); ok {
			if claims, err := validator.ValidateAccessToken(token); err == nil {
				c.Locals(ActorContextKey, claims.Actor())
			}
		}
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetActor returns the authenticated actor or nil for anonymous requests.
func GetActor(c *fiber.Ctx) *domain.Actor {
	actor, ok := c.Locals(ActorContextKey).(domain.Actor)
	if !ok {
		return nil
	}
	return &actor
}

// CurrentActor is GetActor for routes behind AuthRequired.
func CurrentActor(c *fiber.Ctx) (domain.Actor, error) {
	actor := GetActor(c)
	if actor == nil {
		return domain.Actor{}, Unauthorized("Not authenticated")
	}
	return *actor, nil
}
