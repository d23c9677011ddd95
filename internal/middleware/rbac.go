package middleware

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/domain"
)

// RequireActor admits only the listed actor kinds.
func RequireActor(kinds ...domain.ActorKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := GetActor(c)
		if actor == nil {
			return Unauthorized("Not authenticated")
		}

		for _, kind := range kinds {
			if actor.Kind == kind {
				return c.Next()
			}
		}
		return Forbidden("Insufficient permissions for this operation")
	}
}

func RequireHospital() fiber.Handler {
	return RequireActor(domain.ActorHospital)
}

func RequireAdmin() fiber.Handler {
	return RequireActor(domain.ActorAdmin)
}

func RequireStaff() fiber.Handler {
	return RequireActor(domain.ActorHospital, domain.ActorAdmin)
}
