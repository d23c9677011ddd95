package handler

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/domain"
	"blood-donation/internal/middleware"
	"blood-donation/internal/service/auth"
)

type UserHandler struct {
	authService auth.Service
}

func NewUserHandler(authService auth.Service) *UserHandler {
	return &UserHandler{authService: authService}
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	profile, err := h.authService.GetProfile(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	var input domain.UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	user, err := h.authService.UpdateProfile(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// CreateHospital registers a hospital account. Admin only.
func (h *UserHandler) CreateHospital(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	var input domain.CreateHospitalInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	hospital, err := h.authService.CreateHospital(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(hospital)
}
