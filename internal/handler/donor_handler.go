package handler

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/domain"
	"blood-donation/internal/middleware"
	"blood-donation/internal/service/matching"
)

type DonorHandler struct {
	matchingService matching.Service
}

func NewDonorHandler(matchingService matching.Service) *DonorHandler {
	return &DonorHandler{matchingService: matchingService}
}

// FindCompatible lists donors who can give to ?blood_type=, best match first.
func (h *DonorHandler) FindCompatible(c *fiber.Ctx) error {
	recipient, err := bloodTypeValue(c.Query("blood_type"))
	if err != nil {
		return err
	}

	var query domain.MatchQuery
	if err := c.QueryParser(&query); err != nil {
		return middleware.BadRequest("Invalid query parameters")
	}

	result, err := h.matchingService.FindCompatibleDonors(c.Context(), recipient, query)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *DonorHandler) CompatibleTypes(c *fiber.Ctx) error {
	recipient, err := bloodTypeValue(c.Query("blood_type"))
	if err != nil {
		return err
	}

	types, err := h.matchingService.CompatibleTypes(recipient)
	if err != nil {
		return err
	}
	donateTo, err := domain.CanDonateTo(recipient)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"blood_type":       recipient,
		"can_receive_from": types,
		"can_donate_to":    donateTo,
	})
}
