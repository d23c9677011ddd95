package handler

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/domain"
	"blood-donation/internal/middleware"
	"blood-donation/internal/service/donation"
)

type DonationHandler struct {
	donationService donation.Service
}

func NewDonationHandler(donationService donation.Service) *DonationHandler {
	return &DonationHandler{donationService: donationService}
}

func (h *DonationHandler) Create(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	var input domain.CreateDonationInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	d, err := h.donationService.Create(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

func (h *DonationHandler) ListMine(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	result, err := h.donationService.ListMine(c.Context(), actor, getPaginationParams(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *DonationHandler) ListForHospital(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	var status *domain.DonationStatus
	if s := c.Query("status"); s != "" {
		st := domain.DonationStatus(s)
		status = &st
	}

	result, err := h.donationService.ListForHospital(c.Context(), actor, status, getPaginationParams(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *DonationHandler) Approve(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id", "donation")
	if err != nil {
		return err
	}

	var input domain.ApproveDonationInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return middleware.BadRequest("Invalid request body")
		}
	}

	unit, err := h.donationService.Approve(c.Context(), actor, id, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"donation_id": id,
		"unit":        unit,
	})
}

func (h *DonationHandler) Reject(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id", "donation")
	if err != nil {
		return err
	}

	var input domain.ReviewDonationInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return middleware.BadRequest("Invalid request body")
		}
	}

	if err := h.donationService.Reject(c.Context(), actor, id, input); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
