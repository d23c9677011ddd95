package handler

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/domain"
	"blood-donation/internal/middleware"
	"blood-donation/internal/service/fulfillment"
	"blood-donation/internal/service/request"
)

type HospitalRequestHandler struct {
	requestService     request.Service
	fulfillmentService fulfillment.Service
}

func NewHospitalRequestHandler(requestService request.Service, fulfillmentService fulfillment.Service) *HospitalRequestHandler {
	return &HospitalRequestHandler{
		requestService:     requestService,
		fulfillmentService: fulfillmentService,
	}
}

func (h *HospitalRequestHandler) Create(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	var input domain.CreateHospitalRequestInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	req, err := h.requestService.CreateHospitalRequest(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (h *HospitalRequestHandler) ListOwn(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	result, err := h.requestService.ListOwnHospitalRequests(c.Context(), actor, getPaginationParams(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// ListOpen shows other hospitals' requests that still accept offers.
func (h *HospitalRequestHandler) ListOpen(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	result, err := h.requestService.ListOpenHospitalRequests(c.Context(), actor, getPaginationParams(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *HospitalRequestHandler) Get(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id", "request")
	if err != nil {
		return err
	}

	req, err := h.requestService.GetHospitalRequest(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(req)
}

func (h *HospitalRequestHandler) Respond(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id", "request")
	if err != nil {
		return err
	}

	var input domain.RespondToRequestInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	req, err := h.fulfillmentService.RespondToRequest(c.Context(), actor, id, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(req)
}

func (h *HospitalRequestHandler) Fulfill(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id", "request")
	if err != nil {
		return err
	}

	var input domain.FulfillRequestInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	result, err := h.fulfillmentService.FulfillHospitalRequest(c.Context(), actor, id, input.UnitIDs)
	return respondFulfillment(c, result, err)
}

func (h *HospitalRequestHandler) Cancel(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id", "request")
	if err != nil {
		return err
	}

	req, err := h.fulfillmentService.CancelHospitalRequest(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(req)
}
