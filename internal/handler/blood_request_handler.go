package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"blood-donation/internal/domain"
	"blood-donation/internal/middleware"
	"blood-donation/internal/service/fulfillment"
	"blood-donation/internal/service/request"
)

type BloodRequestHandler struct {
	requestService     request.Service
	fulfillmentService fulfillment.Service
}

func NewBloodRequestHandler(requestService request.Service, fulfillmentService fulfillment.Service) *BloodRequestHandler {
	return &BloodRequestHandler{
		requestService:     requestService,
		fulfillmentService: fulfillmentService,
	}
}

// Create accepts anonymous requests; a signed-in user is recorded as the
// requester.
func (h *BloodRequestHandler) Create(c *fiber.Ctx) error {
	var input domain.CreateBloodRequestInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	req, err := h.requestService.CreateBloodRequest(c.Context(), middleware.GetActor(c), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (h *BloodRequestHandler) List(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	filter := domain.RequestFilter{Location: c.Query("location")}
	if filter.BloodType, err = optionalBloodType(c, "blood_type"); err != nil {
		return err
	}
	if s := c.Query("status"); s != "" {
		status := domain.RequestStatus(s)
		filter.Status = &status
	}
	if u := c.Query("urgency"); u != "" {
		urgency, err := domain.ParseUrgency(u)
		if err != nil {
			return err
		}
		filter.Urgency = &urgency
	}
	if hid := c.Query("hospital_id"); hid != "" && actor.IsAdmin() {
		id, err := uuid.Parse(hid)
		if err != nil {
			return middleware.BadRequest("Invalid hospital ID")
		}
		filter.AssignedHospital = &id
	}

	result, err := h.requestService.ListBloodRequests(c.Context(), actor, filter, getPaginationParams(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *BloodRequestHandler) Get(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id", "request")
	if err != nil {
		return err
	}

	req, err := h.requestService.GetBloodRequest(c.Context(), actor, id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(req)
}

func (h *BloodRequestHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id", "request")
	if err != nil {
		return err
	}

	var input domain.UpdateRequestStatusInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	req, err := h.fulfillmentService.UpdateRequestStatus(c.Context(), actor, id, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(req)
}

func (h *BloodRequestHandler) Fulfill(c *fiber.Ctx) error {
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

	result, err := h.fulfillmentService.FulfillRequest(c.Context(), actor, id, input.UnitIDs)
	return respondFulfillment(c, result, err)
}
