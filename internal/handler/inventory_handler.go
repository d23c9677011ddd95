package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"blood-donation/internal/domain"
	"blood-donation/internal/middleware"
	"blood-donation/internal/service/fulfillment"
	"blood-donation/internal/service/inventory"
)

type InventoryHandler struct {
	inventoryService   inventory.Service
	fulfillmentService fulfillment.Service
}

func NewInventoryHandler(inventoryService inventory.Service, fulfillmentService fulfillment.Service) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, fulfillmentService: fulfillmentService}
}

// scopeHospital resolves which hospital's stock a request reads. Hospitals
// always read their own; admins pass ?hospital_id=.
func scopeHospital(c *fiber.Ctx, actor domain.Actor) (uuid.UUID, error) {
	if actor.IsHospital() {
		return actor.ID, nil
	}
	if !actor.IsAdmin() {
		return uuid.Nil, domain.ErrForbidden
	}
	id, err := uuid.Parse(c.Query("hospital_id"))
	if err != nil {
		return uuid.Nil, middleware.BadRequest("hospital_id is required")
	}
	return id, nil
}

func (h *InventoryHandler) CreateUnit(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	var input domain.CreateUnitInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	unit, err := h.inventoryService.CreateUnit(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(unit)
}

func (h *InventoryHandler) List(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	hospitalID, err := scopeHospital(c, actor)
	if err != nil {
		return err
	}

	var filter domain.UnitFilter
	if filter.BloodType, err = optionalBloodType(c, "blood_type"); err != nil {
		return err
	}
	if s := c.Query("status"); s != "" {
		status := domain.UnitStatus(s)
		filter.Status = &status
	}
	if c.Query("expiring_within_days") != "" {
		days := c.QueryInt("expiring_within_days", -1)
		filter.ExpiringWithinDays = &days
	}

	units, err := h.inventoryService.GetInventory(c.Context(), hospitalID, filter)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"hospital_id": hospitalID,
		"units":       units,
		"total":       len(units),
	})
}

func (h *InventoryHandler) GetUnit(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	unitID, err := parseIDParam(c, "id", "unit")
	if err != nil {
		return err
	}

	unit, err := h.inventoryService.GetUnit(c.Context(), actor, unitID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(unit)
}

func (h *InventoryHandler) MarkUsed(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	unitID, err := parseIDParam(c, "id", "unit")
	if err != nil {
		return err
	}

	var input domain.MarkUsedInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return middleware.BadRequest("Invalid request body")
		}
	}

	unit, err := h.inventoryService.MarkUsed(c.Context(), actor, unitID, input.UsedDate)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(unit)
}

// Release returns a reserved unit to stock once its request no longer
// counts it.
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	unitID, err := parseIDParam(c, "id", "unit")
	if err != nil {
		return err
	}

	unit, err := h.fulfillmentService.ReleaseUnit(c.Context(), actor, unitID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(unit)
}

func (h *InventoryHandler) DeleteUnit(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	unitID, err := parseIDParam(c, "id", "unit")
	if err != nil {
		return err
	}

	if err := h.inventoryService.DeleteUnit(c.Context(), actor, unitID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *InventoryHandler) LowStockAlerts(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	hospitalID, err := scopeHospital(c, actor)
	if err != nil {
		return err
	}

	alerts, err := h.inventoryService.GetLowStockAlerts(c.Context(), hospitalID, c.QueryInt("threshold", 0))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(alerts)
}

func (h *InventoryHandler) ExpiringAlerts(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	hospitalID, err := scopeHospital(c, actor)
	if err != nil {
		return err
	}

	units, err := h.inventoryService.GetExpiringAlerts(c.Context(), hospitalID, c.QueryInt("days", 0))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(units)
}

// Sweep expires the caller's overdue Available units immediately instead of
// waiting for the background sweeper.
func (h *InventoryHandler) Sweep(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	hospitalID, err := scopeHospital(c, actor)
	if err != nil {
		return err
	}

	expired, err := h.inventoryService.MarkExpiredUnits(c.Context(), hospitalID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"expired": expired,
		"count":   len(expired),
	})
}
