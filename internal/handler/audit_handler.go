package handler

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/middleware"
	"blood-donation/internal/service/audit"
)

type AuditHandler struct {
	auditService audit.Service
}

func NewAuditHandler(auditService audit.Service) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) GetRecentActivities(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	logs, err := h.auditService.GetRecentActivities(c.Context(), actor, limit)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(logs)
}

func (h *AuditHandler) GetEntityHistory(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	entityID, err := parseIDParam(c, "id", "entity")
	if err != nil {
		return err
	}

	result, err := h.auditService.GetEntityHistory(c.Context(), actor, c.Params("type"), entityID, getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
