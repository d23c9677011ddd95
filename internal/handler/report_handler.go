package handler

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/middleware"
	"blood-donation/internal/service/reporting"
)

type ReportHandler struct {
	reportingService reporting.Service
}

func NewReportHandler(reportingService reporting.Service) *ReportHandler {
	return &ReportHandler{reportingService: reportingService}
}

func (h *ReportHandler) StockSummary(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	hospitalID, err := scopeHospital(c, actor)
	if err != nil {
		return err
	}

	summary, err := h.reportingService.StockSummary(c.Context(), actor, hospitalID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}

func (h *ReportHandler) MatchingSummary(c *fiber.Ctx) error {
	recipient, err := bloodTypeValue(c.Query("blood_type"))
	if err != nil {
		return err
	}

	summary, err := h.reportingService.MatchingSummary(c.Context(), recipient)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}

func (h *ReportHandler) BloodTypeOverview(c *fiber.Ctx) error {
	overview, err := h.reportingService.BloodTypeOverview(c.Context())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(overview)
}

func (h *ReportHandler) LocationStats(c *fiber.Ctx) error {
	stats, err := h.reportingService.LocationStats(c.Context())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
