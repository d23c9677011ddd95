package handler

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/middleware"
	"blood-donation/internal/service/export"
)

type ExportHandler struct {
	exportSvc export.Service
}

func NewExportHandler(exportSvc export.Service) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// DownloadInventory streams the workbook in the response.
func (h *ExportHandler) DownloadInventory(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	hospitalID, err := scopeHospital(c, actor)
	if err != nil {
		return err
	}

	data, _, err := h.exportSvc.InventoryWorkbook(c.Context(), actor, hospitalID)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("inventory_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	return c.Send(data)
}

// ExportInventory stores the workbook and returns a time-limited link.
func (h *ExportHandler) ExportInventory(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return err
	}
	hospitalID, err := scopeHospital(c, actor)
	if err != nil {
		return err
	}

	out, err := h.exportSvc.ExportInventory(c.Context(), actor, hospitalID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
