package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"blood-donation/internal/domain"
	"blood-donation/internal/middleware"
	"blood-donation/internal/service"
)

type Handlers struct {
	Auth            *AuthHandler
	User            *UserHandler
	Notification    *NotificationHandler
	Audit           *AuditHandler
	Donor           *DonorHandler
	Inventory       *InventoryHandler
	BloodRequest    *BloodRequestHandler
	HospitalRequest *HospitalRequestHandler
	Donation        *DonationHandler
	Report          *ReportHandler
	Export          *ExportHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:            NewAuthHandler(services.Auth),
		User:            NewUserHandler(services.Auth),
		Notification:    NewNotificationHandler(services.Notification),
		Audit:           NewAuditHandler(services.Audit),
		Donor:           NewDonorHandler(services.Matching),
		Inventory:       NewInventoryHandler(services.Inventory, services.Fulfillment),
		BloodRequest:    NewBloodRequestHandler(services.Request, services.Fulfillment),
		HospitalRequest: NewHospitalRequestHandler(services.Request, services.Fulfillment),
		Donation:        NewDonationHandler(services.Donation),
		Report:          NewReportHandler(services.Reporting),
		Export:          NewExportHandler(services.Export),
	}
}

func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	params := domain.DefaultPagination()

	if page := c.QueryInt("page", 1); page > 0 {
		params.Page = page
	}
	if pageSize := c.QueryInt("page_size", 20); pageSize > 0 {
		params.PageSize = pageSize
	}

	params.Validate()
	return params
}

func parseIDParam(c *fiber.Ctx, name, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, middleware.BadRequest("Invalid " + label + " ID")
	}
	return id, nil
}

// bloodTypeValue restores a '+' that arrived as a space because the client
// did not escape it in the query string.
func bloodTypeValue(raw string) (domain.BloodType, error) {
	if strings.HasSuffix(raw, " ") {
		raw = strings.TrimRight(raw, " ") + "+"
	}
	return domain.ParseBloodType(raw)
}

func optionalBloodType(c *fiber.Ctx, key string) (*domain.BloodType, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	bt, err := bloodTypeValue(raw)
	if err != nil {
		return nil, err
	}
	return &bt, nil
}

// respondFulfillment keeps the result body when units were rejected so
// callers can see which ones failed.
func respondFulfillment(c *fiber.Ctx, result *domain.FulfillmentResult, err error) error {
	if err == nil {
		return c.Status(fiber.StatusOK).JSON(result)
	}
	if result == nil {
		return err
	}

	var status int
	switch {
	case errors.Is(err, domain.ErrInvalidUnits):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnitNotAvailable):
		status = fiber.StatusConflict
	default:
		return err
	}
	if result.Error == "" {
		result.Error = err.Error()
	}
	return c.Status(status).JSON(result)
}
