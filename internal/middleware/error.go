package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/service/auth"
	"blood-donation/internal/service/export"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; PartialReservationError matches both reservation
// sentinels, so the more specific one comes first.
var errorMappings = []errorMapping{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "BAD_REQUEST"},
	{domain.ErrInvalidBloodType, fiber.StatusBadRequest, "INVALID_BLOOD_TYPE"},
	{domain.ErrInvalidExpiry, fiber.StatusBadRequest, "INVALID_EXPIRY"},
	{domain.ErrInvalidUnits, fiber.StatusUnprocessableEntity, "INVALID_UNITS"},
	{domain.ErrSelfResponseNotAllowed, fiber.StatusUnprocessableEntity, "SELF_RESPONSE_NOT_ALLOWED"},
	{domain.ErrPartialReservation, fiber.StatusConflict, "PARTIAL_RESERVATION"},
	{domain.ErrUnitNotAvailable, fiber.StatusConflict, "UNIT_NOT_AVAILABLE"},
	{domain.ErrUnitTerminal, fiber.StatusConflict, "UNIT_TERMINAL"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrRequestNotOpen, fiber.StatusConflict, "REQUEST_NOT_OPEN"},
	{domain.ErrReservationActive, fiber.StatusConflict, "RESERVATION_ACTIVE"},
	{auth.ErrInvalidCredentials, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{auth.ErrInvalidToken, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{auth.ErrAccountInactive, fiber.StatusForbidden, "ACCOUNT_INACTIVE"},
	{auth.ErrEmailExists, fiber.StatusConflict, "CONFLICT"},
	{auth.ErrUsernameExists, fiber.StatusConflict, "CONFLICT"},
	{export.ErrStorageUnavailable, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
}

// ErrorHandler renders every error as {code, message, trace_id}. Unmapped
// errors are logged with the trace id and hidden behind a generic message.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, errorCode, message := classify(err)
		traceID := uuid.New().String()[:8]

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("trace_id", traceID),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		return c.Status(status).JSON(ErrorResponse{
			Code:    errorCode,
			Message: message,
			TraceID: traceID,
		})
	}
}

func classify(err error) (int, string, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fiberCode(fe.Code), fe.Message
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code, err.Error()
		}
	}
	return fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
}

func fiberCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	}
	if status >= fiber.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "ERROR"
}

func NewError(code int, message string) *fiber.Error {
	return fiber.NewError(code, message)
}

func BadRequest(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

func Unauthorized(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusUnauthorized, message)
}

func Forbidden(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusForbidden, message)
}

func NotFound(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusNotFound, message)
}

func Conflict(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusConflict, message)
}
