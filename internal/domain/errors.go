package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Domain errors returned by the core. Repositories return infrastructure
// errors; services translate them into these before they reach a handler.
var (
	ErrInvalidBloodType       = errors.New("invalid blood type")
	ErrInvalidExpiry          = errors.New("expiry date is required")
	ErrUnitNotAvailable       = errors.New("unit no longer available")
	ErrUnitTerminal           = errors.New("unit is in a terminal state")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrSelfResponseNotAllowed = errors.New("hospital cannot respond to its own request")
	ErrRequestNotOpen         = errors.New("request is not open")
	ErrPartialReservation     = errors.New("one or more units could not be reserved")
	ErrInvalidUnits           = errors.New("invalid or unavailable units")
	ErrReservationActive      = errors.New("unit is held by an active request")

	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// PartialReservationError lists the units whose conditional reservation
// failed. The whole reservation was rolled back.
type PartialReservationError struct {
	FailedUnitIDs []uuid.UUID
}

func (e *PartialReservationError) Error() string {
	ids := make([]string, len(e.FailedUnitIDs))
	for i, id := range e.FailedUnitIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%s: %s", ErrPartialReservation.Error(), strings.Join(ids, ", "))
}

func (e *PartialReservationError) Is(target error) bool {
	return target == ErrPartialReservation || target == ErrUnitNotAvailable
}

// InvalidInput wraps ErrInvalidInput with a field-specific message.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
