package domain

import (
	"time"

	"github.com/google/uuid"
)

type UnitStatus string

const (
	UnitAvailable UnitStatus = "Available"
	UnitReserved  UnitStatus = "Reserved"
	UnitUsed      UnitStatus = "Used"
	UnitExpired   UnitStatus = "Expired"
)

func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitAvailable, UnitReserved, UnitUsed, UnitExpired:
		return true
	}
	return false
}

func (s UnitStatus) IsTerminal() bool {
	return s == UnitUsed || s == UnitExpired
}

// CanTransitionTo encodes the unit lifecycle. Reserved and Available are the
// only pair that may move back and forth.
func (s UnitStatus) CanTransitionTo(next UnitStatus) bool {
	switch s {
	case UnitAvailable:
		return next == UnitReserved || next == UnitUsed || next == UnitExpired
	case UnitReserved:
		return next == UnitAvailable || next == UnitUsed
	}
	return false
}

// TransitionError returns the domain error for moving from s to next, or nil
// when the move is allowed.
func (s UnitStatus) TransitionError(next UnitStatus) error {
	if s.IsTerminal() {
		return ErrUnitTerminal
	}
	if !s.CanTransitionTo(next) {
		return ErrUnitNotAvailable
	}
	return nil
}

type BloodUnit struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	DonationID           *uuid.UUID `json:"donation_id,omitempty" db:"donation_id"`
	BloodType            BloodType  `json:"blood_type" db:"blood_type"`
	DonorName            string     `json:"donor_name" db:"donor_name"`
	DonorEmail           string     `json:"donor_email" db:"donor_email"`
	HospitalID           uuid.UUID  `json:"hospital_id" db:"hospital_id"`
	ExpiryDate           time.Time  `json:"expiry_date" db:"expiry_date"`
	Status               UnitStatus `json:"status" db:"status"`
	ReservedForRequestID *uuid.UUID `json:"reserved_for_request_id,omitempty" db:"reserved_for_request_id"`
	FulfilledRequestID   *uuid.UUID `json:"fulfilled_request_id,omitempty" db:"fulfilled_request_id"`
	UsedDate             *time.Time `json:"used_date,omitempty" db:"used_date"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

func (u *BloodUnit) IsExpiredAt(now time.Time) bool {
	return u.ExpiryDate.Before(now)
}

// DaysUntilExpiry rounds down; negative values mean the unit is past expiry.
func (u *BloodUnit) DaysUntilExpiry(now time.Time) int {
	return int(u.ExpiryDate.Sub(now).Hours() / 24)
}

// UnitStatusChange carries the columns written alongside a status change.
type UnitStatusChange struct {
	ReservedForRequestID *uuid.UUID
	ClearReservation     bool
	FulfilledRequestID   *uuid.UUID
	UsedDate             *time.Time
}

type CreateUnitInput struct {
	DonationID *uuid.UUID `json:"donation_id,omitempty"`
	BloodType  BloodType  `json:"blood_type" validate:"required"`
	DonorName  string     `json:"donor_name" validate:"required"`
	DonorEmail string     `json:"donor_email" validate:"omitempty,email"`
	ExpiryDate *time.Time `json:"expiry_date" validate:"required"`
}

type UnitFilter struct {
	BloodType          *BloodType  `json:"blood_type,omitempty"`
	Status             *UnitStatus `json:"status,omitempty"`
	ExpiringWithinDays *int        `json:"expiring_within_days,omitempty"`
}

type MarkUsedInput struct {
	UsedDate *time.Time `json:"used_date,omitempty"`
}

type LowStockAlert struct {
	BloodType      BloodType `json:"blood_type" db:"blood_type"`
	AvailableCount int       `json:"available_count" db:"available_count"`
}

// UnitCount is one row of a grouped count over blood_units.
type UnitCount struct {
	BloodType BloodType  `db:"blood_type"`
	Status    UnitStatus `db:"status"`
	Count     int        `db:"count"`
}
