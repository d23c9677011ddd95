package domain

import (
	"time"

	"github.com/google/uuid"
)

type ResponseStatus string

const (
	ResponseOffered  ResponseStatus = "offered"
	ResponseDeclined ResponseStatus = "declined"
)

func (r ResponseStatus) IsValid() bool {
	return r == ResponseOffered || r == ResponseDeclined
}

// HospitalBloodRequest is a request raised by one hospital for other
// hospitals to cover.
type HospitalBloodRequest struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	RequestingHospital uuid.UUID     `json:"requesting_hospital" db:"requesting_hospital"`
	PatientName        string        `json:"patient_name" db:"patient_name"`
	BloodType          BloodType     `json:"blood_type" db:"blood_type"`
	UnitsNeeded        int           `json:"units_needed" db:"units_needed"`
	UrgencyLevel       UrgencyLevel  `json:"urgency_level" db:"urgency_level"`
	Status             RequestStatus `json:"status" db:"status"`
	RespondingHospital *uuid.UUID    `json:"responding_hospital,omitempty" db:"responding_hospital"`
	UnitsOffered       int           `json:"units_offered" db:"units_offered"`
	Notes              *string       `json:"notes,omitempty" db:"notes"`
	ExpiresAt          time.Time     `json:"expires_at" db:"expires_at"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`

	RequestingHospitalName string `json:"requesting_hospital_name,omitempty" db:"requesting_hospital_name"`
}

// AcceptsResponses reports whether other hospitals may still respond.
func (r *HospitalBloodRequest) AcceptsResponses() bool {
	return r.Status == RequestPending || r.Status == RequestPartiallyFulfilled
}

// ApplyOffer adds offered units and derives the resulting status.
func (r *HospitalBloodRequest) ApplyOffer(hospitalID uuid.UUID, units int) {
	r.UnitsOffered += units
	responder := hospitalID
	r.RespondingHospital = &responder
	r.Status = FulfillmentStatus(r.UnitsOffered, r.UnitsNeeded)
}

type CreateHospitalRequestInput struct {
	PatientName  string       `json:"patient_name" validate:"required"`
	BloodType    BloodType    `json:"blood_type" validate:"required"`
	UnitsNeeded  int          `json:"units_needed" validate:"required,min=1"`
	UrgencyLevel UrgencyLevel `json:"urgency_level"`
	Notes        *string      `json:"notes,omitempty"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
}

type RespondToRequestInput struct {
	UnitsOffered   int            `json:"units_offered"`
	ResponseStatus ResponseStatus `json:"response_status" validate:"required"`
	Notes          *string        `json:"notes,omitempty"`
}
