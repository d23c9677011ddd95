package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending            RequestStatus = "pending"
	RequestApproved           RequestStatus = "approved"
	RequestDeclined           RequestStatus = "declined"
	RequestPartiallyFulfilled RequestStatus = "partially_fulfilled"
	RequestFulfilled          RequestStatus = "fulfilled"
	RequestCancelled          RequestStatus = "cancelled"
	RequestExpired            RequestStatus = "expired"
)

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestDeclined, RequestPartiallyFulfilled,
		RequestFulfilled, RequestCancelled, RequestExpired:
		return true
	}
	return false
}

func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestFulfilled, RequestDeclined, RequestCancelled, RequestExpired:
		return true
	}
	return false
}

// IsOpen reports whether units can still be reserved or offered.
func (s RequestStatus) IsOpen() bool {
	return s == RequestPending || s == RequestApproved || s == RequestPartiallyFulfilled
}

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending: {
		RequestApproved, RequestDeclined, RequestPartiallyFulfilled,
		RequestFulfilled, RequestCancelled, RequestExpired,
	},
	RequestApproved: {
		RequestPartiallyFulfilled, RequestFulfilled, RequestCancelled, RequestExpired,
	},
	RequestPartiallyFulfilled: {
		RequestFulfilled, RequestCancelled, RequestExpired,
	},
}

// CanTransitionTo enforces pending -> approved|declined -> partially_fulfilled
// -> fulfilled, with cancelled/expired reachable from any open state.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyNormal   UrgencyLevel = "normal"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// UrgencyLevels lists every level, most urgent first.
var UrgencyLevels = []UrgencyLevel{UrgencyCritical, UrgencyHigh, UrgencyNormal, UrgencyLow}

func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// ParseUrgency maps the legacy boolean form ("true"/"false") onto levels.
func ParseUrgency(s string) (UrgencyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false":
		return UrgencyNormal, nil
	case "true":
		return UrgencyHigh, nil
	}
	u := UrgencyLevel(strings.ToLower(strings.TrimSpace(s)))
	if !u.IsValid() {
		return "", InvalidInput("unknown urgency level %q", s)
	}
	return u, nil
}

// Rank orders levels for triage; higher is more urgent and unknown is 0.
func (u UrgencyLevel) Rank() int {
	switch u {
	case UrgencyCritical:
		return 4
	case UrgencyHigh:
		return 3
	case UrgencyNormal:
		return 2
	case UrgencyLow:
		return 1
	}
	return 0
}

// FulfillmentStatus derives the status for a request that has covered units
// of needed so far.
func FulfillmentStatus(covered, needed int) RequestStatus {
	if needed < 1 {
		needed = 1
	}
	if covered >= needed {
		return RequestFulfilled
	}
	if covered > 0 {
		return RequestPartiallyFulfilled
	}
	return RequestPending
}

type BloodRequest struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	RequesterID      *uuid.UUID    `json:"requester_id,omitempty" db:"requester_id"`
	Name             string        `json:"name" db:"name"`
	Email            string        `json:"email" db:"email"`
	BloodType        BloodType     `json:"blood_type" db:"blood_type"`
	Location         string        `json:"location" db:"location"`
	Urgency          UrgencyLevel  `json:"urgency" db:"urgency"`
	UnitsNeeded      int           `json:"units_needed" db:"units_needed"`
	UnitsReserved    int           `json:"units_reserved" db:"units_reserved"`
	Status           RequestStatus `json:"status" db:"status"`
	AssignedHospital *uuid.UUID    `json:"assigned_hospital,omitempty" db:"assigned_hospital"`
	Notes            *string       `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

func (r *BloodRequest) Needed() int {
	if r.UnitsNeeded < 1 {
		return 1
	}
	return r.UnitsNeeded
}

type CreateBloodRequestInput struct {
	Name             string       `json:"name" validate:"required"`
	Email            string       `json:"email" validate:"required,email"`
	BloodType        BloodType    `json:"blood_type" validate:"required"`
	Location         string       `json:"location" validate:"required"`
	Urgency          UrgencyLevel `json:"urgency"`
	UnitsNeeded      int          `json:"units_needed"`
	AssignedHospital *uuid.UUID   `json:"assigned_hospital,omitempty"`
	Notes            *string      `json:"notes,omitempty"`
}

type UpdateRequestStatusInput struct {
	Status RequestStatus `json:"status" validate:"required"`
	Notes  *string       `json:"notes,omitempty"`
}

type FulfillRequestInput struct {
	UnitIDs []uuid.UUID `json:"unit_ids" validate:"required,min=1"`
}

type RequestFilter struct {
	Status           *RequestStatus
	BloodType        *BloodType
	Urgency          *UrgencyLevel
	Location         string
	AssignedHospital *uuid.UUID
	RequesterID      *uuid.UUID
}

// FulfillmentResult is returned by fulfillment operations. On failure the
// error carries the tag and Success is false.
type FulfillmentResult struct {
	Success       bool          `json:"success"`
	RequestID     uuid.UUID     `json:"request_id"`
	ReservedCount int           `json:"reserved_count"`
	TotalCovered  int           `json:"total_covered"`
	UnitsNeeded   int           `json:"units_needed"`
	Status        RequestStatus `json:"status,omitempty"`
	ReservedUnits []uuid.UUID   `json:"reserved_units,omitempty"`
	FailedUnitIDs []uuid.UUID   `json:"failed_unit_ids,omitempty"`
	Error         string        `json:"error,omitempty"`
}
