package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ActorKind  ActorKind       `json:"actor_kind" db:"actor_kind"`
	ActorID    uuid.UUID       `json:"actor_id" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	OldValue   json.RawMessage `json:"old_value,omitempty" db:"old_value"`
	NewValue   json.RawMessage `json:"new_value,omitempty" db:"new_value"`
	IPAddress  *string         `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string         `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type CreateAuditLogInput struct {
	Actor      Actor
	Action     string
	EntityType string
	EntityID   uuid.UUID
	OldValue   interface{}
	NewValue   interface{}
	IPAddress  *string
	UserAgent  *string
}

const (
	AuditCreateUnit      = "CREATE_UNIT"
	AuditReserveUnits    = "RESERVE_UNITS"
	AuditReleaseUnits    = "RELEASE_UNITS"
	AuditMarkUsed        = "MARK_UNIT_USED"
	AuditExpireUnits     = "EXPIRE_UNITS"
	AuditDeleteUnit      = "DELETE_UNIT"
	AuditRequestStatus   = "UPDATE_REQUEST_STATUS"
	AuditHospitalRespond = "RESPOND_HOSPITAL_REQUEST"
	AuditDonationReview  = "REVIEW_DONATION"
)
