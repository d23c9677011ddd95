package domain

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	RecipientEmail string           `json:"recipient_email" db:"recipient_email"`
	Type           NotificationType `json:"type" db:"type"`
	Title          string           `json:"title" db:"title"`
	Message        string           `json:"message" db:"message"`
	RelatedID      *uuid.UUID       `json:"related_id,omitempty" db:"related_id"`
	RelatedType    *string          `json:"related_type,omitempty" db:"related_type"`
	IsRead         bool             `json:"is_read" db:"is_read"`
	ReadAt         *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

type NotificationType string

const (
	NotifRequestApproved           NotificationType = "REQUEST_APPROVED"
	NotifRequestDeclined           NotificationType = "REQUEST_DECLINED"
	NotifRequestFulfilled          NotificationType = "REQUEST_FULFILLED"
	NotifRequestPartiallyFulfilled NotificationType = "REQUEST_PARTIALLY_FULFILLED"
	NotifRequestCancelled          NotificationType = "REQUEST_CANCELLED"
	NotifHospitalResponse          NotificationType = "HOSPITAL_RESPONSE"
	NotifDonationApproved          NotificationType = "DONATION_APPROVED"
	NotifDonationRejected          NotificationType = "DONATION_REJECTED"
	NotifLowStock                  NotificationType = "LOW_STOCK"
)

type RelatedType string

const (
	RelatedBloodRequest    RelatedType = "blood_request"
	RelatedHospitalRequest RelatedType = "hospital_blood_request"
	RelatedDonation        RelatedType = "donation"
	RelatedBloodUnit       RelatedType = "blood_unit"
)

// NotificationIntent is produced by the core; storing and delivering it is the
// notification sink's job.
type NotificationIntent struct {
	RecipientEmail string           `json:"recipient_email"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	RelatedID      uuid.UUID        `json:"related_id"`
	RelatedType    RelatedType      `json:"related_type"`
}

func (i NotificationIntent) ToNotification() *Notification {
	relatedID := i.RelatedID
	relatedType := string(i.RelatedType)
	return &Notification{
		ID:             uuid.New(),
		RecipientEmail: i.RecipientEmail,
		Type:           i.Type,
		Title:          i.Title,
		Message:        i.Message,
		RelatedID:      &relatedID,
		RelatedType:    &relatedType,
	}
}
