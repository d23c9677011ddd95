package domain

import (
	"time"

	"github.com/google/uuid"
)

type DonationStatus string

const (
	DonationPending  DonationStatus = "pending"
	DonationApproved DonationStatus = "approved"
	DonationRejected DonationStatus = "rejected"
)

func (s DonationStatus) IsValid() bool {
	switch s {
	case DonationPending, DonationApproved, DonationRejected:
		return true
	}
	return false
}

type Donation struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	UserID       uuid.UUID      `json:"user_id" db:"user_id"`
	DonorName    string         `json:"donor_name" db:"donor_name"`
	DonorEmail   string         `json:"donor_email" db:"donor_email"`
	BloodType    BloodType      `json:"blood_type" db:"blood_type"`
	Location     string         `json:"location" db:"location"`
	HospitalID   *uuid.UUID     `json:"hospital_id,omitempty" db:"hospital_id"`
	Status       DonationStatus `json:"status" db:"status"`
	DonationDate time.Time      `json:"donation_date" db:"donation_date"`
	ReviewNote   *string        `json:"review_note,omitempty" db:"review_note"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

type CreateDonationInput struct {
	BloodType    BloodType  `json:"blood_type" validate:"required"`
	Location     string     `json:"location" validate:"required"`
	HospitalID   *uuid.UUID `json:"hospital_id,omitempty"`
	DonationDate *time.Time `json:"donation_date,omitempty"`
}

type ApproveDonationInput struct {
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Note       *string    `json:"note,omitempty"`
}

type ReviewDonationInput struct {
	Note *string `json:"note,omitempty"`
}

// DefaultShelfLife is the storage life of whole blood when no expiry is given.
const DefaultShelfLife = 42 * 24 * time.Hour
