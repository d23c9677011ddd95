package domain

import (
	"time"

	"github.com/google/uuid"
)

// Donor is the read-only projection of a user profile used for matching.
type Donor struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"full_name"`
	Email     string    `json:"email" db:"email"`
	BloodType BloodType `json:"blood_type" db:"blood_type"`
	Location  *string   `json:"location,omitempty" db:"location"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type MatchPriority int

const (
	PriorityExact     MatchPriority = 1
	PriorityUniversal MatchPriority = 2
	PriorityOther     MatchPriority = 3
)

func (p MatchPriority) Label() string {
	switch p {
	case PriorityExact:
		return "Exact Match"
	case PriorityUniversal:
		return "Universal Donor"
	default:
		return "Compatible"
	}
}

// PriorityFor ranks a compatible donor type against a recipient type.
func PriorityFor(recipient, donor BloodType) MatchPriority {
	switch {
	case donor == recipient:
		return PriorityExact
	case donor == UniversalDonor:
		return PriorityUniversal
	default:
		return PriorityOther
	}
}

type DonorMatch struct {
	Donor
	MatchPriority      MatchPriority `json:"match_priority"`
	CompatibilityLabel string        `json:"compatibility_label"`
}

type MatchQuery struct {
	Location string `json:"location" query:"location"`
	Search   string `json:"search" query:"search"`
	Page     int    `json:"page" query:"page"`
	PageSize int    `json:"page_size" query:"page_size"`
}

func (q *MatchQuery) Pagination() PaginationParams {
	p := PaginationParams{Page: q.Page, PageSize: q.PageSize}
	p.Validate()
	return p
}

type MatchResult struct {
	RecipientType   BloodType    `json:"recipient_type"`
	Donors          []DonorMatch `json:"donors"`
	Total           int64        `json:"total"`
	CompatibleTypes []BloodType  `json:"compatible_types"`
	Page            int          `json:"page"`
	PageSize        int          `json:"page_size"`
}

// DonorQuery is the fixed set of predicates the donor repository supports.
type DonorQuery struct {
	Recipient BloodType
	Search    string
	Location  string
	Limit     int
	Offset    int
}
