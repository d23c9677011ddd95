package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BloodTypeStock struct {
	BloodType      BloodType `json:"blood_type"`
	Available      int       `json:"available"`
	Reserved       int       `json:"reserved"`
	Used           int       `json:"used"`
	Expired        int       `json:"expired"`
	ExpiringSoon   int       `json:"expiring_soon"`
	BelowThreshold bool      `json:"below_threshold"`
}

type StockSummary struct {
	HospitalID      uuid.UUID        `json:"hospital_id"`
	Stocks          []BloodTypeStock `json:"stocks"`
	TotalAvailable  int              `json:"total_available"`
	TotalReserved   int              `json:"total_reserved"`
	LowStockTypes   []BloodType      `json:"low_stock_types"`
	ExpiryAlertDays int              `json:"expiry_alert_days"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

type CompatibleTypeCount struct {
	BloodType     BloodType     `json:"blood_type"`
	MatchPriority MatchPriority `json:"match_priority"`
	Donors        int64         `json:"donors"`
	Available     int           `json:"available_units"`
}

type MatchingSummary struct {
	RecipientType   BloodType             `json:"recipient_type"`
	CompatibleTypes []CompatibleTypeCount `json:"compatible_types"`
	TotalDonors     int64                 `json:"total_donors"`
	TotalAvailable  int                   `json:"total_available_units"`
}

type BloodTypeOverviewRow struct {
	BloodType      BloodType       `json:"blood_type"`
	Donors         int64           `json:"donors"`
	AvailableUnits int             `json:"available_units"`
	OpenRequests   int64           `json:"open_requests"`
	CanDonateTo    []BloodType     `json:"can_donate_to"`
	CanReceiveFrom []BloodType     `json:"can_receive_from"`
	CoverageRatio  decimal.Decimal `json:"coverage_ratio"`
}

type BloodTypeOverview struct {
	Rows        []BloodTypeOverviewRow `json:"rows"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// RequestCount is one row of a grouped count over requests.
type RequestCount struct {
	Key    string        `db:"key"`
	Status RequestStatus `db:"status"`
	Count  int64         `db:"count"`
}

type LocationStat struct {
	Location        string          `json:"location"`
	TotalRequests   int64           `json:"total_requests"`
	OpenRequests    int64           `json:"open_requests"`
	Fulfilled       int64           `json:"fulfilled"`
	FulfillmentRate decimal.Decimal `json:"fulfillment_rate"`
}

type LocationStats struct {
	Locations   []LocationStat `json:"locations"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// DonorCount is a grouped count of donors by blood type.
type DonorCount struct {
	BloodType BloodType `db:"blood_type"`
	Count     int64     `db:"count"`
}

// ReportExport points at an uploaded inventory workbook.
type ReportExport struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Units     int       `json:"units"`
	ExpiresAt time.Time `json:"expires_at"`
}
