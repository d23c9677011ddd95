package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"blood-donation/internal/domain"
)

type HospitalRequestRepository interface {
	Create(ctx context.Context, req *domain.HospitalBloodRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.HospitalBloodRequest, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, params domain.PaginationParams) ([]domain.HospitalBloodRequest, int64, error)
	ListOpenForResponder(ctx context.Context, hospitalID uuid.UUID, now time.Time, params domain.PaginationParams) ([]domain.HospitalBloodRequest, int64, error)
	ApplyOffer(ctx context.Context, id, responder uuid.UUID, units int) (*domain.HospitalBloodRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type hospitalRequestRepository struct {
	db *sqlx.DB
}

func NewHospitalRequestRepository(db *sqlx.DB) HospitalRequestRepository {
	return &hospitalRequestRepository{db: db}
}

const hospitalRequestSelect = `
	SELECT hr.id, hr.requesting_hospital, hr.patient_name, hr.blood_type, hr.units_needed,
		hr.urgency_level, hr.status, hr.responding_hospital, hr.units_offered, hr.notes,
		hr.expires_at, hr.created_at, hr.updated_at, COALESCE(h.name, '') AS requesting_hospital_name
	FROM hospital_blood_requests hr
	LEFT JOIN hospitals h ON h.id = hr.requesting_hospital`

func (r *hospitalRequestRepository) Create(ctx context.Context, req *domain.HospitalBloodRequest) error {
	query := `
		INSERT INTO hospital_blood_requests (id, requesting_hospital, patient_name, blood_type, units_needed,
			urgency_level, status, units_offered, notes, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		req.ID, req.RequestingHospital, req.PatientName, req.BloodType, req.UnitsNeeded,
		req.UrgencyLevel, req.Status, req.UnitsOffered, req.Notes, req.ExpiresAt,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
}

func (r *hospitalRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.HospitalBloodRequest, error) {
	var req domain.HospitalBloodRequest
	err := r.db.GetContext(ctx, &req, hospitalRequestSelect+` WHERE hr.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *hospitalRequestRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID, params domain.PaginationParams) ([]domain.HospitalBloodRequest, int64, error) {
	params.Validate()

	var total int64
	countQuery := `SELECT COUNT(*) FROM hospital_blood_requests WHERE requesting_hospital = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, hospitalID); err != nil {
		return nil, 0, err
	}

	query := hospitalRequestSelect + `
		WHERE hr.requesting_hospital = $1
		ORDER BY hr.created_at DESC
		LIMIT $2 OFFSET $3`

	requests := []domain.HospitalBloodRequest{}
	err := r.db.SelectContext(ctx, &requests, query, hospitalID, params.PageSize, params.Offset())
	return requests, total, err
}

// ListOpenForResponder lists requests from other hospitals that still accept
// responses, most urgent first.
func (r *hospitalRequestRepository) ListOpenForResponder(ctx context.Context, hospitalID uuid.UUID, now time.Time, params domain.PaginationParams) ([]domain.HospitalBloodRequest, int64, error) {
	params.Validate()

	where := `
		WHERE hr.requesting_hospital <> $1
		AND hr.status IN ('pending', 'partially_fulfilled')
		AND hr.expires_at > $2`

	var total int64
	countQuery := `SELECT COUNT(*) FROM hospital_blood_requests hr` + where
	if err := r.db.GetContext(ctx, &total, countQuery, hospitalID, now); err != nil {
		return nil, 0, err
	}

	query := hospitalRequestSelect + where + `
		ORDER BY ` + urgencyOrder("hr.urgency_level") + `, hr.expires_at ASC
		LIMIT $3 OFFSET $4`

	requests := []domain.HospitalBloodRequest{}
	err := r.db.SelectContext(ctx, &requests, query, hospitalID, now, params.PageSize, params.Offset())
	return requests, total, err
}

// ApplyOffer accumulates offered units under a row lock and stores the
// status HospitalBloodRequest.ApplyOffer derives. It returns nil when the
// request no longer accepts responses or responder is the requester.
func (r *hospitalRequestRepository) ApplyOffer(ctx context.Context, id, responder uuid.UUID, units int) (*domain.HospitalBloodRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var req domain.HospitalBloodRequest
	err = tx.GetContext(ctx, &req, hospitalRequestSelect+` WHERE hr.id = $1 FOR UPDATE OF hr`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !req.AcceptsResponses() || req.RequestingHospital == responder {
		return nil, nil
	}

	req.ApplyOffer(responder, units)

	query := `
		UPDATE hospital_blood_requests
		SET units_offered = $2, status = $3, responding_hospital = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	if err := tx.QueryRowxContext(ctx, query, req.ID, req.UnitsOffered, req.Status, responder).Scan(&req.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &req, nil
}

// urgencyOrder renders an ORDER BY term putting the most urgent rows first.
// Only enum constants are interpolated.
func urgencyOrder(column string) string {
	var b strings.Builder
	b.WriteString("CASE " + column)
	for _, u := range domain.UrgencyLevels {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", u, u.Rank())
	}
	b.WriteString(" ELSE 0 END DESC")
	return b.String()
}

func (r *hospitalRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus) (bool, error) {
	query := `
		UPDATE hospital_blood_requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *hospitalRequestRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE hospital_blood_requests
		SET status = 'expired', updated_at = NOW()
		WHERE status IN ('pending', 'approved', 'partially_fulfilled') AND expires_at <= $1
		RETURNING id`

	ids := []uuid.UUID{}
	err := r.db.SelectContext(ctx, &ids, query, now)
	return ids, err
}
