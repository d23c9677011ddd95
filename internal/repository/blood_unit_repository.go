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

// BloodUnitRepository never caches unit state. Every status change is a
// conditional update on the current status, so concurrent reservations and
// expiry sweeps cannot both succeed on the same unit.
type BloodUnitRepository interface {
	Create(ctx context.Context, unit *domain.BloodUnit) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodUnit, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.BloodUnit, error)
	Find(ctx context.Context, hospitalID uuid.UUID, filter domain.UnitFilter, now time.Time) ([]domain.BloodUnit, error)
	ConditionalUpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.UnitStatus, change domain.UnitStatusChange) (bool, error)
	ReserveAll(ctx context.Context, hospitalID, requestID uuid.UUID, unitIDs []uuid.UUID, now time.Time) error
	Release(ctx context.Context, requestID uuid.UUID, unitIDs []uuid.UUID) (int64, error)
	ReleaseByRequest(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error)
	ExpireAvailable(ctx context.Context, hospitalID *uuid.UUID, now time.Time) ([]domain.BloodUnit, error)
	CountByTypeAndStatus(ctx context.Context, hospitalID *uuid.UUID) ([]domain.UnitCount, error)
	CountExpiring(ctx context.Context, hospitalID uuid.UUID, now, until time.Time) ([]domain.UnitCount, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type bloodUnitRepository struct {
	db *sqlx.DB
}

func NewBloodUnitRepository(db *sqlx.DB) BloodUnitRepository {
	return &bloodUnitRepository{db: db}
}

const bloodUnitColumns = `id, donation_id, blood_type, donor_name, donor_email, hospital_id, expiry_date,
	status, reserved_for_request_id, fulfilled_request_id, used_date, created_at, updated_at`

func (r *bloodUnitRepository) Create(ctx context.Context, unit *domain.BloodUnit) error {
	query := `
		INSERT INTO blood_units (id, donation_id, blood_type, donor_name, donor_email, hospital_id, expiry_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		unit.ID, unit.DonationID, unit.BloodType, unit.DonorName, unit.DonorEmail,
		unit.HospitalID, unit.ExpiryDate, unit.Status,
	).Scan(&unit.CreatedAt, &unit.UpdatedAt)
}

func (r *bloodUnitRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodUnit, error) {
	var unit domain.BloodUnit
	query := `SELECT ` + bloodUnitColumns + ` FROM blood_units WHERE id = $1`

	err := r.db.GetContext(ctx, &unit, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *bloodUnitRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.BloodUnit, error) {
	if len(ids) == 0 {
		return []domain.BloodUnit{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+bloodUnitColumns+` FROM blood_units WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	query = r.db.Rebind(query)
	var units []domain.BloodUnit
	err = r.db.SelectContext(ctx, &units, query, args...)
	return units, err
}

func (r *bloodUnitRepository) Find(ctx context.Context, hospitalID uuid.UUID, filter domain.UnitFilter, now time.Time) ([]domain.BloodUnit, error) {
	conds := []string{"hospital_id = $1"}
	args := []interface{}{hospitalID}

	if filter.BloodType != nil {
		args = append(args, *filter.BloodType)
		conds = append(conds, fmt.Sprintf("blood_type = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ExpiringWithinDays != nil {
		args = append(args, now, now.AddDate(0, 0, *filter.ExpiringWithinDays))
		conds = append(conds, fmt.Sprintf("expiry_date >= $%d AND expiry_date <= $%d", len(args)-1, len(args)))
	}

	query := `SELECT ` + bloodUnitColumns + ` FROM blood_units
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY expiry_date ASC, created_at ASC`

	units := []domain.BloodUnit{}
	err := r.db.SelectContext(ctx, &units, query, args...)
	return units, err
}

func (r *bloodUnitRepository) ConditionalUpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.UnitStatus, change domain.UnitStatusChange) (bool, error) {
	query := `
		UPDATE blood_units
		SET status = $3,
			reserved_for_request_id = CASE WHEN $4::boolean THEN NULL ELSE COALESCE($5::uuid, reserved_for_request_id) END,
			fulfilled_request_id = COALESCE($6::uuid, fulfilled_request_id),
			used_date = COALESCE($7::timestamptz, used_date),
			updated_at = NOW()
		WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query,
		id, expected, next, change.ClearReservation,
		change.ReservedForRequestID, change.FulfilledRequestID, change.UsedDate,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReserveAll moves every unit to Reserved in one transaction. A unit that is
// not Available, not owned by hospitalID or already past expiry fails its
// conditional update; any failure rolls back the whole batch and the error
// is a *domain.PartialReservationError naming the failed units.
func (r *bloodUnitRepository) ReserveAll(ctx context.Context, hospitalID, requestID uuid.UUID, unitIDs []uuid.UUID, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE blood_units
		SET status = 'Reserved', reserved_for_request_id = $3, updated_at = NOW()
		WHERE id = $1 AND hospital_id = $2 AND status = 'Available' AND expiry_date >= $4`

	var failed []uuid.UUID
	for _, id := range unitIDs {
		res, err := tx.ExecContext(ctx, query, id, hospitalID, requestID, now)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			failed = append(failed, id)
		}
	}

	if len(failed) > 0 {
		return &domain.PartialReservationError{FailedUnitIDs: failed}
	}
	return tx.Commit()
}

func (r *bloodUnitRepository) Release(ctx context.Context, requestID uuid.UUID, unitIDs []uuid.UUID) (int64, error) {
	if len(unitIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		UPDATE blood_units
		SET status = 'Available', reserved_for_request_id = NULL, updated_at = NOW()
		WHERE status = 'Reserved' AND reserved_for_request_id = ? AND id IN (?)`, requestID, unitIDs)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *bloodUnitRepository) ReleaseByRequest(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		UPDATE blood_units
		SET status = 'Available', reserved_for_request_id = NULL, updated_at = NOW()
		WHERE status = 'Reserved' AND reserved_for_request_id = $1
		RETURNING id`

	ids := []uuid.UUID{}
	err := r.db.SelectContext(ctx, &ids, query, requestID)
	return ids, err
}

func (r *bloodUnitRepository) ExpireAvailable(ctx context.Context, hospitalID *uuid.UUID, now time.Time) ([]domain.BloodUnit, error) {
	query := `
		UPDATE blood_units
		SET status = 'Expired', updated_at = NOW()
		WHERE status = 'Available' AND expiry_date < $1
		AND ($2::uuid IS NULL OR hospital_id = $2)
		RETURNING ` + bloodUnitColumns

	units := []domain.BloodUnit{}
	err := r.db.SelectContext(ctx, &units, query, now, hospitalID)
	return units, err
}

func (r *bloodUnitRepository) CountByTypeAndStatus(ctx context.Context, hospitalID *uuid.UUID) ([]domain.UnitCount, error) {
	query := `
		SELECT blood_type, status, COUNT(*) AS count
		FROM blood_units
		WHERE ($1::uuid IS NULL OR hospital_id = $1)
		GROUP BY blood_type, status`

	var counts []domain.UnitCount
	err := r.db.SelectContext(ctx, &counts, query, hospitalID)
	return counts, err
}

func (r *bloodUnitRepository) CountExpiring(ctx context.Context, hospitalID uuid.UUID, now, until time.Time) ([]domain.UnitCount, error) {
	query := `
		SELECT blood_type, status, COUNT(*) AS count
		FROM blood_units
		WHERE hospital_id = $1 AND status = 'Available' AND expiry_date >= $2 AND expiry_date <= $3
		GROUP BY blood_type, status`

	var counts []domain.UnitCount
	err := r.db.SelectContext(ctx, &counts, query, hospitalID, now, until)
	return counts, err
}

func (r *bloodUnitRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blood_units WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
