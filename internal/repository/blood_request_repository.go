package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"blood-donation/internal/domain"
)

type BloodRequestRepository interface {
	Create(ctx context.Context, req *domain.BloodRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodRequest, error)
	List(ctx context.Context, filter domain.RequestFilter, params domain.PaginationParams) ([]domain.BloodRequest, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus, notes *string) (bool, error)
	UpdateFulfillment(ctx context.Context, id, hospitalID uuid.UUID, added int) (*domain.BloodRequest, error)
	CountByStatusAndType(ctx context.Context) ([]domain.RequestCount, error)
	CountByLocationAndStatus(ctx context.Context) ([]domain.RequestCount, error)
}

type bloodRequestRepository struct {
	db *sqlx.DB
}

func NewBloodRequestRepository(db *sqlx.DB) BloodRequestRepository {
	return &bloodRequestRepository{db: db}
}

const bloodRequestColumns = `id, requester_id, name, email, blood_type, location, urgency, units_needed,
	units_reserved, status, assigned_hospital, notes, created_at, updated_at`

func (r *bloodRequestRepository) Create(ctx context.Context, req *domain.BloodRequest) error {
	query := `
		INSERT INTO blood_requests (id, requester_id, name, email, blood_type, location, urgency,
			units_needed, units_reserved, status, assigned_hospital, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		req.ID, req.RequesterID, req.Name, req.Email, req.BloodType, req.Location, req.Urgency,
		req.UnitsNeeded, req.UnitsReserved, req.Status, req.AssignedHospital, req.Notes,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
}

func (r *bloodRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodRequest, error) {
	var req domain.BloodRequest
	query := `SELECT ` + bloodRequestColumns + ` FROM blood_requests WHERE id = $1`

	err := r.db.GetContext(ctx, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *bloodRequestRepository) List(ctx context.Context, filter domain.RequestFilter, params domain.PaginationParams) ([]domain.BloodRequest, int64, error) {
	params.Validate()

	conds := []string{"1=1"}
	args := []interface{}{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.BloodType != nil {
		add("blood_type = $%d", *filter.BloodType)
	}
	if filter.Urgency != nil {
		add("urgency = $%d", *filter.Urgency)
	}
	if strings.TrimSpace(filter.Location) != "" {
		add("location ILIKE $%d", containsPattern(filter.Location))
	}
	if filter.AssignedHospital != nil {
		add("(assigned_hospital = $%d OR assigned_hospital IS NULL)", *filter.AssignedHospital)
	}
	if filter.RequesterID != nil {
		add("requester_id = $%d", *filter.RequesterID)
	}
	where := strings.Join(conds, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM blood_requests WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM blood_requests
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, bloodRequestColumns, where, len(args)+1, len(args)+2)

	requests := []domain.BloodRequest{}
	err := r.db.SelectContext(ctx, &requests, query, append(args, params.PageSize, params.Offset())...)
	return requests, total, err
}

// UpdateStatus only succeeds when the stored status still equals from.
func (r *bloodRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus, notes *string) (bool, error) {
	query := `
		UPDATE blood_requests
		SET status = $3, notes = COALESCE($4, notes), updated_at = NOW()
		WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, id, from, to, notes)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// UpdateFulfillment adds newly reserved units to the running total under a
// row lock and stores the status domain.FulfillmentStatus derives. It returns
// nil when the request is no longer open or is assigned to another hospital.
func (r *bloodRequestRepository) UpdateFulfillment(ctx context.Context, id, hospitalID uuid.UUID, added int) (*domain.BloodRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var req domain.BloodRequest
	err = tx.GetContext(ctx, &req, `SELECT `+bloodRequestColumns+` FROM blood_requests WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !req.Status.IsOpen() || (req.AssignedHospital != nil && *req.AssignedHospital != hospitalID) {
		return nil, nil
	}

	req.UnitsReserved += added
	req.Status = domain.FulfillmentStatus(req.UnitsReserved, req.UnitsNeeded)
	req.AssignedHospital = &hospitalID

	query := `
		UPDATE blood_requests
		SET units_reserved = $2, status = $3, assigned_hospital = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	if err := tx.QueryRowxContext(ctx, query, req.ID, req.UnitsReserved, req.Status, hospitalID).Scan(&req.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *bloodRequestRepository) CountByStatusAndType(ctx context.Context) ([]domain.RequestCount, error) {
	query := `
		SELECT blood_type AS key, status, COUNT(*) AS count
		FROM blood_requests
		GROUP BY blood_type, status`

	var counts []domain.RequestCount
	err := r.db.SelectContext(ctx, &counts, query)
	return counts, err
}

func (r *bloodRequestRepository) CountByLocationAndStatus(ctx context.Context) ([]domain.RequestCount, error) {
	query := `
		SELECT LOWER(TRIM(location)) AS key, status, COUNT(*) AS count
		FROM blood_requests
		GROUP BY LOWER(TRIM(location)), status`

	var counts []domain.RequestCount
	err := r.db.SelectContext(ctx, &counts, query)
	return counts, err
}
