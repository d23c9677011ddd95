package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"blood-donation/internal/domain"
)

type DonationRepository interface {
	Create(ctx context.Context, donation *domain.Donation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Donation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params domain.PaginationParams) ([]domain.Donation, int64, error)
	ListForHospital(ctx context.Context, hospitalID uuid.UUID, status *domain.DonationStatus, params domain.PaginationParams) ([]domain.Donation, int64, error)
	Review(ctx context.Context, id, hospitalID uuid.UUID, to domain.DonationStatus, note *string) (bool, error)
}

type donationRepository struct {
	db *sqlx.DB
}

func NewDonationRepository(db *sqlx.DB) DonationRepository {
	return &donationRepository{db: db}
}

const donationColumns = `id, user_id, donor_name, donor_email, blood_type, location, hospital_id, status,
	donation_date, review_note, created_at, updated_at`

func (r *donationRepository) Create(ctx context.Context, donation *domain.Donation) error {
	query := `
		INSERT INTO donations (id, user_id, donor_name, donor_email, blood_type, location, hospital_id, status, donation_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		donation.ID, donation.UserID, donation.DonorName, donation.DonorEmail, donation.BloodType,
		donation.Location, donation.HospitalID, donation.Status, donation.DonationDate,
	).Scan(&donation.CreatedAt, &donation.UpdatedAt)
}

func (r *donationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Donation, error) {
	var donation domain.Donation
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`

	err := r.db.GetContext(ctx, &donation, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepository) ListByUser(ctx context.Context, userID uuid.UUID, params domain.PaginationParams) ([]domain.Donation, int64, error) {
	params.Validate()

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM donations WHERE user_id = $1`, userID); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + donationColumns + ` FROM donations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	donations := []domain.Donation{}
	err := r.db.SelectContext(ctx, &donations, query, userID, params.PageSize, params.Offset())
	return donations, total, err
}

// ListForHospital lists donations addressed to the hospital plus those not
// addressed to any hospital.
func (r *donationRepository) ListForHospital(ctx context.Context, hospitalID uuid.UUID, status *domain.DonationStatus, params domain.PaginationParams) ([]domain.Donation, int64, error) {
	params.Validate()

	where := `WHERE (hospital_id = $1 OR hospital_id IS NULL) AND ($2::text IS NULL OR status = $2)`

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM donations `+where, hospitalID, status); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + donationColumns + ` FROM donations
		` + where + `
		ORDER BY donation_date DESC
		LIMIT $3 OFFSET $4`

	donations := []domain.Donation{}
	err := r.db.SelectContext(ctx, &donations, query, hospitalID, status, params.PageSize, params.Offset())
	return donations, total, err
}

// Review moves a pending donation to approved or rejected and records the
// reviewing hospital.
func (r *donationRepository) Review(ctx context.Context, id, hospitalID uuid.UUID, to domain.DonationStatus, note *string) (bool, error) {
	query := `
		UPDATE donations
		SET status = $3, hospital_id = $2, review_note = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND (hospital_id = $2 OR hospital_id IS NULL)`

	res, err := r.db.ExecContext(ctx, query, id, hospitalID, to, note)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
