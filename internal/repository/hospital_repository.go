package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"blood-donation/internal/domain"
)

type HospitalRepository interface {
	Create(ctx context.Context, hospital *domain.Hospital) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Hospital, error)
	GetByUsername(ctx context.Context, username string) (*domain.Hospital, error)
	List(ctx context.Context) ([]domain.Hospital, error)
}

type hospitalRepository struct {
	db *sqlx.DB
}

func NewHospitalRepository(db *sqlx.DB) HospitalRepository {
	return &hospitalRepository{db: db}
}

func (r *hospitalRepository) Create(ctx context.Context, hospital *domain.Hospital) error {
	query := `
		INSERT INTO hospitals (id, username, name, email, password_hash, location, phone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		hospital.ID, hospital.Username, hospital.Name, hospital.Email, hospital.PasswordHash,
		hospital.Location, hospital.Phone, hospital.IsActive,
	).Scan(&hospital.CreatedAt, &hospital.UpdatedAt)
}

func (r *hospitalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Hospital, error) {
	var hospital domain.Hospital
	err := r.db.GetContext(ctx, &hospital, `SELECT * FROM hospitals WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hospital, nil
}

func (r *hospitalRepository) GetByUsername(ctx context.Context, username string) (*domain.Hospital, error) {
	var hospital domain.Hospital
	err := r.db.GetContext(ctx, &hospital, `SELECT * FROM hospitals WHERE LOWER(username) = LOWER($1)`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hospital, nil
}

func (r *hospitalRepository) List(ctx context.Context) ([]domain.Hospital, error) {
	hospitals := []domain.Hospital{}
	err := r.db.SelectContext(ctx, &hospitals, `SELECT * FROM hospitals WHERE is_active = TRUE ORDER BY name ASC`)
	return hospitals, err
}
