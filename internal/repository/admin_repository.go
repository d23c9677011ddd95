package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"blood-donation/internal/domain"
)

type AdminRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error)
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)
}

type adminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	var admin domain.Admin
	err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var admin domain.Admin
	err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE LOWER(email) = LOWER($1)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
