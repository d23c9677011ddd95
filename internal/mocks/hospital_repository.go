package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"blood-donation/internal/domain"
)

type HospitalRepository struct {
	mock.Mock
}

func (m *HospitalRepository) Create(ctx context.Context, hospital *domain.Hospital) error {
	args := m.Called(ctx, hospital)
	return args.Error(0)
}

func (m *HospitalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Hospital, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Hospital), args.Error(1)
}

func (m *HospitalRepository) GetByUsername(ctx context.Context, username string) (*domain.Hospital, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Hospital), args.Error(1)
}

func (m *HospitalRepository) List(ctx context.Context) ([]domain.Hospital, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Hospital), args.Error(1)
}

type AdminRepository struct {
	mock.Mock
}

func (m *AdminRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Admin), args.Error(1)
}

func (m *AdminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Admin), args.Error(1)
}
