package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"blood-donation/internal/domain"
)

type DonationRepository struct {
	mock.Mock
}

func (m *DonationRepository) Create(ctx context.Context, donation *domain.Donation) error {
	args := m.Called(ctx, donation)
	return args.Error(0)
}

func (m *DonationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Donation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donation), args.Error(1)
}

func (m *DonationRepository) ListByUser(ctx context.Context, userID uuid.UUID, params domain.PaginationParams) ([]domain.Donation, int64, error) {
	args := m.Called(ctx, userID, params)
	return args.Get(0).([]domain.Donation), args.Get(1).(int64), args.Error(2)
}

func (m *DonationRepository) ListForHospital(ctx context.Context, hospitalID uuid.UUID, status *domain.DonationStatus, params domain.PaginationParams) ([]domain.Donation, int64, error) {
	args := m.Called(ctx, hospitalID, status, params)
	return args.Get(0).([]domain.Donation), args.Get(1).(int64), args.Error(2)
}

func (m *DonationRepository) Review(ctx context.Context, id, hospitalID uuid.UUID, to domain.DonationStatus, note *string) (bool, error) {
	args := m.Called(ctx, id, hospitalID, to, note)
	return args.Bool(0), args.Error(1)
}
