package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"blood-donation/internal/domain"
)

type BloodRequestRepository struct {
	mock.Mock
}

func (m *BloodRequestRepository) Create(ctx context.Context, req *domain.BloodRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *BloodRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BloodRequest), args.Error(1)
}

func (m *BloodRequestRepository) List(ctx context.Context, filter domain.RequestFilter, params domain.PaginationParams) ([]domain.BloodRequest, int64, error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).([]domain.BloodRequest), args.Get(1).(int64), args.Error(2)
}

func (m *BloodRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus, notes *string) (bool, error) {
	args := m.Called(ctx, id, from, to, notes)
	return args.Bool(0), args.Error(1)
}

func (m *BloodRequestRepository) UpdateFulfillment(ctx context.Context, id, hospitalID uuid.UUID, added int) (*domain.BloodRequest, error) {
	args := m.Called(ctx, id, hospitalID, added)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BloodRequest), args.Error(1)
}

func (m *BloodRequestRepository) CountByStatusAndType(ctx context.Context) ([]domain.RequestCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RequestCount), args.Error(1)
}

func (m *BloodRequestRepository) CountByLocationAndStatus(ctx context.Context) ([]domain.RequestCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RequestCount), args.Error(1)
}
