package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"blood-donation/internal/domain"
)

type HospitalRequestRepository struct {
	mock.Mock
}

func (m *HospitalRequestRepository) Create(ctx context.Context, req *domain.HospitalBloodRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *HospitalRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.HospitalBloodRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HospitalBloodRequest), args.Error(1)
}

func (m *HospitalRequestRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID, params domain.PaginationParams) ([]domain.HospitalBloodRequest, int64, error) {
	args := m.Called(ctx, hospitalID, params)
	return args.Get(0).([]domain.HospitalBloodRequest), args.Get(1).(int64), args.Error(2)
}

func (m *HospitalRequestRepository) ListOpenForResponder(ctx context.Context, hospitalID uuid.UUID, now time.Time, params domain.PaginationParams) ([]domain.HospitalBloodRequest, int64, error) {
	args := m.Called(ctx, hospitalID, now, params)
	return args.Get(0).([]domain.HospitalBloodRequest), args.Get(1).(int64), args.Error(2)
}

func (m *HospitalRequestRepository) ApplyOffer(ctx context.Context, id, responder uuid.UUID, units int) (*domain.HospitalBloodRequest, error) {
	args := m.Called(ctx, id, responder, units)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HospitalBloodRequest), args.Error(1)
}

func (m *HospitalRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *HospitalRequestRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}
