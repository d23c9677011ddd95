package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"blood-donation/internal/domain"
)

type DonorRepository struct {
	mock.Mock
}

func (m *DonorRepository) QueryByBloodTypes(ctx context.Context, types []domain.BloodType, q domain.DonorQuery) ([]domain.Donor, int64, error) {
	args := m.Called(ctx, types, q)
	return args.Get(0).([]domain.Donor), args.Get(1).(int64), args.Error(2)
}

func (m *DonorRepository) CountByBloodTypes(ctx context.Context, types []domain.BloodType) ([]domain.DonorCount, error) {
	args := m.Called(ctx, types)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DonorCount), args.Error(1)
}
