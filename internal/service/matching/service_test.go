package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blood-donation/internal/domain"
	"blood-donation/internal/mocks"
)

func donor(name string, bt domain.BloodType, created time.Time) domain.Donor {
	return domain.Donor{ID: uuid.New(), Name: name, Email: name + "@example.com", BloodType: bt, CreatedAt: created}
}

func TestFindCompatibleDonors_RanksByPriority(t *testing.T) {
	repo := new(mocks.DonorRepository)
	svc := NewService(repo)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// repository order is deliberately scrambled
	rows := []domain.Donor{
		donor("neg-old", domain.BloodTypeONeg, base),
		donor("bneg", domain.BloodTypeBNeg, base.Add(time.Hour)),
		donor("exact-old", domain.BloodTypeBPos, base),
		donor("exact-new", domain.BloodTypeBPos, base.Add(48*time.Hour)),
		donor("opos", domain.BloodTypeOPos, base.Add(2*time.Hour)),
	}
	repo.On("QueryByBloodTypes", mock.Anything, mock.Anything, mock.MatchedBy(func(q domain.DonorQuery) bool {
		return q.Recipient == domain.BloodTypeBPos && q.Limit == 10 && q.Offset == 0
	})).Return(rows, int64(5), nil).Once()

	res, err := svc.FindCompatibleDonors(context.Background(), domain.BloodTypeBPos, domain.MatchQuery{PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Total)
	names := make([]string, len(res.Donors))
	for i, d := range res.Donors {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"exact-new", "exact-old", "neg-old", "opos", "bneg"}, names)
	assert.Equal(t, "Exact Match", res.Donors[0].CompatibilityLabel)
	assert.Equal(t, "Universal Donor", res.Donors[2].CompatibilityLabel)
	assert.Equal(t, domain.PriorityOther, res.Donors[4].MatchPriority)
	assert.ElementsMatch(t, []domain.BloodType{
		domain.BloodTypeBPos, domain.BloodTypeBNeg, domain.BloodTypeOPos, domain.BloodTypeONeg,
	}, res.CompatibleTypes)
	repo.AssertExpectations(t)
}

func TestFindCompatibleDonors_PassesFiltersAndPage(t *testing.T) {
	repo := new(mocks.DonorRepository)
	svc := NewService(repo)

	repo.On("QueryByBloodTypes", mock.Anything, []domain.BloodType{domain.BloodTypeONeg}, domain.DonorQuery{
		Recipient: domain.BloodTypeONeg,
		Search:    "ann",
		Location:  "Bandung",
		Limit:     5,
		Offset:    10,
	}).Return([]domain.Donor{}, int64(11), nil).Once()

	res, err := svc.FindCompatibleDonors(context.Background(), domain.BloodTypeONeg, domain.MatchQuery{
		Search: "ann", Location: "Bandung", Page: 3, PageSize: 5,
	})

	require.NoError(t, err)
	assert.Empty(t, res.Donors)
	assert.NotNil(t, res.Donors)
	assert.Equal(t, int64(11), res.Total)
	assert.Equal(t, 3, res.Page)
	repo.AssertExpectations(t)
}

func TestFindCompatibleDonors_InvalidType(t *testing.T) {
	repo := new(mocks.DonorRepository)
	svc := NewService(repo)

	_, err := svc.FindCompatibleDonors(context.Background(), domain.BloodType("C+"), domain.MatchQuery{})

	assert.ErrorIs(t, err, domain.ErrInvalidBloodType)
	repo.AssertNotCalled(t, "QueryByBloodTypes", mock.Anything, mock.Anything, mock.Anything)
}

func TestFindCompatibleDonors_RepositoryError(t *testing.T) {
	repo := new(mocks.DonorRepository)
	svc := NewService(repo)
	repo.On("QueryByBloodTypes", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Donor(nil), int64(0), errors.New("timeout")).Once()

	_, err := svc.FindCompatibleDonors(context.Background(), domain.BloodTypeAPos, domain.MatchQuery{})

	assert.ErrorContains(t, err, "timeout")
}

func TestCountCompatibleDonors(t *testing.T) {
	repo := new(mocks.DonorRepository)
	svc := NewService(repo)
	repo.On("CountByBloodTypes", mock.Anything, mock.Anything).Return([]domain.DonorCount{
		{BloodType: domain.BloodTypeAPos, Count: 4},
		{BloodType: domain.BloodTypeONeg, Count: 2},
	}, nil).Once()

	counts, err := svc.CountCompatibleDonors(context.Background(), domain.BloodTypeAPos)

	require.NoError(t, err)
	require.Len(t, counts, 4)
	assert.Equal(t, domain.BloodTypeAPos, counts[0].BloodType)
	assert.Equal(t, int64(4), counts[0].Donors)
	assert.Equal(t, domain.BloodTypeONeg, counts[1].BloodType)
	assert.Equal(t, int64(2), counts[1].Donors)
	assert.Zero(t, counts[2].Donors)
}
