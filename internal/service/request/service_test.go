package request

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blood-donation/internal/domain"
	"blood-donation/internal/mocks"
)

func TestCreateBloodRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults and requester link", func(t *testing.T) {
		repo := new(mocks.BloodRequestRepository)
		svc := NewService(repo, nil)
		user := domain.UserActor(uuid.New(), "ann@example.com")
		repo.On("Create", ctx, mock.AnythingOfType("*domain.BloodRequest")).Return(nil).Once()

		req, err := svc.CreateBloodRequest(ctx, &user, domain.CreateBloodRequestInput{
			Name: "Ann", Email: "Ann@Example.com", BloodType: "ab−", Location: " Jakarta ", Urgency: "true",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.BloodTypeABNeg, req.BloodType)
		assert.Equal(t, domain.UrgencyHigh, req.Urgency)
		assert.Equal(t, 1, req.UnitsNeeded)
		assert.Equal(t, domain.RequestPending, req.Status)
		assert.Equal(t, "Jakarta", req.Location)
		require.NotNil(t, req.RequesterID)
		assert.Equal(t, user.ID, *req.RequesterID)
	})

	t.Run("Anonymous request", func(t *testing.T) {
		repo := new(mocks.BloodRequestRepository)
		svc := NewService(repo, nil)
		repo.On("Create", ctx, mock.Anything).Return(nil).Once()

		req, err := svc.CreateBloodRequest(ctx, nil, domain.CreateBloodRequestInput{
			Name: "Bo", Email: "bo@example.com", BloodType: "O+", Location: "Bandung", UnitsNeeded: 3,
		})

		require.NoError(t, err)
		assert.Nil(t, req.RequesterID)
		assert.Equal(t, domain.UrgencyNormal, req.Urgency)
	})

	t.Run("Validation", func(t *testing.T) {
		svc := NewService(new(mocks.BloodRequestRepository), nil)

		_, err := svc.CreateBloodRequest(ctx, nil, domain.CreateBloodRequestInput{Name: "Bo", Email: "bo@example.com", BloodType: "Q", Location: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidBloodType)

		_, err = svc.CreateBloodRequest(ctx, nil, domain.CreateBloodRequestInput{Name: "Bo", Email: "nope", BloodType: "O+", Location: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = svc.CreateBloodRequest(ctx, nil, domain.CreateBloodRequestInput{
			Name: "Bo", Email: "bo@example.com", BloodType: "O+", Location: "x", Urgency: "whenever",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestListBloodRequests_ScopesByActor(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.BloodRequestRepository)
	svc := NewService(repo, nil)
	user := domain.UserActor(uuid.New(), "ann@example.com")
	hospital := domain.HospitalActor(uuid.New(), "general")
	params := domain.PaginationParams{Page: 1, PageSize: 20}

	repo.On("List", ctx, mock.MatchedBy(func(f domain.RequestFilter) bool {
		return f.RequesterID != nil && *f.RequesterID == user.ID && f.AssignedHospital == nil
	}), params).Return([]domain.BloodRequest{{ID: uuid.New()}}, int64(1), nil).Once()
	repo.On("List", ctx, mock.MatchedBy(func(f domain.RequestFilter) bool {
		return f.AssignedHospital != nil && *f.AssignedHospital == hospital.ID
	}), params).Return([]domain.BloodRequest{}, int64(0), nil).Once()

	res, err := svc.ListBloodRequests(ctx, user, domain.RequestFilter{}, domain.PaginationParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalItems)

	res, err = svc.ListBloodRequests(ctx, hospital, domain.RequestFilter{}, params)
	require.NoError(t, err)
	assert.NotNil(t, res.Data)
	repo.AssertExpectations(t)
}

func TestGetBloodRequest_Access(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.BloodRequestRepository)
	svc := NewService(repo, nil)
	owner := uuid.New()
	assigned := uuid.New()
	req := &domain.BloodRequest{ID: uuid.New(), RequesterID: &owner, AssignedHospital: &assigned}
	repo.On("GetByID", ctx, req.ID).Return(req, nil)

	_, err := svc.GetBloodRequest(ctx, domain.UserActor(owner, ""), req.ID)
	assert.NoError(t, err)
	_, err = svc.GetBloodRequest(ctx, domain.UserActor(uuid.New(), ""), req.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.GetBloodRequest(ctx, domain.HospitalActor(uuid.New(), ""), req.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.GetBloodRequest(ctx, domain.HospitalActor(assigned, ""), req.ID)
	assert.NoError(t, err)
}

func TestCreateHospitalRequest(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.HospitalRequestRepository)
	svc := NewService(nil, repo).(*service)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	hospital := domain.HospitalActor(uuid.New(), "general")

	repo.On("Create", ctx, mock.AnythingOfType("*domain.HospitalBloodRequest")).Return(nil).Once()

	req, err := svc.CreateHospitalRequest(ctx, hospital, domain.CreateHospitalRequestInput{
		PatientName: "Budi", BloodType: "B+", UnitsNeeded: 2, UrgencyLevel: domain.UrgencyCritical,
	})
	require.NoError(t, err)
	assert.Equal(t, hospital.ID, req.RequestingHospital)
	assert.Equal(t, now.Add(DefaultHospitalRequestTTL), req.ExpiresAt)
	assert.Equal(t, domain.RequestPending, req.Status)

	past := now.Add(-time.Hour)
	_, err = svc.CreateHospitalRequest(ctx, hospital, domain.CreateHospitalRequestInput{
		PatientName: "Budi", BloodType: "B+", UnitsNeeded: 2, ExpiresAt: &past,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateHospitalRequest(ctx, domain.UserActor(uuid.New(), ""), domain.CreateHospitalRequestInput{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListOpenHospitalRequests(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.HospitalRequestRepository)
	svc := NewService(nil, repo)
	hospital := domain.HospitalActor(uuid.New(), "general")

	repo.On("ListOpenForResponder", ctx, hospital.ID, mock.Anything, domain.PaginationParams{Page: 2, PageSize: 10}).
		Return([]domain.HospitalBloodRequest{{ID: uuid.New()}}, int64(11), nil).Once()

	res, err := svc.ListOpenHospitalRequests(ctx, hospital, domain.PaginationParams{Page: 2, PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalPages)
	assert.False(t, res.HasNext)
	assert.True(t, res.HasPrev)
}
