package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/mocks"
	"blood-donation/internal/repository"
)

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *service
	units     *repository.MemoryBloodUnitRepo
	hospitals *mocks.HospitalRepository
	sink      *mocks.NotificationSink
	hospital  domain.Actor
}

func newFixture(t *testing.T, units ...domain.BloodUnit) *fixture {
	t.Helper()
	f := &fixture{
		units:     repository.NewMemoryBloodUnitRepo(units...),
		hospitals: new(mocks.HospitalRepository),
		sink:      &mocks.NotificationSink{},
		hospital:  domain.HospitalActor(uuid.New(), "general"),
	}
	f.svc = NewService(f.units, f.hospitals, nil, f.sink, zap.NewNop(), nil, Options{LowStockThreshold: 2}).(*service)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) unit(bt domain.BloodType, expiry time.Time) domain.BloodUnit {
	return domain.BloodUnit{
		ID:         uuid.New(),
		BloodType:  bt,
		DonorName:  "donor",
		HospitalID: f.hospital.ID,
		ExpiryDate: expiry,
		Status:     domain.UnitAvailable,
		CreatedAt:  fixedNow,
	}
}

func (f *fixture) seed(units ...domain.BloodUnit) {
	for i := range units {
		u := units[i]
		_ = f.units.Create(context.Background(), &u)
	}
}

func TestCreateUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("Available on creation", func(t *testing.T) {
		f := newFixture(t)
		expiry := fixedNow.AddDate(0, 0, 30)

		unit, err := f.svc.CreateUnit(ctx, f.hospital, domain.CreateUnitInput{
			BloodType: "a−", DonorName: "Ann", ExpiryDate: &expiry,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.UnitAvailable, unit.Status)
		assert.Equal(t, domain.BloodTypeANeg, unit.BloodType)
		assert.Equal(t, f.hospital.ID, unit.HospitalID)
	})

	t.Run("Missing expiry", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateUnit(ctx, f.hospital, domain.CreateUnitInput{BloodType: "O+", DonorName: "Ann"})
		assert.ErrorIs(t, err, domain.ErrInvalidExpiry)
	})

	t.Run("Invalid blood type", func(t *testing.T) {
		f := newFixture(t)
		expiry := fixedNow.AddDate(0, 0, 30)
		_, err := f.svc.CreateUnit(ctx, f.hospital, domain.CreateUnitInput{BloodType: "Z+", DonorName: "Ann", ExpiryDate: &expiry})
		assert.ErrorIs(t, err, domain.ErrInvalidBloodType)
	})

	t.Run("Users cannot create units", func(t *testing.T) {
		f := newFixture(t)
		expiry := fixedNow.AddDate(0, 0, 30)
		_, err := f.svc.CreateUnit(ctx, domain.UserActor(uuid.New(), "u@example.com"), domain.CreateUnitInput{
			BloodType: "O+", DonorName: "Ann", ExpiryDate: &expiry,
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestPastExpiryUnitIsFlippedBySweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.hospitals.On("GetByID", mock.Anything, f.hospital.ID).
		Return(&domain.Hospital{ID: f.hospital.ID, Email: "general@example.com"}, nil)
	yesterday := fixedNow.AddDate(0, 0, -1)

	unit, err := f.svc.CreateUnit(ctx, f.hospital, domain.CreateUnitInput{
		BloodType: domain.BloodTypeBPos, DonorName: "Bo", ExpiryDate: &yesterday,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UnitAvailable, unit.Status)

	expired, err := f.svc.MarkExpiredUnits(ctx, f.hospital.ID)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, unit.ID, expired[0].ID)

	got, _ := f.units.GetByID(ctx, unit.ID)
	assert.Equal(t, domain.UnitExpired, got.Status)

	again, err := f.svc.MarkExpiredUnits(ctx, f.hospital.ID)
	require.NoError(t, err)
	assert.Empty(t, again)

	intents := f.sink.Emitted()
	require.Len(t, intents, 1)
	assert.Equal(t, domain.NotifLowStock, intents[0].Type)
	assert.Equal(t, "general@example.com", intents[0].RecipientEmail)
}

func TestReserve_ConcurrentCallersSingleWinner(t *testing.T) {
	f := newFixture(t)
	unit := f.unit(domain.BloodTypeOPos, fixedNow.AddDate(0, 0, 3))
	f.seed(unit)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.svc.Reserve(context.Background(), unit.ID, uuid.New()); err == nil {
				atomic.AddInt32(&wins, 1)
			} else {
				assert.ErrorIs(t, err, domain.ErrUnitNotAvailable)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestTerminalUnitsRejectTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.hospitals.On("GetByID", mock.Anything, mock.Anything).Return(nil, nil)

	used := f.unit(domain.BloodTypeAPos, fixedNow.AddDate(0, 0, 3))
	used.Status = domain.UnitUsed
	expired := f.unit(domain.BloodTypeAPos, fixedNow.AddDate(0, 0, -3))
	expired.Status = domain.UnitExpired
	f.seed(used, expired)

	for _, u := range []domain.BloodUnit{used, expired} {
		assert.ErrorIs(t, f.svc.Reserve(ctx, u.ID, uuid.New()), domain.ErrUnitTerminal)
		_, err := f.svc.MarkUsed(ctx, f.hospital, u.ID, nil)
		assert.ErrorIs(t, err, domain.ErrUnitTerminal)
	}
}

func TestReserveReleaseMarkUsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.hospitals.On("GetByID", mock.Anything, mock.Anything).Return(nil, nil)
	unit := f.unit(domain.BloodTypeABNeg, fixedNow.AddDate(0, 0, 10))
	f.seed(unit)
	requestID := uuid.New()

	require.NoError(t, f.svc.Reserve(ctx, unit.ID, requestID))
	assert.ErrorIs(t, f.svc.Reserve(ctx, unit.ID, uuid.New()), domain.ErrUnitNotAvailable)

	released, err := f.svc.ReleaseForRequest(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{unit.ID}, released)
	got, _ := f.units.GetByID(ctx, unit.ID)
	assert.Equal(t, domain.UnitAvailable, got.Status)
	assert.Nil(t, got.ReservedForRequestID)

	again, err := f.svc.ReleaseForRequest(ctx, requestID)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, f.svc.Reserve(ctx, unit.ID, requestID))
	usedAt := fixedNow.Add(-time.Hour)
	marked, err := f.svc.MarkUsed(ctx, f.hospital, unit.ID, &usedAt)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitUsed, marked.Status)

	got, _ = f.units.GetByID(ctx, unit.ID)
	assert.Equal(t, domain.UnitUsed, got.Status)
	require.NotNil(t, got.FulfilledRequestID)
	assert.Equal(t, requestID, *got.FulfilledRequestID)
	assert.Nil(t, got.ReservedForRequestID)
	assert.Equal(t, usedAt, *got.UsedDate)
}

func TestReserve_ExpiredAvailableUnitRejected(t *testing.T) {
	f := newFixture(t)
	unit := f.unit(domain.BloodTypeOPos, fixedNow.Add(-time.Minute))
	f.seed(unit)

	err := f.svc.Reserve(context.Background(), unit.ID, uuid.New())

	assert.ErrorIs(t, err, domain.ErrUnitNotAvailable)
}

func TestMarkUsed_OtherHospitalForbidden(t *testing.T) {
	f := newFixture(t)
	unit := f.unit(domain.BloodTypeOPos, fixedNow.AddDate(0, 0, 2))
	f.seed(unit)

	_, err := f.svc.MarkUsed(context.Background(), domain.HospitalActor(uuid.New(), "other"), unit.ID, nil)

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGetInventory_OrderedByExpiry(t *testing.T) {
	f := newFixture(t)
	late := f.unit(domain.BloodTypeOPos, fixedNow.AddDate(0, 0, 20))
	soon := f.unit(domain.BloodTypeOPos, fixedNow.AddDate(0, 0, 2))
	mid := f.unit(domain.BloodTypeANeg, fixedNow.AddDate(0, 0, 5))
	f.seed(late, soon, mid)

	units, err := f.svc.GetInventory(context.Background(), f.hospital.ID, domain.UnitFilter{})
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, []uuid.UUID{soon.ID, mid.ID, late.ID}, []uuid.UUID{units[0].ID, units[1].ID, units[2].ID})

	bt := domain.BloodTypeOPos
	units, err = f.svc.GetInventory(context.Background(), f.hospital.ID, domain.UnitFilter{BloodType: &bt})
	require.NoError(t, err)
	assert.Len(t, units, 2)

	expiring, err := f.svc.GetExpiringAlerts(context.Background(), f.hospital.ID, 7)
	require.NoError(t, err)
	assert.Len(t, expiring, 2)
}

func TestGetLowStockAlerts_IncludesEmptyTypes(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.seed(f.unit(domain.BloodTypeOPos, fixedNow.AddDate(0, 0, 10)))
	}
	f.seed(f.unit(domain.BloodTypeANeg, fixedNow.AddDate(0, 0, 10)))

	alerts, err := f.svc.GetLowStockAlerts(context.Background(), f.hospital.ID, 2)

	require.NoError(t, err)
	require.Len(t, alerts, 7)
	assert.Zero(t, alerts[0].AvailableCount)
	last := alerts[len(alerts)-1]
	assert.Equal(t, domain.BloodTypeANeg, last.BloodType)
	assert.Equal(t, 1, last.AvailableCount)
	for _, a := range alerts {
		assert.NotEqual(t, domain.BloodTypeOPos, a.BloodType)
	}
}

func TestDeleteUnit_AdminOnly(t *testing.T) {
	f := newFixture(t)
	unit := f.unit(domain.BloodTypeOPos, fixedNow.AddDate(0, 0, 2))
	f.seed(unit)

	assert.ErrorIs(t, f.svc.DeleteUnit(context.Background(), f.hospital, unit.ID), domain.ErrForbidden)
	require.NoError(t, f.svc.DeleteUnit(context.Background(), domain.AdminActor(uuid.New(), "root@example.com"), unit.ID))

	got, _ := f.units.GetByID(context.Background(), unit.ID)
	assert.Nil(t, got)
}

type stubExpirer struct{ calls int32 }

func (s *stubExpirer) ExpireOverdueHospitalRequests(context.Context) (int, error) {
	atomic.AddInt32(&s.calls, 1)
	return 0, nil
}

func TestSweeper_RunOnce(t *testing.T) {
	f := newFixture(t)
	f.hospitals.On("GetByID", mock.Anything, mock.Anything).Return(nil, nil)
	f.seed(f.unit(domain.BloodTypeOPos, fixedNow.AddDate(0, 0, -1)), f.unit(domain.BloodTypeOPos, fixedNow.AddDate(0, 0, 1)))
	expirer := &stubExpirer{}

	NewSweeper(f.svc, expirer, time.Minute, zap.NewNop()).RunOnce(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&expirer.calls))
	status := domain.UnitExpired
	units, _ := f.svc.GetInventory(context.Background(), f.hospital.ID, domain.UnitFilter{Status: &status})
	assert.Len(t, units, 1)
}

func TestSweeper_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		NewSweeper(f.svc, nil, time.Hour, zap.NewNop()).Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
