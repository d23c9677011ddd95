package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"blood-donation/internal/domain"
)

// MemoryBloodUnitRepo keeps units in process. It applies the same
// conditional-update rules as the SQL repository under a single mutex and is
// used where no database is available, mainly the concurrency tests.
type MemoryBloodUnitRepo struct {
	mu    sync.Mutex
	units map[uuid.UUID]domain.BloodUnit
}

func NewMemoryBloodUnitRepo(units ...domain.BloodUnit) *MemoryBloodUnitRepo {
	r := &MemoryBloodUnitRepo{units: map[uuid.UUID]domain.BloodUnit{}}
	for _, u := range units {
		r.units[u.ID] = u
	}
	return r
}

var _ BloodUnitRepository = (*MemoryBloodUnitRepo)(nil)

func (r *MemoryBloodUnitRepo) Create(_ context.Context, unit *domain.BloodUnit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	unit.CreatedAt = now
	unit.UpdatedAt = now
	r.units[unit.ID] = *unit
	return nil
}

func (r *MemoryBloodUnitRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.BloodUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.units[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryBloodUnitRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]domain.BloodUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.BloodUnit{}
	for _, id := range ids {
		if u, ok := r.units[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *MemoryBloodUnitRepo) Find(_ context.Context, hospitalID uuid.UUID, filter domain.UnitFilter, now time.Time) ([]domain.BloodUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.BloodUnit{}
	for _, u := range r.units {
		if u.HospitalID != hospitalID {
			continue
		}
		if filter.BloodType != nil && u.BloodType != *filter.BloodType {
			continue
		}
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		if filter.ExpiringWithinDays != nil {
			until := now.AddDate(0, 0, *filter.ExpiringWithinDays)
			if u.ExpiryDate.Before(now) || u.ExpiryDate.After(until) {
				continue
			}
		}
		out = append(out, u)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryBloodUnitRepo) ConditionalUpdateStatus(_ context.Context, id uuid.UUID, expected, next domain.UnitStatus, change domain.UnitStatusChange) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.units[id]
	if !ok || u.Status != expected {
		return false, nil
	}

	u.Status = next
	switch {
	case change.ClearReservation:
		u.ReservedForRequestID = nil
	case change.ReservedForRequestID != nil:
		u.ReservedForRequestID = change.ReservedForRequestID
	}
	if change.FulfilledRequestID != nil {
		u.FulfilledRequestID = change.FulfilledRequestID
	}
	if change.UsedDate != nil {
		u.UsedDate = change.UsedDate
	}
	u.UpdatedAt = time.Now()
	r.units[id] = u
	return true, nil
}

func (r *MemoryBloodUnitRepo) ReserveAll(_ context.Context, hospitalID, requestID uuid.UUID, unitIDs []uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := map[uuid.UUID]domain.BloodUnit{}
	var failed []uuid.UUID
	for _, id := range unitIDs {
		u, ok := r.units[id]
		if s, seen := staged[id]; seen {
			u = s
		}
		if !ok || u.HospitalID != hospitalID || u.Status != domain.UnitAvailable || u.ExpiryDate.Before(now) {
			failed = append(failed, id)
			continue
		}
		rid := requestID
		u.Status = domain.UnitReserved
		u.ReservedForRequestID = &rid
		u.UpdatedAt = now
		staged[id] = u
	}

	if len(failed) > 0 {
		return &domain.PartialReservationError{FailedUnitIDs: failed}
	}
	for id, u := range staged {
		r.units[id] = u
	}
	return nil
}

func (r *MemoryBloodUnitRepo) Release(_ context.Context, requestID uuid.UUID, unitIDs []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, id := range unitIDs {
		u, ok := r.units[id]
		if !ok || !r.reservedFor(u, requestID) {
			continue
		}
		u.Status = domain.UnitAvailable
		u.ReservedForRequestID = nil
		u.UpdatedAt = time.Now()
		r.units[id] = u
		n++
	}
	return n, nil
}

func (r *MemoryBloodUnitRepo) ReleaseByRequest(_ context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := []uuid.UUID{}
	for id, u := range r.units {
		if !r.reservedFor(u, requestID) {
			continue
		}
		u.Status = domain.UnitAvailable
		u.ReservedForRequestID = nil
		u.UpdatedAt = time.Now()
		r.units[id] = u
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *MemoryBloodUnitRepo) reservedFor(u domain.BloodUnit, requestID uuid.UUID) bool {
	return u.Status == domain.UnitReserved && u.ReservedForRequestID != nil && *u.ReservedForRequestID == requestID
}

func (r *MemoryBloodUnitRepo) ExpireAvailable(_ context.Context, hospitalID *uuid.UUID, now time.Time) ([]domain.BloodUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.BloodUnit{}
	for id, u := range r.units {
		if hospitalID != nil && u.HospitalID != *hospitalID {
			continue
		}
		if u.Status != domain.UnitAvailable || !u.ExpiryDate.Before(now) {
			continue
		}
		u.Status = domain.UnitExpired
		u.UpdatedAt = now
		r.units[id] = u
		out = append(out, u)
	}
	return out, nil
}

func (r *MemoryBloodUnitRepo) CountByTypeAndStatus(_ context.Context, hospitalID *uuid.UUID) ([]domain.UnitCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	type key struct {
		bt domain.BloodType
		st domain.UnitStatus
	}
	counts := map[key]int{}
	for _, u := range r.units {
		if hospitalID != nil && u.HospitalID != *hospitalID {
			continue
		}
		counts[key{u.BloodType, u.Status}]++
	}

	out := make([]domain.UnitCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, domain.UnitCount{BloodType: k.bt, Status: k.st, Count: c})
	}
	return out, nil
}

func (r *MemoryBloodUnitRepo) CountExpiring(_ context.Context, hospitalID uuid.UUID, now, until time.Time) ([]domain.UnitCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := map[domain.BloodType]int{}
	for _, u := range r.units {
		if u.HospitalID != hospitalID || u.Status != domain.UnitAvailable {
			continue
		}
		if u.ExpiryDate.Before(now) || u.ExpiryDate.After(until) {
			continue
		}
		counts[u.BloodType]++
	}

	out := make([]domain.UnitCount, 0, len(counts))
	for bt, c := range counts {
		out = append(out, domain.UnitCount{BloodType: bt, Status: domain.UnitAvailable, Count: c})
	}
	return out, nil
}

func (r *MemoryBloodUnitRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.units[id]; !ok {
		return false, nil
	}
	delete(r.units, id)
	return true, nil
}
