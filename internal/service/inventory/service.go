package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/metrics"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/notification"
)

type Service interface {
	CreateUnit(ctx context.Context, actor domain.Actor, input domain.CreateUnitInput) (*domain.BloodUnit, error)
	CreateFromDonation(ctx context.Context, hospitalID uuid.UUID, donation *domain.Donation, expiry *time.Time) (*domain.BloodUnit, error)
	GetUnit(ctx context.Context, actor domain.Actor, unitID uuid.UUID) (*domain.BloodUnit, error)
	Reserve(ctx context.Context, unitID, requestID uuid.UUID) error
	ReleaseForRequest(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error)
	MarkUsed(ctx context.Context, actor domain.Actor, unitID uuid.UUID, usedDate *time.Time) (*domain.BloodUnit, error)
	MarkExpiredUnits(ctx context.Context, hospitalID uuid.UUID) ([]domain.BloodUnit, error)
	SweepAll(ctx context.Context) (int, error)
	GetInventory(ctx context.Context, hospitalID uuid.UUID, filter domain.UnitFilter) ([]domain.BloodUnit, error)
	GetLowStockAlerts(ctx context.Context, hospitalID uuid.UUID, threshold int) ([]domain.LowStockAlert, error)
	GetExpiringAlerts(ctx context.Context, hospitalID uuid.UUID, withinDays int) ([]domain.BloodUnit, error)
	DeleteUnit(ctx context.Context, actor domain.Actor, unitID uuid.UUID) error
}

const (
	entityUnit     = "blood_unit"
	entityHospital = "hospital"
)

type Options struct {
	LowStockThreshold int
	ExpiryAlertDays   int
	Locale            string
}

type service struct {
	unitRepo     repository.BloodUnitRepository
	hospitalRepo repository.HospitalRepository
	auditRepo    repository.AuditLogRepository
	notifier     notification.Sink
	composer     notification.Composer
	logger       *zap.Logger
	metrics      *metrics.Metrics
	opts         Options
	now          func() time.Time
}

func NewService(
	unitRepo repository.BloodUnitRepository,
	hospitalRepo repository.HospitalRepository,
	auditRepo repository.AuditLogRepository,
	notifier notification.Sink,
	logger *zap.Logger,
	m *metrics.Metrics,
	opts Options,
) Service {
	if opts.LowStockThreshold < 1 {
		opts.LowStockThreshold = 5
	}
	if opts.ExpiryAlertDays < 1 {
		opts.ExpiryAlertDays = 7
	}
	return &service{
		unitRepo:     unitRepo,
		hospitalRepo: hospitalRepo,
		auditRepo:    auditRepo,
		notifier:     notifier,
		composer:     notification.Composer{Locale: opts.Locale},
		logger:       logger,
		metrics:      m,
		opts:         opts,
		now:          time.Now,
	}
}

func (s *service) CreateUnit(ctx context.Context, actor domain.Actor, input domain.CreateUnitInput) (*domain.BloodUnit, error) {
	if !actor.IsHospital() {
		return nil, domain.ErrForbidden
	}
	bt, err := domain.ParseBloodType(string(input.BloodType))
	if err != nil {
		return nil, err
	}
	if input.ExpiryDate == nil || input.ExpiryDate.IsZero() {
		return nil, domain.ErrInvalidExpiry
	}
	if input.DonorName == "" {
		return nil, domain.InvalidInput("donor_name is required")
	}

	unit := &domain.BloodUnit{
		ID:         uuid.New(),
		DonationID: input.DonationID,
		BloodType:  bt,
		DonorName:  input.DonorName,
		DonorEmail: input.DonorEmail,
		HospitalID: actor.ID,
		ExpiryDate: *input.ExpiryDate,
		Status:     domain.UnitAvailable,
	}
	if err := s.unitRepo.Create(ctx, unit); err != nil {
		return nil, fmt.Errorf("failed to create blood unit: %w", err)
	}

	s.audit(ctx, actor, domain.AuditCreateUnit, entityUnit, unit.ID, nil, unit)
	return unit, nil
}

func (s *service) CreateFromDonation(ctx context.Context, hospitalID uuid.UUID, donation *domain.Donation, expiry *time.Time) (*domain.BloodUnit, error) {
	exp := donation.DonationDate.Add(domain.DefaultShelfLife)
	if expiry != nil && !expiry.IsZero() {
		exp = *expiry
	}
	donationID := donation.ID

	unit := &domain.BloodUnit{
		ID:         uuid.New(),
		DonationID: &donationID,
		BloodType:  donation.BloodType,
		DonorName:  donation.DonorName,
		DonorEmail: donation.DonorEmail,
		HospitalID: hospitalID,
		ExpiryDate: exp,
		Status:     domain.UnitAvailable,
	}
	if err := s.unitRepo.Create(ctx, unit); err != nil {
		return nil, fmt.Errorf("failed to create blood unit: %w", err)
	}
	return unit, nil
}

func (s *service) GetUnit(ctx context.Context, actor domain.Actor, unitID uuid.UUID) (*domain.BloodUnit, error) {
	unit, err := s.getUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageHospital(unit.HospitalID) {
		return nil, domain.ErrForbidden
	}
	return unit, nil
}

func (s *service) getUnit(ctx context.Context, unitID uuid.UUID) (*domain.BloodUnit, error) {
	unit, err := s.unitRepo.GetByID(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blood unit: %w", err)
	}
	if unit == nil {
		return nil, domain.ErrNotFound
	}
	return unit, nil
}

// transition applies a conditional status change. When the update loses a
// race the unit is re-read so the caller gets the error for its live state.
func (s *service) transition(ctx context.Context, unit *domain.BloodUnit, next domain.UnitStatus, change domain.UnitStatusChange) error {
	if err := unit.Status.TransitionError(next); err != nil {
		return err
	}

	ok, err := s.unitRepo.ConditionalUpdateStatus(ctx, unit.ID, unit.Status, next, change)
	if err != nil {
		return fmt.Errorf("failed to update blood unit: %w", err)
	}
	if ok {
		return nil
	}

	s.metrics.IncrementConflict()
	live, err := s.getUnit(ctx, unit.ID)
	if err != nil {
		return err
	}
	if err := live.Status.TransitionError(next); err != nil {
		return err
	}
	return domain.ErrUnitNotAvailable
}

func (s *service) Reserve(ctx context.Context, unitID, requestID uuid.UUID) error {
	unit, err := s.getUnit(ctx, unitID)
	if err != nil {
		return err
	}
	if unit.Status == domain.UnitAvailable && unit.IsExpiredAt(s.now()) {
		return domain.ErrUnitNotAvailable
	}

	rid := requestID
	if err := s.transition(ctx, unit, domain.UnitReserved, domain.UnitStatusChange{ReservedForRequestID: &rid}); err != nil {
		return err
	}
	s.metrics.AddReserved(1)
	return nil
}

func (s *service) ReleaseForRequest(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.unitRepo.ReleaseByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to release units: %w", err)
	}
	s.metrics.AddReleased(len(ids))
	return ids, nil
}

func (s *service) MarkUsed(ctx context.Context, actor domain.Actor, unitID uuid.UUID, usedDate *time.Time) (*domain.BloodUnit, error) {
	unit, err := s.getUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageHospital(unit.HospitalID) {
		return nil, domain.ErrForbidden
	}

	used := s.now()
	if usedDate != nil && !usedDate.IsZero() {
		used = *usedDate
	}
	change := domain.UnitStatusChange{UsedDate: &used}
	if unit.Status == domain.UnitReserved {
		change.FulfilledRequestID = unit.ReservedForRequestID
		change.ClearReservation = true
	}

	before := *unit
	if err := s.transition(ctx, unit, domain.UnitUsed, change); err != nil {
		return nil, err
	}

	unit.Status = domain.UnitUsed
	unit.UsedDate = &used
	if change.FulfilledRequestID != nil {
		unit.FulfilledRequestID = change.FulfilledRequestID
		unit.ReservedForRequestID = nil
	}

	s.audit(ctx, actor, domain.AuditMarkUsed, entityUnit, unit.ID, before, unit)
	s.checkLowStock(ctx, unit.HospitalID, []domain.BloodType{unit.BloodType})
	return unit, nil
}

func (s *service) MarkExpiredUnits(ctx context.Context, hospitalID uuid.UUID) ([]domain.BloodUnit, error) {
	hid := hospitalID
	expired, err := s.unitRepo.ExpireAvailable(ctx, &hid, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to expire units: %w", err)
	}
	s.afterExpiry(ctx, expired)
	return expired, nil
}

// SweepAll expires overdue Available units across every hospital.
func (s *service) SweepAll(ctx context.Context) (int, error) {
	start := time.Now()
	defer s.metrics.ObserveSweep(start)

	expired, err := s.unitRepo.ExpireAvailable(ctx, nil, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired units: %w", err)
	}
	s.afterExpiry(ctx, expired)
	return len(expired), nil
}

func (s *service) afterExpiry(ctx context.Context, expired []domain.BloodUnit) {
	if len(expired) == 0 {
		return
	}
	s.metrics.AddExpired(len(expired))

	types := map[uuid.UUID][]domain.BloodType{}
	ids := map[uuid.UUID][]uuid.UUID{}
	for _, u := range expired {
		types[u.HospitalID] = append(types[u.HospitalID], u.BloodType)
		ids[u.HospitalID] = append(ids[u.HospitalID], u.ID)
	}
	s.logger.Info("expired blood units", zap.Int("count", len(expired)), zap.Int("hospitals", len(types)))

	for hospitalID, bts := range types {
		s.audit(ctx, domain.SystemActor, domain.AuditExpireUnits, entityHospital, hospitalID, nil, ids[hospitalID])
		s.checkLowStock(ctx, hospitalID, bts)
	}
}

func (s *service) GetInventory(ctx context.Context, hospitalID uuid.UUID, filter domain.UnitFilter) ([]domain.BloodUnit, error) {
	if filter.BloodType != nil && !filter.BloodType.IsValid() {
		return nil, domain.ErrInvalidBloodType
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, domain.InvalidInput("unknown unit status %q", string(*filter.Status))
	}
	if filter.ExpiringWithinDays != nil && *filter.ExpiringWithinDays < 0 {
		return nil, domain.InvalidInput("expiring_within_days must not be negative")
	}

	units, err := s.unitRepo.Find(ctx, hospitalID, filter, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return units, nil
}

// GetLowStockAlerts lists every blood type whose available count is below
// threshold, including types with no units at all, lowest count first.
func (s *service) GetLowStockAlerts(ctx context.Context, hospitalID uuid.UUID, threshold int) ([]domain.LowStockAlert, error) {
	if threshold < 1 {
		threshold = s.opts.LowStockThreshold
	}

	available, err := s.availableByType(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	alerts := []domain.LowStockAlert{}
	for _, bt := range domain.AllBloodTypes {
		if n := available[bt]; n < threshold {
			alerts = append(alerts, domain.LowStockAlert{BloodType: bt, AvailableCount: n})
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].AvailableCount < alerts[j].AvailableCount })
	return alerts, nil
}

func (s *service) availableByType(ctx context.Context, hospitalID uuid.UUID) (map[domain.BloodType]int, error) {
	hid := hospitalID
	counts, err := s.unitRepo.CountByTypeAndStatus(ctx, &hid)
	if err != nil {
		return nil, fmt.Errorf("failed to count units: %w", err)
	}
	available := make(map[domain.BloodType]int, len(domain.AllBloodTypes))
	for _, c := range counts {
		if c.Status == domain.UnitAvailable {
			available[c.BloodType] += c.Count
		}
	}
	return available, nil
}

func (s *service) GetExpiringAlerts(ctx context.Context, hospitalID uuid.UUID, withinDays int) ([]domain.BloodUnit, error) {
	if withinDays < 1 {
		withinDays = s.opts.ExpiryAlertDays
	}
	status := domain.UnitAvailable
	return s.GetInventory(ctx, hospitalID, domain.UnitFilter{Status: &status, ExpiringWithinDays: &withinDays})
}

func (s *service) DeleteUnit(ctx context.Context, actor domain.Actor, unitID uuid.UUID) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	unit, err := s.getUnit(ctx, unitID)
	if err != nil {
		return err
	}
	if unit.Status == domain.UnitReserved {
		return domain.InvalidInput("unit is reserved for request %s", unit.ReservedForRequestID)
	}

	ok, err := s.unitRepo.Delete(ctx, unitID)
	if err != nil {
		return fmt.Errorf("failed to delete blood unit: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}

	s.audit(ctx, actor, domain.AuditDeleteUnit, entityUnit, unitID, unit, nil)
	return nil
}

// checkLowStock notifies the hospital when one of the given types has
// dropped below the configured threshold.
func (s *service) checkLowStock(ctx context.Context, hospitalID uuid.UUID, types []domain.BloodType) {
	if s.notifier == nil || s.hospitalRepo == nil {
		return
	}

	available, err := s.availableByType(ctx, hospitalID)
	if err != nil {
		s.logger.Warn("low stock check failed", zap.String("hospital_id", hospitalID.String()), zap.Error(err))
		return
	}
	hospital, err := s.hospitalRepo.GetByID(ctx, hospitalID)
	if err != nil || hospital == nil {
		if err == nil {
			err = domain.ErrNotFound
		}
		s.logger.Warn("low stock check failed", zap.String("hospital_id", hospitalID.String()), zap.Error(err))
		return
	}

	seen := map[domain.BloodType]bool{}
	for _, bt := range types {
		if seen[bt] {
			continue
		}
		seen[bt] = true
		if n := available[bt]; n < s.opts.LowStockThreshold {
			s.notifier.Emit(ctx, s.composer.Intent(hospital.Email, domain.NotifLowStock, hospitalID,
				domain.RelatedBloodUnit, map[string]string{"blood_type": string(bt), "count": strconv.Itoa(n)}))
		}
	}
}

func (s *service) audit(ctx context.Context, actor domain.Actor, action, entityType string, entityID uuid.UUID, oldValue, newValue interface{}) {
	if s.auditRepo == nil {
		return
	}
	err := repository.CreateAuditLog(ctx, s.auditRepo, domain.CreateAuditLogInput{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldValue:   oldValue,
		NewValue:   newValue,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
