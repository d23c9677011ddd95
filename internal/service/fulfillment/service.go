package fulfillment

import (
	"context"
	"errors"
	"fmt"
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
	FulfillRequest(ctx context.Context, actor domain.Actor, requestID uuid.UUID, unitIDs []uuid.UUID) (*domain.FulfillmentResult, error)
	FulfillHospitalRequest(ctx context.Context, actor domain.Actor, requestID uuid.UUID, unitIDs []uuid.UUID) (*domain.FulfillmentResult, error)
	UpdateRequestStatus(ctx context.Context, actor domain.Actor, requestID uuid.UUID, input domain.UpdateRequestStatusInput) (*domain.BloodRequest, error)
	RespondToRequest(ctx context.Context, actor domain.Actor, requestID uuid.UUID, input domain.RespondToRequestInput) (*domain.HospitalBloodRequest, error)
	CancelHospitalRequest(ctx context.Context, actor domain.Actor, requestID uuid.UUID) (*domain.HospitalBloodRequest, error)
	ExpireOverdueHospitalRequests(ctx context.Context) (int, error)
	ReleaseUnit(ctx context.Context, actor domain.Actor, unitID uuid.UUID) (*domain.BloodUnit, error)
}

const (
	entityUnit            = "blood_unit"
	entityBloodRequest    = "blood_request"
	entityHospitalRequest = "hospital_blood_request"
)

type service struct {
	unitRepo            repository.BloodUnitRepository
	requestRepo         repository.BloodRequestRepository
	hospitalRequestRepo repository.HospitalRequestRepository
	hospitalRepo        repository.HospitalRepository
	auditRepo           repository.AuditLogRepository
	notifier            notification.Sink
	composer            notification.Composer
	logger              *zap.Logger
	metrics             *metrics.Metrics
	now                 func() time.Time
}

func NewService(
	unitRepo repository.BloodUnitRepository,
	requestRepo repository.BloodRequestRepository,
	hospitalRequestRepo repository.HospitalRequestRepository,
	hospitalRepo repository.HospitalRepository,
	auditRepo repository.AuditLogRepository,
	notifier notification.Sink,
	logger *zap.Logger,
	m *metrics.Metrics,
	locale string,
) Service {
	return &service{
		unitRepo:            unitRepo,
		requestRepo:         requestRepo,
		hospitalRequestRepo: hospitalRequestRepo,
		hospitalRepo:        hospitalRepo,
		auditRepo:           auditRepo,
		notifier:            notifier,
		composer:            notification.Composer{Locale: locale},
		logger:              logger,
		metrics:             m,
		now:                 time.Now,
	}
}

// FulfillRequest reserves the given units of the acting hospital against a
// blood request. Either every unit is reserved or none is.
func (s *service) FulfillRequest(ctx context.Context, actor domain.Actor, requestID uuid.UUID, unitIDs []uuid.UUID) (*domain.FulfillmentResult, error) {
	start := time.Now()
	defer s.metrics.ObserveFulfill(start)

	if !actor.IsHospital() {
		return nil, domain.ErrForbidden
	}
	if len(unitIDs) == 0 {
		return nil, domain.InvalidInput("unit_ids must not be empty")
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blood request: %w", err)
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if req.AssignedHospital != nil && *req.AssignedHospital != actor.ID {
		return nil, domain.ErrForbidden
	}
	if !req.Status.IsOpen() {
		return nil, domain.ErrRequestNotOpen
	}

	result := &domain.FulfillmentResult{
		RequestID:    req.ID,
		TotalCovered: req.UnitsReserved,
		UnitsNeeded:  req.Needed(),
		Status:       req.Status,
	}
	if err := s.reserve(ctx, actor.ID, req.ID, req.BloodType, unitIDs, result); err != nil {
		return result, err
	}

	updated, err := s.requestRepo.UpdateFulfillment(ctx, req.ID, actor.ID, len(unitIDs))
	if err != nil || updated == nil {
		s.compensate(ctx, req.ID, unitIDs)
		result.ReservedUnits = nil
		result.ReservedCount = 0
		if err != nil {
			result.Error = "failed to update request"
			return result, fmt.Errorf("failed to update blood request: %w", err)
		}
		result.Error = domain.ErrRequestNotOpen.Error()
		return result, domain.ErrRequestNotOpen
	}

	result.Success = true
	result.TotalCovered = updated.UnitsReserved
	result.Status = updated.Status
	s.metrics.AddReserved(len(unitIDs))
	s.metrics.IncrementFulfilled(string(updated.Status))

	s.audit(ctx, actor, domain.AuditReserveUnits, entityBloodRequest, req.ID, req, map[string]interface{}{
		"unit_ids": unitIDs, "status": updated.Status, "units_reserved": updated.UnitsReserved,
	})
	s.notifyRequester(ctx, updated)
	return result, nil
}

// FulfillHospitalRequest lets a responding hospital reserve its own units
// for another hospital's request.
func (s *service) FulfillHospitalRequest(ctx context.Context, actor domain.Actor, requestID uuid.UUID, unitIDs []uuid.UUID) (*domain.FulfillmentResult, error) {
	start := time.Now()
	defer s.metrics.ObserveFulfill(start)

	if !actor.IsHospital() {
		return nil, domain.ErrForbidden
	}
	if len(unitIDs) == 0 {
		return nil, domain.InvalidInput("unit_ids must not be empty")
	}

	req, err := s.openHospitalRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}

	result := &domain.FulfillmentResult{
		RequestID:    req.ID,
		TotalCovered: req.UnitsOffered,
		UnitsNeeded:  req.UnitsNeeded,
		Status:       req.Status,
	}
	if err := s.reserve(ctx, actor.ID, req.ID, req.BloodType, unitIDs, result); err != nil {
		return result, err
	}

	updated, err := s.hospitalRequestRepo.ApplyOffer(ctx, req.ID, actor.ID, len(unitIDs))
	if err != nil || updated == nil {
		s.compensate(ctx, req.ID, unitIDs)
		result.ReservedUnits = nil
		result.ReservedCount = 0
		if err != nil {
			result.Error = "failed to update request"
			return result, fmt.Errorf("failed to update hospital request: %w", err)
		}
		result.Error = domain.ErrRequestNotOpen.Error()
		return result, domain.ErrRequestNotOpen
	}

	result.Success = true
	result.TotalCovered = updated.UnitsOffered
	result.Status = updated.Status
	s.metrics.AddReserved(len(unitIDs))
	s.metrics.IncrementFulfilled(string(updated.Status))

	s.audit(ctx, actor, domain.AuditReserveUnits, entityHospitalRequest, req.ID, req, map[string]interface{}{
		"unit_ids": unitIDs, "status": updated.Status, "units_offered": updated.UnitsOffered,
	})
	s.notifyHospitalResponse(ctx, actor, updated, "reserved", len(unitIDs))
	return result, nil
}

// reserve validates the candidates and reserves them in one transaction. On
// failure result is filled in and the returned error carries the tag.
func (s *service) reserve(ctx context.Context, hospitalID, requestID uuid.UUID, bloodType domain.BloodType, unitIDs []uuid.UUID, result *domain.FulfillmentResult) error {
	now := s.now()

	failed, err := s.validateUnits(ctx, hospitalID, bloodType, unitIDs, now)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		result.FailedUnitIDs = failed
		result.Error = domain.ErrInvalidUnits.Error()
		return domain.ErrInvalidUnits
	}

	if err := s.unitRepo.ReserveAll(ctx, hospitalID, requestID, unitIDs, now); err != nil {
		var partial *domain.PartialReservationError
		if errors.As(err, &partial) {
			s.metrics.IncrementConflict()
			s.logger.Info("reservation lost a race",
				zap.String("request_id", requestID.String()),
				zap.Int("failed_units", len(partial.FailedUnitIDs)),
			)
			result.FailedUnitIDs = partial.FailedUnitIDs
			result.Error = partial.Error()
			return partial
		}
		result.Error = "failed to reserve units"
		return fmt.Errorf("failed to reserve units: %w", err)
	}

	result.ReservedUnits = unitIDs
	result.ReservedCount = len(unitIDs)
	return nil
}

func (s *service) validateUnits(ctx context.Context, hospitalID uuid.UUID, bloodType domain.BloodType, unitIDs []uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	units, err := s.unitRepo.FindByIDs(ctx, unitIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load units: %w", err)
	}
	byID := make(map[uuid.UUID]domain.BloodUnit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}

	var failed []uuid.UUID
	seen := make(map[uuid.UUID]bool, len(unitIDs))
	for _, id := range unitIDs {
		u, ok := byID[id]
		switch {
		case seen[id],
			!ok,
			u.HospitalID != hospitalID,
			u.Status != domain.UnitAvailable,
			u.IsExpiredAt(now),
			!domain.IsCompatible(u.BloodType, bloodType):
			failed = append(failed, id)
		}
		seen[id] = true
	}
	return failed, nil
}

// compensate releases units reserved by a call whose request update did not
// go through. It must run even when the caller has gone away.
func (s *service) compensate(ctx context.Context, requestID uuid.UUID, unitIDs []uuid.UUID) {
	n, err := s.unitRepo.Release(context.WithoutCancel(ctx), requestID, unitIDs)
	if err != nil {
		s.logger.Error("failed to release units after request update failure",
			zap.String("request_id", requestID.String()), zap.Error(err))
		return
	}
	s.metrics.AddReleased(int(n))
}

func (s *service) UpdateRequestStatus(ctx context.Context, actor domain.Actor, requestID uuid.UUID, input domain.UpdateRequestStatusInput) (*domain.BloodRequest, error) {
	if !input.Status.IsValid() {
		return nil, domain.InvalidInput("unknown request status %q", string(input.Status))
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blood request: %w", err)
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if !canChangeStatus(actor, req, input.Status) {
		return nil, domain.ErrForbidden
	}
	if req.Status.IsTerminal() || !req.Status.CanTransitionTo(input.Status) {
		return nil, domain.ErrInvalidTransition
	}

	ok, err := s.requestRepo.UpdateStatus(ctx, req.ID, req.Status, input.Status, input.Notes)
	if err != nil {
		return nil, fmt.Errorf("failed to update blood request: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	before := *req
	req.Status = input.Status
	if input.Notes != nil {
		req.Notes = input.Notes
	}

	if releasesUnits(input.Status) {
		ids, err := s.unitRepo.ReleaseByRequest(ctx, req.ID)
		if err != nil {
			s.logger.Error("failed to release units for closed request",
				zap.String("request_id", req.ID.String()), zap.Error(err))
		} else {
			s.metrics.AddReleased(len(ids))
		}
	}

	s.audit(ctx, actor, domain.AuditRequestStatus, entityBloodRequest, req.ID, before, req)
	s.notifyRequester(ctx, req)
	return req, nil
}

// canChangeStatus allows hospitals on unassigned or own requests, admins on
// anything, and requesters to cancel their own request.
func canChangeStatus(actor domain.Actor, req *domain.BloodRequest, next domain.RequestStatus) bool {
	switch actor.Kind {
	case domain.ActorAdmin:
		return true
	case domain.ActorHospital:
		return req.AssignedHospital == nil || *req.AssignedHospital == actor.ID
	case domain.ActorUser:
		return next == domain.RequestCancelled && req.RequesterID != nil && *req.RequesterID == actor.ID
	}
	return false
}

func releasesUnits(status domain.RequestStatus) bool {
	switch status {
	case domain.RequestCancelled, domain.RequestExpired, domain.RequestDeclined:
		return true
	}
	return false
}

func (s *service) openHospitalRequest(ctx context.Context, actor domain.Actor, requestID uuid.UUID) (*domain.HospitalBloodRequest, error) {
	req, err := s.hospitalRequestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hospital request: %w", err)
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if req.RequestingHospital == actor.ID {
		return nil, domain.ErrSelfResponseNotAllowed
	}
	if !req.AcceptsResponses() || !req.ExpiresAt.After(s.now()) {
		return nil, domain.ErrRequestNotOpen
	}
	return req, nil
}

func (s *service) RespondToRequest(ctx context.Context, actor domain.Actor, requestID uuid.UUID, input domain.RespondToRequestInput) (*domain.HospitalBloodRequest, error) {
	if !actor.IsHospital() {
		return nil, domain.ErrForbidden
	}
	if !input.ResponseStatus.IsValid() {
		return nil, domain.InvalidInput("response_status must be offered or declined")
	}
	if input.ResponseStatus == domain.ResponseOffered && input.UnitsOffered < 1 {
		return nil, domain.InvalidInput("units_offered must be at least 1")
	}

	req, err := s.openHospitalRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}

	updated := req
	units := 0
	if input.ResponseStatus == domain.ResponseOffered {
		units = input.UnitsOffered
		updated, err = s.hospitalRequestRepo.ApplyOffer(ctx, req.ID, actor.ID, units)
		if err != nil {
			return nil, fmt.Errorf("failed to record offer: %w", err)
		}
		if updated == nil {
			return nil, domain.ErrRequestNotOpen
		}
	}

	s.audit(ctx, actor, domain.AuditHospitalRespond, entityHospitalRequest, req.ID, req, map[string]interface{}{
		"response_status": input.ResponseStatus, "units_offered": units, "notes": input.Notes,
	})
	s.notifyHospitalResponse(ctx, actor, updated, string(input.ResponseStatus), units)
	return updated, nil
}

func (s *service) CancelHospitalRequest(ctx context.Context, actor domain.Actor, requestID uuid.UUID) (*domain.HospitalBloodRequest, error) {
	req, err := s.hospitalRequestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hospital request: %w", err)
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if !actor.CanManageHospital(req.RequestingHospital) {
		return nil, domain.ErrForbidden
	}
	if !req.Status.CanTransitionTo(domain.RequestCancelled) {
		return nil, domain.ErrInvalidTransition
	}

	ok, err := s.hospitalRequestRepo.UpdateStatus(ctx, req.ID, req.Status, domain.RequestCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel hospital request: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	before := *req
	req.Status = domain.RequestCancelled
	if ids, err := s.unitRepo.ReleaseByRequest(ctx, req.ID); err != nil {
		s.logger.Error("failed to release units for cancelled request",
			zap.String("request_id", req.ID.String()), zap.Error(err))
	} else {
		s.metrics.AddReleased(len(ids))
	}

	s.audit(ctx, actor, domain.AuditRequestStatus, entityHospitalRequest, req.ID, before, req)
	return req, nil
}

// ExpireOverdueHospitalRequests closes open hospital requests whose deadline
// has passed and returns any units responders had reserved for them.
func (s *service) ExpireOverdueHospitalRequests(ctx context.Context) (int, error) {
	ids, err := s.hospitalRequestRepo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire hospital requests: %w", err)
	}

	for _, id := range ids {
		released, err := s.unitRepo.ReleaseByRequest(ctx, id)
		if err != nil {
			s.logger.Error("failed to release units for expired request",
				zap.String("request_id", id.String()), zap.Error(err))
			continue
		}
		s.metrics.AddReleased(len(released))
		s.audit(ctx, domain.SystemActor, domain.AuditRequestStatus, entityHospitalRequest, id, nil,
			map[string]interface{}{"status": domain.RequestExpired, "released_units": released})
	}
	return len(ids), nil
}

// ReleaseUnit returns one reserved unit to stock. A unit still counted by
// an open or fulfilled request stays reserved; closing that request releases
// all of its units at once.
func (s *service) ReleaseUnit(ctx context.Context, actor domain.Actor, unitID uuid.UUID) (*domain.BloodUnit, error) {
	unit, err := s.unitRepo.GetByID(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blood unit: %w", err)
	}
	if unit == nil {
		return nil, domain.ErrNotFound
	}
	if !actor.CanManageHospital(unit.HospitalID) {
		return nil, domain.ErrForbidden
	}
	if unit.Status != domain.UnitReserved {
		return nil, unit.Status.TransitionError(domain.UnitAvailable)
	}

	var released bool
	if unit.ReservedForRequestID == nil {
		released, err = s.unitRepo.ConditionalUpdateStatus(ctx, unit.ID, domain.UnitReserved, domain.UnitAvailable,
			domain.UnitStatusChange{ClearReservation: true})
	} else {
		requestID := *unit.ReservedForRequestID
		if err := s.checkReleasable(ctx, requestID); err != nil {
			return nil, err
		}
		var n int64
		n, err = s.unitRepo.Release(ctx, requestID, []uuid.UUID{unit.ID})
		released = n == 1
	}
	if err != nil {
		return nil, fmt.Errorf("failed to release blood unit: %w", err)
	}
	if !released {
		s.metrics.IncrementConflict()
		return nil, domain.ErrUnitNotAvailable
	}

	before := *unit
	unit.Status = domain.UnitAvailable
	unit.ReservedForRequestID = nil
	s.metrics.AddReleased(1)
	s.audit(ctx, actor, domain.AuditReleaseUnits, entityUnit, unit.ID, before, unit)
	return unit, nil
}

// checkReleasable fails with ErrReservationActive while the request holding
// the reservation still counts it. Reservations whose request is gone may be
// released.
func (s *service) checkReleasable(ctx context.Context, requestID uuid.UUID) error {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to load blood request: %w", err)
	}
	if req != nil {
		if !releasesUnits(req.Status) {
			return domain.ErrReservationActive
		}
		return nil
	}

	hreq, err := s.hospitalRequestRepo.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to load hospital request: %w", err)
	}
	if hreq != nil && !releasesUnits(hreq.Status) {
		return domain.ErrReservationActive
	}
	return nil
}

func (s *service) notifyRequester(ctx context.Context, req *domain.BloodRequest) {
	typ := notification.TypeForStatus(req.Status)
	if typ == "" || s.notifier == nil {
		return
	}
	s.notifier.Emit(ctx, s.composer.Intent(req.Email, typ, req.ID, domain.RelatedBloodRequest, map[string]string{
		"blood_type": string(req.BloodType),
		"location":   req.Location,
		"covered":    strconv.Itoa(req.UnitsReserved),
		"needed":     strconv.Itoa(req.Needed()),
		"status":     string(req.Status),
	}))
}

func (s *service) notifyHospitalResponse(ctx context.Context, actor domain.Actor, req *domain.HospitalBloodRequest, response string, units int) {
	if s.notifier == nil {
		return
	}
	requester, err := s.hospitalRepo.GetByID(ctx, req.RequestingHospital)
	if err != nil || requester == nil {
		s.logger.Warn("cannot notify requesting hospital", zap.String("request_id", req.ID.String()), zap.Error(err))
		return
	}

	name := actor.Name
	if name == "" {
		name = actor.Username
	}
	if responder, err := s.hospitalRepo.GetByID(ctx, actor.ID); err == nil && responder != nil {
		name = responder.Name
	}

	s.notifier.Emit(ctx, s.composer.Intent(requester.Email, domain.NotifHospitalResponse, req.ID, domain.RelatedHospitalRequest, map[string]string{
		"hospital":   name,
		"response":   response,
		"units":      strconv.Itoa(units),
		"blood_type": string(req.BloodType),
		"patient":    req.PatientName,
	}))
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
	if err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
