package request

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
)

// DefaultHospitalRequestTTL applies when a hospital request has no deadline.
const DefaultHospitalRequestTTL = 72 * time.Hour

type Service interface {
	CreateBloodRequest(ctx context.Context, actor *domain.Actor, input domain.CreateBloodRequestInput) (*domain.BloodRequest, error)
	GetBloodRequest(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.BloodRequest, error)
	ListBloodRequests(ctx context.Context, actor domain.Actor, filter domain.RequestFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.BloodRequest], error)
	CreateHospitalRequest(ctx context.Context, actor domain.Actor, input domain.CreateHospitalRequestInput) (*domain.HospitalBloodRequest, error)
	GetHospitalRequest(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.HospitalBloodRequest, error)
	ListOwnHospitalRequests(ctx context.Context, actor domain.Actor, params domain.PaginationParams) (domain.PaginatedResponse[domain.HospitalBloodRequest], error)
	ListOpenHospitalRequests(ctx context.Context, actor domain.Actor, params domain.PaginationParams) (domain.PaginatedResponse[domain.HospitalBloodRequest], error)
}

type service struct {
	requestRepo         repository.BloodRequestRepository
	hospitalRequestRepo repository.HospitalRequestRepository
	now                 func() time.Time
}

func NewService(requestRepo repository.BloodRequestRepository, hospitalRequestRepo repository.HospitalRequestRepository) Service {
	return &service{
		requestRepo:         requestRepo,
		hospitalRequestRepo: hospitalRequestRepo,
		now:                 time.Now,
	}
}

// CreateBloodRequest accepts public requests; actor is nil for anonymous
// callers and links the request to the user otherwise.
func (s *service) CreateBloodRequest(ctx context.Context, actor *domain.Actor, input domain.CreateBloodRequestInput) (*domain.BloodRequest, error) {
	bt, err := domain.ParseBloodType(string(input.BloodType))
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	location := strings.TrimSpace(input.Location)
	if name == "" || location == "" {
		return nil, domain.InvalidInput("name and location are required")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, domain.InvalidInput("invalid email address")
	}
	urgency, err := domain.ParseUrgency(string(input.Urgency))
	if err != nil {
		return nil, err
	}
	units := input.UnitsNeeded
	if units < 1 {
		units = 1
	}

	req := &domain.BloodRequest{
		ID:               uuid.New(),
		Name:             name,
		Email:            strings.ToLower(strings.TrimSpace(input.Email)),
		BloodType:        bt,
		Location:         location,
		Urgency:          urgency,
		UnitsNeeded:      units,
		Status:           domain.RequestPending,
		AssignedHospital: input.AssignedHospital,
		Notes:            input.Notes,
	}
	if actor != nil && actor.IsUser() {
		id := actor.ID
		req.RequesterID = &id
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create blood request: %w", err)
	}
	return req, nil
}

func (s *service) GetBloodRequest(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.BloodRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load blood request: %w", err)
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}

	switch actor.Kind {
	case domain.ActorAdmin:
	case domain.ActorHospital:
		if req.AssignedHospital != nil && *req.AssignedHospital != actor.ID {
			return nil, domain.ErrForbidden
		}
	default:
		if req.RequesterID == nil || *req.RequesterID != actor.ID {
			return nil, domain.ErrForbidden
		}
	}
	return req, nil
}

// ListBloodRequests scopes the filter to what the actor may see: users their
// own requests, hospitals unassigned ones and their own.
func (s *service) ListBloodRequests(ctx context.Context, actor domain.Actor, filter domain.RequestFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.BloodRequest], error) {
	params.Validate()

	switch actor.Kind {
	case domain.ActorUser:
		id := actor.ID
		filter.RequesterID = &id
	case domain.ActorHospital:
		id := actor.ID
		filter.AssignedHospital = &id
	}

	requests, total, err := s.requestRepo.List(ctx, filter, params)
	if err != nil {
		return domain.PaginatedResponse[domain.BloodRequest]{}, fmt.Errorf("failed to list blood requests: %w", err)
	}
	return domain.NewPaginatedResponse(requests, params.Page, params.PageSize, total), nil
}

func (s *service) CreateHospitalRequest(ctx context.Context, actor domain.Actor, input domain.CreateHospitalRequestInput) (*domain.HospitalBloodRequest, error) {
	if !actor.IsHospital() {
		return nil, domain.ErrForbidden
	}
	bt, err := domain.ParseBloodType(string(input.BloodType))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.PatientName) == "" {
		return nil, domain.InvalidInput("patient_name is required")
	}
	if input.UnitsNeeded < 1 {
		return nil, domain.InvalidInput("units_needed must be at least 1")
	}
	urgency, err := domain.ParseUrgency(string(input.UrgencyLevel))
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(DefaultHospitalRequestTTL)
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(now) {
			return nil, domain.InvalidInput("expires_at must be in the future")
		}
		expiresAt = *input.ExpiresAt
	}

	req := &domain.HospitalBloodRequest{
		ID:                     uuid.New(),
		RequestingHospital:     actor.ID,
		PatientName:            strings.TrimSpace(input.PatientName),
		BloodType:              bt,
		UnitsNeeded:            input.UnitsNeeded,
		UrgencyLevel:           urgency,
		Status:                 domain.RequestPending,
		Notes:                  input.Notes,
		ExpiresAt:              expiresAt,
		RequestingHospitalName: actor.Name,
	}
	if err := s.hospitalRequestRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create hospital request: %w", err)
	}
	return req, nil
}

func (s *service) GetHospitalRequest(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.HospitalBloodRequest, error) {
	if !actor.IsHospital() && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	req, err := s.hospitalRequestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load hospital request: %w", err)
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	return req, nil
}

func (s *service) ListOwnHospitalRequests(ctx context.Context, actor domain.Actor, params domain.PaginationParams) (domain.PaginatedResponse[domain.HospitalBloodRequest], error) {
	if !actor.IsHospital() {
		return domain.PaginatedResponse[domain.HospitalBloodRequest]{}, domain.ErrForbidden
	}
	params.Validate()

	requests, total, err := s.hospitalRequestRepo.ListByHospital(ctx, actor.ID, params)
	if err != nil {
		return domain.PaginatedResponse[domain.HospitalBloodRequest]{}, fmt.Errorf("failed to list hospital requests: %w", err)
	}
	return domain.NewPaginatedResponse(requests, params.Page, params.PageSize, total), nil
}

func (s *service) ListOpenHospitalRequests(ctx context.Context, actor domain.Actor, params domain.PaginationParams) (domain.PaginatedResponse[domain.HospitalBloodRequest], error) {
	if !actor.IsHospital() {
		return domain.PaginatedResponse[domain.HospitalBloodRequest]{}, domain.ErrForbidden
	}
	params.Validate()

	requests, total, err := s.hospitalRequestRepo.ListOpenForResponder(ctx, actor.ID, s.now(), params)
	if err != nil {
		return domain.PaginatedResponse[domain.HospitalBloodRequest]{}, fmt.Errorf("failed to list open hospital requests: %w", err)
	}
	return domain.NewPaginatedResponse(requests, params.Page, params.PageSize, total), nil
}
