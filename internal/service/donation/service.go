package donation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/inventory"
	"blood-donation/internal/service/notification"
)

type Service interface {
	Create(ctx context.Context, actor domain.Actor, input domain.CreateDonationInput) (*domain.Donation, error)
	ListMine(ctx context.Context, actor domain.Actor, params domain.PaginationParams) (domain.PaginatedResponse[domain.Donation], error)
	ListForHospital(ctx context.Context, actor domain.Actor, status *domain.DonationStatus, params domain.PaginationParams) (domain.PaginatedResponse[domain.Donation], error)
	Approve(ctx context.Context, actor domain.Actor, id uuid.UUID, input domain.ApproveDonationInput) (*domain.BloodUnit, error)
	Reject(ctx context.Context, actor domain.Actor, id uuid.UUID, input domain.ReviewDonationInput) error
}

type service struct {
	donationRepo repository.DonationRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditLogRepository
	inventory    inventory.Service
	notifier     notification.Sink
	composer     notification.Composer
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(
	donationRepo repository.DonationRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	inventorySvc inventory.Service,
	notifier notification.Sink,
	logger *zap.Logger,
	locale string,
) Service {
	return &service{
		donationRepo: donationRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		inventory:    inventorySvc,
		notifier:     notifier,
		composer:     notification.Composer{Locale: locale},
		logger:       logger,
		now:          time.Now,
	}
}

func (s *service) Create(ctx context.Context, actor domain.Actor, input domain.CreateDonationInput) (*domain.Donation, error) {
	if !actor.IsUser() {
		return nil, domain.ErrForbidden
	}
	bt, err := domain.ParseBloodType(string(input.BloodType))
	if err != nil {
		return nil, err
	}
	location := strings.TrimSpace(input.Location)
	if location == "" {
		return nil, domain.InvalidInput("location is required")
	}

	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}

	date := s.now()
	if input.DonationDate != nil && !input.DonationDate.IsZero() {
		date = *input.DonationDate
	}

	donation := &domain.Donation{
		ID:           uuid.New(),
		UserID:       user.ID,
		DonorName:    user.FullName,
		DonorEmail:   user.Email,
		BloodType:    bt,
		Location:     location,
		HospitalID:   input.HospitalID,
		Status:       domain.DonationPending,
		DonationDate: date,
	}
	if err := s.donationRepo.Create(ctx, donation); err != nil {
		return nil, fmt.Errorf("failed to create donation: %w", err)
	}
	return donation, nil
}

func (s *service) ListMine(ctx context.Context, actor domain.Actor, params domain.PaginationParams) (domain.PaginatedResponse[domain.Donation], error) {
	if !actor.IsUser() {
		return domain.PaginatedResponse[domain.Donation]{}, domain.ErrForbidden
	}
	params.Validate()

	donations, total, err := s.donationRepo.ListByUser(ctx, actor.ID, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Donation]{}, fmt.Errorf("failed to list donations: %w", err)
	}
	return domain.NewPaginatedResponse(donations, params.Page, params.PageSize, total), nil
}

func (s *service) ListForHospital(ctx context.Context, actor domain.Actor, status *domain.DonationStatus, params domain.PaginationParams) (domain.PaginatedResponse[domain.Donation], error) {
	if !actor.IsHospital() {
		return domain.PaginatedResponse[domain.Donation]{}, domain.ErrForbidden
	}
	if status != nil && !status.IsValid() {
		return domain.PaginatedResponse[domain.Donation]{}, domain.InvalidInput("unknown donation status %q", string(*status))
	}
	params.Validate()

	donations, total, err := s.donationRepo.ListForHospital(ctx, actor.ID, status, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Donation]{}, fmt.Errorf("failed to list donations: %w", err)
	}
	return domain.NewPaginatedResponse(donations, params.Page, params.PageSize, total), nil
}

// Approve accepts a pending donation and books it into the hospital's
// inventory as an Available unit.
func (s *service) Approve(ctx context.Context, actor domain.Actor, id uuid.UUID, input domain.ApproveDonationInput) (*domain.BloodUnit, error) {
	donation, err := s.review(ctx, actor, id, domain.DonationApproved, input.Note)
	if err != nil {
		return nil, err
	}

	unit, err := s.inventory.CreateFromDonation(ctx, actor.ID, donation, input.ExpiryDate)
	if err != nil {
		s.logger.Error("approved donation has no blood unit",
			zap.String("donation_id", donation.ID.String()), zap.Error(err))
		return nil, err
	}

	s.notifier.Emit(ctx, s.composer.Intent(donation.DonorEmail, domain.NotifDonationApproved, donation.ID,
		domain.RelatedDonation, map[string]string{"blood_type": string(donation.BloodType)}))
	return unit, nil
}

func (s *service) Reject(ctx context.Context, actor domain.Actor, id uuid.UUID, input domain.ReviewDonationInput) error {
	donation, err := s.review(ctx, actor, id, domain.DonationRejected, input.Note)
	if err != nil {
		return err
	}

	s.notifier.Emit(ctx, s.composer.Intent(donation.DonorEmail, domain.NotifDonationRejected, donation.ID,
		domain.RelatedDonation, map[string]string{"blood_type": string(donation.BloodType)}))
	return nil
}

func (s *service) review(ctx context.Context, actor domain.Actor, id uuid.UUID, to domain.DonationStatus, note *string) (*domain.Donation, error) {
	if !actor.IsHospital() {
		return nil, domain.ErrForbidden
	}

	donation, err := s.donationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load donation: %w", err)
	}
	if donation == nil {
		return nil, domain.ErrNotFound
	}
	if donation.HospitalID != nil && *donation.HospitalID != actor.ID {
		return nil, domain.ErrForbidden
	}
	if donation.Status != domain.DonationPending {
		return nil, domain.ErrInvalidTransition
	}

	ok, err := s.donationRepo.Review(ctx, id, actor.ID, to, note)
	if err != nil {
		return nil, fmt.Errorf("failed to review donation: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	before := *donation
	hid := actor.ID
	donation.Status = to
	donation.HospitalID = &hid
	donation.ReviewNote = note

	err = repository.CreateAuditLog(ctx, s.auditRepo, domain.CreateAuditLogInput{
		Actor:      actor,
		Action:     domain.AuditDonationReview,
		EntityType: "donation",
		EntityID:   id,
		OldValue:   before,
		NewValue:   donation,
	})
	if err != nil {
		s.logger.Warn("failed to write audit log", zap.String("donation_id", id.String()), zap.Error(err))
	}
	return donation, nil
}
