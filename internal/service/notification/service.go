package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/metrics"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/email"
)

// Sink accepts notification intents. Emit never fails from the caller's
// point of view; delivery problems are logged.
type Sink interface {
	Emit(ctx context.Context, intent domain.NotificationIntent)
}

type Service interface {
	Sink
	List(ctx context.Context, recipientEmail string, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error)
	MarkAsRead(ctx context.Context, id uuid.UUID, recipientEmail string) error
	MarkAllAsRead(ctx context.Context, recipientEmail string) error
	GetUnreadCount(ctx context.Context, recipientEmail string) (int64, error)
}

const emailTimeout = 15 * time.Second

type service struct {
	notifRepo repository.NotificationRepository
	emailSvc  email.Service
	logger    *zap.Logger
	metrics   *metrics.Metrics
	domain    string

	// dispatch runs email delivery off the request path.
	dispatch func(func())
}

func NewService(
	notifRepo repository.NotificationRepository,
	emailSvc email.Service,
	logger *zap.Logger,
	m *metrics.Metrics,
	appDomain string,
) Service {
	return &service{
		notifRepo: notifRepo,
		emailSvc:  emailSvc,
		logger:    logger,
		metrics:   m,
		domain:    appDomain,
		dispatch:  func(f func()) { go f() },
	}
}

func (s *service) Emit(ctx context.Context, intent domain.NotificationIntent) {
	if intent.RecipientEmail == "" {
		return
	}

	notif := intent.ToNotification()
	log := s.logger.With(
		zap.String("notification_type", string(intent.Type)),
		zap.String("related_id", intent.RelatedID.String()),
	)

	if err := s.notifRepo.Create(context.WithoutCancel(ctx), notif); err != nil {
		s.metrics.IncrementNotificationFailure()
		log.Warn("failed to store notification", zap.Error(err))
	}

	if s.emailSvc == nil {
		return
	}

	link := ""
	if s.domain != "" {
		link = fmt.Sprintf("https://%s/notifications", s.domain)
	}
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()
		if err := s.emailSvc.SendNotificationEmail(ctx, intent.RecipientEmail, intent.Title, intent.Message, link); err != nil {
			s.metrics.IncrementNotificationFailure()
			log.Warn("failed to send notification email", zap.Error(err))
		}
	})
}

func (s *service) List(ctx context.Context, recipientEmail string, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error) {
	params.Validate()

	notifications, total, err := s.notifRepo.ListByRecipient(ctx, recipientEmail, unreadOnly, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Notification]{}, fmt.Errorf("failed to list notifications: %w", err)
	}

	return domain.NewPaginatedResponse(notifications, params.Page, params.PageSize, total), nil
}

func (s *service) MarkAsRead(ctx context.Context, id uuid.UUID, recipientEmail string) error {
	ok, err := s.notifRepo.MarkAsRead(ctx, id, recipientEmail)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *service) MarkAllAsRead(ctx context.Context, recipientEmail string) error {
	return s.notifRepo.MarkAllAsRead(ctx, recipientEmail)
}

func (s *service) GetUnreadCount(ctx context.Context, recipientEmail string) (int64, error) {
	return s.notifRepo.CountUnread(ctx, recipientEmail)
}
