package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/mocks"
)

func newSyncService(repo *mocks.NotificationRepository, emailSvc *mocks.EmailService) *service {
	svc := NewService(repo, emailSvc, zap.NewNop(), nil, "blood.test").(*service)
	svc.dispatch = func(f func()) { f() }
	return svc
}

func TestEmit(t *testing.T) {
	ctx := context.Background()
	requestID := uuid.New()
	intent := Composer{Locale: "en"}.Intent("ann@example.com", domain.NotifRequestFulfilled, requestID,
		domain.RelatedBloodRequest, map[string]string{"needed": "2", "blood_type": "O-"})

	t.Run("Stores and emails", func(t *testing.T) {
		repo := new(mocks.NotificationRepository)
		emailSvc := new(mocks.EmailService)
		svc := newSyncService(repo, emailSvc)

		repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
			return n.RecipientEmail == "ann@example.com" && *n.RelatedID == requestID &&
				*n.RelatedType == string(domain.RelatedBloodRequest)
		})).Return(nil).Once()
		emailSvc.On("SendNotificationEmail", mock.Anything, "ann@example.com", "Blood request fulfilled",
			"All 2 units of O- have been reserved for your request.", "https://blood.test/notifications").Return(nil).Once()

		svc.Emit(ctx, intent)

		repo.AssertExpectations(t)
		emailSvc.AssertExpectations(t)
	})

	t.Run("Failures are swallowed", func(t *testing.T) {
		repo := new(mocks.NotificationRepository)
		emailSvc := new(mocks.EmailService)
		svc := newSyncService(repo, emailSvc)

		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
		emailSvc.On("SendNotificationEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp down")).Once()

		assert.NotPanics(t, func() { svc.Emit(ctx, intent) })
		repo.AssertExpectations(t)
		emailSvc.AssertExpectations(t)
	})

	t.Run("No recipient is a no-op", func(t *testing.T) {
		repo := new(mocks.NotificationRepository)
		svc := newSyncService(repo, new(mocks.EmailService))

		svc.Emit(ctx, domain.NotificationIntent{Type: domain.NotifLowStock})

		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestMarkAsRead_NotFound(t *testing.T) {
	repo := new(mocks.NotificationRepository)
	svc := newSyncService(repo, nil)
	id := uuid.New()

	repo.On("MarkAsRead", mock.Anything, id, "ann@example.com").Return(false, nil).Once()

	err := svc.MarkAsRead(context.Background(), id, "ann@example.com")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTypeForStatus(t *testing.T) {
	assert.Equal(t, domain.NotifRequestApproved, TypeForStatus(domain.RequestApproved))
	assert.Equal(t, domain.NotifRequestCancelled, TypeForStatus(domain.RequestExpired))
	assert.Equal(t, domain.NotificationType(""), TypeForStatus(domain.RequestPending))
}
