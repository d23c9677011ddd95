package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type EmailService struct {
	mock.Mock
}

func (m *EmailService) SendRegistrationEmail(ctx context.Context, toEmail, fullName string) error {
	args := m.Called(ctx, toEmail, fullName)
	return args.Error(0)
}

func (m *EmailService) SendNotificationEmail(ctx context.Context, toEmail, title, message, link string) error {
	args := m.Called(ctx, toEmail, title, message, link)
	return args.Error(0)
}
