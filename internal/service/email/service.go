package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v3"

	"blood-donation/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

type Service interface {
	SendRegistrationEmail(ctx context.Context, toEmail, fullName string) error
	SendNotificationEmail(ctx context.Context, toEmail, title, message, link string) error
}

// Sender delivers a rendered email. The Resend client satisfies it through
// resendSender.
type Sender interface {
	Send(ctx context.Context, params *resend.SendEmailRequest) error
}

type resendSender struct {
	client *resend.Client
}

func (r *resendSender) Send(_ context.Context, params *resend.SendEmailRequest) error {
	_, err := r.client.Emails.Send(params)
	return err
}

type service struct {
	sender Sender
	config *config.Config
}

func NewService(cfg *config.Config) Service {
	return NewServiceWithSender(&resendSender{client: resend.NewClient(cfg.ResendAPIKey)}, cfg)
}

func NewServiceWithSender(sender Sender, cfg *config.Config) Service {
	return &service{sender: sender, config: cfg}
}

func render(templateName string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		return "", fmt.Errorf("failed to parse email templates: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout", data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return body.String(), nil
}

func (s *service) sendEmail(ctx context.Context, toEmail, subject, templateName string, data interface{}) error {
	html, err := render(templateName, data)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Blood Donation Network <%s>", s.config.FromEmail),
		To:      []string{toEmail},
		Html:    html,
		Subject: subject,
	}
	return s.sender.Send(ctx, params)
}

func (s *service) SendRegistrationEmail(ctx context.Context, toEmail, fullName string) error {
	data := struct {
		Title string
		Name  string
		Link  string
	}{
		Title: "Welcome to the Blood Donation Network",
		Name:  fullName,
		Link:  fmt.Sprintf("https://%s/login", s.config.Domain),
	}
	return s.sendEmail(ctx, toEmail, "Welcome to the Blood Donation Network", "registration.html", data)
}

func (s *service) SendNotificationEmail(ctx context.Context, toEmail, title, message, link string) error {
	data := struct {
		Title   string
		Message string
		Link    string
	}{
		Title:   title,
		Message: message,
		Link:    link,
	}
	return s.sendEmail(ctx, toEmail, title, "notification.html", data)
}
