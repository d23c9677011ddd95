package email

import (
	"context"
	"errors"
	"testing"

	"github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blood-donation/internal/config"
)

type recordingSender struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (r *recordingSender) Send(_ context.Context, params *resend.SendEmailRequest) error {
	r.sent = append(r.sent, params)
	return r.err
}

func TestSendNotificationEmail_RendersTemplate(t *testing.T) {
	sender := &recordingSender{}
	svc := NewServiceWithSender(sender, &config.Config{FromEmail: "noreply@blood.test", Domain: "blood.test"})

	err := svc.SendNotificationEmail(context.Background(), "ann@example.com",
		"Blood request fulfilled", "All 2 units of O- have been reserved <now>.", "")

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"ann@example.com"}, msg.To)
	assert.Equal(t, "Blood request fulfilled", msg.Subject)
	assert.Contains(t, msg.From, "noreply@blood.test")
	assert.Contains(t, msg.Html, "All 2 units of O- have been reserved &lt;now&gt;.")
	assert.NotContains(t, msg.Html, "View details")
}

func TestSendRegistrationEmail_PropagatesSenderError(t *testing.T) {
	sender := &recordingSender{err: errors.New("rate limited")}
	svc := NewServiceWithSender(sender, &config.Config{FromEmail: "noreply@blood.test", Domain: "blood.test"})

	err := svc.SendRegistrationEmail(context.Background(), "ann@example.com", "Ann")

	assert.EqualError(t, err, "rate limited")
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Html, "https://blood.test/login")
}
