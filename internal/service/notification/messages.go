package notification

import (
	"strings"

	"github.com/google/uuid"

	"blood-donation/internal/domain"
	"blood-donation/internal/pkg/i18n"
)

var defaultMessages = map[string]string{
	"REQUEST_APPROVED_TITLE":              "Blood request approved",
	"REQUEST_APPROVED_MESSAGE":            "Your request for {blood_type} blood in {location} has been approved.",
	"REQUEST_DECLINED_TITLE":              "Blood request declined",
	"REQUEST_DECLINED_MESSAGE":            "Your request for {blood_type} blood in {location} was declined.",
	"REQUEST_FULFILLED_TITLE":             "Blood request fulfilled",
	"REQUEST_FULFILLED_MESSAGE":           "All {needed} units of {blood_type} have been reserved for your request.",
	"REQUEST_PARTIALLY_FULFILLED_TITLE":   "Blood request partially fulfilled",
	"REQUEST_PARTIALLY_FULFILLED_MESSAGE": "{covered} of {needed} units of {blood_type} have been reserved for your request.",
	"REQUEST_CANCELLED_TITLE":             "Blood request closed",
	"REQUEST_CANCELLED_MESSAGE":           "Your request for {blood_type} blood is now {status}.",
	"HOSPITAL_RESPONSE_TITLE":             "Response to your blood request",
	"HOSPITAL_RESPONSE_MESSAGE":           "{hospital} {response} {units} unit(s) of {blood_type} for patient {patient}.",
	"DONATION_APPROVED_TITLE":             "Donation approved",
	"DONATION_APPROVED_MESSAGE":           "Thank you! Your {blood_type} donation has been accepted into inventory.",
	"DONATION_REJECTED_TITLE":             "Donation not accepted",
	"DONATION_REJECTED_MESSAGE":           "Your {blood_type} donation could not be accepted.",
	"LOW_STOCK_TITLE":                     "Low blood stock",
	"LOW_STOCK_MESSAGE":                   "Stock of {blood_type} is down to {count} unit(s).",
}

func text(locale, key string, vars map[string]string) string {
	out := i18n.Format(locale, key, vars)
	if out != key {
		return out
	}
	if def, ok := defaultMessages[key]; ok {
		pairs := make([]string, 0, len(vars)*2)
		for k, v := range vars {
			pairs = append(pairs, "{"+k+"}", v)
		}
		return strings.NewReplacer(pairs...).Replace(def)
	}
	return key
}

// Composer builds localised intents from the message catalogue.
type Composer struct {
	Locale string
}

func (c Composer) Intent(recipient string, typ domain.NotificationType, relatedID uuid.UUID, relatedType domain.RelatedType, vars map[string]string) domain.NotificationIntent {
	return domain.NotificationIntent{
		RecipientEmail: recipient,
		Type:           typ,
		Title:          text(c.Locale, string(typ)+"_TITLE", vars),
		Message:        text(c.Locale, string(typ)+"_MESSAGE", vars),
		RelatedID:      relatedID,
		RelatedType:    relatedType,
	}
}

// TypeForStatus maps a request status to the notification sent to the
// requester, or "" when the status is not announced.
func TypeForStatus(status domain.RequestStatus) domain.NotificationType {
	switch status {
	case domain.RequestApproved:
		return domain.NotifRequestApproved
	case domain.RequestDeclined:
		return domain.NotifRequestDeclined
	case domain.RequestFulfilled:
		return domain.NotifRequestFulfilled
	case domain.RequestPartiallyFulfilled:
		return domain.NotifRequestPartiallyFulfilled
	case domain.RequestCancelled, domain.RequestExpired:
		return domain.NotifRequestCancelled
	}
	return ""
}
