package booking

import (
	"encoding/json"
	"strings"
	"time"

	"salesops_backend/platform/apperr"
)

type calComWebhook struct {
	TriggerEvent string        `json:"triggerEvent"`
	CreatedAt    time.Time     `json:"createdAt"`
	Payload      calComBooking `json:"payload"`
}

type calComBooking struct {
	UID        string    `json:"uid"`
	Title      string    `json:"title"`
	EventTitle string    `json:"eventTitle"`
	Type       string    `json:"type"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`

	Attendees []struct {
		Email       string `json:"email"`
		Name        string `json:"name"`
		PhoneNumber string `json:"phoneNumber"`
	} `json:"attendees"`

	Organizer struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"organizer"`

	Responses           map[string]any `json:"responses"`
	UserFieldsResponses map[string]any `json:"userFieldsResponses"`
	Metadata            map[string]any `json:"metadata"`

	RescheduleUID      string `json:"rescheduleUid"`
	RescheduledFromUID string `json:"rescheduledFromUid"`

	CancellationReason string `json:"cancellationReason"`
}

// ParseCalComEvent maps a Cal.com webhook body to the canonical inbound
// event. Cal.com keeps form answers in responses (wrapped in {label, value}
// envelopes) and managed fields in userFieldsResponses; both pass through
// verbatim for the attribution resolver to flatten.
func ParseCalComEvent(body []byte) (InboundEvent, error) {
	var hook calComWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return InboundEvent{}, apperr.Wrap(apperr.KindBadRequest, "malformed cal.com payload", err)
	}

	var trigger Trigger
	switch hook.TriggerEvent {
	case "BOOKING_CREATED":
		trigger = TriggerCreated
	case "BOOKING_RESCHEDULED":
		trigger = TriggerRescheduled
	case "BOOKING_CANCELLED":
		trigger = TriggerCanceled
	case "BOOKING_NO_SHOW_UPDATED":
		trigger = TriggerNoShow
	default:
		return InboundEvent{}, apperr.BadRequest("unsupported cal.com event: " + hook.TriggerEvent)
	}

	b := hook.Payload
	ev := InboundEvent{
		Platform: PlatformCalCom,
		Trigger:  trigger,
		Native: NativeRef{
			Platform:   PlatformCalCom,
			BookingUID: b.UID,
		},
		RescheduledFromKey: firstNonEmpty(b.RescheduledFromUID, b.RescheduleUID),
		OrganizerName:      b.Organizer.Name,
		OrganizerEmail:     b.Organizer.Email,
		EventTypeName:      firstNonEmpty(b.EventTitle, b.Title, b.Type),
		ScheduledAt:        b.StartTime,
		EndsAt:             b.EndTime,
		BookedAt:           hook.CreatedAt,
		CancelReason:       b.CancellationReason,
		Responses:          b.Responses,
		UserFields:         b.UserFieldsResponses,
		Metadata:           b.Metadata,
	}

	if ev.Native.IsZero() {
		return InboundEvent{}, apperr.Validation("cal.com payload missing booking uid")
	}

	if len(b.Attendees) > 0 {
		ev.LeadName = b.Attendees[0].Name
		ev.LeadEmail = strings.ToLower(strings.TrimSpace(b.Attendees[0].Email))
		ev.LeadPhone = b.Attendees[0].PhoneNumber
	}

	return ev, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
