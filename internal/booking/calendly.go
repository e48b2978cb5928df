package booking

import (
	"encoding/json"
	"strings"
	"time"

	"salesops_backend/platform/apperr"
)

// calendlyWebhook is the v2 webhook envelope.
type calendlyWebhook struct {
	Event     string          `json:"event"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   calendlyInvitee `json:"payload"`
}

type calendlyInvitee struct {
	URI                string `json:"uri"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	Timezone           string `json:"timezone"`
	TextReminderNumber string `json:"text_reminder_number"`

	Rescheduled bool   `json:"rescheduled"`
	OldInvitee  string `json:"old_invitee"`
	NewInvitee  string `json:"new_invitee"`

	Cancellation *struct {
		CanceledBy string `json:"canceled_by"`
		Reason     string `json:"reason"`
	} `json:"cancellation"`

	QuestionsAndAnswers []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"questions_and_answers"`

	Tracking map[string]string `json:"tracking"`

	ScheduledEvent struct {
		URI       string    `json:"uri"`
		Name      string    `json:"name"`
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`

		EventMemberships []struct {
			UserEmail string `json:"user_email"`
			UserName  string `json:"user_name"`
		} `json:"event_memberships"`
	} `json:"scheduled_event"`
}

// ParseCalendlyEvent maps a Calendly webhook body to the canonical inbound
// event. Reschedules arrive as invitee.created carrying the old invitee URI;
// the cancellation leg of a reschedule arrives as invitee.canceled with the
// rescheduled flag set and is treated as a plain cancellation, since the
// created leg owns the chain link.
func ParseCalendlyEvent(body []byte) (InboundEvent, error) {
	var hook calendlyWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return InboundEvent{}, apperr.Wrap(apperr.KindBadRequest, "malformed calendly payload", err)
	}

	var trigger Trigger
	switch hook.Event {
	case "invitee.created":
		trigger = TriggerCreated
		if hook.Payload.OldInvitee != "" {
			trigger = TriggerRescheduled
		}
	case "invitee.canceled":
		trigger = TriggerCanceled
	case "invitee_no_show.created":
		trigger = TriggerNoShow
	default:
		return InboundEvent{}, apperr.BadRequest("unsupported calendly event: " + hook.Event)
	}

	inv := hook.Payload
	ev := InboundEvent{
		Platform: PlatformCalendly,
		Trigger:  trigger,
		Native: NativeRef{
			Platform:    PlatformCalendly,
			EventUUID:   lastURISegment(inv.ScheduledEvent.URI),
			InviteeUUID: lastURISegment(inv.URI),
		},
		RescheduledFromKey: lastURISegment(inv.OldInvitee),
		LeadName:           inv.Name,
		LeadEmail:          strings.ToLower(strings.TrimSpace(inv.Email)),
		LeadPhone:          inv.TextReminderNumber,
		EventTypeName:      inv.ScheduledEvent.Name,
		ScheduledAt:        inv.ScheduledEvent.StartTime,
		EndsAt:             inv.ScheduledEvent.EndTime,
		BookedAt:           hook.CreatedAt,
		Responses:          make(map[string]any, len(inv.QuestionsAndAnswers)),
		Metadata:           make(map[string]any, len(inv.Tracking)),
	}

	if ev.Native.IsZero() {
		return InboundEvent{}, apperr.Validation("calendly payload missing event or invitee URI")
	}

	for _, qa := range inv.QuestionsAndAnswers {
		if qa.Question == "" {
			continue
		}
		ev.Responses[qa.Question] = qa.Answer
	}
	for k, v := range inv.Tracking {
		if v == "" {
			continue
		}
		ev.Metadata[k] = v
	}

	if len(inv.ScheduledEvent.EventMemberships) > 0 {
		ev.OrganizerEmail = inv.ScheduledEvent.EventMemberships[0].UserEmail
		ev.OrganizerName = inv.ScheduledEvent.EventMemberships[0].UserName
	}

	if inv.Cancellation != nil {
		ev.CancelReason = inv.Cancellation.Reason
	}

	return ev, nil
}

// lastURISegment extracts the trailing path element of a Calendly resource
// URI, which is where the UUID lives.
func lastURISegment(uri string) string {
	uri = strings.TrimRight(strings.TrimSpace(uri), "/")
	if uri == "" {
		return ""
	}
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}
