// Package notifier sends ops alert emails for pipeline conditions that need
// a human, currently webhooks dropped because no tenant could be resolved.
package notifier

import (
	"context"
	"fmt"

	domainevents "salesops_backend/internal/events"
	"salesops_backend/platform/config"
	"salesops_backend/platform/logger"

	"github.com/wneessen/go-mail"
)

// Notifier delivers ops alerts over SMTP.
type Notifier struct {
	cfg config.MailConfig
	log *logger.Logger
}

// New creates a notifier. Returns nil when mail is disabled or not fully
// configured; a nil notifier registers nothing.
func New(cfg config.MailConfig, log *logger.Logger) *Notifier {
	if !cfg.GetMailEnabled() || cfg.GetSMTPHost() == "" || cfg.GetOpsAlertAddress() == "" {
		return nil
	}
	return &Notifier{cfg: cfg, log: log}
}

// Register subscribes the notifier to the domain events it alerts on.
func (n *Notifier) Register(bus domainevents.Bus) {
	if n == nil {
		return
	}
	bus.Subscribe("booking.organization_unresolved", domainevents.HandlerFunc(func(ctx context.Context, e domainevents.Event) error {
		event, ok := e.(domainevents.OrganizationUnresolved)
		if !ok {
			return nil
		}
		return n.sendUnresolvedAlert(ctx, event)
	}))
}

func (n *Notifier) sendUnresolvedAlert(ctx context.Context, e domainevents.OrganizationUnresolved) error {
	subject := fmt.Sprintf("[salesops] unattributed %s webhook dropped", e.Platform)
	body := fmt.Sprintf(
		"A %s %q webhook could not be attributed to any organization and was dropped.\n\n"+
			"Native ID:       %s\n"+
			"Organizer email: %s\n\n"+
			"The full payload is in the webhook audit log. Configure the organizer email\n"+
			"on a platform config to route future deliveries.\n",
		e.Platform, e.Trigger, e.NativeID, e.OrganizerEmail,
	)

	msg := mail.NewMsg()
	if err := msg.From(n.cfg.GetMailFromAddress()); err != nil {
		return err
	}
	if err := msg.To(n.cfg.GetOpsAlertAddress()); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(n.cfg.GetSMTPPort()),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if n.cfg.GetSMTPUsername() != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.GetSMTPUsername()),
			mail.WithPassword(n.cfg.GetSMTPPassword()),
		)
	}

	client, err := mail.NewClient(n.cfg.GetSMTPHost(), opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		n.log.Error("failed to send ops alert", "error", err)
		return err
	}

	n.log.Info("ops alert sent for unattributed webhook", "platform", e.Platform, "native_id", e.NativeID)
	return nil
}
