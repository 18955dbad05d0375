package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/dvloznov/brokerage-insights/internal/config"
	"github.com/dvloznov/brokerage-insights/internal/logger"
)

const sendTimeout = 20 * time.Second

// Message is a plain-text e-mail with optional file attachments.
type Message struct {
	Subject     string
	Body        string
	Attachments []string
}

// Notifier delivers a run summary.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// MailgunNotifier sends messages through the Mailgun API.
type MailgunNotifier struct {
	mg        mailgun.Mailgun
	sender    string
	recipient string
}

// NewMailgunNotifier creates a notifier for the given domain and key.
func NewMailgunNotifier(domain, apiKey, sender, recipient string) *MailgunNotifier {
	return NewMailgunNotifierWithClient(mailgun.NewMailgun(domain, apiKey), sender, recipient)
}

// NewMailgunNotifierWithClient wraps an existing Mailgun client, e.g. one
// pointed at a different API base.
func NewMailgunNotifierWithClient(mg mailgun.Mailgun, sender, recipient string) *MailgunNotifier {
	return &MailgunNotifier{mg: mg, sender: sender, recipient: recipient}
}

// NewFromConfig returns a Mailgun notifier, or nil when the Mailgun settings
// are incomplete.
func NewFromConfig(cfg config.MailgunConfig) Notifier {
	if !cfg.Enabled() {
		return nil
	}
	return NewMailgunNotifier(cfg.Domain, cfg.APIKey, cfg.Sender, cfg.Recipient)
}

// Send e-mails msg to the configured recipient.
func (n *MailgunNotifier) Send(ctx context.Context, msg Message) error {
	log := logger.FromContext(ctx)

	if msg.Subject == "" {
		return errors.New("Send: subject is required")
	}

	m := n.mg.NewMessage(n.sender, msg.Subject, msg.Body, n.recipient)
	for _, path := range msg.Attachments {
		m.AddAttachment(path)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, id, err := n.mg.Send(ctx, m)
	if err != nil {
		log.Error().Err(err).Str("to", n.recipient).Str("mailgun_resp", resp).Msg("Failed to send summary e-mail")
		return fmt.Errorf("Send: mailgun: %w", err)
	}
	log.Info().Str("to", n.recipient).Str("id", id).Msg("Summary e-mail sent")
	return nil
}
