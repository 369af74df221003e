package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridConfig holds the SendGrid credentials and sender identity.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender delivers client emails through SendGrid. Topics become
// SendGrid categories.
type SendGridSender struct {
	client sendgridAPI
	from   Mailbox
	logger *logging.Logger
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	return newSendGridSender(sendgrid.NewSendClient(cfg.APIKey), Mailbox{Address: cfg.FromEmail, Name: cfg.FromName}, logger)
}

func newSendGridSender(client sendgridAPI, from Mailbox, logger *logging.Logger) *SendGridSender {
	if logger == nil {
		logger = logging.Default()
	}
	if from.Name == "" {
		from.Name = DefaultSignature
	}
	return &SendGridSender{client: client, from: from, logger: logger}
}

func (s *SendGridSender) Send(ctx context.Context, email Email) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	msg := mail.NewSingleEmail(
		mail.NewEmail(s.from.Name, s.from.Address),
		email.Subject,
		mail.NewEmail(email.To.Name, email.To.Address),
		email.Text,
		email.HTML(),
	)
	if email.Topic != "" {
		msg.AddCategories(string(email.Topic))
	}

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected email", "status", resp.StatusCode, "body", resp.Body, "topic", email.Topic)
		return &ProviderError{Provider: "sendgrid", Status: resp.StatusCode}
	}
	s.logger.Info("email sent", "provider", "sendgrid", "topic", email.Topic, "status", resp.StatusCode)
	return nil
}
