package notify

import (
	"context"
	"fmt"
	"html"
	netmail "net/mail"
	"strings"

	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// EmailSender delivers one client email through a provider.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// Mailbox is an address with an optional display name.
type Mailbox struct {
	Address string
	Name    string
}

func (m Mailbox) String() string {
	return (&netmail.Address{Name: m.Name, Address: m.Address}).String()
}

// Email is a Message routed to the email channel.
type Email struct {
	To      Mailbox
	Topic   Topic
	Subject string
	Text    string
}

func emailFor(msg Message) Email {
	return Email{
		To:      Mailbox{Address: msg.To, Name: msg.ToName},
		Topic:   msg.Topic,
		Subject: msg.Subject,
		Text:    msg.Body,
	}
}

// HTML renders the text body as escaped paragraphs, keeping single line
// breaks inside a paragraph.
func (e Email) HTML() string {
	var b strings.Builder
	for _, para := range strings.Split(strings.TrimSpace(e.Text), "\n\n") {
		if para = strings.TrimSpace(para); para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i := range lines {
			lines[i] = html.EscapeString(lines[i])
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>\n")
	}
	return b.String()
}

// ProviderError is a rejection reported by an email provider.
type ProviderError struct {
	Provider string
	Status   int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("notify: %s rejected email with status %d", e.Provider, e.Status)
}

// StubEmailSender logs emails instead of sending them.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates the logging sender used when no provider is configured.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, email Email) error {
	s.logger.Info("email not sent: no provider", "to", email.To.Address, "topic", email.Topic, "subject", email.Subject)
	return nil
}
