package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig is the sender identity and optional configuration set for SES.
type SESConfig struct {
	FromEmail        string
	FromName         string
	ConfigurationSet string
}

// SESSender delivers client emails through SES v2. Topics become message
// tags so bounces and complaints can be traced per communication kind.
type SESSender struct {
	client sesAPI
	from   Mailbox
	cfgSet string
	logger *logging.Logger
}

// NewSESSender returns nil without a client.
func NewSESSender(client sesAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	from := Mailbox{Address: cfg.FromEmail, Name: cfg.FromName}
	if from.Name == "" {
		from.Name = DefaultSignature
	}
	return &SESSender{client: client, from: from, cfgSet: cfg.ConfigurationSet, logger: logger}
}

func utf8Content(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

func (s *SESSender) input(email Email) *sesv2.SendEmailInput {
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from.String()),
		Destination:      &types.Destination{ToAddresses: []string{email.To.String()}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(email.Subject),
				Body: &types.Body{
					Text: utf8Content(email.Text),
					Html: utf8Content(email.HTML()),
				},
			},
		},
	}
	if email.Topic != "" {
		in.EmailTags = []types.MessageTag{{Name: aws.String("topic"), Value: aws.String(string(email.Topic))}}
	}
	if s.cfgSet != "" {
		in.ConfigurationSetName = aws.String(s.cfgSet)
	}
	return in
}

func (s *SESSender) Send(ctx context.Context, email Email) error {
	out, err := s.client.SendEmail(ctx, s.input(email))
	if err != nil {
		return fmt.Errorf("notify: ses send: %w", err)
	}
	s.logger.Info("email sent", "provider", "ses", "topic", email.Topic, "message_id", aws.ToString(out.MessageId))
	return nil
}

var (
	_ EmailSender = (*SESSender)(nil)
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
