package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/referral-scheduler/internal/audit"
	appconfig "github.com/wolfman30/referral-scheduler/internal/config"
	"github.com/wolfman30/referral-scheduler/internal/notify"
	"github.com/wolfman30/referral-scheduler/internal/observability/metrics"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// BuildEmailSender picks the email provider named by EMAIL_PROVIDER. Missing
// credentials fall back to the logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected without API key; emails will only be logged")
	case "ses":
		if cfg.SESFromEmail != "" {
			return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail:        cfg.SESFromEmail,
				FromName:         cfg.OrganizationName,
				ConfigurationSet: cfg.SESConfigSet,
			}, logger)
		}
		logger.Warn("ses selected without SES_FROM_EMAIL; emails will only be logged")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildSMSSender returns Twilio when configured, otherwise the logging stub.
func BuildSMSSender(cfg *appconfig.Config, logger *logging.Logger) notify.SMSSender {
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromNumber != "" {
		return notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	}
	logger.Warn("twilio not configured; SMS will only be logged")
	return notify.NewStubSMSSender(logger)
}

// BuildDispatcher delivers messages directly through the configured providers.
func BuildDispatcher(cfg *appconfig.Config, awsCfg aws.Config, recorder audit.Recorder, m *metrics.SchedulerMetrics, logger *logging.Logger) *notify.Dispatcher {
	return notify.NewDispatcher(BuildEmailSender(cfg, awsCfg, logger), BuildSMSSender(cfg, logger), recorder, m, logger)
}

// BuildNotifier enqueues to SQS when NOTIFY_QUEUE_URL is set so delivery
// happens in the notify worker; otherwise it delivers in process.
func BuildNotifier(cfg *appconfig.Config, awsCfg aws.Config, recorder audit.Recorder, m *metrics.SchedulerMetrics, logger *logging.Logger) notify.Notifier {
	if cfg.NotifyQueueURL != "" {
		logger.Info("notifications queued to SQS", "queue_url", cfg.NotifyQueueURL)
		return notify.NewQueueNotifier(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL)
	}
	return BuildDispatcher(cfg, awsCfg, recorder, m, logger)
}

// BuildTemplates renders messages signed with the configured organization.
func BuildTemplates(cfg *appconfig.Config) notify.Templates {
	return notify.Templates{
		Signature:      cfg.OrganizationName,
		ConsentBaseURL: cfg.ConsentBaseURL,
		Location:       cfg.Location(),
	}
}
