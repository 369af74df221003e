package notify

import (
	"context"
	"fmt"

	"github.com/wolfman30/referral-scheduler/internal/audit"
	"github.com/wolfman30/referral-scheduler/internal/observability/metrics"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// Dispatcher routes messages to the email or SMS sender and audits every
// successful delivery.
type Dispatcher struct {
	email    EmailSender
	sms      SMSSender
	recorder audit.Recorder
	metrics  *metrics.SchedulerMetrics
	logger   *logging.Logger
}

// NewDispatcher wires the senders. Either sender may be nil, in which case
// that method is rejected.
func NewDispatcher(email EmailSender, sms SMSSender, recorder audit.Recorder, m *metrics.SchedulerMetrics, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{email: email, sms: sms, recorder: recorder, metrics: m, logger: logger}
}

var _ Notifier = (*Dispatcher)(nil)

// Send delivers msg on its method.
func (d *Dispatcher) Send(ctx context.Context, msg Message) (err error) {
	defer func() { d.metrics.ObserveNotification(string(msg.Method), err) }()
	if err := msg.Validate(); err != nil {
		return err
	}

	switch msg.Method {
	case MethodEmail:
		if d.email == nil {
			return fmt.Errorf("%w: email sender not configured", ErrUnsupportedMethod)
		}
		err = d.email.Send(ctx, emailFor(msg))
	case MethodPhone:
		if d.sms == nil {
			return fmt.Errorf("%w: sms sender not configured", ErrUnsupportedMethod)
		}
		err = d.sms.SendSMS(ctx, msg.To, msg.Body)
	}
	if err != nil {
		d.logger.Error("notify: delivery failed", "error", err, "method", msg.Method, "subject", msg.Subject)
		return err
	}

	if d.recorder != nil {
		d.recorder.Append(audit.ActionSendCommunication, audit.Details{
			"method":    string(msg.Method),
			"recipient": msg.To,
			"subject":   msg.Subject,
			"topic":     string(msg.Topic),
		})
	}
	return nil
}
