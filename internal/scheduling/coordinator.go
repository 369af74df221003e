// Package scheduling books, cancels and completes appointments, keeping the
// referral, the organization ledger, reminders and notifications in step.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/referral-scheduler/internal/audit"
	"github.com/wolfman30/referral-scheduler/internal/calendar"
	"github.com/wolfman30/referral-scheduler/internal/notify"
	"github.com/wolfman30/referral-scheduler/internal/observability/metrics"
	"github.com/wolfman30/referral-scheduler/internal/referrals"
	"github.com/wolfman30/referral-scheduler/internal/reminders"
	"github.com/wolfman30/referral-scheduler/internal/workspace"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

var tracer = otel.Tracer("referral-scheduler.internal.scheduling")

// DefaultLeadTime is how long before an appointment its reminder fires.
const DefaultLeadTime = 24 * time.Hour

// Booking is the result of a successful Schedule.
type Booking struct {
	Appointment calendar.Appointment `json:"appointment"`
	Reminder    reminders.Reminder   `json:"reminder"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// Cancellation is the result of a successful Cancel.
type Cancellation struct {
	Appointment     calendar.Appointment `json:"appointment"`
	SessionReturned bool                 `json:"sessionReturned"`
	Warnings        []string             `json:"warnings,omitempty"`
}

// Completion is the result of a successful Complete.
type Completion struct {
	Appointment   calendar.Appointment `json:"appointment"`
	ReferralState referrals.Status     `json:"referralStatus"`
	SessionsUsed  int                  `json:"sessionsUsed"`
	Warnings      []string             `json:"warnings,omitempty"`
}

// Coordinator orchestrates appointment changes across the workspace.
type Coordinator struct {
	ws        *workspace.Workspace
	lifecycle *referrals.Lifecycle
	notifier  notify.Notifier
	templates notify.Templates
	metrics   *metrics.SchedulerMetrics
	logger    *logging.Logger
	leadTime  time.Duration
	now       func() time.Time
	newID     func() string
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides appointment id generation.
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// WithLeadTime sets how long before the start the reminder fires.
func WithLeadTime(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.leadTime = d
		}
	}
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *metrics.SchedulerMetrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator wires a coordinator. notifier may be nil, in which case no
// messages are sent.
func NewCoordinator(ws *workspace.Workspace, lifecycle *referrals.Lifecycle, notifier notify.Notifier, templates notify.Templates, logger *logging.Logger, opts ...Option) *Coordinator {
	if ws == nil {
		panic("scheduling: workspace cannot be nil")
	}
	if lifecycle == nil {
		panic("scheduling: lifecycle cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Coordinator{
		ws:        ws,
		lifecycle: lifecycle,
		notifier:  notifier,
		templates: templates,
		logger:    logger,
		leadTime:  DefaultLeadTime,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func recipient(ref *referrals.Referral) notify.Recipient {
	return notify.Recipient{
		Name:    ref.Name,
		Address: ref.ContactAddress(),
		Method:  notify.Method(ref.PreferredContact),
	}
}

func notFound(what, id string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrNotFound, what, id, err)
}

// Schedule books a session-length appointment for the referral at start.
func (c *Coordinator) Schedule(ctx context.Context, referralID string, start time.Time) (Booking, error) {
	ctx, span := tracer.Start(ctx, "scheduling.schedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("scheduler.referral_id", referralID),
		attribute.String("scheduler.start", start.Format(time.RFC3339)),
	)

	var (
		booking      Booking
		confirmation notify.Message
	)
	warning, err := c.ws.Do(ctx, func() error {
		ref, err := c.ws.Referrals.Get(referralID)
		if err != nil {
			return notFound("referral", referralID, err)
		}
		p, err := c.ws.Calendar.Default()
		if err != nil {
			return fmt.Errorf("%w: no practitioner availability", calendar.ErrSlotUnavailable)
		}
		if err := c.lifecycle.CanSchedule(ref, p.OpenCount(ref.ID)); err != nil {
			return err
		}

		apptType := calendar.TypeTherapy
		if ref.Status == referrals.StatusConsented && !p.HasHistory(ref.ID) {
			apptType = calendar.TypeAssessment
		}
		now := c.now()
		appt := &calendar.Appointment{
			ID:         c.newID(),
			ReferralID: ref.ID,
			Start:      start,
			End:        start.Add(calendar.SessionLength),
			Type:       apptType,
			Status:     calendar.AppointmentScheduled,
			CreatedAt:  now,
		}
		if err := p.Book(appt); err != nil {
			return err
		}
		if err := c.lifecycle.MarkScheduled(ref); err != nil {
			return err
		}

		to := recipient(ref)
		reminder := c.ws.Reminders.Schedule(reminders.ScheduleInput{
			AppointmentID: appt.ID,
			ReferralID:    ref.ID,
			Message:       c.templates.Reminder(to, appt.Start, calendar.SessionLength),
			FireAt:        appt.Start.Add(-c.leadTime),
		})
		c.ws.Audit.Append(audit.ActionScheduleAppointment, audit.Details{
			"appointmentId": appt.ID,
			"referralId":    ref.ID,
			"startTime":     appt.Start.Format(time.RFC3339),
			"endTime":       appt.End.Format(time.RFC3339),
			"type":          string(appt.Type),
		})
		confirmation = c.templates.Confirmation(to, appt.Start, calendar.SessionLength)
		booking = Booking{Appointment: *appt, Reminder: reminder}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schedule rejected")
		c.logger.Warn("appointment rejected", "referral_id", referralID, "start", start, "error", err)
		return Booking{}, err
	}
	c.metrics.ObserveAppointment("scheduled")
	c.metrics.SetRemindersPending(c.ws.Reminders.Pending())
	span.SetAttributes(attribute.String("scheduler.appointment_id", booking.Appointment.ID))
	c.logger.Info("appointment scheduled",
		"appointment_id", booking.Appointment.ID,
		"referral_id", referralID,
		"type", booking.Appointment.Type,
		"start", booking.Appointment.Start,
	)

	booking.Warnings = c.afterCommit(ctx, warning, confirmation)
	return booking, nil
}

// Cancel cancels an open appointment. A therapist cancellation returns the
// session to the organization pool.
func (c *Coordinator) Cancel(ctx context.Context, appointmentID string, reason referrals.CancelReason) (Cancellation, error) {
	ctx, span := tracer.Start(ctx, "scheduling.cancel")
	defer span.End()
	span.SetAttributes(
		attribute.String("scheduler.appointment_id", appointmentID),
		attribute.String("scheduler.cancel_reason", string(reason)),
	)

	var (
		result Cancellation
		notice notify.Message
	)
	warning, err := c.ws.Do(ctx, func() error {
		p, appt, err := c.openAppointment(appointmentID)
		if err != nil {
			return err
		}
		ref, err := c.ws.Referrals.Get(appt.ReferralID)
		if err != nil {
			return notFound("referral", appt.ReferralID, err)
		}
		org, _ := c.ws.Organizations.Get(ref.OrganizationID)

		returnedBefore := ref.SessionsReturned
		if err := c.lifecycle.CancelAppointmentEffect(ref, org, reason); err != nil {
			return err
		}
		now := c.now()
		appt.Status = calendar.AppointmentCancelled
		appt.CancellationReason = string(reason)
		appt.CancelledAt = &now
		if p.OpenCount(ref.ID) > 0 {
			if err := c.lifecycle.MarkScheduled(ref); err != nil {
				return err
			}
		}
		dropped := c.ws.Reminders.CancelForAppointment(appt.ID)

		returned := ref.SessionsReturned > returnedBefore
		c.ws.Audit.Append(audit.ActionCancelAppointment, audit.Details{
			"appointmentId":   appt.ID,
			"referralId":      ref.ID,
			"reason":          string(reason),
			"sessionReturned": returned,
		})
		c.logger.Info("appointment cancelled",
			"appointment_id", appt.ID,
			"referral_id", ref.ID,
			"reason", reason,
			"session_returned", returned,
			"reminders_cancelled", dropped,
		)
		notice = c.templates.Cancellation(recipient(ref), appt.Start, reason == referrals.CancelByTherapist)
		result = Cancellation{Appointment: *appt, SessionReturned: returned}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel rejected")
		return Cancellation{}, err
	}
	c.metrics.ObserveAppointment("cancelled_" + string(reason))
	c.metrics.SetRemindersPending(c.ws.Reminders.Pending())

	result.Warnings = c.afterCommit(ctx, warning, notice)
	return result, nil
}

// Complete closes an open appointment and charges one session to the referral.
func (c *Coordinator) Complete(ctx context.Context, appointmentID string) (Completion, error) {
	ctx, span := tracer.Start(ctx, "scheduling.complete")
	defer span.End()
	span.SetAttributes(attribute.String("scheduler.appointment_id", appointmentID))

	var result Completion
	warning, err := c.ws.Do(ctx, func() error {
		p, appt, err := c.openAppointment(appointmentID)
		if err != nil {
			return err
		}
		ref, err := c.ws.Referrals.Get(appt.ReferralID)
		if err != nil {
			return notFound("referral", appt.ReferralID, err)
		}
		org, _ := c.ws.Organizations.Get(ref.OrganizationID)
		if err := c.lifecycle.ConsumeSession(ref, org); err != nil {
			return err
		}
		now := c.now()
		appt.Status = calendar.AppointmentCompleted
		appt.CompletedAt = &now
		if ref.Status == referrals.StatusConsented && p.OpenCount(ref.ID) > 0 {
			if err := c.lifecycle.MarkScheduled(ref); err != nil {
				return err
			}
		}
		c.ws.Reminders.CancelForAppointment(appt.ID)

		c.ws.Audit.Append(audit.ActionCompleteAppointment, audit.Details{
			"appointmentId": appt.ID,
			"referralId":    ref.ID,
			"sessionsUsed":  ref.SessionsUsed,
			"status":        string(ref.Status),
		})
		c.logger.Info("appointment completed",
			"appointment_id", appt.ID,
			"referral_id", ref.ID,
			"sessions_used", ref.SessionsUsed,
			"referral_status", ref.Status,
		)
		result = Completion{Appointment: *appt, ReferralState: ref.Status, SessionsUsed: ref.SessionsUsed}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "complete rejected")
		return Completion{}, err
	}
	c.metrics.ObserveAppointment("completed")
	c.metrics.SetRemindersPending(c.ws.Reminders.Pending())
	if warning != nil {
		result.Warnings = append(result.Warnings, warning.Error())
	}
	return result, nil
}

// RequestConsent sends the consent request to a pending referral and stamps
// the time it went out. Sending is retried by calling again.
func (c *Coordinator) RequestConsent(ctx context.Context, referralID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "scheduling.request_consent")
	defer span.End()
	span.SetAttributes(attribute.String("scheduler.referral_id", referralID))

	var (
		msg       notify.Message
		lookupErr error
	)
	c.ws.Read(func() {
		ref, err := c.ws.Referrals.Get(referralID)
		if err != nil {
			lookupErr = notFound("referral", referralID, err)
			return
		}
		if ref.Status != referrals.StatusPending {
			lookupErr = &referrals.TransitionError{ReferralID: ref.ID, From: ref.Status, Event: "request consent for"}
			return
		}
		msg = c.templates.ConsentRequest(recipient(ref), ref.ID)
	})
	if lookupErr != nil {
		return nil, lookupErr
	}
	if err := c.send(ctx, msg); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: request consent: %w", err)
	}

	warning, err := c.ws.Do(ctx, func() error {
		ref, err := c.ws.Referrals.Get(referralID)
		if err != nil {
			return notFound("referral", referralID, err)
		}
		return c.lifecycle.MarkConsentRequested(ref)
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("consent requested", "referral_id", referralID)
	if warning != nil {
		return []string{warning.Error()}, nil
	}
	return nil, nil
}

func (c *Coordinator) openAppointment(id string) (*calendar.Practitioner, *calendar.Appointment, error) {
	p, err := c.ws.Calendar.Default()
	if err != nil {
		return nil, nil, notFound("appointment", id, err)
	}
	appt, err := p.FindAppointment(id)
	if err != nil {
		return nil, nil, notFound("appointment", id, err)
	}
	if !appt.Open() {
		return nil, nil, fmt.Errorf("%w: %s is %s", ErrAppointmentClosed, appt.ID, appt.Status)
	}
	return p, appt, nil
}

// afterCommit delivers msg once the change is persisted and persists the
// delivery record. Failures become warnings.
func (c *Coordinator) afterCommit(ctx context.Context, flushWarning error, msg notify.Message) []string {
	var warnings []string
	if flushWarning != nil {
		warnings = append(warnings, flushWarning.Error())
	}
	if err := c.send(ctx, msg); err != nil {
		c.logger.Error("notification failed", "to", msg.To, "subject", msg.Subject, "error", err)
		warnings = append(warnings, fmt.Sprintf("notification not sent: %v", err))
		return warnings
	}
	if err := c.ws.Flush(ctx); err != nil {
		warnings = append(warnings, err.Error())
	}
	return warnings
}

func (c *Coordinator) send(ctx context.Context, msg notify.Message) error {
	if c.notifier == nil {
		return nil
	}
	return c.notifier.Send(ctx, msg)
}
