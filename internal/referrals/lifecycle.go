package referrals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/referral-scheduler/internal/audit"
	"github.com/wolfman30/referral-scheduler/internal/organizations"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

var lifecycleTracer = otel.Tracer("referral-scheduler.internal.referrals")

// CancelReason says who called off an appointment.
type CancelReason string

const (
	CancelByClient    CancelReason = "client"
	CancelByTherapist CancelReason = "therapist"
)

// ParseCancelReason validates a cancellation reason.
func ParseCancelReason(raw string) (CancelReason, error) {
	switch r := CancelReason(raw); r {
	case CancelByClient, CancelByTherapist:
		return r, nil
	default:
		return "", fmt.Errorf("referrals: unknown cancellation reason %q", raw)
	}
}

// Lifecycle drives referral state transitions and the session accounting
// that goes with them. Callers serialize access to the records.
type Lifecycle struct {
	ledger   *organizations.Ledger
	registry *Registry
	recorder audit.Recorder
	logger   *logging.Logger
	now      func() time.Time
	newID    func() string
}

// Option customizes a Lifecycle.
type Option func(*Lifecycle)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides the ID source.
func WithIDGenerator(newID func() string) Option {
	return func(l *Lifecycle) {
		if newID != nil {
			l.newID = newID
		}
	}
}

// NewLifecycle wires the lifecycle to its ledger, registry and audit log.
func NewLifecycle(ledger *organizations.Ledger, registry *Registry, recorder audit.Recorder, logger *logging.Logger, opts ...Option) *Lifecycle {
	if logger == nil {
		logger = logging.Default()
	}
	if ledger == nil {
		ledger = organizations.NewLedger(logger, nil)
	}
	l := &Lifecycle{
		ledger:   ledger,
		registry: registry,
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Intake creates a pending referral and reserves its sessions from org.
// Nothing changes unless both the duplicate check and the reservation pass.
func (l *Lifecycle) Intake(ctx context.Context, org *organizations.Organization, info ClientInfo) (*Referral, error) {
	_, span := lifecycleTracer.Start(ctx, "referrals.intake")
	defer span.End()

	if org == nil {
		return nil, fmt.Errorf("referrals: intake: %w", organizations.ErrNotFound)
	}
	span.SetAttributes(attribute.String("scheduler.org_id", org.ID))
	if !org.Active {
		return nil, fmt.Errorf("referrals: intake: %w", organizations.ErrInactive)
	}
	info, err := info.Normalize()
	if err != nil {
		return nil, err
	}
	if existing, dup := l.registry.FindActive(info); dup {
		return nil, fmt.Errorf("%w (referral %s)", ErrDuplicateReferral, existing.ID)
	}
	if err := l.ledger.Reserve(org, defaultAllocation); err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := l.now()
	ref := &Referral{
		ID:               l.newID(),
		OrganizationID:   org.ID,
		ClientInfo:       info,
		Status:           StatusPending,
		SessionsReserved: defaultAllocation,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := l.registry.Add(ref); err != nil {
		if relErr := l.ledger.Release(org, defaultAllocation); relErr != nil {
			err = errors.Join(err, relErr)
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("scheduler.referral_id", ref.ID))

	l.record(audit.ActionCreateReferral, audit.Details{
		"referralId":       ref.ID,
		"organizationId":   org.ID,
		"name":             ref.Name,
		"sessionsReserved": ref.SessionsReserved,
	})
	l.logger.Info("referral created", "referral_id", ref.ID, "org_id", org.ID)
	return ref, nil
}

// RecordConsent stores the client's decision. Only pending referrals accept one.
func (l *Lifecycle) RecordConsent(ref *Referral, granted bool) error {
	if ref == nil {
		return ErrNotFound
	}
	if ref.Status != StatusPending {
		return &TransitionError{ReferralID: ref.ID, From: ref.Status, Event: "record consent"}
	}
	status := StatusDeclined
	if granted {
		status = StatusConsented
	}
	now := l.now()
	ref.Consent = &ConsentRecord{
		ReferralID: ref.ID,
		Type:       ConsentType,
		Status:     status,
		Timestamp:  now,
	}
	ref.Status = status
	ref.UpdatedAt = now

	l.record(audit.ActionRecordConsent, audit.Details{
		"referralId": ref.ID,
		"type":       ConsentType,
		"status":     string(status),
	})
	l.logger.Info("consent recorded", "referral_id", ref.ID, "status", status)
	return nil
}

// MarkConsentRequested stamps the time a consent request went out.
func (l *Lifecycle) MarkConsentRequested(ref *Referral) error {
	if ref == nil {
		return ErrNotFound
	}
	if ref.Status != StatusPending {
		return &TransitionError{ReferralID: ref.ID, From: ref.Status, Event: "request consent for"}
	}
	now := l.now()
	ref.ConsentRequested = &now
	ref.UpdatedAt = now
	return nil
}

// CanSchedule reports whether another appointment may be booked given the
// number of appointments that are already booked and not yet completed.
func (l *Lifecycle) CanSchedule(ref *Referral, booked int) error {
	if ref == nil {
		return ErrNotFound
	}
	if ref.Status != StatusConsented && ref.Status != StatusScheduled {
		return &TransitionError{ReferralID: ref.ID, From: ref.Status, Event: "schedule"}
	}
	if ref.SessionsUsed+booked >= ref.SessionsReserved {
		return fmt.Errorf("%w: %d of %d used, %d booked", ErrSessionExhausted, ref.SessionsUsed, ref.SessionsReserved, booked)
	}
	return nil
}

// MarkScheduled moves a consented referral to scheduled. Rebooking an
// already scheduled referral is allowed.
func (l *Lifecycle) MarkScheduled(ref *Referral) error {
	if ref == nil {
		return ErrNotFound
	}
	switch ref.Status {
	case StatusConsented, StatusScheduled:
	default:
		return &TransitionError{ReferralID: ref.ID, From: ref.Status, Event: "schedule"}
	}
	ref.Status = StatusScheduled
	ref.UpdatedAt = l.now()
	return nil
}

// ConsumeSession charges one session after an appointment completes. The
// referral completes when its allocation is used up and otherwise returns to
// consented. The purchaser's used count only moves against the referral's own
// held reservation; a session handed back earlier is reserved again first
// when the pool still has room.
func (l *Lifecycle) ConsumeSession(ref *Referral, org *organizations.Organization) error {
	if ref == nil {
		return ErrNotFound
	}
	if ref.Exhausted() {
		return fmt.Errorf("%w: referral %s", ErrSessionExhausted, ref.ID)
	}
	if ref.Status != StatusScheduled && ref.Status != StatusConsented {
		return &TransitionError{ReferralID: ref.ID, From: ref.Status, Event: "consume a session for"}
	}
	if err := l.chargeOrganization(ref, org); err != nil {
		return err
	}

	ref.SessionsUsed++
	if ref.Exhausted() {
		ref.Status = StatusCompleted
	} else {
		ref.Status = StatusConsented
	}
	ref.UpdatedAt = l.now()
	l.logger.Info("session consumed", "referral_id", ref.ID, "used", ref.SessionsUsed, "reserved", ref.SessionsReserved)
	return nil
}

func (l *Lifecycle) chargeOrganization(ref *Referral, org *organizations.Organization) error {
	pool, ok := org.Pool()
	if !ok {
		return nil
	}
	if ref.Held() == 0 && ref.SessionsReturned > 0 {
		if !pool.CanReserve(1) {
			l.logger.Warn("session delivered without a reservation", "referral_id", ref.ID, "org_id", org.ID)
			return nil
		}
		if err := l.ledger.Reserve(org, 1); err != nil {
			return err
		}
		ref.SessionsReturned--
	}
	if ref.Held() == 0 || org.Releasable() == 0 {
		l.logger.Warn("session delivered without a reservation", "referral_id", ref.ID, "org_id", org.ID)
		return nil
	}
	return l.ledger.Consume(org, 1)
}

// CancelAppointmentEffect applies the accounting for a cancelled appointment.
// A therapist cancellation returns one session to the organization pool while
// the referral still holds one there; a client cancellation changes nothing.
// Either way a scheduled referral goes back to consented.
func (l *Lifecycle) CancelAppointmentEffect(ref *Referral, org *organizations.Organization, reason CancelReason) error {
	if ref == nil {
		return ErrNotFound
	}
	switch reason {
	case CancelByTherapist:
		if _, ok := org.Pool(); ok && ref.Held() > 0 && org.Releasable() > 0 {
			if err := l.ledger.Release(org, 1); err != nil {
				return err
			}
			ref.SessionsReturned++
		} else {
			l.logger.Info("therapist cancellation returned no session", "referral_id", ref.ID, "held", ref.Held())
		}
	case CancelByClient:
	default:
		return fmt.Errorf("referrals: unknown cancellation reason %q", reason)
	}
	if ref.Status == StatusScheduled {
		ref.Status = StatusConsented
	}
	ref.UpdatedAt = l.now()
	return nil
}

// Withdraw cancels a referral that has nothing booked and hands its unused
// reservation back to the organization.
func (l *Lifecycle) Withdraw(ref *Referral, org *organizations.Organization, reason string) error {
	if ref == nil {
		return ErrNotFound
	}
	if ref.Status != StatusPending && ref.Status != StatusConsented {
		return &TransitionError{ReferralID: ref.ID, From: ref.Status, Event: "withdraw"}
	}

	released := 0
	if _, ok := org.Pool(); ok {
		released = min(ref.Held(), org.Releasable())
		if released > 0 {
			if err := l.ledger.Release(org, released); err != nil {
				return err
			}
		}
	}
	ref.Status = StatusCancelled
	ref.SessionsReturned += released
	ref.UpdatedAt = l.now()

	l.record(audit.ActionWithdrawReferral, audit.Details{
		"referralId":       ref.ID,
		"organizationId":   ref.OrganizationID,
		"reason":           reason,
		"sessionsReleased": released,
	})
	l.logger.Info("referral withdrawn", "referral_id", ref.ID, "released", released)
	return nil
}

func (l *Lifecycle) record(action audit.Action, details audit.Details) {
	if l.recorder != nil {
		l.recorder.Append(action, details)
	}
}
