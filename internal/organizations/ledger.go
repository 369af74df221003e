package organizations

import (
	"fmt"

	"github.com/wolfman30/referral-scheduler/internal/observability/metrics"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// Ledger applies the session accounting rules to organization records.
// It holds no state of its own; callers serialize access to the records.
type Ledger struct {
	logger  *logging.Logger
	metrics *metrics.SchedulerMetrics
}

// NewLedger constructs a ledger. Both arguments are optional.
func NewLedger(logger *logging.Logger, m *metrics.SchedulerMetrics) *Ledger {
	if logger == nil {
		logger = logging.Default()
	}
	return &Ledger{logger: logger, metrics: m}
}

// Reserve moves count sessions from available to reserved. A non-positive
// count reserves one package. Referrers can never reserve.
func (l *Ledger) Reserve(org *Organization, count int) (err error) {
	defer func() { l.metrics.ObserveLedger("reserve", err) }()
	if org == nil {
		return ErrNotFound
	}
	if count <= 0 {
		count = PackageSize
	}
	pool, ok := org.Pool()
	if !ok {
		return &CapacityError{OrganizationID: org.ID, Requested: count, Available: 0}
	}
	if !pool.CanReserve(count) {
		return &CapacityError{OrganizationID: org.ID, Requested: count, Available: org.Available()}
	}
	pool.reserve(count)
	l.logger.Info("sessions reserved", "org_id", org.ID, "count", count, "reserved", org.ReservedSessions)
	return nil
}

// Release returns count reserved-but-unused sessions to the pool.
func (l *Ledger) Release(org *Organization, count int) (err error) {
	defer func() { l.metrics.ObserveLedger("release", err) }()
	if org == nil {
		return ErrNotFound
	}
	if count <= 0 {
		return fmt.Errorf("organizations: release: %w: count must be positive", ErrInvalidSessionCount)
	}
	if count > org.Releasable() {
		return &OverReleaseError{OrganizationID: org.ID, Requested: count, Releasable: org.Releasable()}
	}
	org.ReservedSessions -= count
	l.logger.Info("sessions released", "org_id", org.ID, "count", count, "reserved", org.ReservedSessions)
	return nil
}

// Consume marks count reserved sessions as used. Only purchasers track use.
func (l *Ledger) Consume(org *Organization, count int) (err error) {
	defer func() { l.metrics.ObserveLedger("consume", err) }()
	if org == nil {
		return ErrNotFound
	}
	if _, ok := org.Pool(); !ok {
		return nil
	}
	if count <= 0 {
		count = 1
	}
	if count > org.Releasable() {
		return &CapacityError{OrganizationID: org.ID, Requested: count, Available: org.Releasable()}
	}
	org.UsedSessions += count
	return nil
}
