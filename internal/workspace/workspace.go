// Package workspace is the explicit application context: it owns every
// collection, serializes operations on them and moves them to and from a Store.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/wolfman30/referral-scheduler/internal/audit"
	"github.com/wolfman30/referral-scheduler/internal/calendar"
	"github.com/wolfman30/referral-scheduler/internal/organizations"
	"github.com/wolfman30/referral-scheduler/internal/referrals"
	"github.com/wolfman30/referral-scheduler/internal/reminders"
	"github.com/wolfman30/referral-scheduler/internal/store"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// Collection keys, before the store prefix is applied.
const (
	KeyOrganizations = "organizations"
	KeyReferrals     = "referrals"
	KeyAuditLog      = "auditLog"
	KeyTherapists    = "therapists"
	KeyReminders     = "reminders"
)

// Workspace holds the in-memory state of one deployment.
type Workspace struct {
	mu     sync.Mutex
	store  store.Store
	logger *logging.Logger

	Organizations *organizations.Registry
	Referrals     *referrals.Registry
	Calendar      *calendar.Registry
	Audit         *audit.Log
	Reminders     *reminders.Queue
}

// Collections lets callers supply preconfigured registries. Nil fields get defaults.
type Collections struct {
	Organizations *organizations.Registry
	Referrals     *referrals.Registry
	Calendar      *calendar.Registry
	Audit         *audit.Log
	Reminders     *reminders.Queue
}

// New builds an empty workspace over st.
func New(st store.Store, c Collections, logger *logging.Logger) *Workspace {
	if st == nil {
		panic("workspace: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if c.Organizations == nil {
		c.Organizations = organizations.NewRegistry()
	}
	if c.Referrals == nil {
		c.Referrals = referrals.NewRegistry()
	}
	if c.Calendar == nil {
		c.Calendar = calendar.NewRegistry("", "")
	}
	if c.Audit == nil {
		c.Audit = audit.NewLog(logger)
	}
	if c.Reminders == nil {
		c.Reminders = reminders.NewQueue()
	}
	return &Workspace{
		store:         st,
		logger:        logger,
		Organizations: c.Organizations,
		Referrals:     c.Referrals,
		Calendar:      c.Calendar,
		Audit:         c.Audit,
		Reminders:     c.Reminders,
	}
}

// Init loads every collection from the store. Missing keys leave the
// collection empty; undecodable ones fail.
func (w *Workspace) Init(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var orgs []organizations.Organization
	if err := w.load(ctx, KeyOrganizations, &orgs); err != nil {
		return err
	}
	if err := w.Organizations.Restore(orgs); err != nil {
		return fmt.Errorf("workspace: init: %w", err)
	}

	var refs []referrals.Referral
	if err := w.load(ctx, KeyReferrals, &refs); err != nil {
		return err
	}
	if err := w.Referrals.Restore(refs); err != nil {
		return fmt.Errorf("workspace: init: %w", err)
	}

	var therapists []calendar.Practitioner
	if err := w.load(ctx, KeyTherapists, &therapists); err != nil {
		return err
	}
	if err := w.Calendar.Restore(therapists); err != nil {
		return fmt.Errorf("workspace: init: %w", err)
	}

	var entries []audit.Entry
	if err := w.load(ctx, KeyAuditLog, &entries); err != nil {
		return err
	}
	w.Audit.Restore(entries)

	var pending []reminders.Reminder
	if err := w.load(ctx, KeyReminders, &pending); err != nil {
		return err
	}
	if err := w.Reminders.Restore(pending); err != nil {
		return fmt.Errorf("workspace: init: %w", err)
	}

	w.logger.Info("workspace loaded",
		"organizations", len(orgs),
		"referrals", len(refs),
		"therapists", len(therapists),
		"audit_entries", len(entries),
		"reminders", len(pending),
	)
	return nil
}

func (w *Workspace) load(ctx context.Context, key string, dst any) error {
	data, found, err := w.store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("workspace: load %s: %w", key, err)
	}
	if !found || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("workspace: decode %s: %w", key, err)
	}
	return nil
}

// Flush persists every collection and publishes new audit entries.
func (w *Workspace) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

func (w *Workspace) flushLocked(ctx context.Context) error {
	snapshots := []struct {
		key   string
		value any
	}{
		{KeyOrganizations, w.Organizations.Snapshot()},
		{KeyReferrals, w.Referrals.Snapshot()},
		{KeyTherapists, w.Calendar.Snapshot()},
		{KeyAuditLog, w.Audit.Snapshot()},
		{KeyReminders, w.Reminders.Snapshot()},
	}
	var errs []error
	for _, s := range snapshots {
		data, err := json.Marshal(s.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("workspace: encode %s: %w", s.key, err))
			continue
		}
		if err := w.store.Save(ctx, s.key, data); err != nil {
			errs = append(errs, fmt.Errorf("workspace: save %s: %w", s.key, err))
		}
	}
	if err := w.Audit.Publish(ctx); err != nil {
		errs = append(errs, fmt.Errorf("workspace: publish audit: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		w.logger.Warn("workspace flush incomplete", "error", err)
		return err
	}
	return nil
}

// Do runs fn with exclusive access to the collections. When fn succeeds the
// workspace is flushed and any flush failure comes back as warning; err is
// only ever fn's own error.
func (w *Workspace) Do(ctx context.Context, fn func() error) (warning error, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := fn(); err != nil {
		return nil, err
	}
	return w.flushLocked(ctx), nil
}

// Read runs fn with exclusive access and no flush.
func (w *Workspace) Read(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn()
}
