package referrals

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/referral-scheduler/internal/audit"
	"github.com/wolfman30/referral-scheduler/internal/organizations"
)

var testTime = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

type fixture struct {
	lifecycle *Lifecycle
	registry  *Registry
	log       *audit.Log
	org       *organizations.Organization
}

func newFixture(t *testing.T, total int) *fixture {
	t.Helper()
	n := 0
	registry := NewRegistry()
	log := audit.NewLog(nil)
	lc := NewLifecycle(nil, registry, log, nil,
		WithClock(func() time.Time { return testTime }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("ref-%d", n)
		}),
	)
	org := &organizations.Organization{ID: "org-1", Name: "Council", Kind: organizations.KindPurchaser, TotalSessions: total, Active: true}
	return &fixture{lifecycle: lc, registry: registry, log: log, org: org}
}

func client(name string) ClientInfo {
	return ClientInfo{Name: name, Email: name + "@example.com", PreferredContact: ContactEmail}
}

func TestIntakeReservesPackage(t *testing.T) {
	f := newFixture(t, 24)
	ref, err := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, ref.Status)
	assert.Equal(t, 12, ref.SessionsReserved)
	assert.Equal(t, 12, f.org.ReservedSessions)
	assert.Equal(t, testTime, ref.CreatedAt)

	entries := f.log.Filter(audit.ActionCreateReferral)
	require.Len(t, entries, 1)
	assert.Equal(t, ref.ID, entries[0].Details["referralId"])
}

func TestIntakeRejectsDuplicateActiveClient(t *testing.T) {
	f := newFixture(t, 36)
	_, err := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	require.NoError(t, err)

	dup := client("sam")
	dup.Name = "SAM"
	_, err = f.lifecycle.Intake(context.Background(), f.org, dup)
	assert.ErrorIs(t, err, ErrDuplicateReferral)
	assert.Equal(t, 12, f.org.ReservedSessions)
}

func TestIntakeAllowsClientAgainAfterDecline(t *testing.T) {
	f := newFixture(t, 36)
	ref, err := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	require.NoError(t, err)
	require.NoError(t, f.lifecycle.RecordConsent(ref, false))

	_, err = f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	assert.NoError(t, err)
}

func TestIntakeAgainstReferrerFailsWithCapacity(t *testing.T) {
	f := newFixture(t, 0)
	referrer := &organizations.Organization{ID: "org-r", Kind: organizations.KindReferrer, Active: true}

	_, err := f.lifecycle.Intake(context.Background(), referrer, client("sam"))
	assert.ErrorIs(t, err, organizations.ErrCapacity)
	assert.Empty(t, f.registry.List(""))
	assert.Empty(t, f.log.Entries())
}

func TestIntakeCapacityExhausted(t *testing.T) {
	f := newFixture(t, 12)
	_, err := f.lifecycle.Intake(context.Background(), f.org, client("a"))
	require.NoError(t, err)
	_, err = f.lifecycle.Intake(context.Background(), f.org, client("b"))

	var capErr *organizations.CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 0, capErr.Available)
}

func TestIntakeInactiveOrganization(t *testing.T) {
	f := newFixture(t, 12)
	f.org.Active = false
	_, err := f.lifecycle.Intake(context.Background(), f.org, client("a"))
	assert.ErrorIs(t, err, organizations.ErrInactive)
}

func TestIntakeValidatesClient(t *testing.T) {
	tests := []struct {
		name string
		info ClientInfo
		err  error
	}{
		{"blank name", ClientInfo{Email: "x@example.com"}, ErrInvalidName},
		{"no contact", ClientInfo{Name: "Sam"}, ErrMissingContact},
		{"phone preferred without phone", ClientInfo{Name: "Sam", Email: "x@example.com", PreferredContact: ContactPhone}, ErrMissingContact},
		{"unknown method", ClientInfo{Name: "Sam", Email: "x@example.com", PreferredContact: "pigeon"}, ErrInvalidContactMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 12)
			_, err := f.lifecycle.Intake(context.Background(), f.org, tt.info)
			assert.ErrorIs(t, err, tt.err)
			assert.Zero(t, f.org.ReservedSessions)
		})
	}
}

func TestNormalizeDefaultsPreferredContact(t *testing.T) {
	info, err := ClientInfo{Name: " Sam ", Phone: "+447700900000"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "Sam", info.Name)
	assert.Equal(t, ContactPhone, info.PreferredContact)
	assert.Equal(t, "+447700900000", info.ContactAddress())
}

func TestRecordConsentOnlyOnce(t *testing.T) {
	f := newFixture(t, 12)
	ref, err := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	require.NoError(t, err)

	require.NoError(t, f.lifecycle.RecordConsent(ref, true))
	assert.Equal(t, StatusConsented, ref.Status)
	require.NotNil(t, ref.Consent)
	assert.Equal(t, ConsentType, ref.Consent.Type)
	assert.Equal(t, StatusConsented, ref.Consent.Status)

	err = f.lifecycle.RecordConsent(ref, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	var tErr *TransitionError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, StatusConsented, tErr.From)
	assert.Equal(t, StatusConsented, ref.Status)
}

func TestMarkScheduledRequiresConsent(t *testing.T) {
	f := newFixture(t, 12)
	ref, _ := f.lifecycle.Intake(context.Background(), f.org, client("sam"))

	assert.ErrorIs(t, f.lifecycle.MarkScheduled(ref), ErrInvalidTransition)
	require.NoError(t, f.lifecycle.RecordConsent(ref, true))
	require.NoError(t, f.lifecycle.MarkScheduled(ref))
	require.NoError(t, f.lifecycle.MarkScheduled(ref))
	assert.Equal(t, StatusScheduled, ref.Status)
}

func TestCanSchedule(t *testing.T) {
	f := newFixture(t, 12)
	ref, _ := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	assert.ErrorIs(t, f.lifecycle.CanSchedule(ref, 0), ErrInvalidTransition)

	require.NoError(t, f.lifecycle.RecordConsent(ref, true))
	assert.NoError(t, f.lifecycle.CanSchedule(ref, 11))
	assert.ErrorIs(t, f.lifecycle.CanSchedule(ref, 12), ErrSessionExhausted)
}

func TestConsumeSessionCompletesAtExhaustion(t *testing.T) {
	f := newFixture(t, 12)
	ref, _ := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	require.NoError(t, f.lifecycle.RecordConsent(ref, true))

	for i := 0; i < 12; i++ {
		require.NoError(t, f.lifecycle.MarkScheduled(ref))
		require.NoError(t, f.lifecycle.ConsumeSession(ref, f.org))
	}
	assert.Equal(t, StatusCompleted, ref.Status)
	assert.Equal(t, 12, ref.SessionsUsed)
	assert.Equal(t, 12, f.org.UsedSessions)

	assert.ErrorIs(t, f.lifecycle.ConsumeSession(ref, f.org), ErrSessionExhausted)
}

func TestConsumeSessionReturnsToConsented(t *testing.T) {
	f := newFixture(t, 12)
	ref, _ := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	require.NoError(t, f.lifecycle.RecordConsent(ref, true))
	require.NoError(t, f.lifecycle.MarkScheduled(ref))

	require.NoError(t, f.lifecycle.ConsumeSession(ref, f.org))
	assert.Equal(t, StatusConsented, ref.Status)
	assert.Equal(t, 11, ref.Remaining())
}

func TestCancelEffectByReason(t *testing.T) {
	f := newFixture(t, 24)
	ref, _ := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	require.NoError(t, f.lifecycle.RecordConsent(ref, true))

	require.NoError(t, f.lifecycle.MarkScheduled(ref))
	available := f.org.Available()
	require.NoError(t, f.lifecycle.CancelAppointmentEffect(ref, f.org, CancelByClient))
	assert.Equal(t, StatusConsented, ref.Status)
	assert.Equal(t, available, f.org.Available())

	require.NoError(t, f.lifecycle.MarkScheduled(ref))
	require.NoError(t, f.lifecycle.CancelAppointmentEffect(ref, f.org, CancelByTherapist))
	assert.Equal(t, StatusConsented, ref.Status)
	assert.Equal(t, available+1, f.org.Available())
	assert.Equal(t, 12, ref.SessionsReserved)
	assert.Equal(t, 1, ref.SessionsReturned)
}

func TestCancelEffectWithNothingToReleaseStillCancels(t *testing.T) {
	f := newFixture(t, 12)
	ref := &Referral{ID: "r", Status: StatusScheduled, SessionsReserved: 12}

	require.NoError(t, f.lifecycle.CancelAppointmentEffect(ref, f.org, CancelByTherapist))
	assert.Equal(t, StatusConsented, ref.Status)
	assert.Equal(t, 0, ref.SessionsReturned)
	assert.Equal(t, 0, f.org.ReservedSessions)
}

func TestCancelEffectReturnsOnlyHeldSessions(t *testing.T) {
	f := newFixture(t, 24)
	ref, _ := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	require.NoError(t, f.lifecycle.RecordConsent(ref, true))

	for i := 0; i < 13; i++ {
		require.NoError(t, f.lifecycle.MarkScheduled(ref))
		require.NoError(t, f.lifecycle.CancelAppointmentEffect(ref, f.org, CancelByTherapist))
	}
	assert.Equal(t, 12, ref.SessionsReturned)
	assert.Equal(t, 0, ref.Held())
	assert.Equal(t, 0, f.org.ReservedSessions)
	assert.Equal(t, 24, f.org.Available())
}

func TestConsumeSessionReservesAgainAfterReturn(t *testing.T) {
	f := newFixture(t, 12)
	ref, _ := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	require.NoError(t, f.lifecycle.RecordConsent(ref, true))
	require.NoError(t, f.lifecycle.MarkScheduled(ref))
	require.NoError(t, f.lifecycle.CancelAppointmentEffect(ref, f.org, CancelByTherapist))
	require.Equal(t, 11, f.org.ReservedSessions)

	for i := 0; i < 12; i++ {
		require.NoError(t, f.lifecycle.MarkScheduled(ref))
		require.NoError(t, f.lifecycle.ConsumeSession(ref, f.org))
	}
	assert.Equal(t, StatusCompleted, ref.Status)
	assert.Equal(t, 0, ref.SessionsReturned)
	assert.Equal(t, 12, f.org.ReservedSessions)
	assert.Equal(t, 12, f.org.UsedSessions)
}

func TestConsumeSessionLeavesOtherReservationsAlone(t *testing.T) {
	f := newFixture(t, 24)
	sam, _ := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	_, err := f.lifecycle.Intake(context.Background(), f.org, client("alex"))
	require.NoError(t, err)
	require.NoError(t, f.lifecycle.RecordConsent(sam, true))

	for i := 0; i < 12; i++ {
		require.NoError(t, f.lifecycle.MarkScheduled(sam))
		require.NoError(t, f.lifecycle.CancelAppointmentEffect(sam, f.org, CancelByTherapist))
	}
	require.Equal(t, 12, f.org.ReservedSessions)

	// another purchaser referral takes the freed capacity
	_, err = f.lifecycle.Intake(context.Background(), f.org, client("kim"))
	require.NoError(t, err)
	require.Equal(t, 0, f.org.Available())

	require.NoError(t, f.lifecycle.MarkScheduled(sam))
	require.NoError(t, f.lifecycle.ConsumeSession(sam, f.org))
	assert.Equal(t, 1, sam.SessionsUsed)
	assert.Equal(t, 0, f.org.UsedSessions)
	assert.Equal(t, 24, f.org.Releasable())
}

func TestWithdrawReleasesUnusedSessions(t *testing.T) {
	f := newFixture(t, 24)
	ref, _ := f.lifecycle.Intake(context.Background(), f.org, client("sam"))
	require.NoError(t, f.lifecycle.RecordConsent(ref, true))
	require.NoError(t, f.lifecycle.MarkScheduled(ref))
	require.NoError(t, f.lifecycle.ConsumeSession(ref, f.org))

	require.NoError(t, f.lifecycle.Withdraw(ref, f.org, "moved away"))
	assert.Equal(t, StatusCancelled, ref.Status)
	assert.Equal(t, 1, f.org.ReservedSessions)
	assert.Equal(t, 1, f.org.UsedSessions)
	assert.Len(t, f.log.Filter(audit.ActionWithdrawReferral), 1)

	assert.ErrorIs(t, f.lifecycle.Withdraw(ref, f.org, "again"), ErrInvalidTransition)
}

func TestParseCancelReason(t *testing.T) {
	r, err := ParseCancelReason("therapist")
	require.NoError(t, err)
	assert.Equal(t, CancelByTherapist, r)
	_, err = ParseCancelReason("weather")
	assert.Error(t, err)
}
