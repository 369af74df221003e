package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/referral-scheduler/internal/audit"
	"github.com/wolfman30/referral-scheduler/internal/calendar"
	"github.com/wolfman30/referral-scheduler/internal/notify"
	"github.com/wolfman30/referral-scheduler/internal/organizations"
	"github.com/wolfman30/referral-scheduler/internal/referrals"
	"github.com/wolfman30/referral-scheduler/internal/reminders"
	"github.com/wolfman30/referral-scheduler/internal/store"
)

type failingStore struct {
	store.Store
	saveErr error
	loadErr error
}

func (f *failingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if f.loadErr != nil {
		return nil, false, f.loadErr
	}
	return f.Store.Load(ctx, key)
}

func (f *failingStore) Save(ctx context.Context, key string, data []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.Save(ctx, key, data)
}

type recordingSink struct{ entries []audit.Entry }

func (s *recordingSink) Write(_ context.Context, e audit.Entry) error {
	s.entries = append(s.entries, e)
	return nil
}

func populate(t *testing.T, ws *Workspace) *referrals.Referral {
	t.Helper()
	org, err := organizations.NewService(ws.Organizations, ws.Audit, nil).Create(&organizations.CreateRequest{
		Name: "Riverside School", Kind: "purchaser", TotalSessions: 24,
	})
	require.NoError(t, err)

	lc := referrals.NewLifecycle(organizations.NewLedger(nil, nil), ws.Referrals, ws.Audit, nil)
	ref, err := lc.Intake(context.Background(), org, referrals.ClientInfo{
		Name: "Sam Client", Email: "sam@example.com", PreferredContact: referrals.ContactEmail,
	})
	require.NoError(t, err)

	_, err = calendar.NewService(ws.Calendar, ws.Audit, nil).SetWeeklyAvailability(calendar.Window{
		Day: time.Monday, Start: 9 * 60, End: 17 * 60,
	})
	require.NoError(t, err)

	ws.Reminders.Schedule(reminders.ScheduleInput{
		AppointmentID: "appt-1",
		ReferralID:    ref.ID,
		Message:       notify.Message{To: "sam@example.com", Method: notify.MethodEmail, Subject: "Reminder"},
		FireAt:        time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
	})
	return ref
}

func TestFlushThenInitRoundTrips(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	ws := New(st, Collections{}, nil)
	ref := populate(t, ws)
	require.NoError(t, ws.Flush(ctx))
	assert.ElementsMatch(t,
		[]string{KeyOrganizations, KeyReferrals, KeyTherapists, KeyAuditLog, KeyReminders},
		st.Keys())

	loaded := New(st, Collections{}, nil)
	require.NoError(t, loaded.Init(ctx))

	got, err := loaded.Referrals.Get(ref.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sam Client", got.Name)
	assert.Equal(t, referrals.StatusPending, got.Status)
	assert.Equal(t, 12, got.SessionsReserved)

	orgs := loaded.Organizations.List()
	require.Len(t, orgs, 1)
	assert.Equal(t, 12, orgs[0].ReservedSessions)

	p, err := loaded.Calendar.Default()
	require.NoError(t, err)
	_, ok := p.Window(time.Monday)
	assert.True(t, ok)

	assert.Len(t, loaded.Audit.Entries(), 3)
	assert.Equal(t, 1, loaded.Reminders.Pending())
}

func TestInitWithEmptyStore(t *testing.T) {
	ws := New(store.NewMemoryStore(), Collections{}, nil)
	require.NoError(t, ws.Init(context.Background()))
	assert.Empty(t, ws.Referrals.List(""))
	_, err := ws.Calendar.Default()
	assert.ErrorIs(t, err, calendar.ErrNotFound)
}

func TestInitRejectsCorruptCollection(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Save(ctx, KeyReferrals, []byte("{not json")))

	err := New(st, Collections{}, nil).Init(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode referrals")
}

func TestInitSurfacesStoreErrors(t *testing.T) {
	boom := errors.New("store offline")
	ws := New(&failingStore{Store: store.NewMemoryStore(), loadErr: boom}, Collections{}, nil)
	assert.ErrorIs(t, ws.Init(context.Background()), boom)
}

func TestDoFlushesOnSuccess(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sink := &recordingSink{}
	ws := New(st, Collections{Audit: audit.NewLog(nil, sink)}, nil)

	warning, err := ws.Do(ctx, func() error {
		_, err := organizations.NewService(ws.Organizations, ws.Audit, nil).Create(&organizations.CreateRequest{
			Name: "Harbour Trust", Kind: "referrer",
		})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, warning)

	_, found, _ := st.Load(ctx, KeyOrganizations)
	assert.True(t, found)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, audit.ActionCreateOrganization, sink.entries[0].Action)
}

func TestDoSkipsFlushOnError(t *testing.T) {
	st := store.NewMemoryStore()
	ws := New(st, Collections{}, nil)
	boom := errors.New("rejected")

	warning, err := ws.Do(context.Background(), func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, warning)
	assert.Empty(t, st.Keys())
}

func TestDoReturnsFlushFailureAsWarning(t *testing.T) {
	boom := errors.New("disk full")
	ws := New(&failingStore{Store: store.NewMemoryStore(), saveErr: boom}, Collections{}, nil)

	ran := false
	warning, err := ws.Do(context.Background(), func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.ErrorIs(t, warning, boom)
}
