package organizations

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func newTestRegistry() *Registry {
	n := 0
	return NewRegistry(
		WithClock(func() time.Time { return testTime }),
		WithIDGenerator(func() string {
			n++
			return "org-" + string(rune('0'+n))
		}),
	)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRequest
		err  error
	}{
		{"blank name", CreateRequest{Name: " ", Kind: "purchaser", TotalSessions: 12}, ErrInvalidName},
		{"unknown kind", CreateRequest{Name: "A", Kind: "sponsor", TotalSessions: 12}, ErrInvalidKind},
		{"not multiple of 12", CreateRequest{Name: "A", Kind: "purchaser", TotalSessions: 13}, ErrInvalidSessionCount},
		{"negative", CreateRequest{Name: "A", Kind: "purchaser", TotalSessions: -12}, ErrInvalidSessionCount},
		{"referrer with sessions", CreateRequest{Name: "A", Kind: "referrer", TotalSessions: 12}, ErrInvalidSessionCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestRegistry().Create(&tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCreateAndList(t *testing.T) {
	reg := newTestRegistry()
	a, err := reg.Create(&CreateRequest{Name: "  Council ", Kind: "Purchaser", TotalSessions: 24})
	require.NoError(t, err)
	b, err := reg.Create(&CreateRequest{Name: "School", Kind: "referrer"})
	require.NoError(t, err)

	assert.Equal(t, "Council", a.Name)
	assert.Equal(t, KindPurchaser, a.Kind)
	assert.True(t, a.Active)
	assert.Equal(t, testTime, a.CreatedAt)
	assert.Equal(t, KindReferrer, b.Kind)
	assert.Zero(t, b.TotalSessions)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	got, err := reg.Get(b.ID)
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivateKeepsRecord(t *testing.T) {
	reg := newTestRegistry()
	org, err := reg.Create(&CreateRequest{Name: "Council", Kind: "purchaser", TotalSessions: 12})
	require.NoError(t, err)

	got, err := reg.Deactivate(org.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	require.NotNil(t, got.DeactivatedAt)
	assert.Len(t, reg.List(), 1)

	_, err = reg.Deactivate("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTotals(t *testing.T) {
	reg := newTestRegistry()
	ledger := NewLedger(nil, nil)
	a, _ := reg.Create(&CreateRequest{Name: "A", Kind: "purchaser", TotalSessions: 24})
	_, _ = reg.Create(&CreateRequest{Name: "B", Kind: "purchaser", TotalSessions: 36})
	require.NoError(t, ledger.Reserve(a, 12))

	totals := reg.Totals()
	assert.Equal(t, 60, totals.TotalSessions)
	assert.Equal(t, 12, totals.ReservedSessions)
	assert.Equal(t, 48, totals.Available)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	reg := newTestRegistry()
	org, _ := reg.Create(&CreateRequest{Name: "A", Kind: "purchaser", TotalSessions: 24})
	org.ReservedSessions = 12

	data, err := json.Marshal(reg.Snapshot())
	require.NoError(t, err)

	var records []Organization
	require.NoError(t, json.Unmarshal(data, &records))

	restored := NewRegistry()
	require.NoError(t, restored.Restore(records))
	got, err := restored.Get(org.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, got.ReservedSessions)
	assert.Equal(t, KindPurchaser, got.Kind)
}

func TestRestoreRejectsBrokenCounters(t *testing.T) {
	err := NewRegistry().Restore([]Organization{{ID: "x", Kind: KindPurchaser, TotalSessions: 12, ReservedSessions: 24}})
	assert.Error(t, err)
}

func TestKindRejectsUnknownJSON(t *testing.T) {
	var org Organization
	err := json.Unmarshal([]byte(`{"id":"x","type":"vendor"}`), &org)
	assert.ErrorIs(t, err, ErrInvalidKind)
}
