package referrals

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryListFiltersByStatus(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(&Referral{ID: "a", Status: StatusPending}))
	require.NoError(t, reg.Add(&Referral{ID: "b", Status: StatusConsented}))
	require.NoError(t, reg.Add(&Referral{ID: "c", Status: StatusPending}))
	assert.Error(t, reg.Add(&Referral{ID: "a"}))

	assert.Len(t, reg.List(""), 3)
	pending := reg.List(StatusPending)
	require.Len(t, pending, 2)
	assert.Equal(t, "c", pending[1].ID)

	_, err := reg.Get("zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistrySnapshotJSONShape(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(&Referral{
		ID:               "r1",
		OrganizationID:   "org-1",
		ClientInfo:       ClientInfo{Name: "Sam", Email: "sam@example.com", PreferredContact: ContactEmail},
		Status:           StatusPending,
		SessionsReserved: 12,
	}))

	data, err := json.Marshal(reg.Snapshot())
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "Sam", raw[0]["name"])
	assert.Equal(t, "org-1", raw[0]["organizationId"])
	assert.EqualValues(t, 12, raw[0]["sessionsReserved"])

	var records []Referral
	require.NoError(t, json.Unmarshal(data, &records))
	restored := NewRegistry()
	require.NoError(t, restored.Restore(records))
	got, err := restored.Get("r1")
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", got.Email)
}

func TestRegistryRestoreRejectsOverUse(t *testing.T) {
	err := NewRegistry().Restore([]Referral{{ID: "r", SessionsReserved: 12, SessionsUsed: 13}})
	assert.Error(t, err)
}
