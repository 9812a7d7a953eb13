package enrollment

import (
	"encoding/json"
	"testing"

	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/money"
	"enrollment-gateway/internal/domain/tiers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAbsent(t *testing.T) {
	st := Read(nil)

	assert.False(t, st.IsEnrolled)
	assert.Equal(t, tiers.Basic, st.Package)
	assert.Equal(t, money.Amount(0), st.AmountPaid)
	assert.Equal(t, StatusNone, st.Status)
	assert.False(t, st.Active())
	assert.False(t, st.GrantsAccess())
}

func TestReadDefaults(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"package": null, "amount_paid": null, "status": "active"}`), &rec))

	st := Read(&rec)
	assert.True(t, st.IsEnrolled)
	assert.Equal(t, tiers.Basic, st.Package)
	assert.Equal(t, money.Amount(0), st.AmountPaid)
	assert.Equal(t, StatusActive, st.Status)
}

func TestReadRejection(t *testing.T) {
	reason := "receipt unreadable"
	st := Read(&Record{Package: "Premium", AmountPaid: 30000, Status: "rejected", RejectionReason: &reason})

	assert.Equal(t, tiers.Premium, st.Package)
	assert.Equal(t, StatusRejected, st.Status)
	assert.Equal(t, reason, st.RejectionReason)
	assert.False(t, st.Active())
	assert.False(t, st.GrantsAccess())
}

func TestActiveAndAccess(t *testing.T) {
	tests := []struct {
		status     string
		wantActive bool
		wantAccess bool
	}{
		{status: "pending", wantActive: false, wantAccess: false},
		{status: "rejected", wantActive: false, wantAccess: false},
		{status: "active", wantActive: true, wantAccess: true},
		{status: "approved", wantActive: true, wantAccess: true},
		{status: "completed", wantActive: true, wantAccess: true},
		// enrolled with no status still counts as paid for pricing
		{status: "", wantActive: true, wantAccess: false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			st := Read(&Record{Status: tt.status})
			assert.Equal(t, tt.wantActive, st.Active())
			assert.Equal(t, tt.wantAccess, st.GrantsAccess())
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	rec := &Record{ID: "e1", Package: "advanced", AmountPaid: 15000, Status: "active"}
	snap := SnapshotOf("u1", courses.RefID("c1"), rec)

	assert.Equal(t, tiers.Advanced, snap.Package)
	assert.Equal(t, StatusActive, snap.Status)
	assert.Equal(t, Read(rec), Read(snap.Record()))

	none := SnapshotOf("u1", "c1", nil)
	assert.Nil(t, none.Record())
}

func TestSnapshotKeepsEnrollmentWithUnknownStatus(t *testing.T) {
	rec := &Record{ID: "e2", Package: "basic", AmountPaid: 10000, Status: "on_hold"}
	live := Read(rec)
	require.True(t, live.Active())

	snap := SnapshotOf("u1", "c1", rec)
	assert.Equal(t, StatusNone, snap.Status)
	cached := Read(snap.Record())
	assert.Equal(t, live, cached)
	assert.True(t, cached.Active(), "upgrade credit survives the cache")
	assert.False(t, cached.GrantsAccess())
}
