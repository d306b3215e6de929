package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    CheckoutStatus
		to      CheckoutStatus
		allowed bool
	}{
		{CheckoutStatusInitiated, CheckoutStatusAwaitingSelection, true},
		{CheckoutStatusInitiated, CheckoutStatusExpired, true},
		{CheckoutStatusAwaitingSelection, CheckoutStatusPlacing, true},
		{CheckoutStatusAwaitingSelection, CheckoutStatusExpired, true},
		{CheckoutStatusPlacing, CheckoutStatusConfirmed, true},
		{CheckoutStatusPlacing, CheckoutStatusFailed, true},
		{CheckoutStatusPlacing, CheckoutStatusExpired, true},
		{CheckoutStatusFailed, CheckoutStatusAwaitingSelection, true},
		{CheckoutStatusFailed, CheckoutStatusExpired, true},

		{CheckoutStatusInitiated, CheckoutStatusConfirmed, false},
		{CheckoutStatusInitiated, CheckoutStatusPlacing, false},
		{CheckoutStatusAwaitingSelection, CheckoutStatusConfirmed, false},
		{CheckoutStatusFailed, CheckoutStatusPlacing, false},
		{CheckoutStatusConfirmed, CheckoutStatusFailed, false},
		{CheckoutStatusExpired, CheckoutStatusAwaitingSelection, false},
	}

	for _, tt := range tests {
		if got := CanTransitionTo(tt.from, tt.to); got != tt.allowed {
			t.Errorf("CanTransitionTo(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, CheckoutStatusConfirmed.IsTerminal())
	assert.True(t, CheckoutStatusExpired.IsTerminal())
	assert.False(t, CheckoutStatusFailed.IsTerminal())
	assert.False(t, CheckoutStatusAwaitingSelection.IsTerminal())
	assert.False(t, CheckoutStatusPlacing.IsTerminal())
}

func TestSnapshotCart_MergesBothSources(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	regular := []RegularItem{{ID: "svc-1", Name: "Full Body Checkup", ItemKind: ItemKindService, Price: 99900, Quantity: 1}}
	rx := []PrescriptionItem{{ID: "rxl-1", PrescriptionID: "rx-1", MedicineName: "Metformin 500mg", Price: 10000, Quantity: 2}}

	s := SnapshotCart(regular, rx, now)

	assert.Len(t, s.Items, 2)
	assert.Equal(t, int64(99900+20000), s.Subtotal)
	assert.Equal(t, "INR", s.Currency)
	assert.Equal(t, now, s.CapturedAt)
	assert.Equal(t, "rx-1", s.Items[1].PrescriptionID)
	assert.Equal(t, int64(20000), s.Items[1].Subtotal)
}

func TestGroupItems(t *testing.T) {
	regular := []RegularItem{
		{ID: "s1", ItemKind: ItemKindService},
		{ID: "p1", ItemKind: ItemKindProduct},
		{ID: "sub1", ItemKind: ItemKindSubscription},
		{ID: "pkg1", ItemKind: ItemKindPackage},
	}
	rx := []PrescriptionItem{{ID: "rxl-1"}}

	g := GroupItems(regular, rx)

	assert.Len(t, g.Services, 2) // services and care packages share a bucket
	assert.Len(t, g.Products, 1)
	assert.Len(t, g.Subscriptions, 1)
	assert.Len(t, g.Prescriptions, 1)
}
