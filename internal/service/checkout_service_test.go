package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onemedi/onemedi-api/internal/domain"
	"github.com/onemedi/onemedi-api/internal/payment"
	"github.com/onemedi/onemedi-api/internal/repository"
)

type checkoutFixture struct {
	svc      *CheckoutService
	sessions *mockCheckoutRepo
	orders   *mockOrderRepo
	cartRepo *mockCartRepo
	rxRepo   *mockPrescriptionRepo
	cod      *mockProcessor
	online   *mockProcessor
}

func newCheckoutFixture() *checkoutFixture {
	cartRepo := &mockCartRepo{Cart: &domain.Cart{
		UserID: "user-1",
		Items: []domain.RegularItem{
			{ID: "otc-1", Name: "Vitamin D", ItemKind: domain.ItemKindProduct, Price: 30000, Quantity: 2},
		},
	}}
	rxRepo := &mockPrescriptionRepo{}
	carts := newTestCartService(cartRepo, rxRepo, newMockCartCache())

	sessions := newMockCheckoutRepo()
	orders := newMockOrderRepo()
	addresses := &mockAddressRepo{Addrs: map[string]domain.Address{
		"addr-1": {ID: "addr-1", UserID: "user-1", Line1: "12 MG Road", City: "Kurnool", Pincode: "518001"},
	}}
	cod := &mockProcessor{Result: &payment.Result{PaymentID: "cod-1"}}
	online := &mockProcessor{Result: &payment.Result{PaymentID: "pi_1", Captured: true}}

	return &checkoutFixture{
		svc:      NewCheckoutService(sessions, orders, addresses, carts, payment.NewRouter(cod, online)),
		sessions: sessions,
		orders:   orders,
		cartRepo: cartRepo,
		rxRepo:   rxRepo,
		cod:      cod,
		online:   online,
	}
}

func (f *checkoutFixture) startAndSelect(t *testing.T, method domain.PaymentMethod) *repository.CheckoutSession {
	t.Helper()
	ctx := context.Background()

	session, err := f.svc.StartCheckout(ctx, "user-1", "key-1")
	require.NoError(t, err)
	require.NoError(t, f.svc.SelectAddress(ctx, "user-1", session.ID, "addr-1"))
	require.NoError(t, f.svc.SelectPaymentMethod(ctx, "user-1", session.ID, method))
	return session
}

func TestStartCheckout_FreezesCartAndTotals(t *testing.T) {
	f := newCheckoutFixture()

	session, err := f.svc.StartCheckout(context.Background(), "user-1", "key-1")

	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusAwaitingSelection, session.Status)
	assert.NotEmpty(t, session.CartSnapshot)

	// 2 x Rs 300 = Rs 600 subtotal, 12% GST, free delivery above Rs 499.
	assert.Equal(t, int64(60000), session.Subtotal)
	assert.Equal(t, int64(7200), session.GSTAmount)
	assert.Equal(t, int64(0), session.DeliveryCharges)
	assert.Equal(t, int64(67200), session.TotalAmount)
	assert.WithinDuration(t, time.Now().Add(domain.CheckoutSessionTTL), session.ExpiresAt, 5*time.Second)
}

func TestStartCheckout_SameKeyReturnsSameSession(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	first, err := f.svc.StartCheckout(ctx, "user-1", "key-1")
	require.NoError(t, err)

	second, err := f.svc.StartCheckout(ctx, "user-1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestStartCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture()
	f.cartRepo.Cart = nil

	_, err := f.svc.StartCheckout(context.Background(), "user-1", "key-1")

	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestStartCheckout_IneligibleCart(t *testing.T) {
	f := newCheckoutFixture()
	pending := verifiedPrescription("rx-1", "user-1")
	pending.VerificationStatus = domain.PrescriptionStatusUploaded
	f.rxRepo.Items = []domain.PrescriptionItem{{PrescriptionID: "rx-1", MedicineID: "med-1", Price: 1000, Quantity: 1}}
	f.rxRepo.Prescriptions = []domain.Prescription{pending}

	_, err := f.svc.StartCheckout(context.Background(), "user-1", "key-1")

	assert.ErrorIs(t, err, ErrCartNotEligible)
}

func TestGetSession_OwnershipEnforced(t *testing.T) {
	f := newCheckoutFixture()
	session, err := f.svc.StartCheckout(context.Background(), "user-1", "key-1")
	require.NoError(t, err)

	_, err = f.svc.GetSession(context.Background(), "intruder", session.ID)

	assert.ErrorIs(t, err, ErrNotSessionOwner)
}

func TestSelectAddress_UnknownAddress(t *testing.T) {
	f := newCheckoutFixture()
	session, err := f.svc.StartCheckout(context.Background(), "user-1", "key-1")
	require.NoError(t, err)

	err = f.svc.SelectAddress(context.Background(), "user-1", session.ID, "addr-missing")

	assert.ErrorIs(t, err, repository.ErrAddressNotFound)
}

func TestSelectPaymentMethod_UnknownMethod(t *testing.T) {
	f := newCheckoutFixture()
	session, err := f.svc.StartCheckout(context.Background(), "user-1", "key-1")
	require.NoError(t, err)

	err = f.svc.SelectPaymentMethod(context.Background(), "user-1", session.ID, domain.PaymentMethod("crypto"))

	assert.ErrorIs(t, err, payment.ErrUnsupportedMethod)
}

func TestPlaceOrder_RequiresSelections(t *testing.T) {
	f := newCheckoutFixture()
	session, err := f.svc.StartCheckout(context.Background(), "user-1", "key-1")
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(context.Background(), "user-1", session.ID)

	assert.ErrorIs(t, err, ErrSelectionIncomplete)
}

func TestPlaceOrder_CODHappyPath(t *testing.T) {
	f := newCheckoutFixture()
	session := f.startAndSelect(t, domain.PaymentMethodCOD)

	order, err := f.svc.PlaceOrder(context.Background(), "user-1", session.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Equal(t, session.ID, order.CheckoutID.String())
	assert.Equal(t, int64(67200), order.TotalAmount)
	assert.Equal(t, domain.PaymentMethodCOD, order.PaymentMethod)
	assert.Len(t, order.Items, 1)

	stored, err := f.sessions.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusConfirmed, stored.Status)

	require.Len(t, f.sessions.Events, 1)
	assert.Equal(t, "order.confirmed", f.sessions.Events[0].EventType)

	assert.True(t, f.cartRepo.Cleared)
	assert.True(t, f.rxRepo.Cleared)

	require.Len(t, f.cod.Charges, 1)
	assert.Equal(t, int64(67200), f.cod.Charges[0].Amount)
}

func TestPlaceOrder_DeclinedThenRetried(t *testing.T) {
	f := newCheckoutFixture()
	f.online.Err = payment.ErrPaymentDeclined
	session := f.startAndSelect(t, domain.PaymentMethodOnline)
	ctx := context.Background()

	_, err := f.svc.PlaceOrder(ctx, "user-1", session.ID)
	require.ErrorIs(t, err, payment.ErrPaymentDeclined)

	// The session is back at selection with the failure recorded, and the
	// pending order was kept for the retry.
	stored, err := f.sessions.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusAwaitingSelection, stored.Status)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "declined")
	assert.False(t, f.cartRepo.Cleared)

	f.online.Err = nil
	order, err := f.svc.PlaceOrder(ctx, "user-1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Len(t, f.online.Charges, 2)
}

func TestPlaceOrder_ConfirmedIsIdempotent(t *testing.T) {
	f := newCheckoutFixture()
	session := f.startAndSelect(t, domain.PaymentMethodCOD)
	ctx := context.Background()

	first, err := f.svc.PlaceOrder(ctx, "user-1", session.ID)
	require.NoError(t, err)

	second, err := f.svc.PlaceOrder(ctx, "user-1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.cod.Charges, 1)
	assert.Len(t, f.sessions.Events, 1)
}

func TestPlaceOrder_ExpiredSession(t *testing.T) {
	f := newCheckoutFixture()
	session := f.startAndSelect(t, domain.PaymentMethodCOD)
	f.svc.now = func() time.Time { return time.Now().Add(domain.CheckoutSessionTTL + time.Minute) }

	_, err := f.svc.PlaceOrder(context.Background(), "user-1", session.ID)

	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, f.cod.Charges)
}

func TestSelectAddress_AfterExpiry(t *testing.T) {
	f := newCheckoutFixture()
	session, err := f.svc.StartCheckout(context.Background(), "user-1", "key-1")
	require.NoError(t, err)
	f.svc.now = func() time.Time { return time.Now().Add(domain.CheckoutSessionTTL + time.Minute) }

	err = f.svc.SelectAddress(context.Background(), "user-1", session.ID, "addr-1")

	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestPlaceOrder_FailedSessionNotPlaceable(t *testing.T) {
	f := newCheckoutFixture()
	session := f.startAndSelect(t, domain.PaymentMethodCOD)
	ctx := context.Background()

	// A crash between the FAILED flip and the reopen leaves the session in
	// FAILED, which is not a valid starting point for placement.
	reason := "payment declined"
	require.NoError(t, f.sessions.UpdateSessionStatus(ctx, session.ID, domain.CheckoutStatusAwaitingSelection, domain.CheckoutStatusPlacing, nil))
	require.NoError(t, f.sessions.UpdateSessionStatus(ctx, session.ID, domain.CheckoutStatusPlacing, domain.CheckoutStatusFailed, &reason))

	_, err := f.svc.PlaceOrder(ctx, "user-1", session.ID)

	require.ErrorIs(t, err, ErrIllegalTransition)
	assert.Contains(t, err.Error(), "cannot place from FAILED")
	assert.Empty(t, f.cod.Charges)
}

func TestExpireStaleSessions_ReclaimsWedgedSessions(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	// A crash after the PLACING flip but before confirm wedges the session.
	wedged := f.startAndSelect(t, domain.PaymentMethodCOD)
	require.NoError(t, f.sessions.UpdateSessionStatus(ctx, wedged.ID, domain.CheckoutStatusAwaitingSelection, domain.CheckoutStatusPlacing, nil))

	// A crash right after CreateSession strands one at INITIATED.
	stranded := &repository.CheckoutSession{
		ID:             "22222222-2222-4222-8222-222222222222",
		UserID:         "user-1",
		IdempotencyKey: "key-2",
		Status:         domain.CheckoutStatusInitiated,
		ExpiresAt:      wedged.ExpiresAt,
	}
	require.NoError(t, f.sessions.CreateSession(ctx, stranded))

	deadline := wedged.ExpiresAt.Add(time.Minute)
	expired, err := f.sessions.ExpireStaleSessions(ctx, deadline)
	require.NoError(t, err)
	assert.Len(t, expired, 2)

	stored, err := f.sessions.GetSession(ctx, wedged.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusExpired, stored.Status)

	// The wedged session is no longer a dead end: retries report expiry
	// instead of an unplaceable PLACING state.
	_, err = f.svc.PlaceOrder(ctx, "user-1", wedged.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, f.cod.Charges)
}

func TestExpireStaleSessions_EmitsOneEventPerSession(t *testing.T) {
	f := newCheckoutFixture()
	session, err := f.svc.StartCheckout(context.Background(), "user-1", "key-1")
	require.NoError(t, err)

	deadline := session.ExpiresAt.Add(time.Minute)
	expired, err := f.sessions.ExpireStaleSessions(context.Background(), deadline)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	again, err := f.sessions.ExpireStaleSessions(context.Background(), deadline)
	require.NoError(t, err)
	assert.Empty(t, again)

	var expiredEvents int
	for _, ev := range f.sessions.Events {
		if ev.EventType == "checkout.expired" {
			expiredEvents++
		}
	}
	assert.Equal(t, 1, expiredEvents)
}
