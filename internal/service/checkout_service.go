package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/onemedi/onemedi-api/internal/domain"
	"github.com/onemedi/onemedi-api/internal/payment"
	"github.com/onemedi/onemedi-api/internal/repository"
)

// CheckoutService drives a cart through the session state machine to an
// order. It owns the transitions; the repository only enforces that a write
// lands on the status it expects.
type CheckoutService struct {
	sessions  repository.CheckoutRepository
	orders    repository.OrderRepository
	addresses repository.AddressRepository
	carts     *CartService
	payments  *payment.Router
	now       func() time.Time
}

func NewCheckoutService(
	sessions repository.CheckoutRepository,
	orders repository.OrderRepository,
	addresses repository.AddressRepository,
	carts *CartService,
	payments *payment.Router,
) *CheckoutService {
	return &CheckoutService{
		sessions:  sessions,
		orders:    orders,
		addresses: addresses,
		carts:     carts,
		payments:  payments,
		now:       time.Now,
	}
}

// StartCheckout freezes the current cart into a new session, or returns the
// session already created for the same idempotency key. The frozen snapshot
// and totals never change after this point.
func (s *CheckoutService) StartCheckout(ctx context.Context, userID, idempotencyKey string) (*repository.CheckoutSession, error) {
	existingID, _, err := s.sessions.GetSessionByIdempotencyKey(ctx, idempotencyKey)
	if err == nil {
		return s.GetSession(ctx, userID, *existingID)
	}
	if !errors.Is(err, repository.ErrIdempotencyKeyNotFound) {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}

	view, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(view.Items) == 0 && len(view.PrescriptionItems) == 0 {
		return nil, ErrEmptyCart
	}
	if !view.Validation.Valid {
		return nil, fmt.Errorf("%w: %v", ErrCartNotEligible, view.Validation.Errors)
	}

	now := s.now()
	snapshot := domain.SnapshotCart(view.Items, view.PrescriptionItems, now)
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal cart snapshot: %w", err)
	}
	totals := domain.PriceCheckout(snapshot.Subtotal)

	session := &repository.CheckoutSession{
		ID:              uuid.NewString(),
		UserID:          userID,
		CartSnapshot:    snapshotJSON,
		IdempotencyKey:  idempotencyKey,
		Status:          domain.CheckoutStatusInitiated,
		Subtotal:        totals.Subtotal,
		GSTAmount:       totals.GSTAmount,
		DeliveryCharges: totals.DeliveryCharges,
		TotalAmount:     totals.Total,
		ExpiresAt:       now.Add(domain.CheckoutSessionTTL),
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	if err := s.sessions.UpdateSessionStatus(ctx, session.ID, domain.CheckoutStatusInitiated, domain.CheckoutStatusAwaitingSelection, nil); err != nil {
		return nil, fmt.Errorf("open checkout session: %w", err)
	}
	session.Status = domain.CheckoutStatusAwaitingSelection

	return session, nil
}

func (s *CheckoutService) GetSession(ctx context.Context, userID, sessionID string) (*repository.CheckoutSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

func (s *CheckoutService) SelectAddress(ctx context.Context, userID, sessionID, addressID string) error {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if err := s.checkAlive(session); err != nil {
		return err
	}

	if _, err := s.addresses.GetAddress(ctx, userID, addressID); err != nil {
		return err
	}

	return s.sessions.SetAddress(ctx, sessionID, addressID)
}

func (s *CheckoutService) SelectPaymentMethod(ctx context.Context, userID, sessionID string, method domain.PaymentMethod) error {
	if !method.Valid() {
		return fmt.Errorf("%w: %q", payment.ErrUnsupportedMethod, method)
	}

	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if err := s.checkAlive(session); err != nil {
		return err
	}

	return s.sessions.SetPaymentMethod(ctx, sessionID, method)
}

// PlaceOrder takes a fully-selected session through payment to a confirmed
// order. Calling it again on a confirmed session returns the same order.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID, sessionID string) (*domain.Order, error) {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status == domain.CheckoutStatusConfirmed {
		return s.orderForSession(ctx, session.ID)
	}
	if err := s.checkAlive(session); err != nil {
		return nil, err
	}
	if session.AddressID == nil || session.PaymentMethod == nil {
		return nil, ErrSelectionIncomplete
	}
	if !domain.CanTransitionTo(session.Status, domain.CheckoutStatusPlacing) {
		return nil, fmt.Errorf("%w: cannot place from %s", ErrIllegalTransition, session.Status)
	}

	if err := s.sessions.UpdateSessionStatus(ctx, sessionID, domain.CheckoutStatusAwaitingSelection, domain.CheckoutStatusPlacing, nil); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			// A concurrent placement got there first. If it won, hand back
			// its order; otherwise report the collision.
			current, getErr := s.sessions.GetSession(ctx, sessionID)
			if getErr == nil && current.Status == domain.CheckoutStatusConfirmed {
				return s.orderForSession(ctx, sessionID)
			}
			return nil, fmt.Errorf("%w: session is %s", ErrIllegalTransition, session.Status)
		}
		return nil, err
	}

	order, err := s.createPendingOrder(ctx, session)
	if err != nil {
		s.failPlacement(ctx, sessionID, err)
		return nil, err
	}

	method := domain.PaymentMethod(*session.PaymentMethod)
	result, err := s.payments.Charge(ctx, method, payment.ChargeRequest{
		CheckoutID: session.ID,
		UserID:     session.UserID,
		Amount:     session.TotalAmount,
		Currency:   "INR",
	})
	if err != nil {
		s.failPlacement(ctx, sessionID, err)
		return nil, fmt.Errorf("payment failed: %w", err)
	}

	if err := s.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusConfirmed); err != nil {
		log.Printf("order %s paid but status update failed: %v", order.ID, err)
		return nil, err
	}
	order.Status = domain.OrderStatusConfirmed

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":     order.ID.String(),
		"checkout_id":  session.ID,
		"user_id":      session.UserID,
		"total_amount": session.TotalAmount,
		"payment_id":   result.PaymentID,
		"captured":     result.Captured,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal confirmation payload: %w", err)
	}
	if err := s.sessions.ConfirmSession(ctx, sessionID, payload); err != nil {
		log.Printf("order %s placed but session confirm failed: %v", order.ID, err)
		return nil, err
	}

	s.carts.ClearAfterOrder(ctx, userID)

	return order, nil
}

// createPendingOrder inserts the order row ahead of the charge. A retry after
// a failed payment hits the unique checkout_id and reuses the existing row.
func (s *CheckoutService) createPendingOrder(ctx context.Context, session *repository.CheckoutSession) (*domain.Order, error) {
	checkoutID, err := uuid.Parse(session.ID)
	if err != nil {
		return nil, fmt.Errorf("parse checkout id: %w", err)
	}

	var snapshot domain.CartSnapshot
	if err := json.Unmarshal(session.CartSnapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal cart snapshot: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(snapshot.Items))
	for _, line := range snapshot.Items {
		items = append(items, domain.OrderItem{
			ItemID:         line.ItemID,
			Name:           line.Name,
			Kind:           line.Kind,
			PrescriptionID: line.PrescriptionID,
			Quantity:       line.Quantity,
			Price:          line.UnitPrice,
		})
	}

	order := &domain.Order{
		ID:                uuid.New(),
		CheckoutID:        checkoutID,
		UserID:            session.UserID,
		Subtotal:          session.Subtotal,
		GSTAmount:         session.GSTAmount,
		DeliveryCharges:   session.DeliveryCharges,
		TotalAmount:       session.TotalAmount,
		Currency:          snapshot.Currency,
		PaymentMethod:     domain.PaymentMethod(*session.PaymentMethod),
		DeliveryAddressID: *session.AddressID,
		Status:            domain.OrderStatusPendingPayment,
		Items:             items,
	}

	err = s.orders.CreateOrder(ctx, order)
	if errors.Is(err, repository.ErrDuplicateCheckout) {
		return s.orders.GetOrderByCheckoutID(ctx, checkoutID)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// failPlacement walks the session back to selection so the user can retry.
// The failure reason is kept on the session for the next read.
func (s *CheckoutService) failPlacement(ctx context.Context, sessionID string, cause error) {
	reason := cause.Error()
	if err := s.sessions.UpdateSessionStatus(ctx, sessionID, domain.CheckoutStatusPlacing, domain.CheckoutStatusFailed, &reason); err != nil {
		log.Printf("session %s: mark failed: %v", sessionID, err)
		return
	}
	if err := s.sessions.UpdateSessionStatus(ctx, sessionID, domain.CheckoutStatusFailed, domain.CheckoutStatusAwaitingSelection, &reason); err != nil {
		log.Printf("session %s: reopen after failure: %v", sessionID, err)
	}
}

func (s *CheckoutService) orderForSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	checkoutID, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("parse checkout id: %w", err)
	}
	return s.orders.GetOrderByCheckoutID(ctx, checkoutID)
}

// checkAlive rejects mutations on sessions that are terminal or past their
// deadline. The background sweep owns the actual EXPIRED flip.
func (s *CheckoutService) checkAlive(session *repository.CheckoutSession) error {
	if session.Status == domain.CheckoutStatusExpired {
		return ErrSessionExpired
	}
	if session.Status.IsTerminal() {
		return fmt.Errorf("%w: session is %s", ErrIllegalTransition, session.Status)
	}
	if s.now().After(session.ExpiresAt) {
		return ErrSessionExpired
	}
	return nil
}
