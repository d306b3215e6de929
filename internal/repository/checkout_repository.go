package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/onemedi/onemedi-api/internal/domain"
)

var (
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	ErrSessionNotFound        = errors.New("checkout session not found")
	ErrStaleStatus            = errors.New("checkout session status changed concurrently")
)

type CheckoutSession struct {
	ID              string
	UserID          string
	CartSnapshot    []byte
	IdempotencyKey  string
	Status          domain.CheckoutStatus
	AddressID       *string
	PaymentMethod   *string
	Subtotal        int64
	GSTAmount       int64
	DeliveryCharges int64
	TotalAmount     int64
	LastError       *string
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OutboxEvent struct {
	ID          int
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// CheckoutRepository persists checkout sessions and their transactional
// outbox. Every status write is a compare-and-set on the expected current
// status, so two racing placements cannot both advance the same session.
type CheckoutRepository interface {
	GetSessionByIdempotencyKey(ctx context.Context, key string) (*string, *domain.CheckoutStatus, error)
	CreateSession(ctx context.Context, session *CheckoutSession) error
	GetSession(ctx context.Context, id string) (*CheckoutSession, error)
	UpdateSessionStatus(ctx context.Context, id string, from, to domain.CheckoutStatus, lastError *string) error
	SetAddress(ctx context.Context, id, addressID string) error
	SetPaymentMethod(ctx context.Context, id string, method domain.PaymentMethod) error
	ConfirmSession(ctx context.Context, id string, eventPayload []byte) error
	ExpireStaleSessions(ctx context.Context, now time.Time) ([]CheckoutSession, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

type checkoutRepository struct {
	db *sql.DB
}

func NewCheckoutRepository(db *sql.DB) CheckoutRepository {
	return &checkoutRepository{db: db}
}

func (r *checkoutRepository) GetSessionByIdempotencyKey(ctx context.Context, key string) (*string, *domain.CheckoutStatus, error) {
	query := `SELECT id, status FROM checkout_sessions WHERE idempotency_key = $1`

	var id string
	var status domain.CheckoutStatus
	err := r.db.QueryRowContext(ctx, query, key).Scan(&id, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query session by idempotency key: %w", err)
	}

	return &id, &status, nil
}

func (r *checkoutRepository) CreateSession(ctx context.Context, session *CheckoutSession) error {
	query := `INSERT INTO checkout_sessions
	            (id, user_id, cart_snapshot, idempotency_key, status, subtotal, gst_amount, delivery_charges, total_amount, expires_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.CartSnapshot,
		session.IdempotencyKey,
		session.Status,
		session.Subtotal,
		session.GSTAmount,
		session.DeliveryCharges,
		session.TotalAmount,
		session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

func (r *checkoutRepository) GetSession(ctx context.Context, id string) (*CheckoutSession, error) {
	query := `SELECT id, user_id, cart_snapshot, idempotency_key, status, address_id, payment_method,
	                 subtotal, gst_amount, delivery_charges, total_amount, last_error, expires_at, created_at, updated_at
	          FROM checkout_sessions WHERE id = $1`

	var s CheckoutSession
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.CartSnapshot,
		&s.IdempotencyKey,
		&s.Status,
		&s.AddressID,
		&s.PaymentMethod,
		&s.Subtotal,
		&s.GSTAmount,
		&s.DeliveryCharges,
		&s.TotalAmount,
		&s.LastError,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout session: %w", err)
	}
	return &s, nil
}

func (r *checkoutRepository) UpdateSessionStatus(ctx context.Context, id string, from, to domain.CheckoutStatus, lastError *string) error {
	query := `UPDATE checkout_sessions
	          SET status = $1, last_error = $2, updated_at = NOW()
	          WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, to, lastError, id, from)
	if err != nil {
		return fmt.Errorf("update checkout session status: %w", err)
	}
	return r.checkGuardedWrite(ctx, result, id)
}

func (r *checkoutRepository) SetAddress(ctx context.Context, id, addressID string) error {
	query := `UPDATE checkout_sessions
	          SET address_id = $1, updated_at = NOW()
	          WHERE id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, addressID, id, domain.CheckoutStatusAwaitingSelection)
	if err != nil {
		return fmt.Errorf("set checkout address: %w", err)
	}
	return r.checkGuardedWrite(ctx, result, id)
}

func (r *checkoutRepository) SetPaymentMethod(ctx context.Context, id string, method domain.PaymentMethod) error {
	query := `UPDATE checkout_sessions
	          SET payment_method = $1, updated_at = NOW()
	          WHERE id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, method, id, domain.CheckoutStatusAwaitingSelection)
	if err != nil {
		return fmt.Errorf("set checkout payment method: %w", err)
	}
	return r.checkGuardedWrite(ctx, result, id)
}

// ConfirmSession moves a PLACING session to CONFIRMED and writes the outbox
// event in the same transaction, so a confirmed order always has exactly one
// pending event.
func (r *checkoutRepository) ConfirmSession(ctx context.Context, id string, eventPayload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback()

	update := `UPDATE checkout_sessions
	           SET status = $1, last_error = NULL, updated_at = NOW()
	           WHERE id = $2 AND status = $3`
	result, err := tx.ExecContext(ctx, update, domain.CheckoutStatusConfirmed, id, domain.CheckoutStatusPlacing)
	if err != nil {
		return fmt.Errorf("confirm checkout session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrStaleStatus
	}

	insert := `INSERT INTO checkout_outbox (aggregate_id, event_type, payload, created_at)
	           VALUES ($1, $2, $3, NOW())`
	if _, err := tx.ExecContext(ctx, insert, id, "order.confirmed", eventPayload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit confirm tx: %w", err)
	}
	return nil
}

// ExpireStaleSessions flips every non-terminal session past its deadline to
// EXPIRED and emits one checkout.expired event per session, all in one
// transaction. The status guard makes each expiry fire exactly once. That
// includes INITIATED and PLACING: a crash mid-placement leaves a session
// wedged there, and the sweep is what reclaims it.
func (r *checkoutRepository) ExpireStaleSessions(ctx context.Context, now time.Time) ([]CheckoutSession, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin expire tx: %w", err)
	}
	defer tx.Rollback()

	update := `UPDATE checkout_sessions
	           SET status = $1, updated_at = NOW()
	           WHERE status NOT IN ($2, $3) AND expires_at < $4
	           RETURNING id, user_id`

	rows, err := tx.QueryContext(ctx, update,
		domain.CheckoutStatusExpired,
		domain.CheckoutStatusConfirmed,
		domain.CheckoutStatusExpired,
		now)
	if err != nil {
		return nil, fmt.Errorf("expire stale sessions: %w", err)
	}

	var expired []CheckoutSession
	for rows.Next() {
		var s CheckoutSession
		if err := rows.Scan(&s.ID, &s.UserID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expired session: %w", err)
		}
		s.Status = domain.CheckoutStatusExpired
		expired = append(expired, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired sessions: %w", err)
	}

	insert := `INSERT INTO checkout_outbox (aggregate_id, event_type, payload, created_at)
	           VALUES ($1, $2, $3, NOW())`
	for _, s := range expired {
		payload, err := json.Marshal(map[string]interface{}{
			"checkout_id": s.ID,
			"user_id":     s.UserID,
			"expired_at":  now,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal expiry payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, s.ID, "checkout.expired", payload); err != nil {
			return nil, fmt.Errorf("insert expiry event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit expire tx: %w", err)
	}
	return expired, nil
}

func (r *checkoutRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM checkout_outbox
	          WHERE processed_at IS NULL
	          ORDER BY id
	          LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}
	return events, nil
}

func (r *checkoutRepository) MarkEventAsProcessed(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE checkout_outbox SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}

func (r *checkoutRepository) checkGuardedWrite(ctx context.Context, result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	probe := `SELECT EXISTS (SELECT 1 FROM checkout_sessions WHERE id = $1)`
	if err := r.db.QueryRowContext(ctx, probe, id).Scan(&exists); err != nil {
		return fmt.Errorf("probe checkout session: %w", err)
	}
	if exists {
		return ErrStaleStatus
	}
	return ErrSessionNotFound
}
