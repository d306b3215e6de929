package domain

import "time"

type NotificationKind string

const (
	NotificationOrderConfirmed  NotificationKind = "order_confirmed"
	NotificationCheckoutExpired NotificationKind = "checkout_expired"
)

// Notification is a user-facing message produced from checkout events. The
// (kind, ref_id) pair is unique, so replayed events never notify twice.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	RefID     string           `json:"ref_id"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}
