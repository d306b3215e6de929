package domain

import "time"

type CheckoutStatus string

const (
	CheckoutStatusInitiated         CheckoutStatus = "INITIATED"
	CheckoutStatusAwaitingSelection CheckoutStatus = "AWAITING_SELECTION"
	CheckoutStatusPlacing           CheckoutStatus = "PLACING"
	CheckoutStatusConfirmed         CheckoutStatus = "CONFIRMED"
	CheckoutStatusFailed            CheckoutStatus = "FAILED"
	CheckoutStatusExpired           CheckoutStatus = "EXPIRED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusConfirmed || s == CheckoutStatusExpired
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// transitions encodes the checkout session state machine. FAILED is
// retriable: a failed placement returns the session to AWAITING_SELECTION.
// Every non-terminal status can expire, so the background sweep reclaims
// sessions a crash stranded in INITIATED or PLACING.
var transitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusInitiated:         {CheckoutStatusAwaitingSelection, CheckoutStatusExpired},
	CheckoutStatusAwaitingSelection: {CheckoutStatusPlacing, CheckoutStatusExpired},
	CheckoutStatusPlacing:           {CheckoutStatusConfirmed, CheckoutStatusFailed, CheckoutStatusExpired},
	CheckoutStatusFailed:            {CheckoutStatusAwaitingSelection, CheckoutStatusExpired},
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckoutSessionTTL is the countdown a user gets to finish a checkout before
// the session expires back to the cart.
const CheckoutSessionTTL = 600 * time.Second

type CartSnapshotItem struct {
	ItemID         string   `json:"item_id"`
	Name           string   `json:"name"`
	Kind           ItemKind `json:"kind"`
	PrescriptionID string   `json:"prescription_id,omitempty"`
	Quantity       int      `json:"quantity"`
	UnitPrice      int64    `json:"unit_price"`
	Subtotal       int64    `json:"subtotal"`
}

// CartSnapshot is the full cart state frozen at checkout time. Later cart
// mutations do not leak into an in-flight checkout.
type CartSnapshot struct {
	Items      []CartSnapshotItem `json:"items"`
	Subtotal   int64              `json:"subtotal"`
	Currency   string             `json:"currency"`
	CapturedAt time.Time          `json:"captured_at"`
}

// SnapshotCart freezes the merged cart into snapshot lines.
func SnapshotCart(regular []RegularItem, rx []PrescriptionItem, now time.Time) *CartSnapshot {
	snapshot := &CartSnapshot{
		Items:      make([]CartSnapshotItem, 0, len(regular)+len(rx)),
		Currency:   "INR",
		CapturedAt: now,
	}

	for _, item := range regular {
		line := item.Price * int64(item.Quantity)
		snapshot.Items = append(snapshot.Items, CartSnapshotItem{
			ItemID:    item.ID,
			Name:      item.Name,
			Kind:      item.ItemKind,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Subtotal:  line,
		})
		snapshot.Subtotal += line
	}

	for _, item := range rx {
		line := item.Price * int64(item.Quantity)
		snapshot.Items = append(snapshot.Items, CartSnapshotItem{
			ItemID:         item.ID,
			Name:           item.MedicineName,
			Kind:           ItemKindProduct,
			PrescriptionID: item.PrescriptionID,
			Quantity:       item.Quantity,
			UnitPrice:      item.Price,
			Subtotal:       line,
		})
		snapshot.Subtotal += line
	}

	return snapshot
}
