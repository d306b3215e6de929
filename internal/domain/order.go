package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodOnline
}

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"

	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
)

type OrderItem struct {
	ItemID         string   `json:"item_id"`
	Name           string   `json:"name"`
	Kind           ItemKind `json:"kind"`
	PrescriptionID string   `json:"prescription_id,omitempty"`
	Quantity       int      `json:"quantity"`
	Price          int64    `json:"price"`
}

type Order struct {
	ID                uuid.UUID     `json:"id"`
	CheckoutID        uuid.UUID     `json:"checkout_id"`
	UserID            string        `json:"user_id"`
	Subtotal          int64         `json:"subtotal"`
	GSTAmount         int64         `json:"gst_amount"`
	DeliveryCharges   int64         `json:"delivery_charges"`
	TotalAmount       int64         `json:"total_amount"`
	Currency          string        `json:"currency"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	DeliveryAddressID string        `json:"delivery_address_id"`
	Status            OrderStatus   `json:"status"`
	Items             []OrderItem   `json:"items"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Address is a saved delivery address.
type Address struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Phone     string `json:"phone"`
	IsDefault bool   `json:"is_default"`
}

// Medicine is a catalog row. Prices here are the source of truth for
// prescription cart lines; client-supplied prices are ignored for medicines.
type Medicine struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Manufacturer         string `json:"manufacturer"`
	Price                int64  `json:"price"`
	MRP                  int64  `json:"mrp"`
	PrescriptionRequired bool   `json:"prescription_required"`
	ImageRef             string `json:"image_ref,omitempty"`
	InStock              bool   `json:"in_stock"`
}
