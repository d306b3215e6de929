package domain

// All amounts are paisa. The storefront historically grew two delivery
// thresholds that were never reconciled: the plain cart ships free from
// Rs 499, the prescription cart from Rs 200 and additionally carries a 5%
// discount. Checkout adds 12% GST on top of the frozen subtotal. The
// constants live here and nowhere else.
const (
	DeliveryFee          int64 = 4000  // Rs 40 flat
	PlainFreeDeliveryMin int64 = 49900 // Rs 499
	RxFreeDeliveryMin    int64 = 20000 // Rs 200

	RxDiscountPercent int64 = 5
	GSTPercent        int64 = 12
)

// PricingSnapshot is the cart-level breakdown.
// Invariant: Total == Subtotal - PrescriptionDiscount + DeliveryCharges.
type PricingSnapshot struct {
	Subtotal             int64 `json:"subtotal"`
	PrescriptionDiscount int64 `json:"prescription_discount"`
	DeliveryCharges      int64 `json:"delivery_charges"`
	Total                int64 `json:"total"`
}

// CheckoutTotals is the checkout-level breakdown.
// Invariant: Total == Subtotal + GSTAmount + DeliveryCharges.
type CheckoutTotals struct {
	Subtotal        int64 `json:"subtotal"`
	GSTAmount       int64 `json:"gst_amount"`
	DeliveryCharges int64 `json:"delivery_charges"`
	Total           int64 `json:"total"`
}

// percentOf rounds half-up in integer paisa.
func percentOf(amount, pct int64) int64 {
	return (amount*pct + 50) / 100
}

// PriceCart picks the pricing path by cart composition: a cart holding any
// prescription item is priced as a prescription cart, otherwise as a plain
// cart. The two paths are never combined.
func PriceCart(regular []RegularItem, rx []PrescriptionItem) PricingSnapshot {
	if len(rx) > 0 {
		return PricePrescriptionCart(rx)
	}
	return PricePlainCart(regular)
}

func PricePrescriptionCart(items []PrescriptionItem) PricingSnapshot {
	var subtotal int64
	for _, it := range items {
		subtotal += it.Price * int64(it.Quantity)
	}

	discount := percentOf(subtotal, RxDiscountPercent)

	var delivery int64
	if subtotal > 0 && subtotal < RxFreeDeliveryMin {
		delivery = DeliveryFee
	}

	return PricingSnapshot{
		Subtotal:             subtotal,
		PrescriptionDiscount: discount,
		DeliveryCharges:      delivery,
		Total:                subtotal - discount + delivery,
	}
}

func PricePlainCart(items []RegularItem) PricingSnapshot {
	var subtotal int64
	for _, it := range items {
		subtotal += it.Price * int64(it.Quantity)
	}

	var delivery int64
	if subtotal > 0 && subtotal < PlainFreeDeliveryMin {
		delivery = DeliveryFee
	}

	return PricingSnapshot{
		Subtotal:        subtotal,
		DeliveryCharges: delivery,
		Total:           subtotal + delivery,
	}
}

// PriceCheckout computes the order totals from a frozen checkout subtotal.
func PriceCheckout(subtotal int64) CheckoutTotals {
	gst := percentOf(subtotal, GSTPercent)

	var delivery int64
	if subtotal > 0 && subtotal < PlainFreeDeliveryMin {
		delivery = DeliveryFee
	}

	return CheckoutTotals{
		Subtotal:        subtotal,
		GSTAmount:       gst,
		DeliveryCharges: delivery,
		Total:           subtotal + gst + delivery,
	}
}
