package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rxItem(price int64, qty int) PrescriptionItem {
	return PrescriptionItem{ID: "rx-line-1", PrescriptionID: "rx-1", MedicineID: "med-1", Price: price, Quantity: qty}
}

func TestPricePlainCart_BelowThreshold(t *testing.T) {
	items := []RegularItem{
		{ID: "i1", ItemKind: ItemKindProduct, Price: 10000, Quantity: 2}, // Rs 200
		{ID: "i2", ItemKind: ItemKindService, Price: 15000, Quantity: 1}, // Rs 150
	}

	p := PricePlainCart(items)

	assert.Equal(t, int64(35000), p.Subtotal)
	assert.Equal(t, DeliveryFee, p.DeliveryCharges)
	assert.Equal(t, int64(0), p.PrescriptionDiscount)
	assert.Equal(t, int64(39000), p.Total)
}

func TestPricePlainCart_FreeDeliveryAtThreshold(t *testing.T) {
	items := []RegularItem{{ID: "i1", ItemKind: ItemKindProduct, Price: PlainFreeDeliveryMin, Quantity: 1}}

	p := PricePlainCart(items)

	assert.Equal(t, int64(0), p.DeliveryCharges)
	assert.Equal(t, PlainFreeDeliveryMin, p.Total)
}

func TestPricePlainCart_Empty(t *testing.T) {
	p := PricePlainCart(nil)

	assert.Equal(t, int64(0), p.Subtotal)
	assert.Equal(t, int64(0), p.DeliveryCharges)
	assert.Equal(t, int64(0), p.Total)
}

// Rs 100 x 2 with a verified prescription: subtotal 200, discount 10, free
// delivery at the Rs 200 threshold, total 190.
func TestPricePrescriptionCart_ThresholdScenario(t *testing.T) {
	p := PricePrescriptionCart([]PrescriptionItem{rxItem(10000, 2)})

	assert.Equal(t, int64(20000), p.Subtotal)
	assert.Equal(t, int64(1000), p.PrescriptionDiscount)
	assert.Equal(t, int64(0), p.DeliveryCharges)
	assert.Equal(t, int64(19000), p.Total)
}

func TestPricePrescriptionCart_BelowThresholdPaysDelivery(t *testing.T) {
	p := PricePrescriptionCart([]PrescriptionItem{rxItem(9900, 1)})

	assert.Equal(t, int64(9900), p.Subtotal)
	assert.Equal(t, int64(495), p.PrescriptionDiscount)
	assert.Equal(t, DeliveryFee, p.DeliveryCharges)
	assert.Equal(t, p.Subtotal-p.PrescriptionDiscount+p.DeliveryCharges, p.Total)
}

func TestPricePrescriptionCart_DiscountRoundsHalfUp(t *testing.T) {
	// 5% of 9990 = 499.5, rounds to 500
	p := PricePrescriptionCart([]PrescriptionItem{rxItem(9990, 1)})

	assert.Equal(t, int64(500), p.PrescriptionDiscount)
}

func TestPriceCart_PrescriptionItemsTakePrecedence(t *testing.T) {
	regular := []RegularItem{{ID: "i1", ItemKind: ItemKindProduct, Price: 100000, Quantity: 1}}
	rx := []PrescriptionItem{rxItem(10000, 1)}

	p := PriceCart(regular, rx)

	// Priced on the prescription path only
	assert.Equal(t, int64(10000), p.Subtotal)
	assert.NotZero(t, p.PrescriptionDiscount)
}

func TestPriceCart_PlainPathWhenNoPrescriptionItems(t *testing.T) {
	regular := []RegularItem{{ID: "i1", ItemKind: ItemKindProduct, Price: 100000, Quantity: 1}}

	p := PriceCart(regular, nil)

	assert.Equal(t, int64(100000), p.Subtotal)
	assert.Equal(t, int64(0), p.PrescriptionDiscount)
}

// Rs 1000 checkout: GST 120, free delivery above Rs 499, total 1120.
func TestPriceCheckout_GSTScenario(t *testing.T) {
	c := PriceCheckout(100000)

	assert.Equal(t, int64(12000), c.GSTAmount)
	assert.Equal(t, int64(0), c.DeliveryCharges)
	assert.Equal(t, int64(112000), c.Total)
}

func TestPriceCheckout_BelowThreshold(t *testing.T) {
	c := PriceCheckout(30000)

	assert.Equal(t, int64(3600), c.GSTAmount)
	assert.Equal(t, DeliveryFee, c.DeliveryCharges)
	assert.Equal(t, c.Subtotal+c.GSTAmount+c.DeliveryCharges, c.Total)
}

func TestPriceCheckout_DeliveryFeeBoundary(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		fee      int64
	}{
		{"just below threshold", PlainFreeDeliveryMin - 1, DeliveryFee},
		{"at threshold", PlainFreeDeliveryMin, 0},
		{"above threshold", PlainFreeDeliveryMin + 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := PriceCheckout(tt.subtotal)
			if c.DeliveryCharges != tt.fee {
				t.Errorf("expected fee %d, got %d", tt.fee, c.DeliveryCharges)
			}
		})
	}
}
