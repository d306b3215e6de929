package domain

import "time"

type ItemKind string

const (
	ItemKindService      ItemKind = "service"
	ItemKindProduct      ItemKind = "product"
	ItemKindSubscription ItemKind = "subscription"
	ItemKindPackage      ItemKind = "package"
)

func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindService, ItemKindProduct, ItemKindSubscription, ItemKindPackage:
		return true
	}
	return false
}

// LineItem is the closed union of the two cart item flavours. Dispatch is a
// type switch on the concrete type, never an id lookup against a side list.
type LineItem interface {
	LineID() string
	Kind() ItemKind
	UnitPrice() int64
	Qty() int
}

// RegularItem is a non-prescription cart line: a service booking, an OTC
// product, a subscription or a care package. Prices are paisa.
type RegularItem struct {
	ID       string    `bson:"item_id" json:"id"`
	Name     string    `bson:"name" json:"name"`
	ItemKind ItemKind  `bson:"kind" json:"kind"`
	Price    int64     `bson:"unit_price" json:"unit_price"`
	Quantity int       `bson:"quantity" json:"quantity"`
	ImageRef string    `bson:"image_ref,omitempty" json:"image_ref,omitempty"`
	VendorID string    `bson:"vendor_id,omitempty" json:"vendor_id,omitempty"`
	AddedAt  time.Time `bson:"added_at" json:"added_at"`
}

func (i RegularItem) LineID() string   { return i.ID }
func (i RegularItem) Kind() ItemKind   { return i.ItemKind }
func (i RegularItem) UnitPrice() int64 { return i.Price }
func (i RegularItem) Qty() int         { return i.Quantity }

// PrescriptionItem is a medicine line gated on a verified prescription. It is
// persisted server-side keyed by user and carries an optimistic version so
// concurrent quantity/remove mutations cannot silently overwrite each other.
type PrescriptionItem struct {
	ID                 string `json:"id"`
	PrescriptionItemID string `json:"prescription_item_id"`
	PrescriptionID     string `json:"prescription_id"`
	MedicineID         string `json:"medicine_id"`
	MedicineName       string `json:"medicine_name"`
	Price              int64  `json:"unit_price"`
	Quantity           int    `json:"quantity"`
	Version            int64  `json:"version"`
}

func (i PrescriptionItem) LineID() string   { return i.ID }
func (i PrescriptionItem) Kind() ItemKind   { return ItemKindProduct }
func (i PrescriptionItem) UnitPrice() int64 { return i.Price }
func (i PrescriptionItem) Qty() int         { return i.Quantity }

// Cart is the regular (non-prescription) cart document. Saved holds the
// save-for-later list; removing an item that lives only in Saved never
// touches the active items.
type Cart struct {
	ID        string        `bson:"_id,omitempty" json:"-"`
	UserID    string        `bson:"user_id" json:"user_id"`
	Items     []RegularItem `bson:"items" json:"items"`
	Saved     []RegularItem `bson:"saved" json:"saved"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updated_at"`
}
