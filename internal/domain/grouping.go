package domain

// GroupedCart is the display partition of the merged cart: four buckets keyed
// by item kind, with prescription items always in their own bucket. Because
// PrescriptionItem is a distinct type, the products bucket can never double
// count a prescription line. Care packages are shown with services.
type GroupedCart struct {
	Services      []RegularItem      `json:"services"`
	Products      []RegularItem      `json:"products"`
	Subscriptions []RegularItem      `json:"subscriptions"`
	Prescriptions []PrescriptionItem `json:"prescriptions"`
}

func GroupItems(regular []RegularItem, rx []PrescriptionItem) GroupedCart {
	g := GroupedCart{Prescriptions: rx}
	for _, item := range regular {
		switch item.ItemKind {
		case ItemKindService, ItemKindPackage:
			g.Services = append(g.Services, item)
		case ItemKindSubscription:
			g.Subscriptions = append(g.Subscriptions, item)
		default:
			g.Products = append(g.Products, item)
		}
	}
	return g
}
