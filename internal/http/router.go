package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterDeps struct {
	Cart          *CartHandler
	Prescription  *PrescriptionCartHandler
	Checkout      *CheckoutHandler
	Orders        *OrdersHandler
	Catalog       *CatalogHandler
	Addresses     *AddressHandler
	Notifications *NotificationsHandler

	JWTSecret      string
	RequestTimeout time.Duration
}

// NewRouter wires every handler behind the shared middleware stack. The
// catalog routes are public; everything else requires a bearer token.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(deps.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/medicines", func(r chi.Router) {
			r.Get("/", deps.Catalog.SearchMedicines)
			r.Get("/{medicine_id}", deps.Catalog.GetMedicine)
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(deps.JWTSecret))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", deps.Cart.GetCart)
				r.Delete("/", deps.Cart.ClearCart)
				r.Post("/items", deps.Cart.AddItem)
				r.Put("/items/{item_id}", deps.Cart.UpdateQuantity)
				r.Delete("/items/{item_id}", deps.Cart.RemoveItem)
				r.Post("/items/{item_id}/save", deps.Cart.SaveForLater)
				r.Get("/saved", deps.Cart.ListSavedItems)
				r.Post("/saved/{item_id}/move-to-cart", deps.Cart.MoveToCart)
				r.Delete("/saved/{item_id}", deps.Cart.RemoveSavedItem)

				r.Post("/prescriptions/{prescription_id}/items", deps.Prescription.AddItems)
				r.Put("/prescription-items/{item_id}", deps.Prescription.UpdateQuantity)
				r.Delete("/prescription-items/{item_id}", deps.Prescription.RemoveItem)
				r.Get("/validate", deps.Prescription.Validate)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", deps.Checkout.StartCheckout)
				r.Get("/{session_id}", deps.Checkout.GetSession)
				r.Put("/{session_id}/address", deps.Checkout.SelectAddress)
				r.Put("/{session_id}/payment-method", deps.Checkout.SelectPaymentMethod)
				r.Post("/{session_id}/place-order", deps.Checkout.PlaceOrder)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", deps.Orders.ListOrders)
				r.Get("/{order_id}", deps.Orders.GetOrder)
			})

			r.Get("/addresses", deps.Addresses.ListAddresses)
			r.Get("/notifications", deps.Notifications.ListNotifications)
		})
	})

	return otelhttp.NewHandler(r, "onemedi-api")
}
