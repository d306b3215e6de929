package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/onemedi/onemedi-api/internal/domain"
	"github.com/onemedi/onemedi-api/internal/repository"
	"github.com/onemedi/onemedi-api/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type SelectAddressRequestDTO struct {
	AddressID string `json:"address_id"`
}

type SelectPaymentMethodRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
}

type CheckoutSessionDTO struct {
	ID              string                `json:"id"`
	Status          domain.CheckoutStatus `json:"status"`
	CartSnapshot    json.RawMessage       `json:"cart_snapshot"`
	AddressID       *string               `json:"address_id,omitempty"`
	PaymentMethod   *string               `json:"payment_method,omitempty"`
	Subtotal        int64                 `json:"subtotal"`
	GSTAmount       int64                 `json:"gst_amount"`
	DeliveryCharges int64                 `json:"delivery_charges"`
	TotalAmount     int64                 `json:"total_amount"`
	LastError       *string               `json:"last_error,omitempty"`
	ExpiresAt       time.Time             `json:"expires_at"`
	CreatedAt       time.Time             `json:"created_at"`
}

func sessionDTO(s *repository.CheckoutSession) CheckoutSessionDTO {
	return CheckoutSessionDTO{
		ID:              s.ID,
		Status:          s.Status,
		CartSnapshot:    json.RawMessage(s.CartSnapshot),
		AddressID:       s.AddressID,
		PaymentMethod:   s.PaymentMethod,
		Subtotal:        s.Subtotal,
		GSTAmount:       s.GSTAmount,
		DeliveryCharges: s.DeliveryCharges,
		TotalAmount:     s.TotalAmount,
		LastError:       s.LastError,
		ExpiresAt:       s.ExpiresAt,
		CreatedAt:       s.CreatedAt,
	}
}

// StartCheckout opens a session for the current cart. The Idempotency-Key
// header is required; repeating it returns the already-created session.
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key", "Idempotency-Key header is required")
		return
	}

	session, err := h.checkout.StartCheckout(r.Context(), userID, idempotencyKey)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, sessionDTO(session))
}

func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	session, err := h.checkout.GetSession(r.Context(), userID, chi.URLParam(r, "session_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionDTO(session))
}

func (h *CheckoutHandler) SelectAddress(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	sessionID := chi.URLParam(r, "session_id")

	var req SelectAddressRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.AddressID == "" {
		respondError(w, http.StatusBadRequest, "invalid_address_id", "address_id is required")
		return
	}

	if err := h.checkout.SelectAddress(r.Context(), userID, sessionID, req.AddressID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondWithSession(w, r, userID, sessionID)
}

func (h *CheckoutHandler) SelectPaymentMethod(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	sessionID := chi.URLParam(r, "session_id")

	var req SelectPaymentMethodRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if err := h.checkout.SelectPaymentMethod(r.Context(), userID, sessionID, method); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondWithSession(w, r, userID, sessionID)
}

func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	order, err := h.checkout.PlaceOrder(r.Context(), userID, chi.URLParam(r, "session_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

func (h *CheckoutHandler) respondWithSession(w http.ResponseWriter, r *http.Request, userID, sessionID string) {
	session, err := h.checkout.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionDTO(session))
}
