package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/onemedi/onemedi-api/internal/payment"
	"github.com/onemedi/onemedi-api/internal/repository"
	"github.com/onemedi/onemedi-api/internal/service"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps service and repository errors onto HTTP statuses.
// Anything unmapped is a 500 with the detail kept out of the response.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, service.ErrCartNotEligible):
		respondError(w, http.StatusUnprocessableEntity, "cart_not_eligible", err.Error())
	case errors.Is(err, service.ErrInvalidItemKind):
		respondError(w, http.StatusBadRequest, "invalid_item_kind", err.Error())
	case errors.Is(err, service.ErrSelectionIncomplete):
		respondError(w, http.StatusBadRequest, "selection_incomplete", "delivery address and payment method are required")
	case errors.Is(err, service.ErrUnknownPrescription):
		respondError(w, http.StatusNotFound, "prescription_not_found", "prescription not found")
	case errors.Is(err, service.ErrNotSessionOwner):
		respondError(w, http.StatusForbidden, "forbidden", "checkout session belongs to another user")
	case errors.Is(err, service.ErrSessionExpired):
		respondError(w, http.StatusGone, "session_expired", "checkout session has expired")
	case errors.Is(err, service.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, repository.ErrVersionConflict):
		respondError(w, http.StatusConflict, "version_conflict", "item was modified concurrently, refresh and retry")
	case errors.Is(err, repository.ErrStaleStatus):
		respondError(w, http.StatusConflict, "stale_status", "checkout session changed concurrently")
	case errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrPrescriptionItemNotFound),
		errors.Is(err, repository.ErrPrescriptionNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrAddressNotFound),
		errors.Is(err, repository.ErrMedicineNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, payment.ErrUnsupportedMethod):
		respondError(w, http.StatusBadRequest, "unsupported_payment_method", err.Error())
	case errors.Is(err, payment.ErrPaymentDeclined):
		respondError(w, http.StatusPaymentRequired, "payment_declined", "payment was declined")
	case errors.Is(err, payment.ErrPaymentUnavailable):
		respondError(w, http.StatusServiceUnavailable, "payment_unavailable", "payment provider unavailable, try again later")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
