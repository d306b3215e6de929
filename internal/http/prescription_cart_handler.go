package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/onemedi/onemedi-api/internal/service"
)

type PrescriptionCartHandler struct {
	rx *service.PrescriptionCartService
}

func NewPrescriptionCartHandler(rx *service.PrescriptionCartService) *PrescriptionCartHandler {
	return &PrescriptionCartHandler{rx: rx}
}

type MedicineSelectionDTO struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int    `json:"quantity"`
}

type AddPrescriptionItemsRequestDTO struct {
	Items []MedicineSelectionDTO `json:"items"`
}

type UpdatePrescriptionItemRequestDTO struct {
	Quantity int   `json:"quantity"`
	Version  int64 `json:"version"`
}

// AddItems adds the selected medicines of one prescription to the cart. The
// line prices come from the catalog; the request carries only ids and
// quantities.
func (h *PrescriptionCartHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	prescriptionID := chi.URLParam(r, "prescription_id")

	var req AddPrescriptionItemsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "items must not be empty")
		return
	}

	selections := make([]service.MedicineSelection, 0, len(req.Items))
	for _, item := range req.Items {
		if item.MedicineID == "" {
			respondError(w, http.StatusBadRequest, "invalid_medicine_id", "medicine_id is required")
			return
		}
		if item.Quantity < 1 || item.Quantity > 99 {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
			return
		}
		selections = append(selections, service.MedicineSelection{
			MedicineID: item.MedicineID,
			Quantity:   item.Quantity,
		})
	}

	items, err := h.rx.AddPrescriptionItems(r.Context(), userID, prescriptionID, selections)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, items)
}

func (h *PrescriptionCartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	itemID := chi.URLParam(r, "item_id")

	var req UpdatePrescriptionItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity < 1 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	if req.Version < 1 {
		respondError(w, http.StatusBadRequest, "invalid_version", "version is required")
		return
	}

	if err := h.rx.UpdateItemQuantity(r.Context(), userID, itemID, req.Quantity, req.Version); err != nil {
		handleServiceError(w, err)
		return
	}

	items, err := h.rx.UserItems(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *PrescriptionCartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	itemID := chi.URLParam(r, "item_id")

	version, err := strconv.ParseInt(r.URL.Query().Get("version"), 10, 64)
	if err != nil || version < 1 {
		respondError(w, http.StatusBadRequest, "invalid_version", "version query parameter is required")
		return
	}

	if err := h.rx.RemoveItem(r.Context(), userID, itemID, version); err != nil {
		handleServiceError(w, err)
		return
	}

	items, err := h.rx.UserItems(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Validate reports checkout eligibility of the prescription items without
// starting a checkout.
func (h *PrescriptionCartHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	items, err := h.rx.UserItems(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.rx.ValidateCartForCheckout(r.Context(), items)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
