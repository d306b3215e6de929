package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/onemedi/onemedi-api/internal/domain"
	"github.com/onemedi/onemedi-api/internal/service"
)

type CartHandler struct {
	carts *service.CartService
}

func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type AddItemRequestDTO struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Price    int64  `json:"unit_price"`
	Quantity int    `json:"quantity"`
	ImageRef string `json:"image_ref,omitempty"`
	VendorID string `json:"vendor_id,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	view, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ItemID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id is required")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "unit_price must not be negative")
		return
	}
	if req.Quantity < 1 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	item := domain.RegularItem{
		ID:       req.ItemID,
		Name:     req.Name,
		ItemKind: domain.ItemKind(req.Kind),
		Price:    req.Price,
		Quantity: req.Quantity,
		ImageRef: req.ImageRef,
		VendorID: req.VendorID,
	}

	if err := h.carts.AddItem(r.Context(), userID, item); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondWithCart(w, r, userID, http.StatusCreated)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	itemID := chi.URLParam(r, "item_id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	if err := h.carts.UpdateItemQuantity(r.Context(), userID, itemID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondWithCart(w, r, userID, http.StatusOK)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.carts.RemoveItem(r.Context(), userID, chi.URLParam(r, "item_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondWithCart(w, r, userID, http.StatusOK)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.carts.ClearCart(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondWithCart(w, r, userID, http.StatusOK)
}

func (h *CartHandler) SaveForLater(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.carts.SaveForLater(r.Context(), userID, chi.URLParam(r, "item_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondWithCart(w, r, userID, http.StatusOK)
}

func (h *CartHandler) ListSavedItems(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	view, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view.Saved)
}

func (h *CartHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.carts.MoveToCart(r.Context(), userID, chi.URLParam(r, "item_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondWithCart(w, r, userID, http.StatusOK)
}

func (h *CartHandler) RemoveSavedItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.carts.RemoveSavedItem(r.Context(), userID, chi.URLParam(r, "item_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondWithCart(w, r, userID, http.StatusOK)
}

// respondWithCart returns the refreshed merged view after a mutation, so the
// client never needs a follow-up GET to learn the new pricing.
func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, userID string, status int) {
	view, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, status, view)
}
