package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity,omitempty"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

type setOpenRequest struct {
	Open bool `json:"open"`
}

func (h *Handler) sessionCart(r *http.Request) (*cart.Store, error) {
	return h.carts.Get(SessionID(r.Context()))
}

// GetCart — GET /api/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, err := h.sessionCart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(store.Snapshot()))
}

// AddItem — POST /api/cart/items; без quantity добавляется одна единица.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.ProductID == "" {
		h.writeError(w, r, domain.ErrProductRequired)
		return
	}
	product, ok := h.catalog.GetProductByID(req.ProductID)
	if !ok {
		h.writeError(w, r, domain.ErrProductNotFound)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	store, err := h.sessionCart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := store.AddToCart(product, quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(store.Snapshot()))
}

// UpdateItem — PUT /api/cart/items/{productId}; quantity <= 0 удаляет позицию.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.Quantity == nil {
		writeBadRequest(w, errQuantityRequired)
		return
	}
	store, err := h.sessionCart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := store.UpdateQuantity(chi.URLParam(r, "productId"), *req.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(store.Snapshot()))
}

// RemoveItem — DELETE /api/cart/items/{productId}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, err := h.sessionCart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	store.RemoveFromCart(chi.URLParam(r, "productId"))
	writeJSON(w, http.StatusOK, toCartDTO(store.Snapshot()))
}

// ClearCart — DELETE /api/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, err := h.sessionCart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	store.ClearCart()
	writeJSON(w, http.StatusOK, toCartDTO(store.Snapshot()))
}

// SetCartOpen — PUT /api/cart/open
func (h *Handler) SetCartOpen(w http.ResponseWriter, r *http.Request) {
	var req setOpenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	store, err := h.sessionCart(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	store.SetIsCartOpen(req.Open)
	writeJSON(w, http.StatusOK, toCartDTO(store.Snapshot()))
}
