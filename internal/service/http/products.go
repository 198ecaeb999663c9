package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ListProducts — GET /api/products?category=&sort=
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products := h.catalog.List(catalog.Query{
		Category: q.Get("category"),
		Sort:     catalog.ParseSortOrder(q.Get("sort")),
	})
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// FeaturedProducts — GET /api/products/featured?limit=
func (h *Handler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toProductDTOs(h.catalog.Featured(queryLimit(r))))
}

// GetProduct — GET /api/products/{productId}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.catalog.GetProductByID(chi.URLParam(r, "productId"))
	if !ok {
		h.writeError(w, r, domain.ErrProductNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(product))
}

// RelatedProducts — GET /api/products/{productId}/related?limit=
func (h *Handler) RelatedProducts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productId")
	if _, ok := h.catalog.GetProductByID(id); !ok {
		h.writeError(w, r, domain.ErrProductNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(h.catalog.Related(id, queryLimit(r))))
}

// ListCategories — GET /api/categories
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.GetAllCategories())
}
