package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/cartloom/storefront-api/internal/domain/basket"
	"github.com/cartloom/storefront-api/internal/domain/product"
)

type productResponse struct {
	ID       string  `json:"id"`
	LegacyID int64   `json:"legacyId,omitempty"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// ListProducts returns every product in the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("list products", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	respondJSON(w, http.StatusOK, out)
}

// GetProduct returns a single product, addressed by legacy ID or UUID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ref, err := basket.ParseCartReference(chi.URLParam(r, "productID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}

	var p *product.Product
	switch ref.Kind {
	case basket.RefLegacyID:
		p, err = h.products.GetByLegacyID(r.Context(), ref.LegacyID)
	case basket.RefUUID:
		p, err = h.products.GetByUUID(r.Context(), ref.UUID)
	}
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, toProductResponse(*p))
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:       p.ID,
		LegacyID: p.LegacyID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price.InexactFloat64(),
	}
}
