package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ludoteka/storefront/internal/domain"
	"github.com/ludoteka/storefront/internal/platform/httpx"
)

// WishlistStore is the slice of the wishlist store the HTTP surface needs.
type WishlistStore interface {
	Add(ctx context.Context, product domain.Product)
	Remove(ctx context.Context, productID int64)
	Toggle(ctx context.Context, product domain.Product) bool
	Clear(ctx context.Context)
	Items() []domain.Product
	Count() int
}

// WishlistHandlers exposes the wishlist endpoints.
type WishlistHandlers struct {
	wishlist WishlistStore
	catalog  ProductFetcher
}

// NewWishlistHandlers constructs handlers over the wishlist store and catalog.
func NewWishlistHandlers(wishlist WishlistStore, catalog ProductFetcher) *WishlistHandlers {
	return &WishlistHandlers{wishlist: wishlist, catalog: catalog}
}

// Routes wires the /wishlist endpoints onto the provided router.
func (h *WishlistHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getWishlist)
	r.Delete("/", h.clearWishlist)
	r.Post("/items", h.addItem)
	r.Post("/toggle", h.toggleItem)
	r.Delete("/items/{productID}", h.removeItem)
}

func (h *WishlistHandlers) getWishlist(w http.ResponseWriter, _ *http.Request) {
	h.writeWishlist(w)
}

func (h *WishlistHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	product, ok := h.resolveProduct(w, r)
	if !ok {
		return
	}
	h.wishlist.Add(ctx, product)
	h.writeWishlist(w)
}

func (h *WishlistHandlers) toggleItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	product, ok := h.resolveProduct(w, r)
	if !ok {
		return
	}
	saved := h.wishlist.Toggle(ctx, product)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"saved":    saved,
		"products": buildProductPayloads(h.wishlist.Items()),
		"count":    h.wishlist.Count(),
	})
}

func (h *WishlistHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}
	h.wishlist.Remove(r.Context(), productID)
	h.writeWishlist(w)
}

func (h *WishlistHandlers) clearWishlist(w http.ResponseWriter, r *http.Request) {
	h.wishlist.Clear(r.Context())
	h.writeWishlist(w)
}

func (h *WishlistHandlers) resolveProduct(w http.ResponseWriter, r *http.Request) (domain.Product, bool) {
	ctx := r.Context()
	var req struct {
		Slug string `json:"slug"`
	}
	if err := decodeJSONBody(r, maxCartBodySize, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return domain.Product{}, false
	}
	if strings.TrimSpace(req.Slug) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "slug is required", http.StatusBadRequest))
		return domain.Product{}, false
	}

	product, err := h.catalog.GetProduct(ctx, req.Slug)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return domain.Product{}, false
	}
	return product, true
}

func (h *WishlistHandlers) writeWishlist(w http.ResponseWriter) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"products": buildProductPayloads(h.wishlist.Items()),
		"count":    h.wishlist.Count(),
	})
}
