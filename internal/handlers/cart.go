package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ludoteka/storefront/internal/domain"
	"github.com/ludoteka/storefront/internal/platform/httpx"
)

// CartStore is the slice of the cart store the HTTP surface needs.
type CartStore interface {
	Add(ctx context.Context, product domain.Product)
	Remove(ctx context.Context, productID int64)
	UpdateQuantity(ctx context.Context, productID int64, quantity int)
	Clear(ctx context.Context)
	Lines() []domain.CartLine
	ItemCount() int
	Total() decimal.Decimal
}

// ProductFetcher resolves a product by slug before it enters the cart.
type ProductFetcher interface {
	GetProduct(ctx context.Context, slug string) (domain.Product, error)
}

// CartHandlers exposes the cart endpoints.
type CartHandlers struct {
	cart    CartStore
	catalog ProductFetcher
}

const maxCartBodySize = 8 * 1024

// NewCartHandlers constructs handlers over the cart store and catalog.
func NewCartHandlers(cart CartStore, catalog ProductFetcher) *CartHandlers {
	return &CartHandlers{cart: cart, catalog: catalog}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{productID}", h.updateItem)
	r.Delete("/items/{productID}", h.removeItem)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w)
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		Slug string `json:"slug"`
	}
	if err := decodeJSONBody(r, maxCartBodySize, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Slug) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "slug is required", http.StatusBadRequest))
		return
	}

	product, err := h.catalog.GetProduct(ctx, req.Slug)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	h.cart.Add(ctx, product)
	h.writeCart(w)
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSONBody(r, maxCartBodySize, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	h.cart.UpdateQuantity(ctx, productID, req.Quantity)
	h.writeCart(w)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}
	h.cart.Remove(r.Context(), productID)
	h.writeCart(w)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear(r.Context())
	h.writeCart(w)
}

func (h *CartHandlers) writeCart(w http.ResponseWriter) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"lines":      buildCartLinePayloads(h.cart.Lines()),
		"item_count": h.cart.ItemCount(),
		"total":      h.cart.Total().StringFixed(2),
	})
}

func parseProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "productID"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "product id must be a positive integer", http.StatusBadRequest))
		return 0, false
	}
	return id, true
}
