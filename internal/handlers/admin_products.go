package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ludoteka/storefront/internal/admin"
	"github.com/ludoteka/storefront/internal/catalog"
	"github.com/ludoteka/storefront/internal/domain"
	"github.com/ludoteka/storefront/internal/platform/httpx"
)

// ProductAdmin is the slice of the admin service the HTTP surface needs.
type ProductAdmin interface {
	Refresh(ctx context.Context) error
	List() []domain.Product
	Create(ctx context.Context, input admin.Input) (domain.Product, error)
	Update(ctx context.Context, slug string, input admin.Input) (domain.Product, error)
	Delete(ctx context.Context, slug string, confirmed bool) error
}

// AdminHandlers exposes product management to administrators.
type AdminHandlers struct {
	products ProductAdmin
	sessions SessionReader
}

const (
	maxAdminFormSize = 8 << 20
	maxImageSize     = 5 << 20
)

// NewAdminHandlers constructs the admin endpoints.
func NewAdminHandlers(products ProductAdmin, sessions SessionReader) *AdminHandlers {
	return &AdminHandlers{products: products, sessions: sessions}
}

// Routes wires the /admin endpoints onto the provided router.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Use(h.requireAdmin)
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Patch("/products/{slug}", h.updateProduct)
	r.Delete("/products/{slug}", h.deleteProduct)
}

func (h *AdminHandlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, ok := h.sessions.Current()
		if !ok {
			httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "sign in to manage the catalog", http.StatusUnauthorized))
			return
		}
		if !session.IsAdmin() {
			httpx.WriteError(ctx, w, httpx.NewError("forbidden", "admin role required", http.StatusForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.products.Refresh(ctx); err != nil {
		writeAdminError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"products": buildProductPayloads(h.products.List())})
}

func (h *AdminHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	input, err := parseProductForm(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	product, err := h.products.Create(ctx, input)
	if err != nil {
		writeAdminError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"product": buildProductPayload(product)})
}

func (h *AdminHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	input, err := parseProductForm(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	product, err := h.products.Update(ctx, slug, input)
	if err != nil {
		writeAdminError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"product": buildProductPayload(product)})
}

func (h *AdminHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	confirmed := r.URL.Query().Get("confirm") == "true"

	if err := h.products.Delete(ctx, slug, confirmed); err != nil {
		writeAdminError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// parseProductForm reads the multipart product form, including the optional
// image file.
func parseProductForm(r *http.Request) (admin.Input, error) {
	if err := r.ParseMultipartForm(maxAdminFormSize); err != nil {
		return admin.Input{}, errors.New("request must be multipart/form-data")
	}

	stock, err := formInt(r, "stock")
	if err != nil {
		return admin.Input{}, err
	}
	discount := 0
	if r.FormValue("discount_percent") != "" {
		discount, err = formInt(r, "discount_percent")
		if err != nil {
			return admin.Input{}, err
		}
	}

	input := admin.Input{
		Name:            r.FormValue("name"),
		Slug:            r.FormValue("slug"),
		Category:        r.FormValue("category"),
		Description:     r.FormValue("description"),
		Price:           r.FormValue("price"),
		Stock:           stock,
		Available:       formBool(r, "available"),
		IsNew:           formBool(r, "is_new"),
		HasDiscount:     formBool(r, "has_discount"),
		DiscountPercent: discount,
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return admin.Input{}, errors.New("image upload is malformed")
	default:
		defer file.Close()
		data, readErr := io.ReadAll(io.LimitReader(file, maxImageSize+1))
		if readErr != nil {
			return admin.Input{}, errors.New("image upload could not be read")
		}
		if len(data) > maxImageSize {
			return admin.Input{}, errors.New("image exceeds the allowed size")
		}
		input.Image = &catalog.ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	}

	return input, nil
}

func formInt(r *http.Request, field string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(r.FormValue(field)))
	if err != nil {
		return 0, errors.New(field + " must be an integer")
	}
	return value, nil
}

func formBool(r *http.Request, field string) bool {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(field))) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

func writeAdminError(ctx context.Context, w http.ResponseWriter, err error) {
	var fieldErr *admin.FieldError
	switch {
	case errors.As(err, &fieldErr):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_field", fieldErr.Message, http.StatusBadRequest).
			WithDetails(map[string]any{"field": fieldErr.Field}))
	case errors.Is(err, admin.ErrNotConfirmed):
		httpx.WriteError(ctx, w, httpx.NewError("confirmation_required", "pass confirm=true to delete", http.StatusConflict))
	default:
		writeCatalogError(ctx, w, err)
	}
}
