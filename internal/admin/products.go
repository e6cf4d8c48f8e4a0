package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ludoteka/storefront/internal/catalog"
	"github.com/ludoteka/storefront/internal/domain"
)

// ErrNotConfirmed is returned when a destructive action lacks confirmation.
var ErrNotConfirmed = errors.New("admin: action not confirmed")

// FieldError reports a single invalid form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("admin: %s: %s", e.Field, e.Message)
}

// Input carries the product form fields. Price arrives as text so the form
// can round-trip what the admin typed.
type Input struct {
	Name            string
	Slug            string
	Category        string
	Description     string
	Price           string
	Stock           int
	Available       bool
	IsNew           bool
	HasDiscount     bool
	DiscountPercent int
	Image           *catalog.ImageUpload
}

// CatalogAPI is the slice of the catalog client the service needs.
type CatalogAPI interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, form catalog.ProductForm) (domain.Product, error)
	UpdateProduct(ctx context.Context, slug string, form catalog.ProductForm) (domain.Product, error)
	DeleteProduct(ctx context.Context, slug string) error
}

// Logger receives structured service events.
type Logger func(ctx context.Context, event string, fields map[string]any)

// Deps wires the service's collaborators.
type Deps struct {
	Catalog CatalogAPI
	Logger  Logger
}

// Products manages the admin's view of the catalog.
type Products struct {
	catalog CatalogAPI
	logger  Logger

	mu       sync.Mutex
	products []domain.Product
}

// NewProducts validates deps and constructs the service.
func NewProducts(deps Deps) (*Products, error) {
	if deps.Catalog == nil {
		return nil, errors.New("admin: catalog client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Products{catalog: deps.Catalog, logger: logger}, nil
}

// Refresh re-fetches the full product list from the catalog.
func (p *Products) Refresh(ctx context.Context) error {
	products, err := p.catalog.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("admin: refresh products: %w", err)
	}
	p.mu.Lock()
	p.products = products
	p.mu.Unlock()
	return nil
}

// List returns the last fetched product list.
func (p *Products) List() []domain.Product {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Product, len(p.products))
	copy(out, p.products)
	return out
}

// Create validates the form and registers a new product, then re-fetches the
// listing. When the re-fetch fails the new product is appended locally.
func (p *Products) Create(ctx context.Context, input Input) (domain.Product, error) {
	if err := validateInput(input, false); err != nil {
		return domain.Product{}, err
	}
	product, err := p.catalog.CreateProduct(ctx, toForm(input))
	if err != nil {
		return domain.Product{}, fmt.Errorf("admin: create product: %w", err)
	}

	if err := p.Refresh(ctx); err != nil {
		p.logger(ctx, "admin.refresh.failed", map[string]any{"error": err.Error()})
		p.mu.Lock()
		p.products = append(p.products, product)
		p.mu.Unlock()
	}

	p.logger(ctx, "admin.product.created", map[string]any{"slug": product.Slug})
	return product, nil
}

// Update validates the form and patches the existing product, then re-fetches
// the listing. Category and image are optional on edit and left untouched when
// absent.
func (p *Products) Update(ctx context.Context, slug string, input Input) (domain.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Product{}, &FieldError{Field: "slug", Message: "slug is required"}
	}
	if err := validateInput(input, true); err != nil {
		return domain.Product{}, err
	}
	product, err := p.catalog.UpdateProduct(ctx, slug, toForm(input))
	if err != nil {
		return domain.Product{}, fmt.Errorf("admin: update product %s: %w", slug, err)
	}

	if err := p.Refresh(ctx); err != nil {
		p.logger(ctx, "admin.refresh.failed", map[string]any{"error": err.Error()})
		p.mu.Lock()
		for i := range p.products {
			if p.products[i].Slug == slug {
				p.products[i] = product
				break
			}
		}
		p.mu.Unlock()
	}

	p.logger(ctx, "admin.product.updated", map[string]any{"slug": product.Slug})
	return product, nil
}

// Delete removes the product upstream and drops it from the cached list
// without re-fetching. The caller must confirm the action first.
func (p *Products) Delete(ctx context.Context, slug string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return &FieldError{Field: "slug", Message: "slug is required"}
	}
	if err := p.catalog.DeleteProduct(ctx, slug); err != nil {
		return fmt.Errorf("admin: delete product %s: %w", slug, err)
	}

	p.mu.Lock()
	kept := p.products[:0]
	for _, product := range p.products {
		if product.Slug != slug {
			kept = append(kept, product)
		}
	}
	p.products = kept
	p.mu.Unlock()

	p.logger(ctx, "admin.product.deleted", map[string]any{"slug": slug})
	return nil
}

func validateInput(input Input, editing bool) error {
	if strings.TrimSpace(input.Name) == "" {
		return &FieldError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(input.Slug) == "" {
		return &FieldError{Field: "slug", Message: "slug is required"}
	}
	if !editing && strings.TrimSpace(input.Category) == "" {
		return &FieldError{Field: "category", Message: "category is required"}
	}
	price, err := decimal.NewFromString(strings.TrimSpace(input.Price))
	if err != nil {
		return &FieldError{Field: "price", Message: "price must be a number"}
	}
	if price.IsNegative() {
		return &FieldError{Field: "price", Message: "price cannot be negative"}
	}
	if input.Stock < 0 {
		return &FieldError{Field: "stock", Message: "stock cannot be negative"}
	}
	if input.HasDiscount && (input.DiscountPercent < 1 || input.DiscountPercent > 100) {
		return &FieldError{Field: "discount_percent", Message: "discount must be between 1 and 100"}
	}
	return nil
}

func toForm(input Input) catalog.ProductForm {
	return catalog.ProductForm{
		Name:            strings.TrimSpace(input.Name),
		Slug:            strings.TrimSpace(input.Slug),
		Category:        strings.TrimSpace(input.Category),
		Description:     strings.TrimSpace(input.Description),
		Price:           strings.TrimSpace(input.Price),
		Stock:           input.Stock,
		Available:       input.Available,
		IsNew:           input.IsNew,
		HasDiscount:     input.HasDiscount,
		DiscountPercent: input.DiscountPercent,
		Image:           input.Image,
	}
}
