package handlers

import (
	"github.com/ludoteka/storefront/internal/domain"
)

type productPayload struct {
	ID              int64  `json:"id"`
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	Category        string `json:"category,omitempty"`
	Description     string `json:"description,omitempty"`
	Price           string `json:"price"`
	EffectivePrice  string `json:"effective_price"`
	Stock           int    `json:"stock"`
	Image           string `json:"image,omitempty"`
	Available       bool   `json:"available"`
	IsNew           bool   `json:"is_new"`
	HasDiscount     bool   `json:"has_discount"`
	DiscountPercent int    `json:"discount_percent,omitempty"`
}

type cartLinePayload struct {
	Product  productPayload `json:"product"`
	Quantity int            `json:"quantity"`
	Subtotal string         `json:"subtotal"`
}

type invoiceLinePayload struct {
	ProductID int64  `json:"product_id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

func buildProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:              product.ID,
		Slug:            product.Slug,
		Name:            product.Name,
		Category:        product.Category,
		Description:     product.Description,
		Price:           product.Price.StringFixed(2),
		EffectivePrice:  product.EffectivePrice().StringFixed(2),
		Stock:           product.Stock,
		Image:           product.Image,
		Available:       product.Available,
		IsNew:           product.IsNew,
		HasDiscount:     product.HasDiscount,
		DiscountPercent: product.DiscountPercent,
	}
}

func buildProductPayloads(products []domain.Product) []productPayload {
	payloads := make([]productPayload, 0, len(products))
	for _, product := range products {
		payloads = append(payloads, buildProductPayload(product))
	}
	return payloads
}

func buildCartLinePayloads(lines []domain.CartLine) []cartLinePayload {
	payloads := make([]cartLinePayload, 0, len(lines))
	for _, line := range lines {
		payloads = append(payloads, cartLinePayload{
			Product:  buildProductPayload(line.Product),
			Quantity: line.Quantity,
			Subtotal: line.Subtotal().StringFixed(2),
		})
	}
	return payloads
}

func buildInvoiceLinePayloads(lines []domain.InvoiceLine) []invoiceLinePayload {
	payloads := make([]invoiceLinePayload, 0, len(lines))
	for _, line := range lines {
		payloads = append(payloads, invoiceLinePayload{
			ProductID: line.ProductID,
			Slug:      line.Slug,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Subtotal:  line.Subtotal.StringFixed(2),
		})
	}
	return payloads
}
