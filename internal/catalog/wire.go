package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/ludoteka/storefront/internal/domain"
)

// descriptionPolicy strips all markup from product descriptions. The upstream
// catalog stores operator-entered text and has served stray HTML before.
var descriptionPolicy = bluemonday.StrictPolicy()

// productPayload mirrors the upstream product representation. The API speaks
// Spanish field names; this struct is the only place they appear.
type productPayload struct {
	ID              int64       `json:"id"`
	Name            string      `json:"nombre"`
	Slug            string      `json:"slug"`
	Category        string      `json:"categoria"`
	Description     string      `json:"descripcion"`
	Price           json.Number `json:"precio"`
	Stock           int         `json:"stock"`
	Image           string      `json:"imagen"`
	Available       *bool       `json:"disponible"`
	IsNew           bool        `json:"es_nuevo"`
	HasDiscount     bool        `json:"tiene_descuento"`
	DiscountPercent int         `json:"porcentaje_descuento"`
}

// categoryPayload mirrors the upstream category representation, including the
// nested product listing the API returns for browsing.
type categoryPayload struct {
	ID       int64            `json:"id"`
	Name     string           `json:"nombre"`
	Slug     string           `json:"slug"`
	Products []productPayload `json:"productos"`
}

type decrementPayload struct {
	Quantity int `json:"cantidad"`
}

type errorPayload struct {
	Detail string `json:"detail"`
}

// orderPayload is the purchase record the upstream order endpoint accepts.
type orderPayload struct {
	UserUID       string             `json:"user_uid,omitempty"`
	Email         string             `json:"email"`
	CustomerName  string             `json:"nombre_cliente"`
	Address       string             `json:"direccion"`
	Total         string             `json:"total"`
	PaymentMethod string             `json:"metodo_pago"`
	Items         []orderItemPayload `json:"items"`
}

type orderItemPayload struct {
	ProductID int64  `json:"producto"`
	Quantity  int    `json:"cantidad"`
	UnitPrice string `json:"precio_unitario"`
}

func (p productPayload) toDomain() (domain.Product, error) {
	price, err := parsePrice(p.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("catalog: product %s: %w", p.Slug, err)
	}

	available := true
	if p.Available != nil {
		available = *p.Available
	}

	return domain.Product{
		ID:              p.ID,
		Slug:            strings.TrimSpace(p.Slug),
		Name:            strings.TrimSpace(p.Name),
		Category:        strings.TrimSpace(p.Category),
		Description:     strings.TrimSpace(descriptionPolicy.Sanitize(p.Description)),
		Price:           price,
		Stock:           p.Stock,
		Image:           strings.TrimSpace(p.Image),
		Available:       available,
		IsNew:           p.IsNew,
		HasDiscount:     p.HasDiscount,
		DiscountPercent: p.DiscountPercent,
	}, nil
}

func (p categoryPayload) toDomain() (domain.Category, error) {
	products, err := productsToDomain(p.Products)
	if err != nil {
		return domain.Category{}, err
	}
	return domain.Category{
		ID:       p.ID,
		Slug:     strings.TrimSpace(p.Slug),
		Name:     strings.TrimSpace(p.Name),
		Products: products,
	}, nil
}

func productsToDomain(payloads []productPayload) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(payloads))
	for _, payload := range payloads {
		product, err := payload.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

// parsePrice accepts the DecimalField string the API serialises, or a bare
// number when a proxy rewrites the payload.
func parsePrice(raw json.Number) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw.String())
	if value == "" {
		return decimal.Zero, nil
	}
	price, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price %q: %w", value, err)
	}
	return price, nil
}

func orderFromInvoice(uid string, invoice domain.Invoice, address string) orderPayload {
	items := make([]orderItemPayload, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		items = append(items, orderItemPayload{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
		})
	}
	return orderPayload{
		UserUID:       strings.TrimSpace(uid),
		Email:         strings.TrimSpace(invoice.CustomerEmail),
		CustomerName:  strings.TrimSpace(invoice.CustomerName),
		Address:       strings.TrimSpace(address),
		Total:         invoice.Total.StringFixed(2),
		PaymentMethod: string(invoice.PaymentMethod),
		Items:         items,
	}
}
