package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the canonical catalog product shared across layers. The upstream
// catalog API speaks Spanish field names; the catalog client normalises those
// into this shape at the wire boundary and nothing else in the codebase sees
// the upstream vocabulary.
type Product struct {
	ID              int64
	Slug            string
	Name            string
	Category        string
	Description     string
	Price           decimal.Decimal
	Stock           int
	Image           string
	Available       bool
	IsNew           bool
	HasDiscount     bool
	DiscountPercent int
}

// Category groups products for browsing.
type Category struct {
	ID       int64
	Slug     string
	Name     string
	Products []Product
}

// CartLine pairs a product snapshot with the quantity carried in the cart.
// The snapshot is taken at add time; stock and price reflect that moment.
type CartLine struct {
	Product  Product
	Quantity int
}

// Role distinguishes customers from back-office operators.
type Role string

const (
	// RoleCustomer is the default role assigned on first sign-in.
	RoleCustomer Role = "customer"
	// RoleAdmin unlocks the product management surface.
	RoleAdmin Role = "admin"
)

// User carries the identity attributes returned by the auth backend.
type User struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Session is an authenticated user plus the role resolved from the user
// document store.
type Session struct {
	User User
	Role Role
}

// IsAdmin reports whether the session may use the admin surface.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// PaymentMethod enumerates the checkout payment options.
type PaymentMethod string

const (
	// PaymentCard is a simulated card payment collected with full card details.
	PaymentCard PaymentMethod = "card"
	// PaymentCashOnDelivery defers payment to delivery time.
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// InvoiceLine is the per-product row recorded on an invoice.
type InvoiceLine struct {
	ProductID int64
	Slug      string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Invoice is the purchase record produced by a successful checkout.
type Invoice struct {
	Number        string
	CustomerName  string
	CustomerEmail string
	Lines         []InvoiceLine
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
	FileURL       string
}
