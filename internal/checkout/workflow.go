package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ludoteka/storefront/internal/domain"
	"github.com/ludoteka/storefront/internal/invoice"
)

// ErrEmptyCart is returned when checkout starts with nothing to buy.
var ErrEmptyCart = errors.New("checkout: cart is empty")

// ErrNoSession is returned when no customer is signed in.
var ErrNoSession = errors.New("checkout: no active session")

// FieldError reports a single invalid form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("checkout: %s: %s", e.Field, e.Message)
}

// Contact is the delivery information captured at checkout.
type Contact struct {
	Name    string
	Email   string
	Address string
}

// CardDetails carries the simulated payment card fields.
type CardDetails struct {
	Number string
	Holder string
	Expiry string
	CVV    string
}

// Command is a checkout request for the current cart.
type Command struct {
	Contact       Contact
	PaymentMethod domain.PaymentMethod
	Card          *CardDetails
}

// Confirmation summarizes a completed purchase.
type Confirmation struct {
	InvoiceNumber string
	CustomerName  string
	PaymentMethod domain.PaymentMethod
	Lines         []domain.InvoiceLine
	Total         decimal.Decimal
	Document      invoice.Document
}

// Cart is the slice of the cart store the workflow needs.
type Cart interface {
	Lines() []domain.CartLine
	Snapshot() []domain.InvoiceLine
	Total() decimal.Decimal
	Clear(ctx context.Context)
}

// Catalog adjusts stock and records orders upstream.
type Catalog interface {
	DecrementStock(ctx context.Context, slug string, quantity int) (domain.Product, error)
	CreateOrder(ctx context.Context, uid string, inv domain.Invoice, address string) error
}

// Sessions exposes the signed-in customer.
type Sessions interface {
	Current() (domain.Session, bool)
}

// Invoices renders and persists the purchase invoice.
type Invoices interface {
	Generate(ctx context.Context, uid string, inv domain.Invoice) (invoice.Document, error)
}

// Logger receives structured workflow events.
type Logger func(ctx context.Context, event string, fields map[string]any)

// Deps wires the workflow's collaborators.
type Deps struct {
	Cart     Cart
	Catalog  Catalog
	Sessions Sessions
	Invoices Invoices
	Logger   Logger

	// PaymentDelay simulates the payment gateway round trip.
	PaymentDelay time.Duration

	// Now and NewNumber are overridable for tests.
	Now       func() time.Time
	NewNumber func() string
}

// Workflow runs the purchase sequence for the current cart.
type Workflow struct {
	cart     Cart
	catalog  Catalog
	sessions Sessions
	invoices Invoices
	logger   Logger

	paymentDelay time.Duration
	now          func() time.Time
	newNumber    func() string
}

// NewWorkflow validates deps and constructs the workflow.
func NewWorkflow(deps Deps) (*Workflow, error) {
	if deps.Cart == nil {
		return nil, errors.New("checkout: cart is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("checkout: catalog is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("checkout: sessions are required")
	}
	if deps.Invoices == nil {
		return nil, errors.New("checkout: invoices are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	newNumber := deps.NewNumber
	if newNumber == nil {
		newNumber = invoice.NewNumber
	}
	return &Workflow{
		cart:         deps.Cart,
		catalog:      deps.Catalog,
		sessions:     deps.Sessions,
		invoices:     deps.Invoices,
		logger:       logger,
		paymentDelay: deps.PaymentDelay,
		now:          now,
		newNumber:    newNumber,
	}, nil
}

// Execute validates the command, charges the simulated payment, decrements
// stock upstream and issues the invoice. The cart is cleared only once the
// invoice exists; any earlier failure leaves it intact.
func (w *Workflow) Execute(ctx context.Context, cmd Command) (Confirmation, error) {
	session, ok := w.sessions.Current()
	if !ok {
		return Confirmation{}, ErrNoSession
	}
	lines := w.cart.Lines()
	if len(lines) == 0 {
		return Confirmation{}, ErrEmptyCart
	}
	if err := validate(cmd); err != nil {
		return Confirmation{}, err
	}

	if err := w.simulatePayment(ctx); err != nil {
		return Confirmation{}, err
	}

	if err := w.decrementStock(ctx, lines); err != nil {
		return Confirmation{}, err
	}

	snapshot := w.cart.Snapshot()
	inv := domain.Invoice{
		Number:        w.newNumber(),
		CustomerName:  cmd.Contact.Name,
		CustomerEmail: cmd.Contact.Email,
		PaymentMethod: cmd.PaymentMethod,
		Lines:         snapshot,
		Total:         w.cart.Total(),
		CreatedAt:     w.now(),
	}

	doc, err := w.invoices.Generate(ctx, session.User.UID, inv)
	if err != nil {
		return Confirmation{}, fmt.Errorf("checkout: issue invoice: %w", err)
	}

	if err := w.catalog.CreateOrder(ctx, session.User.UID, inv, cmd.Contact.Address); err != nil {
		w.logger(ctx, "checkout.order.record_failed", map[string]any{
			"invoice": inv.Number,
			"error":   err.Error(),
		})
	}

	w.cart.Clear(ctx)

	w.logger(ctx, "checkout.completed", map[string]any{
		"invoice": inv.Number,
		"total":   inv.Total.StringFixed(2),
		"items":   len(snapshot),
	})

	return Confirmation{
		InvoiceNumber: inv.Number,
		CustomerName:  inv.CustomerName,
		PaymentMethod: inv.PaymentMethod,
		Lines:         snapshot,
		Total:         inv.Total,
		Document:      doc,
	}, nil
}

func (w *Workflow) simulatePayment(ctx context.Context) error {
	if w.paymentDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(w.paymentDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decrementStock adjusts every line's stock concurrently and reports all
// failures together. Lines that already succeeded are not compensated.
func (w *Workflow) decrementStock(ctx context.Context, lines []domain.CartLine) error {
	errs := make([]error, len(lines))
	var wg sync.WaitGroup
	for i, line := range lines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.catalog.DecrementStock(ctx, line.Product.Slug, line.Quantity); err != nil {
				errs[i] = fmt.Errorf("checkout: decrement %s: %w", line.Product.Slug, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func validate(cmd Command) error {
	if strings.TrimSpace(cmd.Contact.Name) == "" {
		return &FieldError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(cmd.Contact.Email) == "" {
		return &FieldError{Field: "email", Message: "email is required"}
	}
	if strings.TrimSpace(cmd.Contact.Address) == "" {
		return &FieldError{Field: "address", Message: "address is required"}
	}
	switch cmd.PaymentMethod {
	case domain.PaymentCard:
		return validateCard(cmd.Card)
	case domain.PaymentCashOnDelivery:
		return nil
	default:
		return &FieldError{Field: "payment_method", Message: "unsupported payment method"}
	}
}

func validateCard(card *CardDetails) error {
	if card == nil {
		return &FieldError{Field: "card", Message: "card details are required"}
	}
	number := strings.ReplaceAll(strings.TrimSpace(card.Number), " ", "")
	if len(number) != 16 || !digitsOnly(number) {
		return &FieldError{Field: "card_number", Message: "card number must have 16 digits"}
	}
	if strings.TrimSpace(card.Holder) == "" {
		return &FieldError{Field: "card_holder", Message: "card holder is required"}
	}
	if !validExpiry(card.Expiry) {
		return &FieldError{Field: "card_expiry", Message: "expiry must be MM/YY"}
	}
	cvv := strings.TrimSpace(card.CVV)
	if len(cvv) != 3 || !digitsOnly(cvv) {
		return &FieldError{Field: "card_cvv", Message: "cvv must have 3 digits"}
	}
	return nil
}

func validExpiry(expiry string) bool {
	parts := strings.Split(strings.TrimSpace(expiry), "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return false
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return false
	}
	if !digitsOnly(parts[1]) {
		return false
	}
	return true
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
