package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ludoteka/storefront/internal/domain"
	"github.com/ludoteka/storefront/internal/invoice"
	"github.com/ludoteka/storefront/internal/platform/httpx"
)

// InvoiceLister returns a user's stored invoice records.
type InvoiceLister interface {
	List(ctx context.Context, uid string) ([]invoice.Record, error)
}

// SessionReader exposes the signed-in customer.
type SessionReader interface {
	Current() (domain.Session, bool)
}

// InvoiceHandlers exposes the purchase history endpoints.
type InvoiceHandlers struct {
	invoices InvoiceLister
	sessions SessionReader
}

// NewInvoiceHandlers constructs the invoice endpoints.
func NewInvoiceHandlers(invoices InvoiceLister, sessions SessionReader) *InvoiceHandlers {
	return &InvoiceHandlers{invoices: invoices, sessions: sessions}
}

// Routes wires the /invoices endpoints onto the provided router.
func (h *InvoiceHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listInvoices)
}

type invoiceRecordPayload struct {
	InvoiceID     string               `json:"invoice_id"`
	CustomerName  string               `json:"customer_name"`
	Total         string               `json:"total"`
	PaymentMethod string               `json:"payment_method"`
	Items         []invoiceItemPayload `json:"items"`
	Date          string               `json:"date"`
	URL           string               `json:"url,omitempty"`
}

type invoiceItemPayload struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

func (h *InvoiceHandlers) listInvoices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.sessions.Current()
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "sign in to view invoices", http.StatusUnauthorized))
		return
	}

	records, err := h.invoices.List(ctx, session.User.UID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invoices_unavailable", "invoice store is unavailable", http.StatusBadGateway))
		return
	}

	payloads := make([]invoiceRecordPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, buildInvoiceRecordPayload(record))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"invoices": payloads})
}

func buildInvoiceRecordPayload(record invoice.Record) invoiceRecordPayload {
	items := make([]invoiceItemPayload, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, invoiceItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Slug:      item.Slug,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}
	return invoiceRecordPayload{
		InvoiceID:     record.InvoiceID,
		CustomerName:  record.CustomerName,
		Total:         record.Total,
		PaymentMethod: record.PaymentMethod,
		Items:         items,
		Date:          record.Date.Format(time.RFC3339),
		URL:           record.URL,
	}
}
