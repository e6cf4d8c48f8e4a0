package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ludoteka/storefront/internal/checkout"
	"github.com/ludoteka/storefront/internal/domain"
	"github.com/ludoteka/storefront/internal/platform/httpx"
)

// CheckoutWorkflow runs the purchase sequence.
type CheckoutWorkflow interface {
	Execute(ctx context.Context, cmd checkout.Command) (checkout.Confirmation, error)
}

// CheckoutHandlers exposes the checkout endpoint.
type CheckoutHandlers struct {
	workflow CheckoutWorkflow
}

const maxCheckoutBodySize = 16 * 1024

// NewCheckoutHandlers constructs the checkout endpoint over the workflow.
func NewCheckoutHandlers(workflow CheckoutWorkflow) *CheckoutHandlers {
	return &CheckoutHandlers{workflow: workflow}
}

// Routes wires the /checkout endpoint onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.placeOrder)
}

type checkoutRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	PaymentMethod string `json:"payment_method"`
	Card          *struct {
		Number string `json:"number"`
		Holder string `json:"holder"`
		Expiry string `json:"expiry"`
		CVV    string `json:"cvv"`
	} `json:"card"`
}

type confirmationPayload struct {
	InvoiceNumber string               `json:"invoice_number"`
	CustomerName  string               `json:"customer_name"`
	PaymentMethod string               `json:"payment_method"`
	Lines         []invoiceLinePayload `json:"lines"`
	Total         string               `json:"total"`
	Document      documentPayload      `json:"document"`
}

type documentPayload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	// Content is base64 encoded by the JSON marshaller.
	Content []byte `json:"content"`
}

func (h *CheckoutHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req checkoutRequest
	if err := decodeJSONBody(r, maxCheckoutBodySize, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cmd := checkout.Command{
		Contact: checkout.Contact{
			Name:    req.Name,
			Email:   req.Email,
			Address: req.Address,
		},
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	}
	if req.Card != nil {
		cmd.Card = &checkout.CardDetails{
			Number: req.Card.Number,
			Holder: req.Card.Holder,
			Expiry: req.Card.Expiry,
			CVV:    req.Card.CVV,
		}
	}

	confirmation, err := h.workflow.Execute(ctx, cmd)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"confirmation": confirmationPayload{
			InvoiceNumber: confirmation.InvoiceNumber,
			CustomerName:  confirmation.CustomerName,
			PaymentMethod: string(confirmation.PaymentMethod),
			Lines:         buildInvoiceLinePayloads(confirmation.Lines),
			Total:         confirmation.Total.StringFixed(2),
			Document: documentPayload{
				Filename:    confirmation.Document.Filename,
				ContentType: confirmation.Document.ContentType,
				Content:     confirmation.Document.Bytes,
			},
		},
	})
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	var fieldErr *checkout.FieldError
	switch {
	case errors.As(err, &fieldErr):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_field", fieldErr.Message, http.StatusBadRequest).
			WithDetails(map[string]any{"field": fieldErr.Field}))
	case errors.Is(err, checkout.ErrNoSession):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "sign in before checking out", http.StatusUnauthorized))
	case errors.Is(err, checkout.ErrEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart is empty", http.StatusConflict))
	default:
		writeCatalogError(ctx, w, err)
	}
}
