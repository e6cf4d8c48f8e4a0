package invoice

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ludoteka/storefront/internal/domain"
)

// Vendor identifies the selling party on rendered invoices.
type Vendor struct {
	Name    string
	Address string
}

// Renderer produces the downloadable invoice document body.
type Renderer interface {
	Render(invoice domain.Invoice, vendor Vendor) ([]byte, error)
	ContentType() string
}

// TextRenderer lays the invoice out as a fixed-width plain text document.
type TextRenderer struct {
	printer *message.Printer
}

// NewTextRenderer builds a renderer with Spanish number formatting.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{printer: message.NewPrinter(language.Spanish)}
}

// ContentType implements Renderer.
func (r *TextRenderer) ContentType() string { return "application/pdf" }

// Render implements Renderer.
func (r *TextRenderer) Render(invoice domain.Invoice, vendor Vendor) ([]byte, error) {
	if strings.TrimSpace(invoice.Number) == "" {
		return nil, fmt.Errorf("invoice: number is required")
	}

	var buf bytes.Buffer

	write := func(format string, args ...any) {
		fmt.Fprintf(&buf, format, args...)
	}

	if vendor.Name != "" {
		write("%s\n", vendor.Name)
	}
	if vendor.Address != "" {
		write("%s\n", vendor.Address)
	}
	write("\nFactura %s\n", invoice.Number)
	write("Fecha: %s\n", invoice.CreatedAt.Format("02/01/2006 15:04"))
	write("Cliente: %s <%s>\n", invoice.CustomerName, invoice.CustomerEmail)
	write("Pago: %s\n\n", paymentLabel(invoice.PaymentMethod))

	write("%-40s %8s %12s %12s\n", "Producto", "Cant.", "Precio", "Subtotal")
	write("%s\n", strings.Repeat("-", 76))
	for _, line := range invoice.Lines {
		write("%-40s %8d %12s %12s\n",
			truncate(line.Name, 40),
			line.Quantity,
			r.money(line.UnitPrice),
			r.money(line.Subtotal),
		)
	}
	write("%s\n", strings.Repeat("-", 76))
	write("%-62s %12s\n", "Total", r.money(invoice.Total))

	return buf.Bytes(), nil
}

func (r *TextRenderer) money(amount decimal.Decimal) string {
	value, _ := amount.Round(2).Float64()
	return r.printer.Sprintf("%.2f €", value)
}

func paymentLabel(method domain.PaymentMethod) string {
	switch method {
	case domain.PaymentCard:
		return "Tarjeta"
	case domain.PaymentCashOnDelivery:
		return "Contra reembolso"
	default:
		return string(method)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
