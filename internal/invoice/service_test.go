package invoice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ludoteka/storefront/internal/domain"
)

type memoryRepository struct {
	mu      sync.Mutex
	records map[string]Record
	err     error
}

func (m *memoryRepository) Create(_ context.Context, uid, id string, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.records == nil {
		m.records = make(map[string]Record)
	}
	m.records[uid+"/"+id] = record
	return nil
}

func (m *memoryRepository) List(context.Context, string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, r)
	}
	return records, nil
}

type stubUploader struct {
	mu      sync.Mutex
	object  string
	payload []byte
	err     error
}

func (s *stubUploader) Upload(_ context.Context, object string, payload []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.object = object
	s.payload = payload
	return "https://storage.googleapis.com/invoices-test/" + object, nil
}

func testInvoice() domain.Invoice {
	return domain.Invoice{
		Number:        "FAC-123456",
		CustomerName:  "Ana García",
		CustomerEmail: "ana@example.com",
		PaymentMethod: domain.PaymentCard,
		CreatedAt:     time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC),
		Lines: []domain.InvoiceLine{
			{ProductID: 1, Slug: "catan", Name: "Catan", Quantity: 2, UnitPrice: decimal.RequireFromString("29.95"), Subtotal: decimal.RequireFromString("59.90")},
		},
		Total: decimal.RequireFromString("59.90"),
	}
}

func newTestService(t *testing.T, repo Repository, uploader Uploader) *Service {
	t.Helper()
	svc, err := NewService(Deps{
		Repository: repo,
		Uploader:   uploader,
		Renderer:   NewTextRenderer(),
		Vendor:     Vendor{Name: "Ludoteka", Address: "Calle Mayor 1, Madrid"},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestGenerateReturnsDocumentAndPersists(t *testing.T) {
	repo := &memoryRepository{}
	up := &stubUploader{}
	svc := newTestService(t, repo, up)

	doc, err := svc.Generate(context.Background(), "user-1", testInvoice())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	svc.Close()

	if doc.Filename != "FAC-123456.pdf" {
		t.Fatalf("filename = %q", doc.Filename)
	}
	body := string(doc.Bytes)
	for _, want := range []string{"Ludoteka", "Factura FAC-123456", "Ana García", "Catan", "Total"} {
		if !strings.Contains(body, want) {
			t.Fatalf("document missing %q:\n%s", want, body)
		}
	}

	if up.object != "invoices/user-1/FAC-123456.pdf" {
		t.Fatalf("uploaded object = %q", up.object)
	}

	records, _ := repo.List(context.Background(), "user-1")
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.InvoiceID != "FAC-123456" || rec.Total != "59.90" || rec.URL == "" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(rec.Items) != 1 || rec.Items[0].Quantity != 2 || rec.Items[0].UnitPrice != "29.95" {
		t.Fatalf("unexpected items: %+v", rec.Items)
	}
}

func TestGenerateUploadFailureStillStoresRecord(t *testing.T) {
	repo := &memoryRepository{}
	up := &stubUploader{err: errors.New("bucket unavailable")}
	svc := newTestService(t, repo, up)

	if _, err := svc.Generate(context.Background(), "user-1", testInvoice()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	svc.Close()

	records, _ := repo.List(context.Background(), "user-1")
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].URL != "" {
		t.Fatalf("expected empty URL after failed upload, got %q", records[0].URL)
	}
}

func TestGenerateRecordFailureIsLoggedOnly(t *testing.T) {
	repo := &memoryRepository{err: errors.New("firestore down")}
	var mu sync.Mutex
	var events []string
	svc, err := NewService(Deps{
		Repository: repo,
		Renderer:   NewTextRenderer(),
		Logger: func(_ context.Context, event string, _ map[string]any) {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.Generate(context.Background(), "user-1", testInvoice()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	svc.Close()

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, e := range events {
		if e == "invoice.persist.record_failed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected record_failed event, got %v", events)
	}
}

func TestNewNumberFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		n := NewNumber()
		if len(n) != 10 || !strings.HasPrefix(n, "FAC-") {
			t.Fatalf("bad invoice number %q", n)
		}
	}
}
