package invoice

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ludoteka/storefront/internal/domain"
	"github.com/ludoteka/storefront/internal/platform/storage"
)

const persistTimeout = 30 * time.Second

// Document is a rendered invoice ready for download.
type Document struct {
	Filename    string
	ContentType string
	Bytes       []byte
}

// Uploader pushes rendered documents to object storage.
type Uploader interface {
	Upload(ctx context.Context, object string, payload []byte, contentType string) (string, error)
}

// Logger receives structured service events.
type Logger func(ctx context.Context, event string, fields map[string]any)

// Deps wires the service's collaborators.
type Deps struct {
	Repository Repository
	Uploader   Uploader
	Renderer   Renderer
	Vendor     Vendor
	Logger     Logger
}

// Service renders invoices and persists them in the background.
type Service struct {
	repo     Repository
	uploader Uploader
	renderer Renderer
	vendor   Vendor
	logger   Logger

	wg sync.WaitGroup
}

// NewService validates deps and constructs the service.
func NewService(deps Deps) (*Service, error) {
	if deps.Repository == nil {
		return nil, errors.New("invoice: repository is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("invoice: renderer is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Service{
		repo:     deps.Repository,
		uploader: deps.Uploader,
		renderer: deps.Renderer,
		vendor:   deps.Vendor,
		logger:   logger,
	}, nil
}

// NewNumber returns a fresh invoice number.
func NewNumber() string {
	return fmt.Sprintf("FAC-%06d", 100000+rand.IntN(900000))
}

// Generate renders the invoice and schedules its persistence. The rendered
// document is returned immediately; upload and record creation happen in the
// background and are logged rather than surfaced.
func (s *Service) Generate(ctx context.Context, uid string, invoice domain.Invoice) (Document, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return Document{}, errors.New("invoice: uid is required")
	}

	payload, err := s.renderer.Render(invoice, s.vendor)
	if err != nil {
		return Document{}, fmt.Errorf("invoice: render %s: %w", invoice.Number, err)
	}

	doc := Document{
		Filename:    invoice.Number + ".pdf",
		ContentType: s.renderer.ContentType(),
		Bytes:       payload,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.persist(uid, invoice, payload)
	}()

	return doc, nil
}

// List returns the user's stored invoice records, newest first.
func (s *Service) List(ctx context.Context, uid string) ([]Record, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, errors.New("invoice: uid is required")
	}
	return s.repo.List(ctx, uid)
}

// Close waits for in-flight persistence work to finish.
func (s *Service) Close() {
	s.wg.Wait()
}

func (s *Service) persist(uid string, invoice domain.Invoice, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	var url string
	if s.uploader != nil {
		object, err := storage.InvoiceObjectPath(uid, invoice.Number)
		if err != nil {
			s.logger(ctx, "invoice.persist.path_failed", map[string]any{
				"invoice": invoice.Number,
				"error":   err.Error(),
			})
		} else {
			url, err = s.uploader.Upload(ctx, object, payload, s.renderer.ContentType())
			if err != nil {
				s.logger(ctx, "invoice.persist.upload_failed", map[string]any{
					"invoice": invoice.Number,
					"error":   err.Error(),
				})
				url = ""
			}
		}
	}

	record := Record{
		InvoiceID:     invoice.Number,
		CustomerName:  invoice.CustomerName,
		Total:         invoice.Total.StringFixed(2),
		PaymentMethod: string(invoice.PaymentMethod),
		Items:         recordItems(invoice.Lines),
		Date:          invoice.CreatedAt,
		URL:           url,
	}

	if err := s.repo.Create(ctx, uid, ulid.Make().String(), record); err != nil {
		s.logger(ctx, "invoice.persist.record_failed", map[string]any{
			"invoice": invoice.Number,
			"error":   err.Error(),
		})
		return
	}

	s.logger(ctx, "invoice.persist.ok", map[string]any{
		"invoice": invoice.Number,
		"url":     url,
	})
}

func recordItems(lines []domain.InvoiceLine) []RecordItem {
	items := make([]RecordItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, RecordItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Slug:      line.Slug,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Subtotal:  line.Subtotal.StringFixed(2),
		})
	}
	return items
}
