package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ludoteka/storefront/internal/domain"
	"github.com/ludoteka/storefront/internal/platform/localstore"
)

// storageKey is the durable bucket holding the cart payload.
const storageKey = "cart"

// Storage is the durable key-value backend the store persists into.
type Storage interface {
	Get(key string, target any) error
	Set(key string, value any) error
	Delete(key string) error
}

// Deps lists the collaborators required to construct a Store.
type Deps struct {
	Storage Storage
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

// Store holds the shopper's cart lines. Every mutation is written through to
// durable storage; persistence failures are logged and never surfaced, so the
// in-memory cart stays authoritative for the session.
type Store struct {
	mu      sync.Mutex
	lines   []line
	storage Storage
	logger  func(ctx context.Context, event string, fields map[string]any)
}

type line struct {
	Product  productRecord `json:"product"`
	Quantity int           `json:"quantity"`
}

// productRecord is the persisted product snapshot. Price travels as a string
// so the stored payload round-trips without float drift.
type productRecord struct {
	ID              int64  `json:"id"`
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	Price           string `json:"price"`
	Stock           int    `json:"stock"`
	Image           string `json:"image"`
	Available       bool   `json:"available"`
	IsNew           bool   `json:"isNew"`
	HasDiscount     bool   `json:"hasDiscount"`
	DiscountPercent int    `json:"discountPercent"`
}

// NewStore hydrates the cart from storage and returns the store. A missing
// payload yields an empty cart; an unreadable payload is discarded, the key
// is cleared, and the cart starts empty.
func NewStore(deps Deps) (*Store, error) {
	if deps.Storage == nil {
		return nil, errors.New("cart: storage dependency is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	store := &Store{
		storage: deps.Storage,
		logger:  logger,
	}
	store.hydrate()
	return store, nil
}

func (s *Store) hydrate() {
	var stored []line
	err := s.storage.Get(storageKey, &stored)
	switch {
	case err == nil:
		s.lines = stored
	case errors.Is(err, localstore.ErrNotFound):
		s.lines = nil
	default:
		// Unreadable payloads self-heal: drop the key and start empty.
		s.logger(context.Background(), "cart.hydrate.corrupt", map[string]any{
			"error": err.Error(),
		})
		if err := s.storage.Delete(storageKey); err != nil {
			s.logger(context.Background(), "cart.hydrate.clear_failed", map[string]any{
				"error": err.Error(),
			})
		}
		s.lines = nil
	}
}

// Add puts one unit of the product in the cart. An existing line gains one
// unit capped at the product's current stock, and its snapshot is refreshed
// from the given product. A new line starts at quantity one and keeps
// insertion order.
func (s *Store) Add(ctx context.Context, product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := toRecord(product)
	for i := range s.lines {
		if s.lines[i].Product.ID == product.ID {
			quantity := s.lines[i].Quantity + 1
			if quantity > product.Stock {
				quantity = product.Stock
			}
			s.lines[i] = line{Product: record, Quantity: quantity}
			s.persist(ctx)
			return
		}
	}

	s.lines = append(s.lines, line{Product: record, Quantity: 1})
	s.persist(ctx)
}

// Remove drops the line for the product ID. Removing an absent ID is a no-op.
func (s *Store) Remove(ctx context.Context, productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.lines[:0]
	for _, l := range s.lines {
		if l.Product.ID != productID {
			filtered = append(filtered, l)
		}
	}
	s.lines = filtered
	s.persist(ctx)
}

// UpdateQuantity sets the line quantity. Zero or negative removes the line;
// values above the snapshot's stock clamp to the stock.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		filtered := s.lines[:0]
		for _, l := range s.lines {
			if l.Product.ID != productID {
				filtered = append(filtered, l)
			}
		}
		s.lines = filtered
		s.persist(ctx)
		return
	}

	for i := range s.lines {
		if s.lines[i].Product.ID == productID {
			if quantity > s.lines[i].Product.Stock {
				quantity = s.lines[i].Product.Stock
			}
			s.lines[i].Quantity = quantity
			break
		}
	}
	s.persist(ctx)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.persist(ctx)
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CartLine, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, domain.CartLine{Product: fromRecord(l.Product), Quantity: l.Quantity})
	}
	return out
}

// ItemCount is the sum of all line quantities, recomputed on every call.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, l := range s.lines {
		count += l.Quantity
	}
	return count
}

// Total is the sum of unit price times quantity across lines, recomputed on
// every call.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, l := range s.lines {
		price := parseStoredPrice(l.Product.Price)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// Snapshot captures the current lines as invoice rows.
func (s *Store) Snapshot() []domain.InvoiceLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.InvoiceLine, 0, len(s.lines))
	for _, l := range s.lines {
		price := parseStoredPrice(l.Product.Price)
		out = append(out, domain.InvoiceLine{
			ProductID: l.Product.ID,
			Slug:      l.Product.Slug,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			UnitPrice: price,
			Subtotal:  price.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
	}
	return out
}

func (s *Store) persist(ctx context.Context) {
	payload := s.lines
	if payload == nil {
		payload = []line{}
	}
	if err := s.storage.Set(storageKey, payload); err != nil {
		s.logger(ctx, "cart.persist.failed", map[string]any{
			"error": err.Error(),
		})
	}
}

func toRecord(product domain.Product) productRecord {
	return productRecord{
		ID:              product.ID,
		Slug:            product.Slug,
		Name:            product.Name,
		Category:        product.Category,
		Price:           product.Price.StringFixed(2),
		Stock:           product.Stock,
		Image:           product.Image,
		Available:       product.Available,
		IsNew:           product.IsNew,
		HasDiscount:     product.HasDiscount,
		DiscountPercent: product.DiscountPercent,
	}
}

func fromRecord(record productRecord) domain.Product {
	return domain.Product{
		ID:              record.ID,
		Slug:            record.Slug,
		Name:            record.Name,
		Category:        record.Category,
		Price:           parseStoredPrice(record.Price),
		Stock:           record.Stock,
		Image:           record.Image,
		Available:       record.Available,
		IsNew:           record.IsNew,
		HasDiscount:     record.HasDiscount,
		DiscountPercent: record.DiscountPercent,
	}
}

func parseStoredPrice(raw string) decimal.Decimal {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return price
}
