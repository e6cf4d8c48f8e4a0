package wishlist

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ludoteka/storefront/internal/domain"
	"github.com/ludoteka/storefront/internal/platform/localstore"
)

// storageKey is namespaced so the wishlist never collides with other buckets.
const storageKey = "ludoteka_wishlist"

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

// Store holds the products the shopper saved for later. Mutations write
// through to durable storage; failures are logged, never surfaced.
type Store struct {
	mu      sync.Mutex
	items   []itemRecord
	storage Storage
	logger  func(ctx context.Context, event string, fields map[string]any)
}

type itemRecord struct {
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

// NewStore hydrates the wishlist from storage. A missing payload yields an
// empty list; an unreadable payload is cleared and the list starts empty.
func NewStore(deps Deps) (*Store, error) {
	if deps.Storage == nil {
		return nil, errors.New("wishlist: storage dependency is required")
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
	var stored []itemRecord
	err := s.storage.Get(storageKey, &stored)
	switch {
	case err == nil:
		s.items = stored
	case errors.Is(err, localstore.ErrNotFound):
		s.items = nil
	default:
		s.logger(context.Background(), "wishlist.hydrate.corrupt", map[string]any{
			"error": err.Error(),
		})
		if err := s.storage.Delete(storageKey); err != nil {
			s.logger(context.Background(), "wishlist.hydrate.clear_failed", map[string]any{
				"error": err.Error(),
			})
		}
		s.items = nil
	}
}

// Add saves the product. Adding a product already on the list is a no-op.
func (s *Store) Add(ctx context.Context, product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(product.ID) >= 0 {
		return
	}
	s.items = append(s.items, toRecord(product))
	s.persist(ctx)
}

// Remove drops the product from the list. Removing an absent ID is a no-op.
func (s *Store) Remove(ctx context.Context, productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(productID)
	if idx < 0 {
		return
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.persist(ctx)
}

// Contains reports whether the product is on the list.
func (s *Store) Contains(productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.indexOf(productID) >= 0
}

// Toggle flips the product's membership and reports whether the product is on
// the list after the call.
func (s *Store) Toggle(ctx context.Context, product domain.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(product.ID)
	if idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		s.persist(ctx)
		return false
	}
	s.items = append(s.items, toRecord(product))
	s.persist(ctx)
	return true
}

// Clear empties the wishlist.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist(ctx)
}

// Items returns a copy of the saved products in insertion order.
func (s *Store) Items() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Product, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, fromRecord(item))
	}
	return out
}

// Count reports how many products are saved.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

func (s *Store) indexOf(productID int64) int {
	for i, item := range s.items {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context) {
	payload := s.items
	if payload == nil {
		payload = []itemRecord{}
	}
	if err := s.storage.Set(storageKey, payload); err != nil {
		s.logger(ctx, "wishlist.persist.failed", map[string]any{
			"error": err.Error(),
		})
	}
}

func toRecord(product domain.Product) itemRecord {
	return itemRecord{
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

func fromRecord(record itemRecord) domain.Product {
	price, err := decimal.NewFromString(record.Price)
	if err != nil {
		price = decimal.Zero
	}
	return domain.Product{
		ID:              record.ID,
		Slug:            record.Slug,
		Name:            record.Name,
		Category:        record.Category,
		Price:           price,
		Stock:           record.Stock,
		Image:           record.Image,
		Available:       record.Available,
		IsNew:           record.IsNew,
		HasDiscount:     record.HasDiscount,
		DiscountPercent: record.DiscountPercent,
	}
}
