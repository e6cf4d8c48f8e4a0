package wishlist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ludoteka/storefront/internal/domain"
	"github.com/ludoteka/storefront/internal/platform/localstore"
)

func newTestStorage(t *testing.T) (*localstore.Store, string) {
	t.Helper()
	dir := t.TempDir()
	storage, err := localstore.New(dir)
	if err != nil {
		t.Fatalf("localstore.New returned error: %v", err)
	}
	return storage, dir
}

func testProduct(id int64, slug string) domain.Product {
	price, _ := decimal.NewFromString("19.99")
	return domain.Product{ID: id, Slug: slug, Name: slug, Price: price, Stock: 5}
}

func TestToggleTwiceRoundTrips(t *testing.T) {
	storage, _ := newTestStorage(t)
	store, err := NewStore(Deps{Storage: storage})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	ctx := context.Background()

	catan := testProduct(1, "catan")
	if !store.Toggle(ctx, catan) {
		t.Fatal("expected first toggle to report membership")
	}
	if !store.Contains(1) {
		t.Fatal("expected product on the list")
	}
	if store.Toggle(ctx, catan) {
		t.Fatal("expected second toggle to report removal")
	}
	if store.Contains(1) {
		t.Fatal("expected product off the list")
	}
	if store.Count() != 0 {
		t.Errorf("expected empty list, got count %d", store.Count())
	}
}

func TestAddIsIdempotent(t *testing.T) {
	storage, _ := newTestStorage(t)
	store, err := NewStore(Deps{Storage: storage})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	ctx := context.Background()

	store.Add(ctx, testProduct(1, "catan"))
	store.Add(ctx, testProduct(1, "catan"))

	if store.Count() != 1 {
		t.Errorf("expected 1 item, got %d", store.Count())
	}
}

func TestRemoveAbsentIsNoOp(t *testing.T) {
	storage, _ := newTestStorage(t)
	store, err := NewStore(Deps{Storage: storage})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	ctx := context.Background()

	store.Add(ctx, testProduct(1, "catan"))
	store.Remove(ctx, 99)

	if store.Count() != 1 {
		t.Errorf("expected 1 item, got %d", store.Count())
	}
}

func TestItemsKeepInsertionOrderAcrossRestart(t *testing.T) {
	storage, _ := newTestStorage(t)
	store, err := NewStore(Deps{Storage: storage})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	ctx := context.Background()

	store.Add(ctx, testProduct(2, "azul"))
	store.Add(ctx, testProduct(1, "catan"))

	reopened, err := NewStore(Deps{Storage: storage})
	if err != nil {
		t.Fatalf("NewStore (restart) returned error: %v", err)
	}

	items := reopened.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Slug != "azul" || items[1].Slug != "catan" {
		t.Errorf("unexpected order: %s, %s", items[0].Slug, items[1].Slug)
	}
}

func TestCorruptPayloadSelfHeals(t *testing.T) {
	storage, dir := newTestStorage(t)
	path := filepath.Join(dir, storageKey+".json")
	if err := os.WriteFile(path, []byte("[broken"), 0o600); err != nil {
		t.Fatalf("failed seeding corrupt payload: %v", err)
	}

	store, err := NewStore(Deps{Storage: storage})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}

	if store.Count() != 0 {
		t.Errorf("expected empty list after corrupt payload, got %d", store.Count())
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected corrupt key to be cleared, stat err: %v", err)
	}
}
