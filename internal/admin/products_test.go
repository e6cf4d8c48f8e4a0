package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludoteka/storefront/internal/catalog"
	"github.com/ludoteka/storefront/internal/domain"
)

type stubCatalog struct {
	listFn   func(ctx context.Context) ([]domain.Product, error)
	createFn func(ctx context.Context, form catalog.ProductForm) (domain.Product, error)
	updateFn func(ctx context.Context, slug string, form catalog.ProductForm) (domain.Product, error)
	deleteFn func(ctx context.Context, slug string) error
}

func (s *stubCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if s.listFn == nil {
		return nil, errors.New("list not stubbed")
	}
	return s.listFn(ctx)
}

func (s *stubCatalog) CreateProduct(ctx context.Context, form catalog.ProductForm) (domain.Product, error) {
	return s.createFn(ctx, form)
}

func (s *stubCatalog) UpdateProduct(ctx context.Context, slug string, form catalog.ProductForm) (domain.Product, error) {
	return s.updateFn(ctx, slug, form)
}

func (s *stubCatalog) DeleteProduct(ctx context.Context, slug string) error {
	return s.deleteFn(ctx, slug)
}

func validInput() Input {
	return Input{
		Name:     "Catan",
		Slug:     "catan",
		Category: "estrategia",
		Price:    "29.95",
		Stock:    5,
	}
}

func TestRefreshReplacesList(t *testing.T) {
	cat := &stubCatalog{
		listFn: func(context.Context) ([]domain.Product, error) {
			return []domain.Product{{Slug: "catan"}, {Slug: "azul"}}, nil
		},
	}
	svc, err := NewProducts(Deps{Catalog: cat})
	require.NoError(t, err)

	require.NoError(t, svc.Refresh(context.Background()))
	assert.Len(t, svc.List(), 2)

	cat.listFn = func(context.Context) ([]domain.Product, error) {
		return []domain.Product{{Slug: "catan"}}, nil
	}
	require.NoError(t, svc.Refresh(context.Background()))
	assert.Len(t, svc.List(), 1)
}

func TestCreateRefetchesList(t *testing.T) {
	var gotForm catalog.ProductForm
	var upstream []domain.Product
	cat := &stubCatalog{
		listFn: func(context.Context) ([]domain.Product, error) { return upstream, nil },
		createFn: func(_ context.Context, form catalog.ProductForm) (domain.Product, error) {
			created := domain.Product{Slug: form.Slug, Name: form.Name, Price: decimal.RequireFromString(form.Price)}
			gotForm = form
			upstream = append(upstream, created)
			return created, nil
		},
	}
	svc, err := NewProducts(Deps{Catalog: cat})
	require.NoError(t, err)

	input := validInput()
	input.Name = "  Catan  "
	product, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "Catan", gotForm.Name)
	assert.Equal(t, "estrategia", gotForm.Category)
	assert.Equal(t, "catan", product.Slug)
	assert.Len(t, svc.List(), 1)
}

func TestCreateFallsBackToLocalAppendWhenRefetchFails(t *testing.T) {
	cat := &stubCatalog{
		createFn: func(_ context.Context, form catalog.ProductForm) (domain.Product, error) {
			return domain.Product{Slug: form.Slug, Name: form.Name}, nil
		},
	}
	svc, err := NewProducts(Deps{Catalog: cat})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Len(t, svc.List(), 1)
}

func TestCreateValidation(t *testing.T) {
	svc, err := NewProducts(Deps{Catalog: &stubCatalog{}})
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"missing name", func(i *Input) { i.Name = "" }, "name"},
		{"missing slug", func(i *Input) { i.Slug = " " }, "slug"},
		{"missing category", func(i *Input) { i.Category = "" }, "category"},
		{"bad price", func(i *Input) { i.Price = "abc" }, "price"},
		{"negative price", func(i *Input) { i.Price = "-1" }, "price"},
		{"negative stock", func(i *Input) { i.Stock = -1 }, "stock"},
		{"bad discount", func(i *Input) { i.HasDiscount = true; i.DiscountPercent = 0 }, "discount_percent"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)

			_, err := svc.Create(context.Background(), input)
			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tc.field, fieldErr.Field)
		})
	}
}

func TestUpdateAllowsMissingCategory(t *testing.T) {
	cat := &stubCatalog{
		updateFn: func(_ context.Context, slug string, form catalog.ProductForm) (domain.Product, error) {
			return domain.Product{Slug: slug, Name: form.Name}, nil
		},
	}
	svc, err := NewProducts(Deps{Catalog: cat})
	require.NoError(t, err)

	input := validInput()
	input.Category = ""
	_, err = svc.Update(context.Background(), "catan", input)
	require.NoError(t, err)
}

func TestUpdateRefetchesList(t *testing.T) {
	upstream := []domain.Product{{Slug: "catan", Name: "Catan"}, {Slug: "azul", Name: "Azul"}}
	cat := &stubCatalog{
		listFn: func(context.Context) ([]domain.Product, error) { return upstream, nil },
		updateFn: func(_ context.Context, slug string, form catalog.ProductForm) (domain.Product, error) {
			updated := domain.Product{Slug: slug, Name: form.Name}
			upstream[0] = updated
			return updated, nil
		},
	}
	svc, err := NewProducts(Deps{Catalog: cat})
	require.NoError(t, err)
	require.NoError(t, svc.Refresh(context.Background()))

	input := validInput()
	input.Name = "Catan Junior"
	_, err = svc.Update(context.Background(), "catan", input)
	require.NoError(t, err)

	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Catan Junior", list[0].Name)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	deleted := false
	cat := &stubCatalog{
		deleteFn: func(context.Context, string) error {
			deleted = true
			return nil
		},
	}
	svc, err := NewProducts(Deps{Catalog: cat})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "catan", false)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.False(t, deleted)
}

func TestDeleteFiltersCachedListWithoutRefetch(t *testing.T) {
	listCalls := 0
	cat := &stubCatalog{
		listFn: func(context.Context) ([]domain.Product, error) {
			listCalls++
			return []domain.Product{{Slug: "catan"}, {Slug: "azul"}}, nil
		},
		deleteFn: func(context.Context, string) error { return nil },
	}
	svc, err := NewProducts(Deps{Catalog: cat})
	require.NoError(t, err)
	require.NoError(t, svc.Refresh(context.Background()))

	require.NoError(t, svc.Delete(context.Background(), "catan", true))

	list := svc.List()
	require.Len(t, list, 1)
	assert.Equal(t, "azul", list[0].Slug)
	assert.Equal(t, 1, listCalls)
}

func TestDeleteUpstreamFailureKeepsList(t *testing.T) {
	cat := &stubCatalog{
		listFn: func(context.Context) ([]domain.Product, error) {
			return []domain.Product{{Slug: "catan"}}, nil
		},
		deleteFn: func(context.Context, string) error { return errors.New("upstream down") },
	}
	svc, err := NewProducts(Deps{Catalog: cat})
	require.NoError(t, err)
	require.NoError(t, svc.Refresh(context.Background()))

	require.Error(t, svc.Delete(context.Background(), "catan", true))
	assert.Len(t, svc.List(), 1)
}
