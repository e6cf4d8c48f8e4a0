package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ludoteka/storefront/internal/admin"
	"github.com/ludoteka/storefront/internal/domain"
)

type fakeProductAdmin struct {
	refreshed bool
	created   *admin.Input
	deleted   string
	confirmed bool
}

func (f *fakeProductAdmin) Refresh(context.Context) error {
	f.refreshed = true
	return nil
}

func (f *fakeProductAdmin) List() []domain.Product {
	return []domain.Product{{ID: 1, Slug: "catan", Name: "Catan"}}
}

func (f *fakeProductAdmin) Create(_ context.Context, input admin.Input) (domain.Product, error) {
	f.created = &input
	return domain.Product{Slug: input.Slug, Name: input.Name}, nil
}

func (f *fakeProductAdmin) Update(_ context.Context, slug string, input admin.Input) (domain.Product, error) {
	return domain.Product{Slug: slug, Name: input.Name}, nil
}

func (f *fakeProductAdmin) Delete(_ context.Context, slug string, confirmed bool) error {
	if !confirmed {
		return admin.ErrNotConfirmed
	}
	f.deleted = slug
	f.confirmed = confirmed
	return nil
}

type fakeSessionReader struct {
	session domain.Session
	ok      bool
}

func (f *fakeSessionReader) Current() (domain.Session, bool) { return f.session, f.ok }

func adminSession() *fakeSessionReader {
	return &fakeSessionReader{session: domain.Session{User: domain.User{UID: "admin-1"}, Role: domain.RoleAdmin}, ok: true}
}

func customerSession() *fakeSessionReader {
	return &fakeSessionReader{session: domain.Session{User: domain.User{UID: "user-1"}, Role: domain.RoleCustomer}, ok: true}
}

func newAdminRouter(products ProductAdmin, sessions SessionReader) http.Handler {
	r := chi.NewRouter()
	NewAdminHandlers(products, sessions).Routes(r)
	return r
}

func productFormRequest(t *testing.T, method, target string, withImage bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := map[string]string{
		"name":     "Catan",
		"slug":     "catan",
		"category": "estrategia",
		"price":    "29.95",
		"stock":    "5",
	}
	for field, value := range fields {
		if err := writer.WriteField(field, value); err != nil {
			t.Fatalf("write field %s: %v", field, err)
		}
	}
	if withImage {
		part, err := writer.CreateFormFile("image", "catan.jpg")
		if err != nil {
			t.Fatalf("create image part: %v", err)
		}
		if _, err := part.Write([]byte("jpeg-bytes")); err != nil {
			t.Fatalf("write image part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestAdminRoutesRequireSession(t *testing.T) {
	router := newAdminRouter(&fakeProductAdmin{}, &fakeSessionReader{})

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router := newAdminRouter(&fakeProductAdmin{}, customerSession())

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAdminListRefreshesProducts(t *testing.T) {
	products := &fakeProductAdmin{}
	router := newAdminRouter(products, adminSession())

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !products.refreshed {
		t.Fatal("list did not refresh the catalog")
	}
}

func TestAdminCreateParsesMultipartForm(t *testing.T) {
	products := &fakeProductAdmin{}
	router := newAdminRouter(products, adminSession())

	req := productFormRequest(t, http.MethodPost, "/products", true)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if products.created == nil {
		t.Fatal("create was not called")
	}
	if products.created.Name != "Catan" || products.created.Stock != 5 || products.created.Price != "29.95" {
		t.Fatalf("input = %+v", products.created)
	}
	if products.created.Image == nil || products.created.Image.Filename != "catan.jpg" {
		t.Fatalf("image = %+v", products.created.Image)
	}
}

func TestAdminCreateWithoutImage(t *testing.T) {
	products := &fakeProductAdmin{}
	router := newAdminRouter(products, adminSession())

	req := productFormRequest(t, http.MethodPost, "/products", false)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if products.created.Image != nil {
		t.Fatalf("expected no image, got %+v", products.created.Image)
	}
}

func TestAdminDeleteRequiresConfirmQuery(t *testing.T) {
	products := &fakeProductAdmin{}
	router := newAdminRouter(products, adminSession())

	req := httptest.NewRequest(http.MethodDelete, "/products/catan", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if products.deleted != "" {
		t.Fatalf("deleted = %q", products.deleted)
	}

	req = httptest.NewRequest(http.MethodDelete, "/products/catan?confirm=true", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if products.deleted != "catan" {
		t.Fatalf("deleted = %q", products.deleted)
	}
}
