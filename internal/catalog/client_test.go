package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListProductsNormalisesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/productos/" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"id": 7,
			"nombre": "  Catan  ",
			"slug": "catan",
			"categoria": "Estrategia",
			"descripcion": "<script>alert(1)</script>Clásico de colonos",
			"precio": "34.95",
			"stock": 12,
			"imagen": "https://cdn.example.com/catan.jpg",
			"es_nuevo": true,
			"tiene_descuento": true,
			"porcentaje_descuento": 10
		}]`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	products, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts returned error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}

	product := products[0]
	if product.Name != "Catan" {
		t.Errorf("expected trimmed name, got %q", product.Name)
	}
	if product.Price.StringFixed(2) != "34.95" {
		t.Errorf("unexpected price: %s", product.Price)
	}
	if product.Description != "Clásico de colonos" {
		t.Errorf("expected sanitised description, got %q", product.Description)
	}
	if !product.Available {
		t.Error("expected availability to default to true")
	}
	if !product.HasDiscount || product.DiscountPercent != 10 {
		t.Errorf("unexpected discount flags: %+v", product)
	}
}

func TestGetProductNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "No encontrado."}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if _, err := client.GetProduct(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDecrementStock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/productos/catan/disminuir_stock/" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			Quantity int `json:"cantidad"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed decoding body: %v", err)
		}
		if body.Quantity != 3 {
			t.Fatalf("unexpected quantity: %d", body.Quantity)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 7, "nombre": "Catan", "slug": "catan", "precio": "34.95", "stock": 9}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	product, err := client.DecrementStock(context.Background(), "catan", 3)
	if err != nil {
		t.Fatalf("DecrementStock returned error: %v", err)
	}
	if product.Stock != 9 {
		t.Errorf("expected stock 9, got %d", product.Stock)
	}
}

func TestDecrementStockInsufficient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": "Stock insuficiente."}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if _, err := client.DecrementStock(context.Background(), "catan", 50); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestDecrementStockRejectsNonPositiveQuantity(t *testing.T) {
	client, err := NewClient("http://catalog.invalid")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if _, err := client.DecrementStock(context.Background(), "catan", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateProductSendsMultipartForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed parsing multipart form: %v", err)
		}
		if got := r.FormValue("nombre"); got != "Azul" {
			t.Errorf("unexpected nombre: %q", got)
		}
		if got := r.FormValue("categoria"); got != "abstracto" {
			t.Errorf("unexpected categoria: %q", got)
		}
		if got := r.FormValue("precio"); got != "29.99" {
			t.Errorf("unexpected precio: %q", got)
		}
		if got := r.FormValue("disponible"); got != "true" {
			t.Errorf("unexpected disponible: %q", got)
		}

		file, header, err := r.FormFile("imagen")
		if err != nil {
			t.Fatalf("expected imagen file: %v", err)
		}
		defer file.Close()
		if header.Filename != "azul.png" {
			t.Errorf("unexpected filename: %q", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 11, "nombre": "Azul", "slug": "azul", "precio": "29.99", "stock": 4}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	form := ProductForm{
		Name:      "Azul",
		Slug:      "azul",
		Category:  "abstracto",
		Price:     "29.99",
		Stock:     4,
		Available: true,
		Image: &ImageUpload{
			Filename:    "azul.png",
			ContentType: "image/png",
			Data:        []byte{0x89, 0x50, 0x4e, 0x47},
		},
	}

	product, err := client.CreateProduct(context.Background(), form)
	if err != nil {
		t.Fatalf("CreateProduct returned error: %v", err)
	}
	if product.Slug != "azul" {
		t.Errorf("unexpected slug: %q", product.Slug)
	}
}

func TestUpdateProductOmitsOptionalFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/productos/azul/" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed parsing multipart form: %v", err)
		}
		if _, ok := r.MultipartForm.Value["categoria"]; ok {
			t.Error("expected categoria to be omitted")
		}
		if _, _, err := r.FormFile("imagen"); err == nil {
			t.Error("expected imagen to be omitted")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 11, "nombre": "Azul", "slug": "azul", "precio": "24.99", "stock": 4}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	form := ProductForm{Name: "Azul", Slug: "azul", Price: "24.99", Stock: 4, Available: true}
	product, err := client.UpdateProduct(context.Background(), "azul", form)
	if err != nil {
		t.Fatalf("UpdateProduct returned error: %v", err)
	}
	if product.Price.StringFixed(2) != "24.99" {
		t.Errorf("unexpected price: %s", product.Price)
	}
}
