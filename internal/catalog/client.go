package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ludoteka/storefront/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client issues product and category calls against the upstream catalog API.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption customises client behaviour.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, keeping tests hermetic.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithTimeout overrides the request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 && c.http != nil {
			c.http.Timeout = timeout
		}
	}
}

// NewClient constructs a catalog client rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("catalog: base url is required")
	}

	client := &Client{
		baseURL: trimmed,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ListProducts fetches the available products. The upstream filters the
// listing to available products server side.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var payloads []productPayload
	if err := c.getJSON(ctx, "list products", &payloads, "productos"); err != nil {
		return nil, err
	}
	return productsToDomain(payloads)
}

// GetProduct fetches a single product by slug.
func (c *Client) GetProduct(ctx context.Context, slug string) (domain.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Product{}, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}

	var payload productPayload
	if err := c.getJSON(ctx, "get product", &payload, "productos", slug); err != nil {
		return domain.Product{}, err
	}
	return payload.toDomain()
}

// ListCategories fetches every category with its nested products.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var payloads []categoryPayload
	if err := c.getJSON(ctx, "list categories", &payloads, "categorias"); err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(payloads))
	for _, payload := range payloads {
		category, err := payload.toDomain()
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}

// GetCategory fetches a single category by slug.
func (c *Client) GetCategory(ctx context.Context, slug string) (domain.Category, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Category{}, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}

	var payload categoryPayload
	if err := c.getJSON(ctx, "get category", &payload, "categorias", slug); err != nil {
		return domain.Category{}, err
	}
	return payload.toDomain()
}

// CreateProduct posts a new product as multipart form data.
func (c *Client) CreateProduct(ctx context.Context, form ProductForm) (domain.Product, error) {
	return c.submitForm(ctx, http.MethodPost, "create product", form, "productos")
}

// UpdateProduct patches an existing product. Fields absent from the form keep
// their stored values upstream.
func (c *Client) UpdateProduct(ctx context.Context, slug string, form ProductForm) (domain.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Product{}, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}
	return c.submitForm(ctx, http.MethodPatch, "update product", form, "productos", slug)
}

// DeleteProduct removes a product by slug.
func (c *Client) DeleteProduct(ctx context.Context, slug string) error {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}

	endpoint, err := c.endpoint("productos", slug)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError("delete product", resp)
	}
	return nil
}

// DecrementStock reduces the stock of a product after a sale. The upstream
// rejects non-positive quantities and quantities above the stock on hand.
func (c *Client) DecrementStock(ctx context.Context, slug string, quantity int) (domain.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Product{}, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}
	if quantity <= 0 {
		return domain.Product{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	endpoint, err := c.endpoint("productos", slug, "disminuir_stock")
	if err != nil {
		return domain.Product{}, err
	}
	body, err := json.Marshal(decrementPayload{Quantity: quantity})
	if err != nil {
		return domain.Product{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Product{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Product{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return domain.Product{}, c.statusError("decrement stock", resp)
	}

	var payload productPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Product{}, err
	}
	return payload.toDomain()
}

// CreateOrder records the purchase with the upstream order endpoint.
func (c *Client) CreateOrder(ctx context.Context, uid string, invoice domain.Invoice, address string) error {
	endpoint, err := c.endpoint("pedidos")
	if err != nil {
		return err
	}
	body, err := json.Marshal(orderFromInvoice(uid, invoice, address))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError("create order", resp)
	}
	return nil
}

func (c *Client) submitForm(ctx context.Context, method, op string, form ProductForm, segments ...string) (domain.Product, error) {
	endpoint, err := c.endpoint(segments...)
	if err != nil {
		return domain.Product{}, err
	}
	body, contentType, err := form.encode()
	if err != nil {
		return domain.Product{}, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Product{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Product{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return domain.Product{}, c.statusError(op, resp)
	}

	var payload productPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Product{}, err
	}
	return payload.toDomain()
}

func (c *Client) getJSON(ctx context.Context, op string, target any, segments ...string) error {
	endpoint, err := c.endpoint(segments...)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError(op, resp)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// endpoint joins the base URL with path segments, keeping the trailing slash
// the upstream router requires.
func (c *Client) endpoint(segments ...string) (string, error) {
	joined, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return "", err
	}
	return joined + "/", nil
}

// statusError maps upstream failures onto sentinels where the status code and
// detail identify them, and falls back to a StatusError otherwise.
func (c *Client) statusError(op string, resp *http.Response) error {
	detail := drainDetail(resp.Body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(detail), "stock insuficiente") {
			return fmt.Errorf("%w: %s", ErrInsufficientStock, op)
		}
		return fmt.Errorf("%w: %s: %s", ErrInvalidInput, op, detail)
	}
	return &StatusError{Op: op, Status: resp.StatusCode, Detail: detail}
}

func drainDetail(r io.Reader) string {
	if r == nil {
		return ""
	}
	raw, _ := io.ReadAll(io.LimitReader(r, 512))

	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err == nil && strings.TrimSpace(payload.Detail) != "" {
		return strings.TrimSpace(payload.Detail)
	}
	return strings.TrimSpace(string(raw))
}
