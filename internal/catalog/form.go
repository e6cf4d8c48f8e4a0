package catalog

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"
)

// ImageUpload carries an image file attached to a product form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProductForm is the multipart payload for creating or updating a product.
// Category and Image are optional on updates; when absent the upstream keeps
// the existing values.
type ProductForm struct {
	Name            string
	Slug            string
	Category        string
	Description     string
	Price           string
	Stock           int
	Available       bool
	IsNew           bool
	HasDiscount     bool
	DiscountPercent int
	Image           *ImageUpload
}

// encode renders the form as multipart/form-data, returning the body and the
// content type with the boundary baked in.
func (f ProductForm) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := []struct {
		name  string
		value string
	}{
		{"nombre", strings.TrimSpace(f.Name)},
		{"slug", strings.TrimSpace(f.Slug)},
		{"descripcion", strings.TrimSpace(f.Description)},
		{"precio", strings.TrimSpace(f.Price)},
		{"stock", strconv.Itoa(f.Stock)},
		{"disponible", strconv.FormatBool(f.Available)},
		{"es_nuevo", strconv.FormatBool(f.IsNew)},
		{"tiene_descuento", strconv.FormatBool(f.HasDiscount)},
		{"porcentaje_descuento", strconv.Itoa(f.DiscountPercent)},
	}
	if category := strings.TrimSpace(f.Category); category != "" {
		fields = append(fields, struct {
			name  string
			value string
		}{"categoria", category})
	}

	for _, field := range fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return nil, "", fmt.Errorf("catalog: encode form field %s: %w", field.name, err)
		}
	}

	if f.Image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="imagen"; filename=%q`, f.Image.Filename))
		contentType := strings.TrimSpace(f.Image.ContentType)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("catalog: encode image part: %w", err)
		}
		if _, err := part.Write(f.Image.Data); err != nil {
			return nil, "", fmt.Errorf("catalog: write image part: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("catalog: finalize form: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
