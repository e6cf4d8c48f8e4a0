package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const defaultUploadTimeout = 30 * time.Second

var (
	errInvalidBucket      = errors.New("storage: bucket name is required")
	errInvalidObject      = errors.New("storage: object name is required")
	errContentTypeMissing = errors.New("storage: content type is required for uploads")
	errEmptyPayload       = errors.New("storage: payload is empty")
)

// Uploader writes objects into a single bucket and reports their public URLs.
type Uploader struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
}

// UploaderOption customises Uploader behaviour.
type UploaderOption func(*Uploader)

// WithUploadTimeout caps the duration of a single object write.
func WithUploadTimeout(timeout time.Duration) UploaderOption {
	return func(u *Uploader) {
		if timeout > 0 {
			u.timeout = timeout
		}
	}
}

// NewUploader constructs an Uploader bound to the given bucket.
func NewUploader(client *storage.Client, bucket string, opts ...UploaderOption) (*Uploader, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}

	uploader := &Uploader{
		client:  client,
		bucket:  bucket,
		timeout: defaultUploadTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(uploader)
		}
	}
	return uploader, nil
}

// Upload writes the payload under the object name and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, object string, payload []byte, contentType string) (string, error) {
	if u == nil {
		return "", errors.New("storage: uploader is nil")
	}
	if ctx == nil {
		return "", errors.New("storage: context is required")
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return "", errInvalidObject
	}
	if len(payload) == 0 {
		return "", errEmptyPayload
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return "", errContentTypeMissing
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	writer := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(payload); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("storage: write object %s: %w", object, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("storage: finalize object %s: %w", object, err)
	}

	return u.ObjectURL(object), nil
}

// ObjectURL returns the canonical public URL for an object in the bucket.
func (u *Uploader) ObjectURL(object string) string {
	segments := strings.Split(strings.TrimSpace(object), "/")
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, strings.Join(escaped, "/"))
}

// Bucket reports the bucket the uploader writes into.
func (u *Uploader) Bucket() string {
	return u.bucket
}
