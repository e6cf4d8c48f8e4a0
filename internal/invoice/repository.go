package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	fsplatform "github.com/ludoteka/storefront/internal/platform/firestore"
)

// Record is the invoice pointer stored under the owning user. The document
// references the rendered file by URL rather than embedding it.
type Record struct {
	InvoiceID     string       `firestore:"invoiceId"`
	CustomerName  string       `firestore:"customerName"`
	Total         string       `firestore:"total"`
	PaymentMethod string       `firestore:"paymentMethod"`
	Items         []RecordItem `firestore:"items"`
	Date          time.Time    `firestore:"date"`
	URL           string       `firestore:"url"`
}

// RecordItem is one purchased line on the stored invoice.
type RecordItem struct {
	ProductID int64  `firestore:"productId"`
	Name      string `firestore:"name"`
	Slug      string `firestore:"slug"`
	Quantity  int    `firestore:"quantity"`
	UnitPrice string `firestore:"unitPrice"`
	Subtotal  string `firestore:"subtotal"`
}

// Repository stores and lists invoice records per user.
type Repository interface {
	Create(ctx context.Context, uid, id string, record Record) error
	List(ctx context.Context, uid string) ([]Record, error)
}

// FirestoreRepository keeps invoice records in a per-user subcollection.
type FirestoreRepository struct {
	provider *fsplatform.Provider
}

// NewFirestoreRepository constructs the repository over the shared provider.
func NewFirestoreRepository(provider *fsplatform.Provider) (*FirestoreRepository, error) {
	if provider == nil {
		return nil, errors.New("invoice: firestore provider is required")
	}
	return &FirestoreRepository{provider: provider}, nil
}

func (r *FirestoreRepository) collection(uid string) (fsplatform.Collection[Record], error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return fsplatform.Collection[Record]{}, errors.New("invoice: uid is required")
	}
	path := fmt.Sprintf("users/%s/invoices", uid)
	return fsplatform.NewCollection[Record](r.provider, path, nil), nil
}

// Create stores the record under the given document id.
func (r *FirestoreRepository) Create(ctx context.Context, uid, id string, record Record) error {
	coll, err := r.collection(uid)
	if err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return errors.New("invoice: document id is required")
	}
	return coll.Set(ctx, id, record)
}

// List returns the user's invoices, newest first.
func (r *FirestoreRepository) List(ctx context.Context, uid string) ([]Record, error) {
	coll, err := r.collection(uid)
	if err != nil {
		return nil, err
	}

	docs, err := coll.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("date", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.Data)
	}
	return records, nil
}
