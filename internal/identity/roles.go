package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ludoteka/storefront/internal/domain"
	fsplatform "github.com/ludoteka/storefront/internal/platform/firestore"
)

const usersCollection = "users"

// Roles resolves and provisions the role record for an authenticated user.
type Roles interface {
	Ensure(ctx context.Context, user domain.User) (domain.Role, error)
}

// userDocument is the per-user record kept in the document store.
type userDocument struct {
	Email       string `firestore:"email"`
	DisplayName string `firestore:"displayName"`
	Role        string `firestore:"role"`
}

// FirestoreRoles stores role records in the users collection, one document
// per UID.
type FirestoreRoles struct {
	users fsplatform.Collection[userDocument]
}

// NewFirestoreRoles constructs the role repository over the shared provider.
func NewFirestoreRoles(provider *fsplatform.Provider) (*FirestoreRoles, error) {
	if provider == nil {
		return nil, errors.New("identity: firestore provider is required")
	}
	return &FirestoreRoles{
		users: fsplatform.NewCollection[userDocument](provider, usersCollection, nil),
	}, nil
}

// Ensure returns the stored role for the user, creating the user document
// with the customer role on first sign-in.
func (r *FirestoreRoles) Ensure(ctx context.Context, user domain.User) (domain.Role, error) {
	uid := strings.TrimSpace(user.UID)
	if uid == "" {
		return "", fmt.Errorf("%w: uid is required", ErrInvalidInput)
	}

	doc, err := r.users.Get(ctx, uid)
	if err == nil {
		return parseRole(doc.Data.Role), nil
	}

	var storeErr *fsplatform.Error
	if errors.As(err, &storeErr) && storeErr.IsNotFound() {
		record := userDocument{
			Email:       strings.TrimSpace(user.Email),
			DisplayName: strings.TrimSpace(user.DisplayName),
			Role:        string(domain.RoleCustomer),
		}
		if err := r.users.Set(ctx, uid, record); err != nil {
			return "", fmt.Errorf("identity: provision user record: %w", err)
		}
		return domain.RoleCustomer, nil
	}

	return "", fmt.Errorf("identity: load user record: %w", err)
}

// parseRole tolerates unknown or blank stored roles by defaulting to customer.
func parseRole(raw string) domain.Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(domain.RoleAdmin)) {
		return domain.RoleAdmin
	}
	return domain.RoleCustomer
}
