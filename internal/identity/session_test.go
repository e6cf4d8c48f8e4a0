package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/ludoteka/storefront/internal/domain"
)

type stubProvider struct {
	signInFunc      func(ctx context.Context, email, password string) (Account, error)
	signUpFunc      func(ctx context.Context, email, password string) (Account, error)
	googleFunc      func(ctx context.Context, token string) (Account, error)
	displayNameFunc func(ctx context.Context, idToken, displayName string) (domain.User, error)
}

func (s *stubProvider) SignInWithPassword(ctx context.Context, email, password string) (Account, error) {
	if s.signInFunc == nil {
		return Account{}, errors.New("unexpected SignInWithPassword call")
	}
	return s.signInFunc(ctx, email, password)
}

func (s *stubProvider) SignUp(ctx context.Context, email, password string) (Account, error) {
	if s.signUpFunc == nil {
		return Account{}, errors.New("unexpected SignUp call")
	}
	return s.signUpFunc(ctx, email, password)
}

func (s *stubProvider) SignInWithGoogle(ctx context.Context, token string) (Account, error) {
	if s.googleFunc == nil {
		return Account{}, errors.New("unexpected SignInWithGoogle call")
	}
	return s.googleFunc(ctx, token)
}

func (s *stubProvider) UpdateDisplayName(ctx context.Context, idToken, displayName string) (domain.User, error) {
	if s.displayNameFunc == nil {
		return domain.User{}, errors.New("unexpected UpdateDisplayName call")
	}
	return s.displayNameFunc(ctx, idToken, displayName)
}

type stubRoles struct {
	ensureFunc func(ctx context.Context, user domain.User) (domain.Role, error)
}

func (s *stubRoles) Ensure(ctx context.Context, user domain.User) (domain.Role, error) {
	if s.ensureFunc == nil {
		return domain.RoleCustomer, nil
	}
	return s.ensureFunc(ctx, user)
}

func anaAccount() Account {
	return Account{
		User:    domain.User{UID: "uid-1", Email: "ana@example.com", DisplayName: "Ana"},
		IDToken: "token-1",
	}
}

func TestLoginEstablishesSessionWithRole(t *testing.T) {
	provider := &stubProvider{
		signInFunc: func(_ context.Context, email, _ string) (Account, error) {
			if email != "ana@example.com" {
				t.Fatalf("unexpected email: %s", email)
			}
			return anaAccount(), nil
		},
	}
	roles := &stubRoles{
		ensureFunc: func(_ context.Context, user domain.User) (domain.Role, error) {
			if user.UID != "uid-1" {
				t.Fatalf("unexpected uid: %s", user.UID)
			}
			return domain.RoleAdmin, nil
		},
	}

	manager, err := NewSessionManager(SessionDeps{Provider: provider, Roles: roles})
	if err != nil {
		t.Fatalf("NewSessionManager returned error: %v", err)
	}

	session, err := manager.Login(context.Background(), "ana@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if session.Role != domain.RoleAdmin {
		t.Errorf("expected admin role, got %s", session.Role)
	}

	current, ok := manager.Current()
	if !ok || current.User.UID != "uid-1" {
		t.Errorf("expected active session, got %+v ok=%v", current, ok)
	}
}

func TestLoginRoleLookupFailureDefaultsToCustomer(t *testing.T) {
	provider := &stubProvider{
		signInFunc: func(context.Context, string, string) (Account, error) {
			return anaAccount(), nil
		},
	}
	roles := &stubRoles{
		ensureFunc: func(context.Context, domain.User) (domain.Role, error) {
			return "", errors.New("firestore down")
		},
	}

	var events []string
	manager, err := NewSessionManager(SessionDeps{
		Provider: provider,
		Roles:    roles,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			events = append(events, event)
		},
	})
	if err != nil {
		t.Fatalf("NewSessionManager returned error: %v", err)
	}

	session, err := manager.Login(context.Background(), "ana@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if session.Role != domain.RoleCustomer {
		t.Errorf("expected fallback customer role, got %s", session.Role)
	}
	if len(events) != 1 || events[0] != "identity.role_lookup.failed" {
		t.Errorf("expected role lookup failure event, got %v", events)
	}
}

func TestLoginProviderFailureLeavesNoSession(t *testing.T) {
	provider := &stubProvider{
		signInFunc: func(context.Context, string, string) (Account, error) {
			return Account{}, ErrInvalidCredentials
		},
	}

	manager, err := NewSessionManager(SessionDeps{Provider: provider, Roles: &stubRoles{}})
	if err != nil {
		t.Fatalf("NewSessionManager returned error: %v", err)
	}

	if _, err := manager.Login(context.Background(), "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, ok := manager.Current(); ok {
		t.Error("expected no session after failed login")
	}
}

func TestRegisterSetsDisplayName(t *testing.T) {
	provider := &stubProvider{
		signUpFunc: func(context.Context, string, string) (Account, error) {
			account := anaAccount()
			account.User.DisplayName = ""
			return account, nil
		},
		displayNameFunc: func(_ context.Context, idToken, displayName string) (domain.User, error) {
			if idToken != "token-1" {
				t.Fatalf("unexpected id token: %s", idToken)
			}
			return domain.User{UID: "uid-1", DisplayName: displayName}, nil
		},
	}

	manager, err := NewSessionManager(SessionDeps{Provider: provider, Roles: &stubRoles{}})
	if err != nil {
		t.Fatalf("NewSessionManager returned error: %v", err)
	}

	session, err := manager.Register(context.Background(), "Ana", "ana@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if session.User.DisplayName != "Ana" {
		t.Errorf("expected display name Ana, got %q", session.User.DisplayName)
	}
}

func TestRegisterRequiresDisplayName(t *testing.T) {
	manager, err := NewSessionManager(SessionDeps{Provider: &stubProvider{}, Roles: &stubRoles{}})
	if err != nil {
		t.Fatalf("NewSessionManager returned error: %v", err)
	}

	if _, err := manager.Register(context.Background(), "  ", "ana@example.com", "secret123"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubscribeStreamsAuthState(t *testing.T) {
	provider := &stubProvider{
		signInFunc: func(context.Context, string, string) (Account, error) {
			return anaAccount(), nil
		},
	}

	manager, err := NewSessionManager(SessionDeps{Provider: provider, Roles: &stubRoles{}})
	if err != nil {
		t.Fatalf("NewSessionManager returned error: %v", err)
	}

	var states []*domain.Session
	unsubscribe := manager.Subscribe(func(session *domain.Session) {
		states = append(states, session)
	})

	if _, err := manager.Login(context.Background(), "ana@example.com", "secret123"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	manager.Logout(context.Background())

	if len(states) != 3 {
		t.Fatalf("expected 3 notifications (initial, login, logout), got %d", len(states))
	}
	if states[0] != nil {
		t.Error("expected initial notification with no session")
	}
	if states[1] == nil || states[1].User.UID != "uid-1" {
		t.Errorf("expected login notification, got %+v", states[1])
	}
	if states[2] != nil {
		t.Error("expected logout notification with no session")
	}

	unsubscribe()
	if _, err := manager.Login(context.Background(), "ana@example.com", "secret123"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if len(states) != 3 {
		t.Errorf("expected no notifications after unsubscribe, got %d", len(states))
	}
}
