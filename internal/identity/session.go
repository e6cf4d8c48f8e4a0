package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ludoteka/storefront/internal/domain"
)

// SessionDeps lists the collaborators required to construct a SessionManager.
type SessionDeps struct {
	Provider Provider
	Roles    Roles
	// Verifier is optional; when set, provider-issued tokens are verified
	// through the Admin SDK before a session is established.
	Verifier Verifier
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

// SessionManager tracks the signed-in user for the storefront process and
// streams auth-state changes to subscribers.
type SessionManager struct {
	provider Provider
	roles    Roles
	verifier Verifier
	logger   func(ctx context.Context, event string, fields map[string]any)

	mu           sync.Mutex
	session      *domain.Session
	idToken      string
	listeners    map[int]func(*domain.Session)
	nextListener int
}

// NewSessionManager validates dependencies and returns the manager.
func NewSessionManager(deps SessionDeps) (*SessionManager, error) {
	if deps.Provider == nil {
		return nil, errors.New("identity: provider dependency is required")
	}
	if deps.Roles == nil {
		return nil, errors.New("identity: roles dependency is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &SessionManager{
		provider:  deps.Provider,
		roles:     deps.Roles,
		verifier:  deps.Verifier,
		logger:    logger,
		listeners: make(map[int]func(*domain.Session)),
	}, nil
}

// Login signs in with an email/password pair and establishes the session.
func (m *SessionManager) Login(ctx context.Context, email, password string) (domain.Session, error) {
	account, err := m.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return domain.Session{}, err
	}
	return m.establish(ctx, account)
}

// LoginWithGoogle signs in with a Google-issued ID token.
func (m *SessionManager) LoginWithGoogle(ctx context.Context, googleIDToken string) (domain.Session, error) {
	account, err := m.provider.SignInWithGoogle(ctx, googleIDToken)
	if err != nil {
		return domain.Session{}, err
	}
	return m.establish(ctx, account)
}

// Register creates the account, sets the display name, and establishes the
// session.
func (m *SessionManager) Register(ctx context.Context, displayName, email, password string) (domain.Session, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return domain.Session{}, fmt.Errorf("%w: display name is required", ErrInvalidInput)
	}

	account, err := m.provider.SignUp(ctx, email, password)
	if err != nil {
		return domain.Session{}, err
	}

	user, err := m.provider.UpdateDisplayName(ctx, account.IDToken, displayName)
	if err != nil {
		return domain.Session{}, fmt.Errorf("identity: set display name: %w", err)
	}
	account.User.DisplayName = user.DisplayName
	if account.User.DisplayName == "" {
		account.User.DisplayName = displayName
	}

	return m.establish(ctx, account)
}

// Logout clears the session and notifies subscribers.
func (m *SessionManager) Logout(_ context.Context) {
	m.mu.Lock()
	m.session = nil
	m.idToken = ""
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	for _, listener := range listeners {
		listener(nil)
	}
}

// Current returns the active session, when one exists.
func (m *SessionManager) Current() (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return domain.Session{}, false
	}
	return *m.session, true
}

// Subscribe registers a listener for auth-state changes. The listener fires
// immediately with the current state and on every subsequent change; the
// returned function unsubscribes it.
func (m *SessionManager) Subscribe(listener func(*domain.Session)) func() {
	if listener == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = listener
	current := m.session
	m.mu.Unlock()

	if current != nil {
		copied := *current
		listener(&copied)
	} else {
		listener(nil)
	}

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *SessionManager) establish(ctx context.Context, account Account) (domain.Session, error) {
	if m.verifier != nil {
		if _, err := m.verifier.VerifyIDToken(ctx, account.IDToken); err != nil {
			return domain.Session{}, fmt.Errorf("%w: token verification: %v", ErrInvalidCredentials, err)
		}
	}

	role := domain.RoleCustomer
	resolved, err := m.roles.Ensure(ctx, account.User)
	if err != nil {
		// A failed role lookup must not block sign-in; the session falls
		// back to the customer role.
		m.logger(ctx, "identity.role_lookup.failed", map[string]any{
			"uid":   account.User.UID,
			"error": err.Error(),
		})
	} else {
		role = resolved
	}

	session := domain.Session{User: account.User, Role: role}

	m.mu.Lock()
	m.session = &session
	m.idToken = account.IDToken
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	for _, listener := range listeners {
		copied := session
		listener(&copied)
	}
	return session, nil
}

// snapshotListeners must be called with the mutex held.
func (m *SessionManager) snapshotListeners() []func(*domain.Session) {
	out := make([]func(*domain.Session), 0, len(m.listeners))
	for _, listener := range m.listeners {
		out = append(out, listener)
	}
	return out
}
