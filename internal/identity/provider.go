package identity

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

// Account is an authenticated identity plus the tokens the backend issued.
type Account struct {
	User         domain.User
	IDToken      string
	RefreshToken string
}

// Provider is the hosted auth backend the session manager signs in against.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (Account, error)
	SignUp(ctx context.Context, email, password string) (Account, error)
	SignInWithGoogle(ctx context.Context, googleIDToken string) (Account, error)
	UpdateDisplayName(ctx context.Context, idToken, displayName string) (domain.User, error)
}

// RESTProvider signs users in through the Identity Toolkit REST API using the
// project's web API key.
type RESTProvider struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// RESTProviderOption customises RESTProvider behaviour.
type RESTProviderOption func(*RESTProvider)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) RESTProviderOption {
	return func(p *RESTProvider) {
		if client != nil {
			p.http = client
		}
	}
}

// NewRESTProvider constructs a provider rooted at the Identity Toolkit endpoint.
func NewRESTProvider(endpoint, apiKey string, opts ...RESTProviderOption) (*RESTProvider, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("identity: endpoint is required")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("identity: web api key is required")
	}

	provider := &RESTProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	return provider, nil
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type idpSignInRequest struct {
	PostBody          string `json:"postBody"`
	RequestURI        string `json:"requestUri"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
	ReturnIdpCreds    bool   `json:"returnIdpCredential"`
}

type updateRequest struct {
	IDToken           string `json:"idToken"`
	DisplayName       string `json:"displayName"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type accountPayload struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithPassword exchanges an email/password pair for an account.
func (p *RESTProvider) SignInWithPassword(ctx context.Context, email, password string) (Account, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Account{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	return p.call(ctx, "accounts:signInWithPassword", signInRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
}

// SignUp registers a new email/password account.
func (p *RESTProvider) SignUp(ctx context.Context, email, password string) (Account, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Account{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	return p.call(ctx, "accounts:signUp", signInRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
}

// SignInWithGoogle exchanges a Google-issued ID token for an account.
func (p *RESTProvider) SignInWithGoogle(ctx context.Context, googleIDToken string) (Account, error) {
	googleIDToken = strings.TrimSpace(googleIDToken)
	if googleIDToken == "" {
		return Account{}, fmt.Errorf("%w: google id token is required", ErrInvalidInput)
	}
	return p.call(ctx, "accounts:signInWithIdp", idpSignInRequest{
		PostBody:          "id_token=" + url.QueryEscape(googleIDToken) + "&providerId=google.com",
		RequestURI:        "http://localhost",
		ReturnSecureToken: true,
		ReturnIdpCreds:    true,
	})
}

// UpdateDisplayName sets the display name on the account owning the ID token.
func (p *RESTProvider) UpdateDisplayName(ctx context.Context, idToken, displayName string) (domain.User, error) {
	idToken = strings.TrimSpace(idToken)
	displayName = strings.TrimSpace(displayName)
	if idToken == "" {
		return domain.User{}, fmt.Errorf("%w: id token is required", ErrInvalidInput)
	}
	if displayName == "" {
		return domain.User{}, fmt.Errorf("%w: display name is required", ErrInvalidInput)
	}

	account, err := p.call(ctx, "accounts:update", updateRequest{
		IDToken:     idToken,
		DisplayName: displayName,
	})
	if err != nil {
		return domain.User{}, err
	}
	return account.User, nil
}

func (p *RESTProvider) call(ctx context.Context, action string, body any) (Account, error) {
	endpoint := fmt.Sprintf("%s/%s?key=%s", p.endpoint, action, url.QueryEscape(p.apiKey))
	payload, err := json.Marshal(body)
	if err != nil {
		return Account{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Account{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Account{}, translateError(resp.Body, resp.StatusCode)
	}

	var parsed accountPayload
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Account{}, err
	}
	return parsed.toAccount(), nil
}

func (p accountPayload) toAccount() Account {
	return Account{
		User: domain.User{
			UID:         strings.TrimSpace(p.LocalID),
			Email:       strings.TrimSpace(p.Email),
			DisplayName: strings.TrimSpace(p.DisplayName),
			PhotoURL:    strings.TrimSpace(p.PhotoURL),
		},
		IDToken:      p.IDToken,
		RefreshToken: p.RefreshToken,
	}
}

// translateError maps Identity Toolkit error codes onto package sentinels.
func translateError(body io.Reader, status int) error {
	raw, _ := io.ReadAll(io.LimitReader(body, 1024))

	var envelope errorEnvelope
	_ = json.Unmarshal(raw, &envelope)
	code := strings.ToUpper(strings.TrimSpace(envelope.Error.Message))

	switch {
	case strings.HasPrefix(code, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(code, "INVALID_PASSWORD"),
		strings.HasPrefix(code, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(code, "USER_DISABLED"),
		strings.HasPrefix(code, "INVALID_IDP_RESPONSE"):
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, code)
	case strings.HasPrefix(code, "EMAIL_EXISTS"):
		return fmt.Errorf("%w: %s", ErrEmailInUse, code)
	case strings.HasPrefix(code, "WEAK_PASSWORD"):
		return fmt.Errorf("%w: %s", ErrWeakPassword, code)
	}
	if status >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	}
	return fmt.Errorf("identity: auth backend status %d: %s", status, code)
}
